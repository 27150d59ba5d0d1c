package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/realtime"
)

func runLogin(_ context.Context, env Env, args []string) error {
	fs := newFlags("login", env.Stderr)
	token := fs.String("token", "", "identity token issued by the identity provider")
	email := fs.String("email", "", "issue a local token for this email (needs JWT_SECRET)")
	name := fs.String("name", "", "display name for an issued token")
	mobile := fs.String("mobile", "", "mobile number for an issued token")
	role := fs.String("role", string(identity.RolePatient), "role for an issued token: patient or admin")
	if err := parse(fs, args); err != nil {
		return err
	}
	if env.Config == nil || env.Creds == nil {
		return errors.New("cli: config and credentials required")
	}
	secret := env.Config.JWTSecret

	tok := strings.TrimSpace(*token)
	if tok == "" {
		if strings.TrimSpace(*email) == "" && strings.TrimSpace(*mobile) == "" {
			fmt.Fprintln(fs.Output(), "login: pass -token, or -email/-mobile to issue a local token")
			return errUsage
		}
		r := identity.Role(strings.ToLower(strings.TrimSpace(*role)))
		if r != identity.RolePatient && r != identity.RoleAdmin {
			fmt.Fprintf(fs.Output(), "login: unknown role %q\n", *role)
			return errUsage
		}
		if secret == "" {
			return errors.New("cli: JWT_SECRET must be set to issue a local token")
		}
		issued, err := identity.IssueToken(identity.Authenticated{
			ID:     strings.TrimSpace(*email),
			Name:   strings.TrimSpace(*name),
			Email:  strings.TrimSpace(*email),
			Mobile: strings.TrimSpace(*mobile),
			Role:   r,
		}, secret)
		if err != nil {
			return fmt.Errorf("cli: issuing token: %w", err)
		}
		tok = issued
	}

	user, err := identity.ParseToken(tok, secret)
	if err != nil {
		return err
	}
	if err := env.Creds.SetToken(tok); err != nil {
		return err
	}
	fmt.Fprintln(env.Stdout, "Signed in as", describe(user))
	return nil
}

func runLogout(_ context.Context, env Env, args []string) error {
	if err := parse(newFlags("logout", env.Stderr), args); err != nil {
		return err
	}
	if env.Creds == nil {
		return errors.New("cli: credentials required")
	}
	if err := env.Creds.Clear(); err != nil {
		return err
	}
	fmt.Fprintln(env.Stdout, "Signed out")
	return nil
}

func runWhoami(_ context.Context, rt *Runtime, args []string) error {
	if err := parse(newFlags("whoami", rt.env.Stderr), args); err != nil {
		return err
	}
	fmt.Fprintln(rt.env.Stdout, describe(rt.user))
	return nil
}

func describe(u identity.User) string {
	a, ok := u.(identity.Authenticated)
	if !ok {
		return "guest"
	}
	who := a.Email
	if who == "" {
		who = a.Mobile
	}
	if a.Name != "" {
		who = a.Name + " <" + who + ">"
	}
	if identity.IsAdmin(a) {
		return who + " (admin)"
	}
	return who + " (" + string(a.Role) + ")"
}

func runSync(ctx context.Context, rt *Runtime, args []string) error {
	if err := parse(newFlags("sync", rt.env.Stderr), args); err != nil {
		return err
	}
	delivered, outcome := rt.Sync(ctx)
	fmt.Fprintf(rt.env.Stdout, "pass: %s, delivered: %d, queued: %d\n", outcome, delivered, rt.queue.Len())
	return nil
}

// runWatch keeps the client running until ctx ends: periodic and
// event-driven reconciliation, outbox retries, and a printout of every new
// notification.
func runWatch(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("watch", rt.env.Stderr)
	printEvery := fs.Duration("print-interval", time.Second, "how often to check for new notifications")
	if err := parse(fs, args); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, n := range rt.workflow.Notifications() {
		seen[n.ID] = true
	}

	var wg sync.WaitGroup
	start := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
		}()
	}
	start(rt.reconciler.Run)
	start(rt.worker.Run)
	if rt.cfg.RealtimeEnabled {
		w := realtime.NewWatcher(rt.api.EventsURL(), func(realtime.Event) {
			rt.reconciler.Trigger()
		}, rt.env.Logger).WithHeader(rt.api.Header())
		start(w.Run)
	}

	fmt.Fprintln(rt.env.Stdout, headerStyle.Render("MediPulse"), mutedStyle.Render("watching as "+describe(rt.user)))
	ticker := time.NewTicker(*printEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case <-ticker.C:
			all := rt.workflow.Notifications()
			// The inbox is newest first; print oldest first.
			for i := len(all) - 1; i >= 0; i-- {
				if n := all[i]; !seen[n.ID] {
					seen[n.ID] = true
					printNotification(rt.env.Stdout, n)
				}
			}
		}
	}
}
