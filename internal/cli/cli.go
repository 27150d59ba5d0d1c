package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wolfman30/medipulse/internal/workflow"
)

// command is one subcommand. Commands flagged local run without opening the
// runtime.
type command struct {
	summary string
	local   func(ctx context.Context, env Env, args []string) error
	run     func(ctx context.Context, rt *Runtime, args []string) error
	// refresh commands sync local state before running unless offline.
	refresh bool
}

var commands = map[string]command{
	"login":          {summary: "store an identity token", local: runLogin},
	"logout":         {summary: "forget the stored identity token", local: runLogout},
	"whoami":         {summary: "show the signed-in identity", run: runWhoami},
	"sync":           {summary: "flush queued writes and pull the server collections", run: runSync},
	"watch":          {summary: "keep local state in sync and print notifications as they arrive", run: runWatch},
	"list":           {summary: "list visible appointments, earliest first", run: runList, refresh: true},
	"book":           {summary: "book an appointment with a doctor", run: runBook, refresh: true},
	"update":         {summary: "change an appointment's date, time or status", run: runUpdate, refresh: true},
	"accept":         {summary: "accept a pending appointment (admin)", run: runAccept, refresh: true},
	"reject":         {summary: "reject a pending appointment (admin)", run: runReject, refresh: true},
	"delete":         {summary: "delete an appointment", run: runDelete, refresh: true},
	"notifications":  {summary: "list notifications or mark one read", run: runNotifications},
	"doctors":        {summary: "list doctors", run: runDoctors, refresh: true},
	"slots":          {summary: "list a doctor's bookable half-hour slots on a day", run: runSlots, refresh: true},
	"add-doctor":     {summary: "add a doctor (admin)", run: runAddDoctor, refresh: true},
	"update-doctor":  {summary: "edit a doctor's profile (admin)", run: runUpdateDoctor, refresh: true},
	"remove-doctor":  {summary: "remove a doctor (admin)", run: runRemoveDoctor, refresh: true},
	"assistant-book": {summary: "book the way the voice assistant does", run: runAssistantBook, refresh: true},
	"assistant-add-doctor": {summary: "add a doctor with the default profile the way the voice assistant does",
		run: runAssistantAddDoctor, refresh: true},
}

// Run executes one invocation and returns the process exit code.
func Run(ctx context.Context, env Env, args []string) int {
	if env.Stdout == nil {
		env.Stdout = io.Discard
	}
	if env.Stderr == nil {
		env.Stderr = io.Discard
	}

	global := flag.NewFlagSet("medipulse", flag.ContinueOnError)
	global.SetOutput(env.Stderr)
	offline := global.Bool("offline", false, "work from the local cache without contacting the API")
	global.Usage = func() { usage(env.Stderr) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	rest := global.Args()
	if len(rest) == 0 {
		usage(env.Stderr)
		return 2
	}
	name, cmdArgs := rest[0], rest[1:]
	if name == "help" {
		usage(env.Stdout)
		return 0
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command %q\n", name)
		usage(env.Stderr)
		return 2
	}

	var err error
	if cmd.local != nil {
		err = cmd.local(ctx, env, cmdArgs)
	} else {
		var rt *Runtime
		rt, err = Open(ctx, env)
		if err == nil {
			if cmd.refresh && !*offline {
				rt.Sync(ctx)
			}
			err = cmd.run(ctx, rt, cmdArgs)
		}
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	case errors.Is(err, workflow.ErrNotPersisted):
		fmt.Fprintln(env.Stderr, mutedStyle.Render("saved locally; the server write is queued and will be retried"))
		return 0
	default:
		fmt.Fprintln(env.Stderr, "error:", err)
		return 1
	}
}

var errUsage = errors.New("cli: bad usage")

func newFlags(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// parse wraps flag parsing errors so Run maps them to exit code 2.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func required(fs *flag.FlagSet, names ...string) error {
	for _, n := range names {
		f := fs.Lookup(n)
		if f == nil || strings.TrimSpace(f.Value.String()) == "" {
			fmt.Fprintf(fs.Output(), "%s: -%s is required\n", fs.Name(), n)
			return errUsage
		}
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, headerStyle.Render("MediPulse"))
	fmt.Fprintln(w, "usage: medipulse [-offline] <command> [flags]")
	fmt.Fprintln(w)
	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(w, "  %-22s %s\n", n, commands[n].summary)
	}
}
