// Package cli implements the medipulse terminal client: it keeps a local
// copy of the appointment collections in sync with the API and runs the
// booking workflow against it.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wolfman30/medipulse/internal/client"
	appconfig "github.com/wolfman30/medipulse/internal/config"
	"github.com/wolfman30/medipulse/internal/credential"
	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/internal/outbox"
	"github.com/wolfman30/medipulse/internal/reconcile"
	"github.com/wolfman30/medipulse/internal/workflow"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// Env is everything a command needs from the process.
type Env struct {
	Config     *appconfig.Config
	Creds      *credential.Store
	Cache      localstate.Cache
	Email      notify.EmailSender
	HTTPClient *http.Client
	Metrics    *metrics.SyncMetrics
	Logger     *logging.Logger
	Stdout     io.Writer
	Stderr     io.Writer
}

// Runtime is the wired client for one invocation.
type Runtime struct {
	cfg        *appconfig.Config
	env        Env
	token      string
	user       identity.User
	api        *client.Client
	state      *localstate.State
	queue      *outbox.Queue
	emitter    *notify.Emitter
	workflow   *workflow.Service
	reconciler *reconcile.Reconciler
	worker     *outbox.RetryWorker
}

// Open loads the cached collections and binds them to the stored identity.
func Open(ctx context.Context, env Env) (*Runtime, error) {
	if env.Config == nil || env.Creds == nil || env.Cache == nil {
		return nil, errors.New("cli: config, credentials and cache required")
	}
	if env.Logger == nil {
		env.Logger = logging.Default()
	}
	if env.Stdout == nil {
		env.Stdout = io.Discard
	}
	if env.Stderr == nil {
		env.Stderr = io.Discard
	}
	cfg := env.Config
	logger := env.Logger

	token, err := env.Creds.Token()
	if err != nil && !errors.Is(err, credential.ErrNoToken) {
		return nil, err
	}
	user, err := identity.ParseToken(token, cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("cli: stored token rejected, run login again: %w", err)
	}

	api, err := client.New(cfg.APIBaseURL, logger)
	if err != nil {
		return nil, err
	}
	if env.HTTPClient != nil {
		api = api.WithHTTPClient(env.HTTPClient)
	}
	if token != "" {
		api = api.WithBearerToken(token)
	}

	state := localstate.New(env.Cache, logger)
	state.Load(ctx)
	inbox := notify.NewInbox(env.Cache, logger)
	inbox.Load(ctx)
	queue := outbox.NewQueue(env.Cache, logger)
	queue.Load(ctx)

	var chime notify.Chime = notify.NopChime{}
	if cfg.Chime {
		chime = notify.NewBellChime(env.Stdout)
	}
	emitter := notify.NewEmitter(inbox, chime, env.Email, logger)

	wf := workflow.New(state, api, emitter, logger).WithOutbox(queue)
	wf.SetIdentity(user)
	rec := reconcile.New(api, state, emitter, logger).
		WithInterval(cfg.SyncInterval).
		WithOutbox(queue).
		WithMetrics(env.Metrics)
	rec.SetIdentity(user)
	worker := outbox.NewRetryWorker(queue, api, logger).
		WithBackoff(cfg.OutboxRetryBase, cfg.OutboxRetryMax).
		WithMaxAttempts(cfg.OutboxMaxAttempts).
		WithMetrics(env.Metrics)

	return &Runtime{
		cfg:        cfg,
		env:        env,
		token:      token,
		user:       user,
		api:        api,
		state:      state,
		queue:      queue,
		emitter:    emitter,
		workflow:   wf,
		reconciler: rec,
		worker:     worker,
	}, nil
}

// Identity is the user the stored token resolved to.
func (rt *Runtime) Identity() identity.User { return rt.user }

// Workflow exposes the booking service.
func (rt *Runtime) Workflow() *workflow.Service { return rt.workflow }

// Sync flushes queued writes and then runs one reconciliation pass.
func (rt *Runtime) Sync(ctx context.Context) (delivered int, outcome string) {
	delivered = rt.worker.Drain(ctx)
	return delivered, rt.reconciler.Pass(ctx)
}
