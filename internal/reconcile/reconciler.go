// Package reconcile periodically pulls the server collections and merges
// them into local state without clobbering local writes that are still in
// flight.
package reconcile

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/internal/outbox"
	"github.com/wolfman30/medipulse/pkg/logging"
)

const DefaultInterval = 5 * time.Second

// Pass outcomes, also used as metric labels.
const (
	OutcomeOK       = "ok"
	OutcomeSkipped  = "skipped"
	OutcomeBusy     = "busy"
	OutcomeStale    = "stale"
	OutcomeFetchErr = "fetch_error"
)

// Fetcher reads the server collections.
type Fetcher interface {
	FetchAppointments(ctx context.Context) ([]appointments.Appointment, error)
	FetchDoctors(ctx context.Context) ([]appointments.Doctor, error)
}

// Reconciler runs reconciliation passes on a fixed interval and on demand.
// Passes never overlap.
type Reconciler struct {
	fetcher  Fetcher
	state    *localstate.State
	emitter  *notify.Emitter
	queue    *outbox.Queue
	metrics  *metrics.SyncMetrics
	logger   *logging.Logger
	interval time.Duration
	now      func() time.Time

	running atomic.Bool
	trigger chan struct{}

	mu     sync.Mutex
	user   identity.User
	epoch  uint64
	primed bool
}

func New(fetcher Fetcher, state *localstate.State, emitter *notify.Emitter, logger *logging.Logger) *Reconciler {
	if fetcher == nil || state == nil {
		panic("reconcile: fetcher and state required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		fetcher:  fetcher,
		state:    state,
		emitter:  emitter,
		logger:   logger,
		interval: DefaultInterval,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		user:     identity.Guest{},
	}
}

func (r *Reconciler) WithInterval(d time.Duration) *Reconciler {
	if d > 0 {
		r.interval = d
	}
	return r
}

// WithOutbox makes passes replay queued writes over the fetched collection.
func (r *Reconciler) WithOutbox(q *outbox.Queue) *Reconciler {
	r.queue = q
	return r
}

func (r *Reconciler) WithMetrics(m *metrics.SyncMetrics) *Reconciler {
	r.metrics = m
	return r
}

// SetIdentity switches the signed-in user. The first pass for the new
// identity only primes local state, so the existing backlog is not announced
// as new bookings.
func (r *Reconciler) SetIdentity(u identity.User) {
	if u == nil {
		u = identity.Guest{}
	}
	r.mu.Lock()
	r.user = u
	r.epoch++
	r.primed = false
	r.mu.Unlock()
	r.Trigger()
}

func (r *Reconciler) Identity() identity.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.user
}

// Primed reports whether a pass has completed for the current identity.
func (r *Reconciler) Primed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.primed
}

// Trigger requests a pass as soon as possible. Requests coalesce.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run performs a pass immediately and then on every tick or trigger until
// ctx is cancelled. A pass already under way when ctx ends is allowed to
// finish and apply its merge.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	passCtx := context.WithoutCancel(ctx)

	r.Pass(passCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-r.trigger:
		}
		r.Pass(passCtx)
	}
}

// Pass runs one reconciliation and returns its outcome. A call made while
// another pass is running returns OutcomeSkipped immediately.
func (r *Reconciler) Pass(ctx context.Context) string {
	if !r.running.CompareAndSwap(false, true) {
		r.metrics.ObservePass(OutcomeSkipped, 0)
		return OutcomeSkipped
	}
	defer r.running.Store(false)

	start := r.now()
	outcome := r.pass(ctx)
	r.metrics.ObservePass(outcome, r.now().Sub(start).Seconds())
	return outcome
}

func (r *Reconciler) pass(ctx context.Context) string {
	if r.state.Busy() {
		return OutcomeBusy
	}
	r.mu.Lock()
	user, epoch, primed := r.user, r.epoch, r.primed
	r.mu.Unlock()

	gen := r.state.Generation()
	server, err := r.fetcher.FetchAppointments(ctx)
	if err != nil {
		r.logger.Warn("reconcile: fetch appointments failed", "error", err)
		return OutcomeFetchErr
	}
	if r.queue != nil {
		server = r.queue.Overlay(server)
	}

	res := r.state.ReconcileAppointments(ctx, gen, server)
	if !res.Applied {
		r.logger.Debug("reconcile: local state moved during fetch, skipping merge")
		return OutcomeStale
	}
	if res.Changed {
		r.logger.Debug("reconcile: appointments updated", "count", len(server), "new", len(res.NewIDs))
	}

	if primed && identity.IsAdmin(user) && r.sameEpoch(epoch) {
		r.announce(ctx, server, res.NewIDs)
	}
	r.markPrimed(epoch)

	docs, err := r.fetcher.FetchDoctors(ctx)
	if err != nil {
		r.logger.Warn("reconcile: fetch doctors failed", "error", err)
		return OutcomeOK
	}
	if r.queue != nil {
		docs = r.queue.OverlayDoctors(docs)
	}
	if r.state.ReconcileDoctors(ctx, docs) {
		r.logger.Debug("reconcile: doctors updated", "count", len(docs))
	}
	return OutcomeOK
}

func (r *Reconciler) announce(ctx context.Context, server []appointments.Appointment, ids []string) {
	if r.emitter == nil || len(ids) == 0 {
		return
	}
	now := r.now()
	batch := make([]notify.Notification, 0, len(ids))
	for _, id := range ids {
		if a, ok := appointments.Find(server, id); ok {
			batch = append(batch, notify.NewBooking(a, now))
		}
	}
	r.emitter.Emit(ctx, notify.Delivery{Chime: true}, batch...)
	r.metrics.AddNotifications(len(batch))
	r.logger.Info("reconcile: new bookings", "count", len(batch))
}

func (r *Reconciler) sameEpoch(epoch uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.epoch == epoch
}

func (r *Reconciler) markPrimed(epoch uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.epoch == epoch {
		r.primed = true
	}
}
