package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/client"
	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// Remote is the subset of the API client the worker replays against.
type Remote interface {
	BookAppointment(ctx context.Context, apt appointments.Appointment) ([]appointments.Appointment, error)
	UpdateAppointment(ctx context.Context, p appointments.Patch) ([]appointments.Appointment, error)
	DeleteAppointment(ctx context.Context, id string) ([]appointments.Appointment, error)
	SyncData(ctx context.Context, req client.SyncRequest) error
}

var errMalformedEntry = errors.New("outbox: malformed entry")

// RetryWorker drains the queue in order. A transiently failing head entry
// blocks the entries behind it so writes reach the server in the order they
// were made.
type RetryWorker struct {
	queue       *Queue
	remote      Remote
	logger      *logging.Logger
	metrics     *metrics.SyncMetrics
	interval    time.Duration
	baseBackoff time.Duration
	maxBackoff  time.Duration
	maxAttempts int
	now         func() time.Time
	onDelivered func(Entry)
}

func NewRetryWorker(queue *Queue, remote Remote, logger *logging.Logger) *RetryWorker {
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryWorker{
		queue:       queue,
		remote:      remote,
		logger:      logger,
		interval:    time.Second,
		baseBackoff: 2 * time.Second,
		maxBackoff:  2 * time.Minute,
		maxAttempts: 10,
		now:         time.Now,
	}
}

func (w *RetryWorker) WithInterval(d time.Duration) *RetryWorker {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *RetryWorker) WithBackoff(base, max time.Duration) *RetryWorker {
	if base > 0 {
		w.baseBackoff = base
	}
	if max >= w.baseBackoff {
		w.maxBackoff = max
	}
	return w
}

func (w *RetryWorker) WithMaxAttempts(n int) *RetryWorker {
	if n > 0 {
		w.maxAttempts = n
	}
	return w
}

func (w *RetryWorker) WithMetrics(m *metrics.SyncMetrics) *RetryWorker {
	w.metrics = m
	return w
}

// OnDelivered registers a callback run after each successful replay.
func (w *RetryWorker) OnDelivered(fn func(Entry)) *RetryWorker {
	w.onDelivered = fn
	return w
}

// Run drains the queue every interval until ctx is cancelled.
func (w *RetryWorker) Run(ctx context.Context) {
	if w.queue == nil || w.remote == nil {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Drain(ctx)
		}
	}
}

// Drain replays due entries from the head of the queue and returns how many
// were delivered.
func (w *RetryWorker) Drain(ctx context.Context) int {
	delivered := 0
	defer func() { w.metrics.SetOutboxDepth(w.queue.Len()) }()
	for ctx.Err() == nil {
		e, ok := w.queue.Head()
		if !ok || e.NextAttempt.After(w.now()) {
			return delivered
		}
		err := w.replay(ctx, e)
		switch {
		case err == nil:
			w.queue.Complete(ctx, e.ID)
			w.metrics.ObserveRetry(string(e.Op), "delivered")
			w.logger.Info("outbox entry delivered", "entry_id", e.ID, "op", e.Op, "appointment_id", e.Target(), "attempts", e.Attempts+1)
			if w.onDelivered != nil {
				w.onDelivered(e)
			}
			delivered++
		case client.IsPermanent(err) || errors.Is(err, errMalformedEntry):
			w.queue.Complete(ctx, e.ID)
			w.metrics.ObserveRetry(string(e.Op), "rejected")
			w.logger.Error("outbox entry rejected by server", "entry_id", e.ID, "op", e.Op, "appointment_id", e.Target(), "error", err)
		case e.Attempts+1 >= w.maxAttempts:
			w.queue.Complete(ctx, e.ID)
			w.metrics.ObserveRetry(string(e.Op), "exhausted")
			w.logger.Error("outbox entry dropped after retries", "entry_id", e.ID, "op", e.Op, "attempts", e.Attempts+1, "error", err)
		default:
			next := w.now().Add(w.backoff(e.Attempts))
			w.queue.Reschedule(ctx, e.ID, err, next)
			w.metrics.ObserveRetry(string(e.Op), "retry")
			w.logger.Warn("outbox entry failed, will retry", "entry_id", e.ID, "op", e.Op, "next_attempt", next, "error", err)
			return delivered
		}
	}
	return delivered
}

func (w *RetryWorker) backoff(attempts int) time.Duration {
	d := w.baseBackoff
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= w.maxBackoff {
			return w.maxBackoff
		}
	}
	return d
}

func (w *RetryWorker) replay(ctx context.Context, e Entry) error {
	var err error
	switch e.Op {
	case OpAdd:
		if e.Appointment == nil {
			return fmt.Errorf("%w: add without appointment", errMalformedEntry)
		}
		_, err = w.remote.BookAppointment(ctx, *e.Appointment)
	case OpUpdate:
		if e.Patch == nil {
			return fmt.Errorf("%w: update without patch", errMalformedEntry)
		}
		_, err = w.remote.UpdateAppointment(ctx, *e.Patch)
	case OpDelete:
		_, err = w.remote.DeleteAppointment(ctx, e.AppointmentID)
	case OpDoctors:
		err = w.remote.SyncData(ctx, client.SyncRequest{Doctors: e.Doctors})
	default:
		return fmt.Errorf("%w: unknown op %q", errMalformedEntry, e.Op)
	}
	return err
}
