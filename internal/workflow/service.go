// Package workflow implements the booking and status operations a user
// performs. Every operation updates local state first and then persists via
// the API; writes that fail transiently are queued for retry and the
// optimistic local state is kept.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/client"
	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/outbox"
	"github.com/wolfman30/medipulse/internal/schedule"
	"github.com/wolfman30/medipulse/pkg/logging"
)

var workflowTracer = otel.Tracer("medipulse.internal.workflow")

var (
	// ErrForbidden is returned when the current identity may not perform
	// the operation.
	ErrForbidden = errors.New("workflow: forbidden")

	// ErrNotPersisted wraps the transport error of a write that was kept
	// locally and queued for retry.
	ErrNotPersisted = errors.New("workflow: saved locally, server sync pending")
)

// Service is safe for concurrent use.
type Service struct {
	state   *localstate.State
	remote  outbox.Remote
	queue   *outbox.Queue
	emitter *notify.Emitter
	logger  *logging.Logger

	now      func() time.Time
	meetLink func() string

	idMu   sync.Mutex
	lastID int64

	userMu sync.RWMutex
	user   identity.User
}

func New(state *localstate.State, remote outbox.Remote, emitter *notify.Emitter, logger *logging.Logger) *Service {
	if state == nil || remote == nil || emitter == nil {
		panic("workflow: state, remote and emitter required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		state:    state,
		remote:   remote,
		emitter:  emitter,
		logger:   logger,
		now:      time.Now,
		meetLink: schedule.MeetLink,
		user:     identity.Guest{},
	}
}

// WithOutbox queues failed writes on q instead of only logging them.
func (s *Service) WithOutbox(q *outbox.Queue) *Service {
	s.queue = q
	return s
}

func (s *Service) SetIdentity(u identity.User) {
	if u == nil {
		u = identity.Guest{}
	}
	s.userMu.Lock()
	s.user = u
	s.userMu.Unlock()
}

func (s *Service) Identity() identity.User {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	return s.user
}

// Appointments returns what the current identity may see, in stored order.
func (s *Service) Appointments() []appointments.Appointment {
	return identity.Visible(s.Identity(), s.state.Appointments())
}

// Schedule returns the visible appointments earliest first.
func (s *Service) Schedule() []appointments.Appointment {
	return schedule.SortChronological(s.Appointments(), s.now())
}

func (s *Service) Doctors() []appointments.Doctor {
	return s.state.Doctors()
}

// Slots lists the free half-hour start times for doctor on day.
func (s *Service) Slots(doctor appointments.Doctor, day time.Time) []string {
	return schedule.Slots(doctor, day, s.now())
}

func (s *Service) Notifications() []notify.Notification {
	return s.emitter.Inbox().All()
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) bool {
	return s.emitter.Inbox().MarkRead(ctx, id)
}

// nextID returns a millisecond timestamp id, bumped when two bookings land in
// the same millisecond.
func (s *Service) nextID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

func (s *Service) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span, func()) {
	ctx, span := workflowTracer.Start(ctx, "workflow."+op)
	span.SetAttributes(attrs...)
	end := s.state.BeginMutation()
	return ctx, span, func() {
		end()
		span.End()
	}
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// persist runs call and, when it fails transiently, queues entry for
// retry. The returned error wraps ErrNotPersisted in that case. A permanent
// rejection (4xx) is returned as is and nothing is queued.
func (s *Service) persist(ctx context.Context, span trace.Span, entry outbox.Entry, call func(context.Context) error) error {
	err := call(ctx)
	if err == nil {
		return nil
	}
	if client.IsPermanent(err) {
		s.logger.Warn("workflow: server rejected write", "op", entry.Op, "appointment_id", entry.Target(), "error", err)
		return fail(span, err)
	}
	s.logger.Warn("workflow: persist failed", "op", entry.Op, "appointment_id", entry.Target(), "error", err)
	if s.queue != nil {
		queued := s.queue.Enqueue(ctx, entry)
		span.SetAttributes(attribute.String("medipulse.outbox_entry", queued.ID))
	}
	return fail(span, fmt.Errorf("%w: %w", ErrNotPersisted, err))
}

func (s *Service) persistAppointment(ctx context.Context, span trace.Span, a appointments.Appointment) error {
	return s.persist(ctx, span, outbox.Add(a), func(ctx context.Context) error {
		_, err := s.remote.BookAppointment(ctx, a)
		return err
	})
}

func (s *Service) persistPatch(ctx context.Context, span trace.Span, p appointments.Patch) error {
	return s.persist(ctx, span, outbox.Update(p), func(ctx context.Context) error {
		_, err := s.remote.UpdateAppointment(ctx, p)
		return err
	})
}

// applyPatch merges p into local state. A missing id or a forbidden status
// change leaves state untouched and is reported.
func (s *Service) applyPatch(ctx context.Context, p appointments.Patch) (appointments.Appointment, error) {
	if err := p.Validate(); err != nil {
		return appointments.Appointment{}, err
	}
	var (
		updated  appointments.Appointment
		mergeErr error
		found    bool
	)
	s.state.MutateAppointments(ctx, func(list []appointments.Appointment) []appointments.Appointment {
		out, ok, err := appointments.Merge(list, p)
		if err != nil {
			mergeErr = err
			return list
		}
		found = ok
		if ok {
			updated, _ = appointments.Find(out, p.ID)
		}
		return out
	})
	if mergeErr != nil {
		return appointments.Appointment{}, mergeErr
	}
	if !found {
		return appointments.Appointment{}, fmt.Errorf("%w: %s", appointments.ErrNotFound, p.ID)
	}
	return updated, nil
}

func (s *Service) lookup(id string) (appointments.Appointment, error) {
	a, ok := appointments.Find(s.state.Appointments(), id)
	if !ok {
		return appointments.Appointment{}, fmt.Errorf("%w: %s", appointments.ErrNotFound, id)
	}
	return a, nil
}

func (s *Service) insert(ctx context.Context, a appointments.Appointment) {
	s.state.MutateAppointments(ctx, func(list []appointments.Appointment) []appointments.Appointment {
		out, _ := appointments.Insert(list, a)
		return out
	})
}
