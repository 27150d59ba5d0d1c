package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/internal/schedule"
	"github.com/wolfman30/medipulse/pkg/logging"
)

const defaultSaveTimeout = 5 * time.Second

// Options tunes a Store.
type Options struct {
	Metrics     *metrics.StoreMetrics
	Now         func() time.Time
	SaveTimeout time.Duration
	// OnChange runs after every mutation that changed a collection.
	OnChange func(Collection)
}

// Store owns the two collections. Every mutation is serialized, applied in
// memory and then written through to the backend. Backend failures are
// logged and leave the in-memory state authoritative.
type Store struct {
	mu           sync.Mutex
	backend      Backend
	appointments []appointments.Appointment
	doctors      []appointments.Doctor
	degraded     bool

	logger      *logging.Logger
	metrics     *metrics.StoreMetrics
	now         func() time.Time
	saveTimeout time.Duration
	onChange    func(Collection)
}

// Open loads both collections from backend. Missing or unreadable
// collections start from the seed data; Open itself never fails on backend
// errors.
func Open(ctx context.Context, backend Backend, logger *logging.Logger, opts Options) *Store {
	if backend == nil {
		backend = NewMemoryBackend()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{
		backend:     backend,
		logger:      logger.With("backend", backend.Name()),
		metrics:     opts.Metrics,
		now:         opts.Now,
		saveTimeout: opts.SaveTimeout,
		onChange:    opts.OnChange,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.saveTimeout <= 0 {
		s.saveTimeout = defaultSaveTimeout
	}

	if !s.load(ctx, Appointments, &s.appointments) {
		s.appointments = appointments.SeedAppointments(s.now())
	}
	if !s.load(ctx, Doctors, &s.doctors) {
		s.doctors = appointments.SeedDoctors()
	}
	s.metrics.SetDegraded(s.degraded)
	return s
}

func (s *Store) load(ctx context.Context, c Collection, dst any) bool {
	data, err := s.backend.Load(ctx, c)
	switch {
	case errors.Is(err, ErrNotFound):
		s.logger.Info("collection not persisted yet, using seed data", "collection", c)
		return false
	case err != nil:
		s.logger.Warn("collection load failed, using seed data", "collection", c, "error", err)
		s.degraded = true
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("collection is corrupt, using seed data", "collection", c, "error", err)
		return false
	}
	return true
}

// Appointments returns the appointment collection, most recent first.
func (s *Store) Appointments() []appointments.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appointments.Clone(s.appointments)
}

// Doctors returns the doctor collection.
func (s *Store) Doctors() []appointments.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appointments.CloneDoctors(s.doctors)
}

// Degraded reports whether the last backend interaction failed.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Add inserts apt unless its id already exists. The returned bool reports
// whether the collection changed.
func (s *Store) Add(ctx context.Context, apt appointments.Appointment) ([]appointments.Appointment, bool, error) {
	if err := apt.Validate(); err != nil {
		s.metrics.ObserveMutation("add", "invalid")
		return nil, false, err
	}
	if apt.ScheduledAt == nil {
		if at, ok := schedule.Resolve(apt, s.now()); ok {
			apt.ScheduledAt = &at
		}
	}

	s.mu.Lock()
	next, added := appointments.Insert(s.appointments, apt)
	if added {
		s.appointments = next
		s.persistLocked(ctx, Appointments, next)
	}
	out := appointments.Clone(s.appointments)
	s.mu.Unlock()

	if added {
		s.metrics.ObserveMutation("add", "ok")
		s.changed(Appointments)
	} else {
		s.metrics.ObserveMutation("add", "duplicate")
		s.logger.Debug("duplicate add ignored", "appointment_id", apt.ID)
	}
	return out, added, nil
}

// Update merges the non-nil fields of p into the matching appointment. An
// unknown id is a no-op. A status change outside the lifecycle returns
// appointments.ErrInvalidTransition.
func (s *Store) Update(ctx context.Context, p appointments.Patch) ([]appointments.Appointment, bool, error) {
	if err := p.Validate(); err != nil {
		s.metrics.ObserveMutation("update", "invalid")
		return nil, false, err
	}

	s.mu.Lock()
	next, updated, err := appointments.Merge(s.appointments, p)
	if err != nil {
		s.mu.Unlock()
		s.metrics.ObserveMutation("update", "conflict")
		return nil, false, err
	}
	if updated {
		if i := appointments.IndexOf(next, p.ID); i >= 0 {
			next[i] = restamp(next[i], p, s.now())
		}
		s.appointments = next
		s.persistLocked(ctx, Appointments, next)
	}
	out := appointments.Clone(s.appointments)
	s.mu.Unlock()

	if updated {
		s.metrics.ObserveMutation("update", "ok")
		s.changed(Appointments)
	} else {
		s.metrics.ObserveMutation("update", "not_found")
	}
	return out, updated, nil
}

// restamp keeps the canonical instant in step with a patch that moves the
// display date or time. A time-only change keeps the day already on record.
func restamp(a appointments.Appointment, p appointments.Patch, now time.Time) appointments.Appointment {
	if p.ScheduledAt != nil || (p.Date == nil && p.Time == nil) {
		return a
	}
	if p.Date == nil && a.ScheduledAt != nil {
		if clock, err := time.Parse("15:04", a.Time); err == nil {
			prev := *a.ScheduledAt
			at := time.Date(prev.Year(), prev.Month(), prev.Day(), clock.Hour(), clock.Minute(), 0, 0, prev.Location())
			a.ScheduledAt = &at
			return a
		}
	}
	a.ScheduledAt = nil
	if at, ok := schedule.Resolve(a, now); ok {
		a.ScheduledAt = &at
	}
	return a
}

// Delete removes the appointment with id. An unknown id is a no-op.
func (s *Store) Delete(ctx context.Context, id string) ([]appointments.Appointment, bool, error) {
	if id == "" {
		s.metrics.ObserveMutation("delete", "invalid")
		return nil, false, fmt.Errorf("%w: appointmentId is required", appointments.ErrInvalidAppointment)
	}

	s.mu.Lock()
	next, removed := appointments.Remove(s.appointments, id)
	if removed {
		s.appointments = next
		s.persistLocked(ctx, Appointments, next)
	}
	out := appointments.Clone(s.appointments)
	s.mu.Unlock()

	if removed {
		s.metrics.ObserveMutation("delete", "ok")
		s.changed(Appointments)
	} else {
		s.metrics.ObserveMutation("delete", "not_found")
	}
	return out, removed, nil
}

// ReplaceDoctors swaps the whole doctor collection.
func (s *Store) ReplaceDoctors(ctx context.Context, doctors []appointments.Doctor) error {
	for _, d := range doctors {
		if err := d.Validate(); err != nil {
			s.metrics.ObserveMutation("sync_doctors", "invalid")
			return err
		}
	}
	next := appointments.CloneDoctors(doctors)

	s.mu.Lock()
	s.doctors = next
	s.persistLocked(ctx, Doctors, next)
	s.mu.Unlock()

	s.metrics.ObserveMutation("sync_doctors", "ok")
	s.changed(Doctors)
	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// persistLocked writes value through to the backend. Failures only flip the
// degraded flag.
func (s *Store) persistLocked(ctx context.Context, c Collection, value any) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err == nil {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.saveTimeout)
		err = s.backend.Save(saveCtx, c, data)
		cancel()
	}
	s.metrics.ObservePersist(s.backend.Name(), string(c), err)
	if err != nil {
		if !s.degraded {
			s.logger.Error("persist failed, serving from memory", "collection", c, "error", err)
		}
		s.degraded = true
		s.metrics.SetDegraded(true)
		return
	}
	if s.degraded {
		s.logger.Info("persistence recovered", "collection", c)
		s.degraded = false
		s.metrics.SetDegraded(false)
	}
}

func (s *Store) changed(c Collection) {
	if s.onChange != nil {
		s.onChange(c)
	}
}
