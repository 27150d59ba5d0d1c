// Package localstate holds the client's copy of the appointment and doctor
// collections. All read-modify-write sequences run under one mutex, and a
// generation counter lets a reconciliation pass detect that a local mutation
// happened while it was waiting on the network.
package localstate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// State is safe for concurrent use.
type State struct {
	mu           sync.Mutex
	appointments []appointments.Appointment
	doctors      []appointments.Doctor
	generation   uint64
	inflight     int

	cache  Cache
	logger *logging.Logger
}

// New builds an empty state backed by cache. A nil cache keeps everything
// in memory.
func New(cache Cache, logger *logging.Logger) *State {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &State{cache: cache, logger: logger}
}

// Load restores the collections from the cache. Unreadable entries are
// ignored.
func (s *State) Load(ctx context.Context) {
	var apts []appointments.Appointment
	var docs []appointments.Doctor
	s.read(ctx, KeyAppointments, &apts)
	s.read(ctx, KeyDoctors, &docs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = apts
	s.doctors = docs
}

func (s *State) read(ctx context.Context, key string, dst any) {
	raw, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("local cache read failed", "key", key, "error", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.logger.Warn("local cache entry is corrupt", "key", key, "error", err)
	}
}

// Cache exposes the blob store so siblings (inbox, outbox) share it.
func (s *State) Cache() Cache { return s.cache }

// Appointments returns a copy of the local appointment collection.
func (s *State) Appointments() []appointments.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appointments.Clone(s.appointments)
}

// Doctors returns a copy of the local doctor collection.
func (s *State) Doctors() []appointments.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appointments.CloneDoctors(s.doctors)
}

// Generation identifies the current version of the local appointments.
func (s *State) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// BeginMutation marks a workflow operation as in flight until the returned
// func is called. Reconciliation passes do not overwrite local state while
// any operation is in flight.
func (s *State) BeginMutation() (end func()) {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.inflight--
			s.mu.Unlock()
		})
	}
}

// Busy reports whether a workflow operation is in flight.
func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// MutateAppointments applies fn to the local collection atomically. fn must
// not modify its argument in place.
func (s *State) MutateAppointments(ctx context.Context, fn func([]appointments.Appointment) []appointments.Appointment) []appointments.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appointments = fn(s.appointments)
	s.generation++
	s.write(ctx, KeyAppointments, s.appointments)
	return appointments.Clone(s.appointments)
}

// MutateDoctors applies fn to the local doctor collection atomically.
func (s *State) MutateDoctors(ctx context.Context, fn func([]appointments.Doctor) []appointments.Doctor) []appointments.Doctor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors = fn(s.doctors)
	s.write(ctx, KeyDoctors, s.doctors)
	return appointments.CloneDoctors(s.doctors)
}

// ReconcileResult describes what a reconciliation did to local state.
type ReconcileResult struct {
	// Applied is false when the local collection moved on since gen.
	Applied bool
	// NewIDs lists server ids that were absent locally, in server order.
	NewIDs  []string
	Changed bool
}

// ReconcileAppointments replaces the local collection with server if local
// state is still at generation gen and no mutation is in flight.
func (s *State) ReconcileAppointments(ctx context.Context, gen uint64, server []appointments.Appointment) ReconcileResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.inflight > 0 {
		return ReconcileResult{}
	}
	local := appointments.IDs(s.appointments)
	var fresh []string
	for _, a := range server {
		if _, ok := local[a.ID]; !ok {
			fresh = append(fresh, a.ID)
		}
	}
	res := ReconcileResult{Applied: true, NewIDs: fresh}
	if appointments.SameJSON(s.appointments, server) {
		return res
	}
	s.appointments = appointments.Clone(server)
	s.generation++
	s.write(ctx, KeyAppointments, s.appointments)
	res.Changed = true
	return res
}

// ReconcileDoctors replaces local doctors with server when server is
// non-empty and different. It reports whether anything changed.
func (s *State) ReconcileDoctors(ctx context.Context, server []appointments.Doctor) bool {
	if len(server) == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if appointments.SameJSON(s.doctors, server) {
		return false
	}
	s.doctors = appointments.CloneDoctors(server)
	s.write(ctx, KeyDoctors, s.doctors)
	return true
}

// write persists value; callers hold s.mu so cache writes keep mutation order.
func (s *State) write(ctx context.Context, key string, value any) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("local cache encode failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, string(data)); err != nil {
		s.logger.Warn("local cache write failed", "key", key, "error", err)
	}
}
