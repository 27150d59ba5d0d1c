// Package outbox queues appointment writes that failed to reach the server
// and replays them with backoff.
package outbox

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/pkg/logging"
)

// Op is the remote call an entry replays.
type Op string

const (
	OpAdd     Op = "add"
	OpUpdate  Op = "update"
	OpDelete  Op = "delete"
	OpDoctors Op = "doctors"
)

// Entry is one pending write.
type Entry struct {
	ID            string                    `json:"id"`
	Op            Op                        `json:"op"`
	Appointment   *appointments.Appointment `json:"appointment,omitempty"`
	Patch         *appointments.Patch       `json:"patch,omitempty"`
	AppointmentID string                    `json:"appointmentId,omitempty"`
	Doctors       []appointments.Doctor     `json:"doctors,omitempty"`
	Attempts      int                       `json:"attempts"`
	NextAttempt   time.Time                 `json:"nextAttempt"`
	LastError     string                    `json:"lastError,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

// Target returns the appointment id the entry touches, if any.
func (e Entry) Target() string {
	switch e.Op {
	case OpAdd:
		if e.Appointment != nil {
			return e.Appointment.ID
		}
	case OpUpdate:
		if e.Patch != nil {
			return e.Patch.ID
		}
	case OpDelete:
		return e.AppointmentID
	}
	return ""
}

func Add(a appointments.Appointment) Entry     { return Entry{Op: OpAdd, Appointment: &a} }
func Update(p appointments.Patch) Entry        { return Entry{Op: OpUpdate, Patch: &p} }
func Delete(id string) Entry                   { return Entry{Op: OpDelete, AppointmentID: id} }
func Doctors(docs []appointments.Doctor) Entry { return Entry{Op: OpDoctors, Doctors: docs} }

// Queue is a FIFO of pending writes, persisted to the local cache.
type Queue struct {
	mu      sync.Mutex
	entries []Entry
	cache   localstate.Cache
	logger  *logging.Logger
	now     func() time.Time
}

func NewQueue(cache localstate.Cache, logger *logging.Logger) *Queue {
	if cache == nil {
		cache = localstate.NewMemoryCache()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Queue{cache: cache, logger: logger, now: time.Now}
}

// Load restores entries that survived a restart.
func (q *Queue) Load(ctx context.Context) {
	raw, ok, err := q.cache.Get(ctx, localstate.KeyOutbox)
	if err != nil {
		q.logger.Warn("outbox cache read failed", "error", err)
		return
	}
	if !ok {
		return
	}
	var entries []Entry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		q.logger.Warn("outbox cache is corrupt", "error", err)
		return
	}
	q.mu.Lock()
	q.entries = entries
	q.mu.Unlock()
}

// Enqueue appends e. A delete supersedes every queued write for the same
// appointment, and a doctor sync supersedes earlier doctor syncs. If the
// superseded writes included the add, nothing ever reached the server and
// the delete itself is dropped too.
func (q *Queue) Enqueue(ctx context.Context, e Entry) Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	now := q.now()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.NextAttempt.IsZero() {
		e.NextAttempt = now
	}

	kept := make([]Entry, 0, len(q.entries)+1)
	unsent := false
	for _, old := range q.entries {
		switch {
		case e.Op == OpDelete && old.Target() == e.AppointmentID:
			if old.Op == OpAdd {
				unsent = true
			}
			continue
		case e.Op == OpDoctors && old.Op == OpDoctors:
			continue
		}
		kept = append(kept, old)
	}
	if !unsent {
		kept = append(kept, e)
	}
	q.entries = kept
	q.persistLocked(ctx)
	return e
}

// Pending returns a copy of the queue in replay order.
func (q *Queue) Pending() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Head returns the oldest entry.
func (q *Queue) Head() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0], true
}

// Complete removes the entry with id.
func (q *Queue) Complete(ctx context.Context, id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID == id {
			q.entries = append(q.entries[:i:i], q.entries[i+1:]...)
			q.persistLocked(ctx)
			return
		}
	}
}

// Reschedule records a failed attempt and when to try again.
func (q *Queue) Reschedule(ctx context.Context, id string, cause error, next time.Time) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i := range q.entries {
		if q.entries[i].ID != id {
			continue
		}
		q.entries[i].Attempts++
		q.entries[i].NextAttempt = next
		if cause != nil {
			q.entries[i].LastError = cause.Error()
		}
		q.persistLocked(ctx)
		return
	}
}

// Overlay replays queued appointment writes on top of list so optimistic
// changes survive a reconciliation while their retries are pending.
func (q *Queue) Overlay(list []appointments.Appointment) []appointments.Appointment {
	out := list
	for _, e := range q.Pending() {
		switch e.Op {
		case OpAdd:
			if e.Appointment != nil {
				out, _ = appointments.Insert(out, *e.Appointment)
			}
		case OpUpdate:
			if e.Patch != nil {
				if merged, _, err := appointments.Merge(out, *e.Patch); err == nil {
					out = merged
				}
			}
		case OpDelete:
			out, _ = appointments.Remove(out, e.AppointmentID)
		}
	}
	return out
}

// OverlayDoctors returns the queued doctor roster when one is pending.
func (q *Queue) OverlayDoctors(list []appointments.Doctor) []appointments.Doctor {
	pending := q.Pending()
	for i := len(pending) - 1; i >= 0; i-- {
		if pending[i].Op == OpDoctors {
			return appointments.CloneDoctors(pending[i].Doctors)
		}
	}
	return list
}

func (q *Queue) persistLocked(ctx context.Context) {
	data, err := json.Marshal(q.entries)
	if err != nil {
		q.logger.Warn("outbox encode failed", "error", err)
		return
	}
	if err := q.cache.Set(ctx, localstate.KeyOutbox, string(data)); err != nil {
		q.logger.Warn("outbox cache write failed", "error", err)
	}
}
