package outbox

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/client"
	"github.com/wolfman30/medipulse/internal/localstate"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func apt(id string) appointments.Appointment {
	return appointments.Appointment{
		ID: id, PatientName: "Jane", DoctorName: "Dr. Smith", Date: "Today", Time: "10:00",
		Status: appointments.StatusPending, Type: appointments.KindInPerson,
	}
}

func newTestQueue(t *testing.T, now time.Time) (*Queue, localstate.Cache) {
	t.Helper()
	cache := localstate.NewMemoryCache()
	q := NewQueue(cache, logging.Discard())
	q.now = func() time.Time { return now }
	return q, cache
}

func TestQueue_DeleteSupersedesPendingWrites(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, time.Now())

	q.Enqueue(ctx, Add(apt("a1")))
	status := appointments.StatusCancelled
	q.Enqueue(ctx, Update(appointments.Patch{ID: "a1", Status: &status}))
	q.Enqueue(ctx, Add(apt("a2")))
	q.Enqueue(ctx, Delete("a1"))

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "a2", pending[0].Target())
}

func TestQueue_DeleteOfServerRecordIsKept(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, time.Now())

	status := appointments.StatusCancelled
	q.Enqueue(ctx, Update(appointments.Patch{ID: "a1", Status: &status}))
	q.Enqueue(ctx, Delete("a1"))

	pending := q.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, OpDelete, pending[0].Op)
}

func TestQueue_LatestDoctorSyncWins(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, time.Now())

	q.Enqueue(ctx, Doctors([]appointments.Doctor{{Name: "A", Specialty: "GP"}}))
	q.Enqueue(ctx, Doctors([]appointments.Doctor{{Name: "B", Specialty: "GP"}}))
	require.Equal(t, 1, q.Len())

	docs := q.OverlayDoctors(nil)
	require.Len(t, docs, 1)
	assert.Equal(t, "B", docs[0].Name)
}

func TestQueue_Overlay(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, time.Now())
	server := []appointments.Appointment{apt("s1"), apt("s2")}

	q.Enqueue(ctx, Add(apt("local")))
	status := appointments.StatusUpcoming
	q.Enqueue(ctx, Update(appointments.Patch{ID: "s1", Status: &status}))
	q.Enqueue(ctx, Delete("s2"))

	out := q.Overlay(server)
	require.Len(t, out, 2)
	assert.Equal(t, "local", out[0].ID)
	assert.Equal(t, appointments.StatusUpcoming, out[1].Status)
	assert.Equal(t, appointments.StatusPending, server[0].Status, "server slice must not change")
}

func TestQueue_PersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	q, cache := newTestQueue(t, time.Now())
	q.Enqueue(ctx, Add(apt("a1")))

	restored := NewQueue(cache, logging.Discard())
	restored.Load(ctx)
	require.Equal(t, 1, restored.Len())
	assert.Equal(t, "a1", restored.Pending()[0].Target())
}

type fakeRemote struct {
	calls []string
	errs  []error
}

func (f *fakeRemote) next(call string) error {
	f.calls = append(f.calls, call)
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *fakeRemote) BookAppointment(_ context.Context, a appointments.Appointment) ([]appointments.Appointment, error) {
	return nil, f.next("add:" + a.ID)
}

func (f *fakeRemote) UpdateAppointment(_ context.Context, p appointments.Patch) ([]appointments.Appointment, error) {
	return nil, f.next("update:" + p.ID)
}

func (f *fakeRemote) DeleteAppointment(_ context.Context, id string) ([]appointments.Appointment, error) {
	return nil, f.next("delete:" + id)
}

func (f *fakeRemote) SyncData(_ context.Context, _ client.SyncRequest) error {
	return f.next("doctors")
}

func TestRetryWorker_DeliversInOrder(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	q, _ := newTestQueue(t, now)
	q.Enqueue(ctx, Add(apt("a1")))
	q.Enqueue(ctx, Delete("s9"))

	remote := &fakeRemote{}
	var delivered []string
	w := NewRetryWorker(q, remote, logging.Discard()).OnDelivered(func(e Entry) { delivered = append(delivered, e.Target()) })
	w.now = func() time.Time { return now }

	assert.Equal(t, 2, w.Drain(ctx))
	assert.Equal(t, []string{"add:a1", "delete:s9"}, remote.calls)
	assert.Equal(t, []string{"a1", "s9"}, delivered)
	assert.Zero(t, q.Len())
}

func TestRetryWorker_TransientFailureBacksOffAndBlocks(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	q, _ := newTestQueue(t, now)
	q.Enqueue(ctx, Add(apt("a1")))
	q.Enqueue(ctx, Add(apt("a2")))

	remote := &fakeRemote{errs: []error{errors.New("connection refused"), errors.New("connection refused")}}
	w := NewRetryWorker(q, remote, logging.Discard()).WithBackoff(time.Second, 10*time.Second)
	w.now = func() time.Time { return now }

	assert.Zero(t, w.Drain(ctx))
	assert.Equal(t, []string{"add:a1"}, remote.calls)
	head, _ := q.Head()
	assert.Equal(t, 1, head.Attempts)
	assert.Equal(t, now.Add(time.Second), head.NextAttempt)
	assert.Equal(t, "connection refused", head.LastError)

	assert.Zero(t, w.Drain(ctx), "not due yet")

	now = now.Add(time.Second)
	assert.Zero(t, w.Drain(ctx))
	head, _ = q.Head()
	assert.Equal(t, now.Add(2*time.Second), head.NextAttempt)

	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, w.Drain(ctx))
	assert.Zero(t, q.Len())
}

func TestRetryWorker_DropsPermanentFailures(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t, time.Now())
	q.Enqueue(ctx, Add(apt("a1")))
	q.Enqueue(ctx, Add(apt("a2")))

	remote := &fakeRemote{errs: []error{&client.StatusError{Code: http.StatusBadRequest, Body: "bad"}}}
	w := NewRetryWorker(q, remote, logging.Discard())

	assert.Equal(t, 1, w.Drain(ctx))
	assert.Zero(t, q.Len())
}

func TestRetryWorker_GivesUpAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	q, _ := newTestQueue(t, now)
	q.Enqueue(ctx, Add(apt("a1")))

	remote := &fakeRemote{errs: []error{&client.StatusError{Code: http.StatusServiceUnavailable}, &client.StatusError{Code: http.StatusServiceUnavailable}}}
	w := NewRetryWorker(q, remote, logging.Discard()).WithMaxAttempts(2).WithBackoff(time.Millisecond, time.Millisecond)
	w.now = func() time.Time { return now }

	w.Drain(ctx)
	assert.Equal(t, 1, q.Len())
	now = now.Add(time.Second)
	w.Drain(ctx)
	assert.Zero(t, q.Len())
}

func TestRetryWorker_BackoffCapped(t *testing.T) {
	w := NewRetryWorker(nil, nil, logging.Discard()).WithBackoff(time.Second, 5*time.Second)
	assert.Equal(t, time.Second, w.backoff(0))
	assert.Equal(t, 4*time.Second, w.backoff(2))
	assert.Equal(t, 5*time.Second, w.backoff(3))
	assert.Equal(t, 5*time.Second, w.backoff(30))
}
