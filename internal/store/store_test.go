package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func openStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	return Open(context.Background(), backend, logging.Discard(), Options{Now: fixedNow})
}

func booking(id string) appointments.Appointment {
	return appointments.Appointment{
		ID:            id,
		PatientName:   "Pat",
		PatientMobile: "555",
		PatientEmail:  "pat@example.com",
		DoctorName:    "Dr. X",
		Specialty:     "GP",
		Date:          "Today",
		Time:          "10:00",
		Status:        appointments.StatusPending,
		Type:          appointments.KindVideo,
	}
}

func TestOpenSeedsEmptyBackend(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	assert.Len(t, s.Appointments(), 2)
	assert.Len(t, s.Doctors(), 3)
	assert.False(t, s.Degraded())
}

func TestOpenFallsBackOnCorruptData(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Save(context.Background(), Appointments, []byte("{not json")))
	require.NoError(t, backend.Save(context.Background(), Doctors, []byte(`[{"id":7,"name":"Dr. Q","specialty":"ENT"}]`)))

	s := openStore(t, backend)
	assert.Equal(t, []string{"1", "2"}, []string{s.Appointments()[0].ID, s.Appointments()[1].ID})
	require.Len(t, s.Doctors(), 1)
	assert.Equal(t, "7", s.Doctors()[0].ID.String())
}

func TestOpenToleratesBackendOutage(t *testing.T) {
	backend := newFlakyBackend()
	backend.loadErr = errors.New("connection refused")
	s := openStore(t, backend)
	assert.True(t, s.Degraded())
	assert.Len(t, s.Appointments(), 2)
}

func TestAddIsIdempotent(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	ctx := context.Background()

	list, added, err := s.Add(ctx, booking("a1"))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, "a1", list[0].ID)
	require.NotNil(t, list[0].ScheduledAt)

	dup := booking("a1")
	dup.DoctorName = "Dr. Other"
	list, added, err = s.Add(ctx, dup)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, list, 3)
	assert.Equal(t, "Dr. X", list[0].DoctorName)
}

func TestAddRejectsInvalid(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	bad := booking("a1")
	bad.Time = "10am"
	_, _, err := s.Add(context.Background(), bad)
	assert.ErrorIs(t, err, appointments.ErrInvalidAppointment)
	assert.Len(t, s.Appointments(), 2)
}

func TestUpdateMergesOnlyGivenFields(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	ctx := context.Background()
	before := s.Appointments()[0]

	upcoming := appointments.StatusUpcoming
	list, updated, err := s.Update(ctx, appointments.Patch{ID: "1", Status: &upcoming})
	require.NoError(t, err)
	assert.True(t, updated)

	after := list[0]
	assert.Equal(t, appointments.StatusUpcoming, after.Status)
	after.Status = before.Status
	assert.Equal(t, before, after)
}

func TestUpdateMovingDateReschedules(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	ctx := context.Background()
	_, _, err := s.Add(ctx, booking("p1"))
	require.NoError(t, err)

	tomorrow := "Tomorrow"
	list, updated, err := s.Update(ctx, appointments.Patch{ID: "p1", Date: &tomorrow})
	require.NoError(t, err)
	require.True(t, updated)
	require.NotNil(t, list[0].ScheduledAt)
	assert.Equal(t, time.Date(2026, time.March, 11, 10, 0, 0, 0, time.UTC), *list[0].ScheduledAt)

	later := "14:30"
	list, _, err = s.Update(ctx, appointments.Patch{ID: "p1", Time: &later})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 11, 14, 30, 0, 0, time.UTC), *list[0].ScheduledAt)

	name := "Pat Q"
	list, _, err = s.Update(ctx, appointments.Patch{ID: "p1", PatientName: &name})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 11, 14, 30, 0, 0, time.UTC), *list[0].ScheduledAt)
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	backend := newFlakyBackend()
	s := openStore(t, backend)
	cancelled := appointments.StatusCancelled
	list, updated, err := s.Update(context.Background(), appointments.Patch{ID: "missing", Status: &cancelled})
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Len(t, list, 2)
	assert.Zero(t, backend.saves)
}

func TestUpdateRejectsInvalidTransition(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	pending := appointments.StatusPending
	_, _, err := s.Update(context.Background(), appointments.Patch{ID: "2", Status: &pending})
	assert.ErrorIs(t, err, appointments.ErrInvalidTransition)
	assert.Equal(t, appointments.StatusUpcoming, s.Appointments()[1].Status)
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	ctx := context.Background()

	list, removed, err := s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, removed)
	require.Len(t, list, 1)
	assert.Equal(t, "2", list[0].ID)

	list, removed, err = s.Delete(ctx, "1")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, list, 1)

	_, _, err = s.Delete(ctx, "")
	assert.ErrorIs(t, err, appointments.ErrInvalidAppointment)
}

func TestReplaceDoctors(t *testing.T) {
	s := openStore(t, NewMemoryBackend())
	docs := []appointments.Doctor{{ID: appointments.StringDoctorID("d-1"), Name: "Dr. New", Specialty: "ENT", Rating: 4.8}}
	require.NoError(t, s.ReplaceDoctors(context.Background(), docs))
	assert.Equal(t, docs, s.Doctors())

	err := s.ReplaceDoctors(context.Background(), []appointments.Doctor{{Name: "No ID", Specialty: "ENT"}})
	assert.ErrorIs(t, err, appointments.ErrInvalidDoctor)
	assert.Equal(t, docs, s.Doctors())
}

func TestPersistFailureKeepsServingFromMemory(t *testing.T) {
	backend := newFlakyBackend()
	reg := prometheus.NewRegistry()
	s := Open(context.Background(), backend, logging.Discard(), Options{Now: fixedNow, Metrics: metrics.NewStoreMetrics(reg)})
	ctx := context.Background()

	backend.setBroken(true)
	list, added, err := s.Add(ctx, booking("a1"))
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, list, 3)
	assert.True(t, s.Degraded())

	backend.setBroken(false)
	_, _, err = s.Delete(ctx, "2")
	require.NoError(t, err)
	assert.False(t, s.Degraded())

	reopened := openStore(t, backend.MemoryBackend)
	assert.Equal(t, []string{"a1", "1"}, []string{reopened.Appointments()[0].ID, reopened.Appointments()[1].ID})
}

func TestOnChangeFiresOnlyOnChange(t *testing.T) {
	var got []Collection
	s := Open(context.Background(), NewMemoryBackend(), logging.Discard(), Options{
		Now:      fixedNow,
		OnChange: func(c Collection) { got = append(got, c) },
	})
	ctx := context.Background()
	_, _, _ = s.Add(ctx, booking("a1"))
	_, _, _ = s.Add(ctx, booking("a1"))
	_, _, _ = s.Delete(ctx, "nope")
	_ = s.ReplaceDoctors(ctx, nil)
	assert.Equal(t, []Collection{Appointments, Doctors}, got)
}

func TestFileBackendWritesPrettyJSON(t *testing.T) {
	dir := t.TempDir()
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	s := openStore(t, backend)
	_, _, err = s.Add(context.Background(), booking("a1"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "appointments.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n  {"))
	var decoded []appointments.Appointment
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Len(t, decoded, 3)

	_, err = os.Stat(filepath.Join(dir, "doctors.json"))
	assert.True(t, os.IsNotExist(err))

	_, err = backend.Load(context.Background(), Doctors)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileBackendRequiresDir(t *testing.T) {
	_, err := NewFileBackend("  ")
	assert.Error(t, err)
}
