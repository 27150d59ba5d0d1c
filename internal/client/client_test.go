package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/http/handlers"
	"github.com/wolfman30/medipulse/internal/store"
	"github.com/wolfman30/medipulse/pkg/logging"
)

func newServer(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	s := store.Open(context.Background(), store.NewMemoryBackend(), logging.Discard(), store.Options{
		Now: func() time.Time { return time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC) },
	})
	srv := httptest.NewServer(handlers.NewAppointmentsHandler(s, logging.Discard()))
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", logging.Discard())
	require.NoError(t, err)
	return c, s
}

func TestClientAgainstHandler(t *testing.T) {
	c, s := newServer(t)
	ctx := context.Background()

	list, err := c.FetchAppointments(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	doctors, err := c.FetchDoctors(ctx)
	require.NoError(t, err)
	assert.Len(t, doctors, 3)

	list, err = c.BookAppointment(ctx, appointments.Appointment{
		ID: "c1", PatientName: "Pat", PatientMobile: "1", DoctorName: "Dr. X", Specialty: "GP",
		Date: "Today", Time: "12:00", Status: appointments.StatusPending, Type: appointments.KindVideo,
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", list[0].ID)

	upcoming := appointments.StatusUpcoming
	link := "https://meet.example/c1"
	list, err = c.UpdateAppointment(ctx, appointments.Patch{ID: "c1", Status: &upcoming, MeetLink: &link})
	require.NoError(t, err)
	assert.Equal(t, link, list[0].MeetLink)

	list, err = c.DeleteAppointment(ctx, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, c.SyncData(ctx, SyncRequest{Doctors: doctors[:1]}))
	assert.Len(t, s.Doctors(), 1)
}

func TestClientStatusErrors(t *testing.T) {
	c, _ := newServer(t)
	pending := appointments.StatusPending
	_, err := c.UpdateAppointment(context.Background(), appointments.Patch{ID: "2", Status: &pending})

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.Code)
	assert.True(t, IsPermanent(err))

	assert.False(t, (&StatusError{Code: http.StatusServiceUnavailable}).Permanent())
	assert.False(t, (&StatusError{Code: http.StatusTooManyRequests}).Permanent())
	assert.False(t, IsPermanent(errors.New("dial tcp: refused")))
}

func TestClientMakesOneRoundTrip(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(srv.URL, logging.Discard())
	require.NoError(t, err)
	c.WithBearerToken("tok")

	_, err = c.FetchAppointments(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientRejectsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>")
	}))
	defer srv.Close()
	c, err := New(srv.URL, logging.Discard())
	require.NoError(t, err)

	_, err = c.FetchDoctors(context.Background())
	require.Error(t, err)
	var syntax *json.SyntaxError
	assert.True(t, errors.As(err, &syntax))
}

func TestNewValidatesURL(t *testing.T) {
	_, err := New("not a url", nil)
	assert.Error(t, err)

	c, err := New("https://api.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.com/api/appointments/events", c.EventsURL())
}
