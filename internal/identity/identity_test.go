package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medipulse/internal/appointments"
)

func bookings() []appointments.Appointment {
	return []appointments.Appointment{
		{ID: "1", PatientEmail: "e@example.com", PatientMobile: "111"},
		{ID: "2", PatientEmail: "other@example.com", PatientMobile: "222"},
		{ID: "3", PatientMobile: "333"},
		{ID: "4", PatientEmail: "E@example.com", PatientMobile: "444"},
	}
}

func ids(list []appointments.Appointment) []string {
	out := make([]string, 0, len(list))
	for _, a := range list {
		out = append(out, a.ID)
	}
	return out
}

func TestIsAdmin(t *testing.T) {
	assert.False(t, IsAdmin(Guest{}))
	assert.False(t, IsAdmin(Authenticated{Email: "p@example.com", Role: RolePatient}))
	assert.True(t, IsAdmin(Authenticated{Role: RoleAdmin}))
	assert.True(t, IsAdmin(Authenticated{Email: "Admin@MediPulse.ai"}))
}

func TestVisibleFiltersByEmail(t *testing.T) {
	u := Authenticated{Email: "e@example.com", Mobile: "333"}
	assert.Equal(t, []string{"1", "4"}, ids(Visible(u, bookings())))
}

func TestVisibleFallsBackToMobile(t *testing.T) {
	u := Authenticated{Mobile: "333"}
	assert.Equal(t, []string{"3"}, ids(Visible(u, bookings())))

	guestAccount := Authenticated{Email: GuestEmail, Mobile: "222"}
	assert.Equal(t, []string{"2"}, ids(Visible(guestAccount, bookings())))
}

func TestVisibleAdminSeesEverything(t *testing.T) {
	all := bookings()
	assert.Equal(t, all, Visible(Authenticated{Role: RoleAdmin}, all))
}

func TestGuestSeesNothing(t *testing.T) {
	list := append(bookings(), appointments.Appointment{ID: "5"})
	assert.Empty(t, Visible(Guest{}, list))
}

func TestTokenRoundTrip(t *testing.T) {
	token, err := IssueToken(Authenticated{ID: "u1", Email: "e@example.com", Mobile: "111", Role: RoleAdmin}, "secret")
	require.NoError(t, err)

	u, err := ParseToken("Bearer "+token, "secret")
	require.NoError(t, err)
	assert.Equal(t, Authenticated{ID: "u1", Email: "e@example.com", Mobile: "111", Role: RoleAdmin}, u)

	_, err = ParseToken(token, "wrong")
	assert.ErrorIs(t, err, ErrInvalidToken)

	guest, err := ParseToken("", "")
	require.NoError(t, err)
	assert.Equal(t, Guest{}, guest)
}

func TestPatientSnapshot(t *testing.T) {
	name, email, mobile, _ := Patient(Guest{})
	assert.Equal(t, "Guest Patient", name)
	assert.Empty(t, email)
	assert.Empty(t, mobile)

	name, email, mobile, _ = Patient(Authenticated{Name: "Ana", Email: "a@example.com", Mobile: "5"})
	assert.Equal(t, []string{"Ana", "a@example.com", "5"}, []string{name, email, mobile})
}
