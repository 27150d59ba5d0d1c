// Package identity models who is using the client: a guest or an
// authenticated patient/admin supplied by the external identity provider.
package identity

import (
	"strings"

	"github.com/wolfman30/medipulse/internal/appointments"
)

// Role is the identity provider's role claim.
type Role string

const (
	RolePatient Role = "patient"
	RoleAdmin   Role = "admin"
)

const (
	// AdminEmail is the built-in administrator account.
	AdminEmail = "admin@medipulse.ai"
	// GuestEmail is the placeholder email of the demo guest account; it never
	// identifies a patient.
	GuestEmail = "guest@medipulse.ai"
)

// User is either Guest or Authenticated.
type User interface {
	isUser()
}

// Guest is an anonymous visitor.
type Guest struct{}

// Authenticated is a signed-in user.
type Authenticated struct {
	ID     string
	Name   string
	Email  string
	Mobile string
	Image  string
	Role   Role
}

func (Guest) isUser()         {}
func (Authenticated) isUser() {}

// IsAdmin reports whether u may see every appointment and run admin actions.
func IsAdmin(u User) bool {
	a, ok := u.(Authenticated)
	if !ok {
		return false
	}
	return a.Role == RoleAdmin || strings.EqualFold(strings.TrimSpace(a.Email), AdminEmail)
}

// Owns reports whether the appointment belongs to u. Email identifies the
// patient when u has a real one; otherwise the mobile number does.
func Owns(u User, apt appointments.Appointment) bool {
	a, ok := u.(Authenticated)
	if !ok {
		return false
	}
	email := strings.TrimSpace(a.Email)
	if email != "" && !strings.EqualFold(email, GuestEmail) {
		return strings.EqualFold(apt.PatientEmail, email)
	}
	mobile := strings.TrimSpace(a.Mobile)
	return mobile != "" && apt.PatientMobile == mobile
}

// CanView reports whether u may observe apt.
func CanView(u User, apt appointments.Appointment) bool {
	return IsAdmin(u) || Owns(u, apt)
}

// Visible filters list down to what u may observe. Admins get the list back
// unchanged.
func Visible(u User, list []appointments.Appointment) []appointments.Appointment {
	if IsAdmin(u) {
		return list
	}
	out := make([]appointments.Appointment, 0, len(list))
	for _, apt := range list {
		if Owns(u, apt) {
			out = append(out, apt)
		}
	}
	return out
}

// Key identifies u for change detection (identity switches reset the
// reconciler's first-load state).
func Key(u User) string {
	a, ok := u.(Authenticated)
	if !ok {
		return "guest"
	}
	return string(a.Role) + "|" + strings.ToLower(a.Email) + "|" + a.Mobile
}

// Patient returns the denormalized patient snapshot stamped onto bookings.
func Patient(u User) (name, email, mobile, image string) {
	a, ok := u.(Authenticated)
	if !ok {
		return "Guest Patient", "", "", ""
	}
	name = a.Name
	if strings.TrimSpace(name) == "" {
		name = "Guest Patient"
	}
	return name, a.Email, a.Mobile, a.Image
}
