// Package notify derives user-facing notifications from workflow and
// reconciliation events and delivers them to the local inbox, the chime
// and, for patients with an email address, their mailbox.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/medipulse/internal/appointments"
)

// joinLinkLabel precedes the meeting link in an acceptance message.
const joinLinkLabel = "Join Link:"

// Type is the visual severity of a notification.
type Type string

const (
	TypeAlert   Type = "alert"
	TypeSuccess Type = "success"
	TypeInfo    Type = "info"
)

// Notification is one inbox entry. Notifications are only ever marked read,
// never removed.
type Notification struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Time      string    `json:"time"`
	Type      Type      `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func newNotification(title, message string, typ Type, read bool, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Time:      "Just now",
		Type:      typ,
		Read:      read,
		CreatedAt: now.UTC(),
	}
}

// NewBooking is raised for admins when reconciliation finds a booking they
// have not seen.
func NewBooking(a appointments.Appointment, now time.Time) Notification {
	return newNotification("New Appointment Request",
		fmt.Sprintf("%s booked with %s for %s.", a.PatientName, a.DoctorName, a.Date),
		TypeInfo, false, now)
}

// Booked confirms a patient's own booking.
func Booked(a appointments.Appointment, now time.Time) Notification {
	return newNotification("Appointment Booked",
		fmt.Sprintf("Confirmed with %s for %s.", a.DoctorName, a.Date),
		TypeSuccess, false, now)
}

// AssistantBooked confirms a booking made by the voice assistant.
func AssistantBooked(a appointments.Appointment, now time.Time) Notification {
	return newNotification("Appointment Requested",
		fmt.Sprintf("Voice Assistant booked with %s for %s.", a.DoctorName, a.Date),
		TypeSuccess, false, now)
}

// AssistantUpdated records a voice-assistant edit.
func AssistantUpdated(id string, now time.Time) Notification {
	return newNotification("Appointment Updated",
		fmt.Sprintf("Appointment ID #%s updated via Voice Command.", id),
		TypeInfo, true, now)
}

// Accepted tells the patient an admin confirmed the booking.
func Accepted(a appointments.Appointment, now time.Time) Notification {
	msg := fmt.Sprintf("Your appointment with %s on %s at %s has been accepted.", a.DoctorName, a.Date, a.Time)
	if a.MeetLink != "" {
		msg += " " + joinLinkLabel + " " + a.MeetLink
	}
	return newNotification("Appointment Confirmed", msg, TypeSuccess, false, now)
}

// Declined tells the patient an admin rejected the booking.
func Declined(a appointments.Appointment, now time.Time) Notification {
	return newNotification("Appointment Declined",
		fmt.Sprintf("Your appointment with %s on %s at %s has been declined.", a.DoctorName, a.Date, a.Time),
		TypeAlert, false, now)
}

// Deleted records a permanent removal.
func Deleted(now time.Time) Notification {
	return newNotification("Appointment Deleted",
		"The appointment record has been permanently removed.",
		TypeInfo, true, now)
}

// DoctorAdded records a roster addition.
func DoctorAdded(name string, now time.Time) Notification {
	return newNotification("System Updated",
		fmt.Sprintf("Added %s to the doctor's list.", name),
		TypeSuccess, false, now)
}
