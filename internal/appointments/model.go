// Package appointments holds the appointment and doctor records shared by the
// persistence store, the API client and the client-side workflow.
package appointments

import (
	"time"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUpcoming  Status = "upcoming"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusUpcoming, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Kind is the consultation type (the "type" field on the wire).
type Kind string

const (
	KindVideo    Kind = "video"
	KindInPerson Kind = "in-person"
)

// Appointment is a booking with denormalized patient and doctor snapshots.
//
// Date is a display label ("Today", "Tomorrow", "Oct 24"). ScheduledAt is the
// canonical instant and wins over Date whenever both are present.
type Appointment struct {
	ID                  string     `json:"id" validate:"required"`
	PatientName         string     `json:"patientName"`
	PatientMobile       string     `json:"patientMobile"`
	PatientEmail        string     `json:"patientEmail,omitempty"`
	PatientProfileImage string     `json:"patientProfileImage,omitempty"`
	DoctorName          string     `json:"doctorName" validate:"required"`
	Specialty           string     `json:"specialty"`
	Date                string     `json:"date"`
	Time                string     `json:"time" validate:"required,clock"`
	ScheduledAt         *time.Time `json:"scheduledAt,omitempty"`
	Status              Status     `json:"status" validate:"required,oneof=pending upcoming cancelled completed"`
	Type                Kind       `json:"type" validate:"required,oneof=video in-person"`
	Location            string     `json:"location,omitempty"`
	MeetLink            string     `json:"meetLink,omitempty"`
	ImageURL            string     `json:"imageUrl,omitempty"`
}

// Normalize drops fields that do not belong to the appointment's type:
// only video appointments carry a meeting link, only in-person ones a location.
func (a Appointment) Normalize() Appointment {
	switch a.Type {
	case KindInPerson:
		a.MeetLink = ""
	case KindVideo:
		a.Location = ""
	}
	return a
}

// Patch is a partial appointment update. Nil fields are left untouched.
type Patch struct {
	ID                  string     `json:"id" validate:"required"`
	PatientName         *string    `json:"patientName,omitempty"`
	PatientMobile       *string    `json:"patientMobile,omitempty"`
	PatientEmail        *string    `json:"patientEmail,omitempty"`
	PatientProfileImage *string    `json:"patientProfileImage,omitempty"`
	DoctorName          *string    `json:"doctorName,omitempty"`
	Specialty           *string    `json:"specialty,omitempty"`
	Date                *string    `json:"date,omitempty"`
	Time                *string    `json:"time,omitempty" validate:"omitempty,clock"`
	ScheduledAt         *time.Time `json:"scheduledAt,omitempty"`
	Status              *Status    `json:"status,omitempty" validate:"omitempty,oneof=pending upcoming cancelled completed"`
	Type                *Kind      `json:"type,omitempty" validate:"omitempty,oneof=video in-person"`
	Location            *string    `json:"location,omitempty"`
	MeetLink            *string    `json:"meetLink,omitempty"`
	ImageURL            *string    `json:"imageUrl,omitempty"`
}

// Apply merges the non-nil fields of p into a and returns the result.
func (p Patch) Apply(a Appointment) Appointment {
	setString(&a.PatientName, p.PatientName)
	setString(&a.PatientMobile, p.PatientMobile)
	setString(&a.PatientEmail, p.PatientEmail)
	setString(&a.PatientProfileImage, p.PatientProfileImage)
	setString(&a.DoctorName, p.DoctorName)
	setString(&a.Specialty, p.Specialty)
	setString(&a.Date, p.Date)
	setString(&a.Time, p.Time)
	setString(&a.Location, p.Location)
	setString(&a.MeetLink, p.MeetLink)
	setString(&a.ImageURL, p.ImageURL)
	if p.ScheduledAt != nil {
		at := *p.ScheduledAt
		a.ScheduledAt = &at
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
	if p.Type != nil {
		a.Type = *p.Type
	}
	return a
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Doctor is a bookable practitioner.
type Doctor struct {
	ID        DoctorID `json:"id"`
	Name      string   `json:"name" validate:"required"`
	Specialty string   `json:"specialty" validate:"required"`
	Rating    float64  `json:"rating" validate:"gte=0,lte=5"`
	Image     string   `json:"image"`
	Match     int      `json:"match" validate:"gte=0,lte=100"`
	Price     float64  `json:"price" validate:"gte=0"`
	StartTime string   `json:"startTime" validate:"omitempty,clock"`
	EndTime   string   `json:"endTime" validate:"omitempty,clock"`
	About     string   `json:"about,omitempty"`
}
