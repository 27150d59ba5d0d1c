package workflow

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/schedule"
)

const (
	guestPatientName   = "Guest Patient"
	assistantAvatarURL = "https://picsum.photos/100/100"
)

// BookRequest is a patient's booking from the doctor list.
type BookRequest struct {
	Doctor   appointments.Doctor
	Date     string
	Time     string
	Type     appointments.Kind
	Location string
}

// Book creates a pending appointment for the current identity. There is no
// slot-conflict check.
func (s *Service) Book(ctx context.Context, req BookRequest) (appointments.Appointment, error) {
	ctx, span, end := s.start(ctx, "book", attribute.String("medipulse.doctor", req.Doctor.Name))
	defer end()

	name, email, mobile, image := identity.Patient(s.Identity())
	a := appointments.Appointment{
		ID:                  s.nextID(),
		PatientName:         name,
		PatientMobile:       mobile,
		PatientEmail:        email,
		PatientProfileImage: image,
		DoctorName:          req.Doctor.Name,
		Specialty:           req.Doctor.Specialty,
		Date:                req.Date,
		Time:                req.Time,
		Status:              appointments.StatusPending,
		Type:                req.Type,
		Location:            req.Location,
		ImageURL:            req.Doctor.Image,
	}
	a = schedule.Stamp(a, s.now()).Normalize()
	if err := a.Validate(); err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("medipulse.appointment_id", a.ID))

	s.insert(ctx, a)
	s.emitter.Emit(ctx, notify.Delivery{}, notify.Booked(a, s.now()))
	s.logger.Info("appointment booked", "appointment_id", a.ID, "doctor", a.DoctorName, "type", a.Type)
	return a, s.persistAppointment(ctx, span, a)
}

// AssistantBooking carries the fields the voice assistant parsed from an
// utterance.
type AssistantBooking struct {
	DoctorName  string
	Specialty   string
	Date        string
	Time        string
	Type        appointments.Kind
	PatientName string
}

// AssistantBook books on behalf of the current identity. Video bookings get
// a meeting link straight away.
func (s *Service) AssistantBook(ctx context.Context, req AssistantBooking) (appointments.Appointment, error) {
	ctx, span, end := s.start(ctx, "assistant_book", attribute.String("medipulse.doctor", req.DoctorName))
	defer end()

	name, email, mobile, image := identity.Patient(s.Identity())
	if n := strings.TrimSpace(req.PatientName); n != "" {
		name = n
	}
	if name == "" {
		name = guestPatientName
	}
	kind := req.Type
	if kind == "" {
		kind = appointments.KindInPerson
	}
	a := appointments.Appointment{
		ID:                  s.nextID(),
		PatientName:         name,
		PatientMobile:       mobile,
		PatientEmail:        email,
		PatientProfileImage: image,
		DoctorName:          req.DoctorName,
		Specialty:           req.Specialty,
		Date:                req.Date,
		Time:                req.Time,
		Status:              appointments.StatusPending,
		Type:                kind,
		ImageURL:            assistantAvatarURL,
	}
	if kind == appointments.KindVideo {
		a.MeetLink = s.meetLink()
	}
	a = schedule.Stamp(a, s.now()).Normalize()
	if err := a.Validate(); err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	span.SetAttributes(attribute.String("medipulse.appointment_id", a.ID))

	s.insert(ctx, a)
	s.emitter.Emit(ctx, notify.Delivery{}, notify.AssistantBooked(a, s.now()))
	return a, s.persistAppointment(ctx, span, a)
}

// AssistantEdit is a voice edit. Empty fields keep their current value.
type AssistantEdit struct {
	ID     string
	Date   string
	Time   string
	Status appointments.Status
}

func (s *Service) AssistantUpdate(ctx context.Context, edit AssistantEdit) (appointments.Appointment, error) {
	ctx, span, end := s.start(ctx, "assistant_update", attribute.String("medipulse.appointment_id", edit.ID))
	defer end()

	current, err := s.lookup(edit.ID)
	if err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	if !identity.IsAdmin(s.Identity()) && !identity.Owns(s.Identity(), current) {
		return appointments.Appointment{}, fail(span, ErrForbidden)
	}

	p := appointments.Patch{ID: edit.ID}
	if edit.Date != "" {
		p.Date = &edit.Date
	}
	if edit.Time != "" {
		p.Time = &edit.Time
	}
	if edit.Status != "" {
		p.Status = &edit.Status
	}
	if p.Date != nil || p.Time != nil {
		draft := p.Apply(current)
		draft.ScheduledAt = nil
		if at, ok := schedule.Resolve(draft, s.now()); ok {
			p.ScheduledAt = &at
		}
	}

	updated, err := s.applyPatch(ctx, p)
	if err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	s.emitter.Emit(ctx, notify.Delivery{}, notify.AssistantUpdated(edit.ID, s.now()))
	return updated, s.persistPatch(ctx, span, p)
}
