package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/outbox"
)

// ProposedLink is the link an admin is offered when accepting a video
// appointment: the one already on record, or a fresh one.
func (s *Service) ProposedLink(a appointments.Appointment) string {
	if a.Type != appointments.KindVideo {
		return ""
	}
	if a.MeetLink != "" {
		return a.MeetLink
	}
	return s.meetLink()
}

// Accept confirms a pending appointment. For video appointments link wins
// when non-empty; otherwise the existing or a generated link is used.
// In-person appointments never get a link.
func (s *Service) Accept(ctx context.Context, id, link string) (appointments.Appointment, error) {
	ctx, span, end := s.start(ctx, "accept", attribute.String("medipulse.appointment_id", id))
	defer end()

	if !identity.IsAdmin(s.Identity()) {
		return appointments.Appointment{}, fail(span, ErrForbidden)
	}
	current, err := s.lookup(id)
	if err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	if err := requirePending(current); err != nil {
		return appointments.Appointment{}, fail(span, err)
	}

	status := appointments.StatusUpcoming
	p := appointments.Patch{ID: id, Status: &status}
	if current.Type == appointments.KindVideo {
		l := strings.TrimSpace(link)
		if l == "" {
			l = s.ProposedLink(current)
		}
		p.MeetLink = &l
	}

	updated, err := s.applyPatch(ctx, p)
	if err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	s.emitter.Emit(ctx, notify.Delivery{
		Chime:       true,
		EmailTo:     updated.PatientEmail,
		EmailToName: updated.PatientName,
	}, notify.Accepted(updated, s.now()))
	s.logger.Info("appointment accepted", "appointment_id", id, "has_link", updated.MeetLink != "")
	return updated, s.persistPatch(ctx, span, p)
}

// Reject cancels a pending appointment. No link is added and no chime plays.
func (s *Service) Reject(ctx context.Context, id string) (appointments.Appointment, error) {
	ctx, span, end := s.start(ctx, "reject", attribute.String("medipulse.appointment_id", id))
	defer end()

	if !identity.IsAdmin(s.Identity()) {
		return appointments.Appointment{}, fail(span, ErrForbidden)
	}
	current, err := s.lookup(id)
	if err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	if err := requirePending(current); err != nil {
		return appointments.Appointment{}, fail(span, err)
	}

	status := appointments.StatusCancelled
	p := appointments.Patch{ID: id, Status: &status}
	updated, err := s.applyPatch(ctx, p)
	if err != nil {
		return appointments.Appointment{}, fail(span, err)
	}
	s.emitter.Emit(ctx, notify.Delivery{
		EmailTo:     updated.PatientEmail,
		EmailToName: updated.PatientName,
	}, notify.Declined(updated, s.now()))
	s.logger.Info("appointment rejected", "appointment_id", id)
	return updated, s.persistPatch(ctx, span, p)
}

// requirePending guards accept and reject: a decision is made once.
func requirePending(a appointments.Appointment) error {
	if a.Status != appointments.StatusPending {
		return fmt.Errorf("%w: appointment %s is already %s", appointments.ErrInvalidTransition, a.ID, a.Status)
	}
	return nil
}

// Delete permanently removes an appointment. Patients may delete their own;
// admins may delete any.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span, end := s.start(ctx, "delete", attribute.String("medipulse.appointment_id", id))
	defer end()

	current, err := s.lookup(id)
	if err != nil {
		return fail(span, err)
	}
	u := s.Identity()
	if !identity.IsAdmin(u) && !identity.Owns(u, current) {
		return fail(span, ErrForbidden)
	}

	s.state.MutateAppointments(ctx, func(list []appointments.Appointment) []appointments.Appointment {
		out, _ := appointments.Remove(list, id)
		return out
	})
	s.emitter.Emit(ctx, notify.Delivery{}, notify.Deleted(s.now()))
	s.logger.Info("appointment deleted", "appointment_id", id)
	return s.persist(ctx, span, outbox.Delete(id), func(ctx context.Context) error {
		_, err := s.remote.DeleteAppointment(ctx, id)
		return err
	})
}
