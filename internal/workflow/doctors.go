package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/client"
	"github.com/wolfman30/medipulse/internal/identity"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/outbox"
)

// Roster defaults for doctors added by the assistant.
const (
	defaultRating    = 4.8
	defaultPrice     = 150
	defaultMatch     = 90
	defaultStartTime = "09:00"
	defaultEndTime   = "22:00"
	defaultDoctorImg = "https://picsum.photos/200/200"
)

// AddDoctor appends d to the roster. A zero id is replaced with a numeric
// timestamp id.
func (s *Service) AddDoctor(ctx context.Context, d appointments.Doctor) (appointments.Doctor, error) {
	ctx, span, end := s.start(ctx, "add_doctor", attribute.String("medipulse.doctor", d.Name))
	defer end()

	if !identity.IsAdmin(s.Identity()) {
		return appointments.Doctor{}, fail(span, ErrForbidden)
	}
	return s.addDoctor(ctx, span, d)
}

// AssistantAddDoctor adds a doctor by name and specialty with the default
// profile.
func (s *Service) AssistantAddDoctor(ctx context.Context, name, specialty string) (appointments.Doctor, error) {
	ctx, span, end := s.start(ctx, "assistant_add_doctor", attribute.String("medipulse.doctor", name))
	defer end()

	d := appointments.Doctor{
		Name:      strings.TrimSpace(name),
		Specialty: strings.TrimSpace(specialty),
		Rating:    defaultRating,
		Image:     defaultDoctorImg,
		Match:     defaultMatch,
		Price:     defaultPrice,
		StartTime: defaultStartTime,
		EndTime:   defaultEndTime,
	}
	added, err := s.addDoctor(ctx, span, d)
	if err != nil && added.Name == "" {
		return added, err
	}
	s.emitter.Emit(ctx, notify.Delivery{}, notify.DoctorAdded(added.Name, s.now()))
	return added, err
}

func (s *Service) addDoctor(ctx context.Context, span trace.Span, d appointments.Doctor) (appointments.Doctor, error) {
	if d.ID.IsZero() {
		d.ID = appointments.NumericDoctorID(s.now().UnixMilli())
	}
	if err := d.Validate(); err != nil {
		return appointments.Doctor{}, fail(span, err)
	}
	roster := s.state.MutateDoctors(ctx, func(list []appointments.Doctor) []appointments.Doctor {
		out := appointments.CloneDoctors(list)
		return append(out, d)
	})
	s.logger.Info("doctor added", "doctor_id", d.ID.String(), "name", d.Name)
	return d, s.syncDoctors(ctx, span, roster)
}

// UpdateDoctor replaces the doctor with d's id.
func (s *Service) UpdateDoctor(ctx context.Context, d appointments.Doctor) error {
	ctx, span, end := s.start(ctx, "update_doctor", attribute.String("medipulse.doctor_id", d.ID.String()))
	defer end()

	if !identity.IsAdmin(s.Identity()) {
		return fail(span, ErrForbidden)
	}
	if err := d.Validate(); err != nil {
		return fail(span, err)
	}
	found := false
	roster := s.state.MutateDoctors(ctx, func(list []appointments.Doctor) []appointments.Doctor {
		out := appointments.CloneDoctors(list)
		for i := range out {
			if out[i].ID == d.ID {
				out[i] = d
				found = true
			}
		}
		return out
	})
	if !found {
		return fail(span, fmt.Errorf("%w: doctor %s", appointments.ErrNotFound, d.ID))
	}
	return s.syncDoctors(ctx, span, roster)
}

// DeleteDoctor removes the doctor with id. Existing appointments keep their
// denormalized doctor fields.
func (s *Service) DeleteDoctor(ctx context.Context, id appointments.DoctorID) error {
	ctx, span, end := s.start(ctx, "delete_doctor", attribute.String("medipulse.doctor_id", id.String()))
	defer end()

	if !identity.IsAdmin(s.Identity()) {
		return fail(span, ErrForbidden)
	}
	found := false
	roster := s.state.MutateDoctors(ctx, func(list []appointments.Doctor) []appointments.Doctor {
		out := make([]appointments.Doctor, 0, len(list))
		for _, d := range list {
			if d.ID == id {
				found = true
				continue
			}
			out = append(out, d)
		}
		return out
	})
	if !found {
		return fail(span, fmt.Errorf("%w: doctor %s", appointments.ErrNotFound, id))
	}
	return s.syncDoctors(ctx, span, roster)
}

func (s *Service) syncDoctors(ctx context.Context, span trace.Span, roster []appointments.Doctor) error {
	return s.persist(ctx, span, outbox.Doctors(roster), func(ctx context.Context) error {
		return s.remote.SyncData(ctx, client.SyncRequest{Doctors: roster})
	})
}
