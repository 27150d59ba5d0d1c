package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/workflow"
)

func runList(_ context.Context, rt *Runtime, args []string) error {
	fs := newFlags("list", rt.env.Stderr)
	status := fs.String("status", "", "only show appointments with this status")
	if err := parse(fs, args); err != nil {
		return err
	}
	list := rt.workflow.Schedule()
	if *status != "" {
		filtered := list[:0:0]
		for _, a := range list {
			if string(a.Status) == *status {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	}
	printAppointments(rt.env.Stdout, list, time.Now())
	return nil
}

func runBook(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("book", rt.env.Stderr)
	doctor := fs.String("doctor", "", "doctor id or name")
	date := fs.String("date", "", "day: YYYY-MM-DD, Today, Tomorrow or a label like \"Oct 24\"")
	clock := fs.String("time", "", "start time HH:MM")
	kind := fs.String("type", string(appointments.KindInPerson), "video or in-person")
	location := fs.String("location", "", "clinic address for in-person visits")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "doctor", "date", "time"); err != nil {
		return err
	}
	d, err := findDoctor(rt.workflow.Doctors(), *doctor)
	if err != nil {
		return err
	}
	a, err := rt.workflow.Book(ctx, workflow.BookRequest{
		Doctor:   d,
		Date:     *date,
		Time:     *clock,
		Type:     appointments.Kind(*kind),
		Location: *location,
	})
	return reportAppointment(rt, "Booked", a, err)
}

func runUpdate(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("update", rt.env.Stderr)
	id := fs.String("id", "", "appointment id")
	date := fs.String("date", "", "new day")
	clock := fs.String("time", "", "new start time HH:MM")
	status := fs.String("status", "", "new status")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	a, err := rt.workflow.AssistantUpdate(ctx, workflow.AssistantEdit{
		ID:     *id,
		Date:   *date,
		Time:   *clock,
		Status: appointments.Status(*status),
	})
	return reportAppointment(rt, "Updated", a, err)
}

func runAccept(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("accept", rt.env.Stderr)
	id := fs.String("id", "", "appointment id")
	link := fs.String("link", "", "meeting link for video appointments; defaults to the proposed link")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	if *link == "" {
		if current, ok := appointments.Find(rt.workflow.Appointments(), *id); ok {
			if proposed := rt.workflow.ProposedLink(current); proposed != "" {
				*link = proposed
				fmt.Fprintln(rt.env.Stdout, mutedStyle.Render("Using meeting link "+proposed))
			}
		}
	}
	a, err := rt.workflow.Accept(ctx, *id, *link)
	return reportAppointment(rt, "Accepted", a, err)
}

func runReject(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("reject", rt.env.Stderr)
	id := fs.String("id", "", "appointment id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	a, err := rt.workflow.Reject(ctx, *id)
	return reportAppointment(rt, "Rejected", a, err)
}

func runDelete(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("delete", rt.env.Stderr)
	id := fs.String("id", "", "appointment id")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "id"); err != nil {
		return err
	}
	err := rt.workflow.Delete(ctx, *id)
	if err == nil || isQueued(err) {
		fmt.Fprintln(rt.env.Stdout, "Deleted", *id)
	}
	return err
}

func runAssistantBook(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("assistant-book", rt.env.Stderr)
	doctor := fs.String("doctor", "", "doctor name")
	specialty := fs.String("specialty", "", "specialty")
	date := fs.String("date", "", "day")
	clock := fs.String("time", "", "start time HH:MM")
	kind := fs.String("type", "", "video or in-person (default in-person)")
	patient := fs.String("patient", "", "patient name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "doctor", "time"); err != nil {
		return err
	}
	a, err := rt.workflow.AssistantBook(ctx, workflow.AssistantBooking{
		DoctorName:  *doctor,
		Specialty:   *specialty,
		Date:        *date,
		Time:        *clock,
		Type:        appointments.Kind(*kind),
		PatientName: *patient,
	})
	return reportAppointment(rt, "Booked", a, err)
}

func runNotifications(ctx context.Context, rt *Runtime, args []string) error {
	fs := newFlags("notifications", rt.env.Stderr)
	read := fs.String("read", "", "mark the notification with this id read")
	unread := fs.Bool("unread", false, "only show unread notifications")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *read != "" {
		if !rt.workflow.MarkNotificationRead(ctx, *read) {
			return fmt.Errorf("%w: notification %s", appointments.ErrNotFound, *read)
		}
		fmt.Fprintln(rt.env.Stdout, "Marked read", *read)
		return nil
	}
	all := rt.workflow.Notifications()
	shown := 0
	for _, n := range all {
		if *unread && n.Read {
			continue
		}
		printNotification(rt.env.Stdout, n)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(rt.env.Stdout, mutedStyle.Render("No notifications."))
	}
	return nil
}

// reportAppointment prints the result of a workflow call. A queued write
// still changed local state, so it is printed before the error surfaces.
func reportAppointment(rt *Runtime, verb string, a appointments.Appointment, err error) error {
	if err != nil && !isQueued(err) {
		return err
	}
	fmt.Fprintf(rt.env.Stdout, "%s %s\n", verb, a.ID)
	printAppointments(rt.env.Stdout, []appointments.Appointment{a}, time.Now())
	return err
}

func isQueued(err error) bool {
	return errors.Is(err, workflow.ErrNotPersisted)
}
