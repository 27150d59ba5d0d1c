package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
	"github.com/wolfman30/medipulse/internal/notify"
	"github.com/wolfman30/medipulse/internal/schedule"
)

func printAppointments(w io.Writer, list []appointments.Appointment, now time.Time) {
	if len(list) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No appointments."))
		return
	}
	for _, a := range list {
		when := strings.TrimSpace(a.Date + " " + a.Time)
		if at, ok := schedule.Resolve(a, now); ok {
			when = schedule.Label(at, now) + " " + at.In(now.Location()).Format("15:04")
		}
		fmt.Fprintf(w, "%s %s  %s with %s (%s)  %s  %s\n",
			statusStyle(a.Status).Render(string(a.Status)),
			idStyle.Render(a.ID),
			a.PatientName,
			a.DoctorName,
			a.Specialty,
			when,
			where(a, now),
		)
	}
}

func where(a appointments.Appointment, now time.Time) string {
	if a.Type != appointments.KindVideo {
		if a.Location == "" {
			return "in person"
		}
		return "in person at " + a.Location
	}
	if a.MeetLink != "" && a.Status == appointments.StatusUpcoming && schedule.JoinWindowOpen(a, now) {
		return "video, join " + a.MeetLink
	}
	return "video"
}

func printDoctors(w io.Writer, list []appointments.Doctor) {
	if len(list) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No doctors."))
		return
	}
	for _, d := range list {
		hours := ""
		if d.StartTime != "" && d.EndTime != "" {
			hours = d.StartTime + "-" + d.EndTime
		}
		fmt.Fprintf(w, "%s  %s, %s  %.1f★  $%.0f  %s\n",
			idStyle.Render(d.ID.String()), d.Name, d.Specialty, d.Rating, d.Price, mutedStyle.Render(hours))
	}
}

func printNotification(w io.Writer, n notify.Notification) {
	title := notificationStyle(n.Type).Render(n.Title)
	msg := n.Message
	if !n.Read {
		msg = unreadStyle.Render(msg)
	}
	fmt.Fprintf(w, "%s %s  %s\n", idStyle.Render(n.ID), title, msg)
}
