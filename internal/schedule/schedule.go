// Package schedule derives time-based views of appointments: the canonical
// instant, display labels, ordering, the join window and bookable slots.
package schedule

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/medipulse/internal/appointments"
)

// JoinWindow is how far either side of the start time a video link is
// considered live.
const JoinWindow = 60 * time.Minute

const (
	defaultStartHour = 9
	defaultEndHour   = 22
	slotStep         = 30 * time.Minute
)

// Label renders the display date for at relative to now.
func Label(at, now time.Time) string {
	at = at.In(now.Location())
	day := startOfDay(at)
	today := startOfDay(now)
	switch {
	case day.Equal(today):
		return "Today"
	case day.Equal(today.AddDate(0, 0, 1)):
		return "Tomorrow"
	case day.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case at.Year() != now.Year():
		return at.Format("Mon, Jan 2, 2006")
	default:
		return at.Format("Mon, Jan 2")
	}
}

// ParseLegacy resolves a display label plus "HH:MM" clock into an instant in
// now's location. Labels without a year pick the year that lands closest to
// now, so "Jan 2" read on Dec 30 means the coming January.
func ParseLegacy(date, clock string, now time.Time) (time.Time, error) {
	hour, minute, err := parseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	loc := now.Location()
	today := startOfDay(now)
	at := func(day time.Time) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
	}

	label := strings.TrimSpace(date)
	switch strings.ToLower(label) {
	case "", "today":
		return at(today), nil
	case "tomorrow", "tmrrw":
		return at(today.AddDate(0, 0, 1)), nil
	case "yesterday":
		return at(today.AddDate(0, 0, -1)), nil
	}

	if d, err := time.ParseInLocation("2006-01-02", label, loc); err == nil {
		return at(d), nil
	}
	for _, layout := range []string{"Mon, Jan 2, 2006", "Jan 2, 2006"} {
		if d, err := time.ParseInLocation(layout, label, loc); err == nil {
			return at(d), nil
		}
	}

	// "Thu, Oct 24" carries a weekday that may disagree with the year we
	// pick; only the month and day are trusted.
	if i := strings.Index(label, ","); i >= 0 {
		label = strings.TrimSpace(label[i+1:])
	}
	d, err := time.ParseInLocation("Jan 2", label, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: unrecognized date %q", date)
	}
	best := time.Time{}
	var bestGap time.Duration
	for _, year := range []int{now.Year() - 1, now.Year(), now.Year() + 1} {
		candidate := time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, loc)
		if candidate.Month() != d.Month() {
			continue // Feb 29 outside a leap year
		}
		gap := candidate.Sub(today)
		if gap < 0 {
			gap = -gap
		}
		if best.IsZero() || gap < bestGap {
			best, bestGap = candidate, gap
		}
	}
	if best.IsZero() {
		return time.Time{}, fmt.Errorf("schedule: unrecognized date %q", date)
	}
	return at(best), nil
}

// Resolve returns the canonical instant of a. ScheduledAt wins; legacy
// records fall back to parsing Date and Time.
func Resolve(a appointments.Appointment, now time.Time) (time.Time, bool) {
	if a.ScheduledAt != nil && !a.ScheduledAt.IsZero() {
		return *a.ScheduledAt, true
	}
	at, err := ParseLegacy(a.Date, a.Time, now)
	if err != nil {
		return time.Time{}, false
	}
	return at, true
}

// Stamp fills ScheduledAt from the legacy fields when missing and refreshes
// Date from the instant.
func Stamp(a appointments.Appointment, now time.Time) appointments.Appointment {
	at, ok := Resolve(a, now)
	if !ok {
		return a
	}
	a.ScheduledAt = &at
	a.Date = Label(at, now)
	a.Time = at.In(now.Location()).Format("15:04")
	return a
}

// SortChronological returns a copy of list ordered by start instant, earliest
// first. Records whose instant cannot be resolved go last in their original
// order.
func SortChronological(list []appointments.Appointment, now time.Time) []appointments.Appointment {
	type keyed struct {
		apt appointments.Appointment
		at  time.Time
		ok  bool
	}
	items := make([]keyed, len(list))
	for i, a := range list {
		at, ok := Resolve(a, now)
		items[i] = keyed{apt: a, at: at, ok: ok}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].ok != items[j].ok {
			return items[i].ok
		}
		return items[i].ok && items[i].at.Before(items[j].at)
	})
	out := make([]appointments.Appointment, len(items))
	for i, it := range items {
		out[i] = it.apt
	}
	return out
}

// JoinWindowOpen reports whether a video appointment's link should be offered.
func JoinWindowOpen(a appointments.Appointment, now time.Time) bool {
	if a.Type != appointments.KindVideo || a.MeetLink == "" {
		return false
	}
	switch a.Status {
	case appointments.StatusCancelled, appointments.StatusCompleted:
		return false
	case appointments.StatusPending:
		return true
	}
	at, ok := Resolve(a, now)
	if !ok {
		return false
	}
	gap := at.Sub(now)
	if gap < 0 {
		gap = -gap
	}
	return gap <= JoinWindow
}

// Slots lists the bookable half-hour starts for doctor on day. On today,
// starts at or before now are dropped.
func Slots(doctor appointments.Doctor, day, now time.Time) []string {
	start := hourOf(doctor.StartTime, defaultStartHour)
	end := hourOf(doctor.EndTime, defaultEndHour)
	loc := now.Location()
	day = startOfDay(day.In(loc))
	isToday := day.Equal(startOfDay(now))

	slots := make([]string, 0, 2*max(end-start, 0))
	for t := day.Add(time.Duration(start) * time.Hour); t.Before(day.Add(time.Duration(end) * time.Hour)); t = t.Add(slotStep) {
		if isToday && !t.After(now) {
			continue
		}
		slots = append(slots, t.Format("15:04"))
	}
	return slots
}

func hourOf(clock string, fallback int) int {
	head, _, _ := strings.Cut(strings.TrimSpace(clock), ":")
	h, err := strconv.Atoi(head)
	if err != nil || h < 0 || h > 24 {
		return fallback
	}
	return h
}

func parseClock(clock string) (int, int, error) {
	clock = strings.TrimSpace(clock)
	if !appointments.IsClock(clock) {
		return 0, 0, fmt.Errorf("schedule: invalid time %q", clock)
	}
	h, _ := strconv.Atoi(clock[:2])
	m, _ := strconv.Atoi(clock[3:])
	return h, m, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
