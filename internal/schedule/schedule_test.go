package schedule

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/medipulse/internal/appointments"
)

var now = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

func TestLabel(t *testing.T) {
	assert.Equal(t, "Today", Label(now.Add(6*time.Hour), now))
	assert.Equal(t, "Tomorrow", Label(now.Add(20*time.Hour), now))
	assert.Equal(t, "Yesterday", Label(now.Add(-10*time.Hour), now))
	assert.Equal(t, "Fri, Mar 20", Label(now.AddDate(0, 0, 10), now))
	assert.Equal(t, "Sat, Jan 2, 2027", Label(time.Date(2027, 1, 2, 9, 0, 0, 0, time.UTC), now))
}

func TestParseLegacyRelativeLabels(t *testing.T) {
	cases := map[string]time.Time{
		"Today":       time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC),
		"tomorrow":    time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC),
		"Tmrrw":       time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC),
		"Yesterday":   time.Date(2026, 3, 9, 14, 30, 0, 0, time.UTC),
		"Apr 28":      time.Date(2026, 4, 28, 14, 30, 0, 0, time.UTC),
		"Thu, Mar 12": time.Date(2026, 3, 12, 14, 30, 0, 0, time.UTC),
		"2026-04-01":  time.Date(2026, 4, 1, 14, 30, 0, 0, time.UTC),
	}
	for label, want := range cases {
		got, err := ParseLegacy(label, "14:30", now)
		require.NoError(t, err, label)
		assert.True(t, want.Equal(got), "%s: got %s", label, got)
	}
}

func TestParseLegacyYearRollover(t *testing.T) {
	lateDecember := time.Date(2026, 12, 30, 12, 0, 0, 0, time.UTC)
	got, err := ParseLegacy("Jan 2", "10:00", lateDecember)
	require.NoError(t, err)
	assert.Equal(t, 2027, got.Year())

	earlyJanuary := time.Date(2027, 1, 2, 12, 0, 0, 0, time.UTC)
	got, err = ParseLegacy("Dec 30", "10:00", earlyJanuary)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
}

func TestParseLegacyRejectsGarbage(t *testing.T) {
	_, err := ParseLegacy("someday", "10:00", now)
	assert.Error(t, err)
	_, err = ParseLegacy("Today", "25:00", now)
	assert.Error(t, err)
}

func TestResolvePrefersScheduledAt(t *testing.T) {
	at := time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC)
	a := appointments.Appointment{Date: "Today", Time: "09:00", ScheduledAt: &at}
	got, ok := Resolve(a, now)
	require.True(t, ok)
	assert.True(t, at.Equal(got))
}

func TestStamp(t *testing.T) {
	a := Stamp(appointments.Appointment{Date: "Tomorrow", Time: "09:00"}, now)
	require.NotNil(t, a.ScheduledAt)
	assert.Equal(t, "Tomorrow", a.Date)
	assert.True(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC).Equal(*a.ScheduledAt))
}

func TestSortChronological(t *testing.T) {
	list := []appointments.Appointment{
		{ID: "late", Date: "Tomorrow", Time: "09:00"},
		{ID: "broken", Date: "someday", Time: "09:00"},
		{ID: "early", Date: "Today", Time: "10:00"},
		{ID: "earliest", Date: "Yesterday", Time: "23:00"},
	}
	sorted := SortChronological(list, now)
	var ids []string
	for _, a := range sorted {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"earliest", "early", "late", "broken"}, ids)
	assert.Equal(t, "late", list[0].ID)
}

func TestJoinWindowOpen(t *testing.T) {
	at := now.Add(45 * time.Minute)
	video := appointments.Appointment{Type: appointments.KindVideo, Status: appointments.StatusUpcoming, MeetLink: "https://meet.google.com/a", ScheduledAt: &at}
	assert.True(t, JoinWindowOpen(video, now))

	later := now.Add(3 * time.Hour)
	video.ScheduledAt = &later
	assert.False(t, JoinWindowOpen(video, now))

	video.Status = appointments.StatusPending
	assert.True(t, JoinWindowOpen(video, now))

	video.Status = appointments.StatusCancelled
	video.ScheduledAt = &at
	assert.False(t, JoinWindowOpen(video, now))

	inPerson := appointments.Appointment{Type: appointments.KindInPerson, Status: appointments.StatusUpcoming, ScheduledAt: &at}
	assert.False(t, JoinWindowOpen(inPerson, now))
}

func TestSlots(t *testing.T) {
	doc := appointments.Doctor{StartTime: "10:00", EndTime: "12:00"}
	assert.Equal(t, []string{"10:00", "10:30", "11:00", "11:30"}, Slots(doc, now.AddDate(0, 0, 1), now))

	midday := time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, []string{"11:00", "11:30"}, Slots(doc, midday, midday))

	defaults := Slots(appointments.Doctor{}, now.AddDate(0, 0, 1), now)
	assert.Len(t, defaults, 26)
	assert.Equal(t, "09:00", defaults[0])
	assert.Equal(t, "21:30", defaults[len(defaults)-1])
}

func TestMeetLink(t *testing.T) {
	link := MeetLink()
	assert.Regexp(t, regexp.MustCompile(`^https://meet\.google\.com/[a-z]{3}-[a-z]{4}-[a-z]{3}$`), link)
	assert.NotEqual(t, link, MeetLink())
}
