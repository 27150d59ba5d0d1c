package schedule

import (
	"strings"

	"github.com/google/uuid"
)

const meetAlphabet = "abcdefghijklmnopqrstuvwxyz"

// MeetLink generates a fresh meeting link of the form
// https://meet.google.com/abc-defg-hij.
func MeetLink() string {
	id := uuid.New()
	var b strings.Builder
	b.WriteString("https://meet.google.com/")
	for i, n := range []int{3, 4, 3} {
		if i > 0 {
			b.WriteByte('-')
		}
		for j := 0; j < n; j++ {
			b.WriteByte(meetAlphabet[int(id[i*4+j])%len(meetAlphabet)])
		}
	}
	return b.String()
}
