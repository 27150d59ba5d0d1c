package appointments

import "time"

func fixedNow() time.Time {
	return time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)
}
