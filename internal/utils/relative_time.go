package utils

import (
	"fmt"
	"time"
)

// FormatRelativeTime buckets the elapsed time between now and ts into a human
// readable string. Callers must pass the current clock on every render; the
// result is never cached.
func FormatRelativeTime(now, ts time.Time) string {
	elapsed := now.Sub(ts)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Minute:
		return "moments ago"
	case elapsed < time.Hour:
		return pluralize(int(elapsed/time.Minute), "minute")
	case elapsed < 24*time.Hour:
		return pluralize(int(elapsed/time.Hour), "hour")
	case elapsed < 7*24*time.Hour:
		return pluralize(int(elapsed/(24*time.Hour)), "day")
	default:
		return ts.Format("Jan 2, 2006")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
