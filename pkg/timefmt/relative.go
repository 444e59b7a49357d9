// Package timefmt renders timestamps for people.
package timefmt

import (
	"fmt"
	"time"
)

// Relative describes t as seen at now: "just now", "5 minutes ago",
// "1 hour ago", "3 days ago", or a date such as "Jan 2, 2006" once t is 30
// days old. Times in the future render as "just now".
func Relative(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d/time.Minute), "minute")
	case d < 24*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
