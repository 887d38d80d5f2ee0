package energy

import (
	"fmt"
	"time"
)

// Age describes how long ago last was, relative to now, in the compact
// form shown on the trend views. A zero last means nothing was received.
func Age(last, now time.Time) string {
	if last.IsZero() {
		return "No data yet"
	}

	elapsed := now.Sub(last)
	if elapsed < 0 {
		elapsed = 0
	}

	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed/time.Second))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dmin ago", int(elapsed/time.Minute))
	case elapsed < 24*time.Hour:
		h := int(elapsed / time.Hour)
		m := int((elapsed % time.Hour) / time.Minute)
		return fmt.Sprintf("%dh %dmin ago", h, m)
	default:
		return fmt.Sprintf("%dd ago", int(elapsed/(24*time.Hour)))
	}
}
