package clock

import "time"

// Clock provides time to the application. Timeline labels ("TODAY", "YESTERDAY")
// and session expiry depend on it, so tests substitute a manual clock.
type Clock interface {
	Now() time.Time
}
