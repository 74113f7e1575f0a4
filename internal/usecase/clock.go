package usecase

import "time"

// Clock returns the current time. Services default to UTC wall time.
type Clock func() time.Time

func systemClock() time.Time {
	return time.Now().UTC()
}
