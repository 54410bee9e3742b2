package load

import "time"

// Clock supplies the current time. Injected so tests can pin the run
// timestamp that names checkpoint and failure files.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current local time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
