package hrtime

import "time"

// Clock abstracts wall and monotonic time so that time-window logic
// can be driven by a fake clock in tests.
type Clock interface {
	Now() time.Time
	// MonotonicElapsed is the duration since the process (clock) start.
	MonotonicElapsed() time.Duration
	Since(time.Time) time.Duration
}
