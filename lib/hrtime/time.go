package hrtime

import "time"

var appStartTime = time.Now()

var (
	// SdkClock delegates to the Go SDK time source.
	SdkClock Clock = &sdkClockTime{}
	// GoMonotonicClock measures elapsed time against the process start
	// instant, immune to wall clock jumps.
	GoMonotonicClock Clock = &goMonotonicClockTime{}
)

type sdkClockTime struct{}

func (s *sdkClockTime) Now() time.Time { return time.Now() }

func (s *sdkClockTime) MonotonicElapsed() time.Duration { return time.Since(appStartTime) }

func (s *sdkClockTime) Since(beginTime time.Time) time.Duration { return time.Since(beginTime) }

type goMonotonicClockTime struct{}

func (g *goMonotonicClockTime) Now() time.Time {
	return appStartTime.Add(g.MonotonicElapsed())
}

func (g *goMonotonicClockTime) MonotonicElapsed() time.Duration {
	// time.Time carries a monotonic reading, Sub strips the wall part.
	return time.Now().Sub(appStartTime)
}

func (g *goMonotonicClockTime) Since(beginTime time.Time) time.Duration {
	return time.Now().Sub(beginTime)
}
