package util

import (
	"time"
)

// Clock returns the current time in nanoseconds.
type Clock interface {
	CurrentUnixNano() int64
}

type wallClock struct{}

func (wallClock) CurrentUnixNano() int64 {
	return time.Now().UnixNano()
}

// WallClock is a Clock backed by the system time.
var WallClock Clock = wallClock{}

// Stopwatch measures the time elapsed since it was started or last reset.
type Stopwatch interface {
	ElapsedTime() time.Duration
	Reset()
}

type stopwatch struct {
	clock     Clock
	startTime int64
}

// NewStopwatch returns a started Stopwatch that reads time from the clock.
func NewStopwatch(clock Clock) Stopwatch {
	return &stopwatch{
		clock:     clock,
		startTime: clock.CurrentUnixNano(),
	}
}

func (s *stopwatch) ElapsedTime() time.Duration {
	return time.Duration(s.clock.CurrentUnixNano() - s.startTime)
}

func (s *stopwatch) Reset() {
	s.startTime = s.clock.CurrentUnixNano()
}
