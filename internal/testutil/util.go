package testutil

import (
	"time"
)

// TestClock is a manually advanced clock.
type TestClock struct {
	CurrentTime int64
}

func (t *TestClock) CurrentUnixNano() int64 {
	return t.CurrentTime
}

// Advance moves the clock forward by d.
func (t *TestClock) Advance(d time.Duration) {
	t.CurrentTime += d.Nanoseconds()
}
