package util

import (
	"time"
)

// Smooth returns the exponential blend of an old and new value using the smoothingFactor, which should be in [0, 1].
func Smooth(oldValue, newValue, smoothingFactor float64) float64 {
	return oldValue*(1-smoothingFactor) + newValue*smoothingFactor
}

// MovingAverage is an exponentially weighted moving average of scheduling delays.
//
// This type is not concurrency safe.
type MovingAverage struct {
	warmupSamples   uint
	smoothingFactor float64

	// Mutable state
	count uint
	value float64
	sum   float64
}

// NewMovingAverage creates a MovingAverage that effectively remembers the last age samples. Until warmupSamples have
// been added, the value is a plain mean of the samples so far.
func NewMovingAverage(age uint, warmupSamples uint) MovingAverage {
	return MovingAverage{
		warmupSamples:   warmupSamples,
		smoothingFactor: 2 / (float64(age) + 1),
	}
}

// Add adds a value to the series and returns the updated average.
func (a *MovingAverage) Add(value float64) float64 {
	if a.count < a.warmupSamples {
		a.count++
		a.sum += value
		a.value = a.sum / float64(a.count)
	} else {
		a.value = Smooth(a.value, value, a.smoothingFactor)
	}
	return a.value
}

// AddDuration adds a delay to the series and returns the updated average delay.
func (a *MovingAverage) AddDuration(d time.Duration) time.Duration {
	return time.Duration(a.Add(float64(d)))
}

// Duration returns the current average as a delay.
func (a *MovingAverage) Duration() time.Duration {
	return time.Duration(a.value)
}

// Reset clears the average and requires a new warmup.
func (a *MovingAverage) Reset() {
	a.count = 0
	a.value = 0
	a.sum = 0
}
