package util

import (
	"github.com/bits-and-blooms/bitset"
)

// RollingFlags records the most recent boolean outcomes in a fixed size ring backed by a BitSet, tracking how many of
// them are set.
//
// This type is not concurrency safe.
type RollingFlags struct {
	bits *bitset.BitSet
	size uint

	// Index to write the next flag to
	index    uint
	occupied uint
	set      uint
}

// NewRollingFlags returns a RollingFlags remembering the last size flags. A size of 0 is treated as 1.
func NewRollingFlags(size uint) *RollingFlags {
	size = max(size, 1)
	return &RollingFlags{
		bits: bitset.New(size),
		size: size,
	}
}

// Add records the next flag, evicting the oldest one once the window is full. Returns the evicted flag, or -1 if the
// window was not full yet.
func (r *RollingFlags) Add(flag bool) int {
	previous := -1
	if r.occupied < r.size {
		r.occupied++
	} else if r.bits.Test(r.index) {
		previous = 1
	} else {
		previous = 0
	}

	r.bits.SetTo(r.index, flag)
	r.index++
	if r.index == r.size {
		r.index = 0
	}

	if flag && previous != 1 {
		r.set++
	} else if !flag && previous == 1 {
		r.set--
	}
	return previous
}

// Len returns the number of flags currently in the window.
func (r *RollingFlags) Len() uint {
	return r.occupied
}

// Count returns the number of set flags in the window.
func (r *RollingFlags) Count() uint {
	return r.set
}

// Ratio returns the fraction of set flags in the window, or 0 when the window is empty.
func (r *RollingFlags) Ratio() float64 {
	if r.occupied == 0 {
		return 0
	}
	return float64(r.set) / float64(r.occupied)
}

// Reset clears the window.
func (r *RollingFlags) Reset() {
	r.bits.ClearAll()
	r.index = 0
	r.occupied = 0
	r.set = 0
}
