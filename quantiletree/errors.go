package quantiletree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned when an operation is called with an argument it cannot use, such as a nil fold
	// function.
	ErrInvalidArgument = errors.New("quantiletree: invalid argument")

	// ErrKeyNotFound is returned when weight is subtracted from a key that has no bucket in the tree.
	ErrKeyNotFound = errors.New("quantiletree: key not found")

	// ErrNegativeWeight is returned when a subtraction would drive a bucket's weight below zero. The tree is left
	// unchanged.
	ErrNegativeWeight = errors.New("quantiletree: negative weight")

	// ErrWeightOverflow is returned when an addition would push the tree's total weight past math.MaxInt64. The tree
	// is left unchanged.
	ErrWeightOverflow = errors.New("quantiletree: weight overflow")

	// ErrInvariant is wrapped by errors that describe a broken structural invariant.
	ErrInvariant = errors.New("quantiletree: invariant violated")
)

// InvariantError is the panic value raised when invariant checking is enabled and a mutation leaves the tree in an
// inconsistent state. It is not recoverable: the tree must be discarded.
type InvariantError struct {
	Op  string
	Key int64
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s(%d): %v", e.Op, e.Key, e.Err)
}

func (e *InvariantError) Unwrap() error {
	return e.Err
}
