// SPDX-License-Identifier: MIT

package locs

import (
	"errors"
	"fmt"
)

var (
	// ErrAlignment indicates a source location with no match in the target set
	// while growing the target was not allowed.
	ErrAlignment = errors.New("locs: location not found in target set")

	// ErrDuplicateLocation indicates a repeated coordinate in a Set constructor.
	ErrDuplicateLocation = errors.New("locs: duplicate location")

	// ErrInvalidLocation indicates a NaN or infinite coordinate.
	ErrInvalidLocation = errors.New("locs: non-finite coordinate")
)

// AlignmentError names the first source location that could not be mapped.
// It matches ErrAlignment under errors.Is.
type AlignmentError struct {
	Location Location
	Column   int // column in the source set
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("locs: source column %d at %v: not in target set", e.Column, e.Location)
}

// Unwrap exposes the sentinel.
func (e *AlignmentError) Unwrap() error { return ErrAlignment }
