// SPDX-License-Identifier: MIT

// Package locs is the coordinate registry of supereeg: an ordered,
// duplicate-free set of 3-D electrode or voxel locations, and the Expander
// that maps one subject's locations into a larger reference set.
//
// What:
//
//   - Location identity is exact coordinate equality; a Set's order defines
//     the column index space of every matrix that refers to it.
//   - Union keeps the primary order and appends the secondary's novel rows.
//   - Expand aligns a source Set against a target in Strict mode (every
//     source location must already exist) or Grow mode (the target is
//     extended by Union), returning the column map and the observed mask.
//   - ExpandColumns and RestrictColumns move matrices between the two index
//     spaces; restricting an expansion gives back the input exactly.
//
// Errors:
//
//   - ErrAlignment (via *AlignmentError), ErrDuplicateLocation,
//     ErrInvalidLocation. Shape errors reuse matrix.ErrDimensionMismatch.
//
// Complexity:
//
//   - NewSet, Union, Expand: O(n) expected with a hash index.
//   - ExpandColumns/RestrictColumns: O(samples·cols).
package locs
