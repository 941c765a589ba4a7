// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// Every algorithm returns these sentinels (possibly wrapped with an operation
// tag) and tests match them via errors.Is. No function panics on user input.

package matrix

import "errors"

// Every message is prefixed with "matrix: ..." so log lines are easy to grep.
// Wrap at the boundary with fmt.Errorf("ctx: %w", ErrX); callers still match
// with errors.Is.

var (
	// ErrInvalidDimensions indicates that requested matrix dimensions are non-positive.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrOutOfRange indicates that an index (row or column) is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible dimensions between operands,
	// e.g. Mul where a.Cols != b.Rows, or a data slice of the wrong length.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required but the input wasn't.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrAsymmetry signals that a matrix expected to be symmetric violated symmetry
	// within the given tolerance.
	ErrAsymmetry = errors.New("matrix: matrix is not symmetric within eps")

	// ErrNaNInf signals a NaN or ±Inf value where finite values are required.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrNilMatrix indicates that a nil Matrix (receiver or argument) was used.
	ErrNilMatrix = errors.New("matrix: nil receiver")

	// ErrSingular is returned when a linear system cannot be solved because its
	// coefficient matrix is singular or numerically indistinguishable from it.
	ErrSingular = errors.New("matrix: singular matrix")
)
