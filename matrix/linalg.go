// SPDX-License-Identifier: MIT
// Package matrix provides universal operations on any Matrix implementation,
// with fast paths for *Dense operands.

package matrix

import "fmt"

// ZeroSum is the initial sum value for accumulations.
const ZeroSum = 0.0

// Operation name constants for unified error wrapping.
const (
	opMul         = "Mul"
	opTranspose   = "Transpose"
	opScale       = "Scale"
	opAddDiagonal = "AddDiagonal"
	opScatterAdd  = "ScatterAdd"
)

// matrixErrorf wraps err with an operation tag: "Op: underlying".
// Use only when err != nil to avoid creating a non-nil wrapper around a nil cause.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// Mul performs standard matrix multiplication C = A × B (no aliasing).
//
// Implementation:
//   - Stage 1: Validate A,B (not nil) and inner dimensions (A.Cols == B.Rows).
//   - Stage 2: If A and B are *Dense, use i→k→j with row-major strides and skip zeros;
//     otherwise use i→j→k with a fixed order.
//
// Behavior highlights:
//   - Empty inner or outer dimensions yield a legal empty or zero result, which
//     lets callers multiply through an empty known/unknown partition.
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (*Dense, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	aRows, aCols, bCols := a.Rows(), a.Cols(), b.Cols()
	res, err := newDenseZeroOK(aRows, bCols)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	var (
		i, j, k int
		av, bv  float64
		current float64
	)
	if da, okA := a.(*Dense); okA {
		if db, okB := b.(*Dense); okB {
			var rowA, rowB, rowR int
			for i = 0; i < aRows; i++ {
				rowA = i * aCols
				rowR = i * bCols
				for k = 0; k < aCols; k++ {
					av = da.data[rowA+k]
					if av == 0 {
						continue
					}
					rowB = k * bCols
					for j = 0; j < bCols; j++ {
						res.data[rowR+j] += av * db.data[rowB+j]
					}
				}
			}

			return res, nil
		}
	}

	for i = 0; i < aRows; i++ {
		for j = 0; j < bCols; j++ {
			current = ZeroSum
			for k = 0; k < aCols; k++ {
				if av, err = a.At(i, k); err != nil {
					return nil, matrixErrorf(opMul, err)
				}
				if av == 0 {
					continue
				}
				if bv, err = b.At(k, j); err != nil {
					return nil, matrixErrorf(opMul, err)
				}
				current += av * bv
			}
			res.data[i*bCols+j] = current
		}
	}

	return res, nil
}

// Transpose returns a new matrix with rows and columns swapped (mᵀ).
// Complexity: O(r*c).
func Transpose(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	r, c := m.Rows(), m.Cols()
	res, err := newDenseZeroOK(c, r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j int
	if d, ok := m.(*Dense); ok {
		for i = 0; i < r; i++ {
			base := i * c
			for j = 0; j < c; j++ {
				res.data[j*r+i] = d.data[base+j]
			}
		}

		return res, nil
	}

	var v float64
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, matrixErrorf(opTranspose, err)
			}
			res.data[j*r+i] = v
		}
	}

	return res, nil
}

// Scale returns a new matrix whose elements are alpha * m[i,j].
// Complexity: O(r*c).
func Scale(m Matrix, alpha float64) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	r, c := m.Rows(), m.Cols()
	res, err := newDenseZeroOK(r, c)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	if d, ok := m.(*Dense); ok {
		for k, v := range d.data {
			res.data[k] = alpha * v
		}

		return res, nil
	}

	var v float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, matrixErrorf(opScale, err)
			}
			res.data[i*c+j] = alpha * v
		}
	}

	return res, nil
}

// AddDiagonal adds alpha to every diagonal element of the square matrix m,
// in place. This is the ridge term λ·I used to stabilize covariance blocks.
func AddDiagonal(m *Dense, alpha float64) error {
	if err := ValidateSquare(m); err != nil {
		return matrixErrorf(opAddDiagonal, err)
	}
	for i := 0; i < m.r; i++ {
		m.data[i*m.c+i] += alpha
	}

	return nil
}

// ScatterAdd accumulates alpha*src[a,b] into dst[idx[a], idx[b]] for every
// (a,b) of the square src. dst is mutated in place and never reallocated.
//
// Implementation:
//   - Stage 1: Validate shapes (src k×k, dst n×n, len(idx)==k) and idx ⊂ [0,n).
//   - Stage 2: Row-by-row scatter with cached destination row offsets.
//
// Behavior highlights:
//   - When src is symmetric the update to dst is symmetric, bit for bit.
//   - A nil src adds alpha to every addressed cell (outer product of the mask).
//
// Complexity:
//   - Time O(k²), Space O(1).
func ScatterAdd(dst *Dense, src *Dense, idx []int, alpha float64) error {
	if err := ValidateSquare(dst); err != nil {
		return matrixErrorf(opScatterAdd, err)
	}
	k := len(idx)
	if src != nil && (src.r != k || src.c != k) {
		return matrixErrorf(opScatterAdd, ErrDimensionMismatch)
	}
	if err := ValidateIndex(idx, dst.r); err != nil {
		return matrixErrorf(opScatterAdd, err)
	}

	n := dst.c
	var a, b, rowDst int
	for a = 0; a < k; a++ {
		rowDst = idx[a] * n
		if src == nil {
			for b = 0; b < k; b++ {
				dst.data[rowDst+idx[b]] += alpha
			}
			continue
		}
		rowSrc := a * k
		for b = 0; b < k; b++ {
			dst.data[rowDst+idx[b]] += alpha * src.data[rowSrc+b]
		}
	}

	return nil
}
