// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Private element-wise and broadcast kernels (ew*) shared by the statistics
//     routines, plus the public comparison helper AllClose.
//
// Determinism & Performance:
//   - Fixed loop orders; Dense fast-path on the flat buffer.

package matrix

import "math"

// ewBroadcastSubCols computes out[i,j] = X[i,j] - colMeans[j].
// Time: O(r*c). Space: O(r*c).
func ewBroadcastSubCols(X Matrix, colMeans []float64) (*Dense, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, matrixErrorf("broadcastSubCols", err)
	}
	r, c := X.Rows(), X.Cols()
	if len(colMeans) != c {
		return nil, matrixErrorf("broadcastSubCols", ErrDimensionMismatch)
	}
	out, err := newDenseZeroOK(r, c)
	if err != nil {
		return nil, matrixErrorf("broadcastSubCols", err)
	}

	if d, ok := X.(*Dense); ok {
		for i := 0; i < r; i++ {
			base := i * c
			for j := 0; j < c; j++ {
				out.data[base+j] = d.data[base+j] - colMeans[j]
			}
		}

		return out, nil
	}

	var v float64
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v, err = X.At(i, j); err != nil {
				return nil, matrixErrorf("broadcastSubCols", err)
			}
			out.data[i*c+j] = v - colMeans[j]
		}
	}

	return out, nil
}

// ewScaleColsInPlace computes X[i,j] *= scale[j] on a Dense the caller owns.
// Use factors 1/std for z-scoring, or 0 for degenerate columns.
func ewScaleColsInPlace(X *Dense, scale []float64) error {
	if len(scale) != X.c {
		return matrixErrorf("scaleCols", ErrDimensionMismatch)
	}
	for i := 0; i < X.r; i++ {
		base := i * X.c
		for j := 0; j < X.c; j++ {
			X.data[base+j] *= scale[j]
		}
	}

	return nil
}

// AllClose checks element-wise |a-b| ≤ atol + rtol*|b| for identical shapes.
// Returns (true,nil) if all elements satisfy the relation; (false,nil)
// otherwise. NaN never compares close; equal infinities do.
func AllClose(a, b Matrix, rtol, atol float64) (bool, error) {
	if err := ValidateNotNil(a); err != nil {
		return false, matrixErrorf("AllClose", err)
	}
	if err := ValidateNotNil(b); err != nil {
		return false, matrixErrorf("AllClose", err)
	}
	if err := ValidateSameShape(a, b); err != nil {
		return false, matrixErrorf("AllClose", err)
	}

	var (
		av, bv float64
		err    error
	)
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			if av, err = a.At(i, j); err != nil {
				return false, matrixErrorf("AllClose", err)
			}
			if bv, err = b.At(i, j); err != nil {
				return false, matrixErrorf("AllClose", err)
			}
			if !isClose(av, bv, rtol, atol) {
				return false, nil
			}
		}
	}

	return true, nil
}

func isClose(a, b, rtol, atol float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if math.IsInf(a, 0) || math.IsInf(b, 0) {
		return a == b
	}

	return math.Abs(a-b) <= atol+rtol*math.Abs(b)
}
