// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Column statistics for electrode recordings laid out samples×locations:
//     centering and Pearson correlation between locations.
//
// Determinism & Performance:
//   - Fixed i→j traversal for all explicit loops.
//   - Dense fast-paths operate on row-major flat buffers.

package matrix

import "math"

const (
	opCenterColumns = "CenterColumns"
	opCorrelation   = "Correlation"
)

// FlatTol is the relative spread below which a column counts as flat:
// std ≤ FlatTol·max(1, |mean|). Centering a constant column leaves rounding
// residue, so an exact zero test misses most flat electrodes.
const FlatTol = 1e-12

// CenterColumns returns Xc = X − mean(X, by columns) and the column means.
//
// Behavior highlights:
//   - Zero-size (0×N or N×0): returns an empty copy and zero means.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func CenterColumns(X Matrix) (*Dense, []float64, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}

	r, c := X.Rows(), X.Cols()
	means := make([]float64, c)
	if r == 0 || c == 0 {
		out, err := newDenseZeroOK(r, c)
		if err != nil {
			return nil, nil, matrixErrorf(opCenterColumns, err)
		}
		return out, means, nil
	}

	var i, j int
	var v float64
	if d, ok := X.(*Dense); ok {
		for i = 0; i < r; i++ {
			base := i * c
			for j = 0; j < c; j++ {
				means[j] += d.data[base+j]
			}
		}
	} else {
		var err error
		for i = 0; i < r; i++ {
			for j = 0; j < c; j++ {
				if v, err = X.At(i, j); err != nil {
					return nil, nil, matrixErrorf(opCenterColumns, err)
				}
				means[j] += v
			}
		}
	}

	invR := 1.0 / float64(r)
	for j = 0; j < c; j++ {
		means[j] *= invR
	}

	Xc, err := ewBroadcastSubCols(X, means)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}

	return Xc, means, nil
}

// Correlation computes the Pearson correlation of columns via z-scoring:
// Corr = (Zᵀ Z)/(r-1), Z = (X − mean) * diag(1/std).
//
// Implementation:
//   - Stage 1: Validate X, require r>=2; center columns.
//   - Stage 2: Sample stds per column; flat columns (see FlatTol) report
//     std 0 and get invStd 0.
//   - Stage 3: Scale in place, then Corr = (Zᵀ Z)/(r-1).
//
// Behavior highlights:
//   - Symmetric; diagonal is 1 for non-degenerate columns, 0 for flat ones.
//     A flat electrode therefore carries no correlation evidence.
//   - Rounding can push |Corr[i,j]| marginally above 1; callers that apply
//     atanh must clip (see FisherZ).
//
// Returns:
//   - Corr (c×c), column means, column sample stds.
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch (r<2).
//
// Complexity:
//   - Time O(r*c²), Space O(r*c + c²).
func Correlation(X Matrix) (*Dense, []float64, []float64, error) {
	if err := ValidateNotNil(X); err != nil {
		return nil, nil, nil, matrixErrorf(opCorrelation, err)
	}

	r, c := X.Rows(), X.Cols()
	if c == 0 {
		z, _ := newDenseZeroOK(0, 0)
		return z, []float64{}, []float64{}, nil
	}
	if r < 2 {
		return nil, nil, nil, matrixErrorf(opCorrelation, ErrDimensionMismatch)
	}

	Xc, means, err := CenterColumns(X)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opCorrelation, err)
	}

	stds := make([]float64, c)
	inv := 1.0 / float64(r-1)
	var i, j int
	var v float64
	for i = 0; i < r; i++ {
		base := i * c
		for j = 0; j < c; j++ {
			v = Xc.data[base+j]
			stds[j] += v * v
		}
	}
	invStd := make([]float64, c)
	for j = 0; j < c; j++ {
		stds[j] = math.Sqrt(stds[j] * inv)
		if stds[j] <= FlatTol*math.Max(1, math.Abs(means[j])) {
			stds[j] = 0
		}
		if stds[j] > 0 {
			invStd[j] = 1.0 / stds[j]
		}
	}

	if err = ewScaleColsInPlace(Xc, invStd); err != nil {
		return nil, nil, nil, matrixErrorf(opCorrelation, err)
	}
	Zt, err := Transpose(Xc)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opCorrelation, err)
	}
	G, err := Mul(Zt, Xc)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opCorrelation, err)
	}
	for k := range G.data {
		G.data[k] *= inv
	}
	// Zᵀ Z is symmetric in exact arithmetic; mirror the upper triangle so
	// downstream accumulation stays symmetric bit for bit.
	for i = 0; i < c; i++ {
		for j = i + 1; j < c; j++ {
			G.data[j*c+i] = G.data[i*c+j]
		}
	}

	return G, means, stds, nil
}
