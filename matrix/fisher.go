// SPDX-License-Identifier: MIT

package matrix

import (
	"fmt"
	"math"
)

// DefaultClip keeps correlations inside [−(1−DefaultClip), 1−DefaultClip]
// before atanh so the Fisher transform stays finite.
const DefaultClip = 1e-6

// ClipCorrelation projects r into [−(1−clip), 1−clip].
func ClipCorrelation(r, clip float64) float64 {
	bound := 1 - clip
	if r > bound {
		return bound
	}
	if r < -bound {
		return -bound
	}

	return r
}

// FisherZ returns a new matrix z[i,j] = atanh(clip(r[i,j])).
//
// Behavior highlights:
//   - The diagonal is forced to 0: self-correlation carries no evidence about
//     pairs and would otherwise dominate every average at atanh(1−clip).
//
// Errors:
//   - ErrNonSquare for rectangular input; ErrNaNInf if clip ∉ (0,1) or r holds NaN.
func FisherZ(r *Dense, clip float64) (*Dense, error) {
	if err := ValidateSquare(r); err != nil {
		return nil, matrixErrorf("FisherZ", err)
	}
	if !(clip > 0 && clip < 1) {
		return nil, matrixErrorf("FisherZ", fmt.Errorf("clip %g: %w", clip, ErrNaNInf))
	}
	n := r.r
	out, err := newDenseZeroOK(n, n)
	if err != nil {
		return nil, matrixErrorf("FisherZ", err)
	}
	var i, j int
	var v float64
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			if i == j {
				continue
			}
			v = r.data[i*n+j]
			if math.IsNaN(v) {
				return nil, matrixErrorf("FisherZ", denseErrorf(ctxAt, i, j, ErrNaNInf))
			}
			out.data[i*n+j] = math.Atanh(ClipCorrelation(v, clip))
		}
	}

	return out, nil
}

// FisherZInverse returns tanh(num/den) element-wise, the weighted mean of
// Fisher-z values mapped back to a correlation.
//
// Behavior highlights:
//   - den == 0 means the pair was never observed; the result is 0 (no evidence).
//   - The diagonal is set to 1.
func FisherZInverse(num, den *Dense) (*Dense, error) {
	if err := ValidateSquare(num); err != nil {
		return nil, matrixErrorf("FisherZInverse", err)
	}
	if err := ValidateNotNil(den); err != nil {
		return nil, matrixErrorf("FisherZInverse", err)
	}
	if err := ValidateSameShape(num, den); err != nil {
		return nil, matrixErrorf("FisherZInverse", err)
	}
	n := num.r
	out, err := newDenseZeroOK(n, n)
	if err != nil {
		return nil, matrixErrorf("FisherZInverse", err)
	}
	var i, j, off int
	for i = 0; i < n; i++ {
		for j = 0; j < n; j++ {
			off = i*n + j
			switch {
			case i == j:
				out.data[off] = 1
			case den.data[off] == 0:
				out.data[off] = 0
			default:
				out.data[off] = math.Tanh(num.data[off] / den.data[off])
			}
		}
	}

	return out, nil
}
