// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Solve A·X = B for a symmetric positive (semi)definite A, the shape of
//     every kriging system: A is a regularized covariance block, B the cross
//     covariance to the targets.

package matrix

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const opSolveSymmetric = "SolveSymmetric"

// SolveSymmetric returns X with A·X = B.
//
// Implementation:
//   - Stage 1: Validate A square, B with A.Rows rows. Empty systems short-circuit.
//   - Stage 2: Factorize the upper triangle of A with gonum's Cholesky.
//   - Stage 3: If Cholesky fails or reports poor conditioning, factorize the
//     full A with LU and solve through it.
//   - Stage 4: If LU's condition number is infinite or beyond
//     mat.ConditionTolerance, report ErrSingular.
//
// Behavior highlights:
//   - Inputs are copied; A and B are never modified.
//   - Only the upper triangle of A is read on the Cholesky path.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrDimensionMismatch, ErrSingular.
//
// Complexity:
//   - Time O(n³ + n²·k), Space O(n² + n·k).
func SolveSymmetric(a, b *Dense) (*Dense, error) {
	if err := ValidateSquare(a); err != nil {
		return nil, matrixErrorf(opSolveSymmetric, err)
	}
	if err := ValidateNotNil(b); err != nil {
		return nil, matrixErrorf(opSolveSymmetric, err)
	}
	n, k := a.r, b.c
	if b.r != n {
		return nil, matrixErrorf(opSolveSymmetric, ErrDimensionMismatch)
	}
	if n == 0 || k == 0 {
		return newDenseZeroOK(n, k)
	}

	rhs := mat.NewDense(n, k, append([]float64(nil), b.data...))
	sym := mat.NewSymDense(n, append([]float64(nil), a.data...))
	dst := mat.NewDense(n, k, nil)

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		err := chol.SolveTo(dst, rhs)
		if err == nil {
			return fromGonum(dst), nil
		}
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, matrixErrorf(opSolveSymmetric, err)
		}
	}

	var lu mat.LU
	lu.Factorize(mat.NewDense(n, n, append([]float64(nil), a.data...)))
	if c := lu.Cond(); math.IsInf(c, 1) || c > mat.ConditionTolerance {
		return nil, matrixErrorf(opSolveSymmetric, fmt.Errorf("condition %g: %w", c, ErrSingular))
	}
	if err := lu.SolveTo(dst, false, rhs); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, matrixErrorf(opSolveSymmetric, fmt.Errorf("%v: %w", err, ErrSingular))
		}
		return nil, matrixErrorf(opSolveSymmetric, err)
	}

	return fromGonum(dst), nil
}

// fromGonum copies a gonum Dense into a row-major Dense.
func fromGonum(g *mat.Dense) *Dense {
	r, c := g.Dims()
	out := &Dense{r: r, c: c, data: make([]float64, r*c), validateNaNInf: DefaultValidateNaNInf}
	for i := 0; i < r; i++ {
		copy(out.data[i*c:(i+1)*c], g.RawRowView(i))
	}

	return out
}
