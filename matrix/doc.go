// SPDX-License-Identifier: MIT

// Package matrix is the numeric substrate of supereeg: a row-major Dense
// matrix with safe accessors, plus the handful of kernels the correlation
// model and the reconstruction engine are built from.
//
// What:
//
//   - Dense storage with bounds-checked At/Set and a finite-value policy.
//   - Column statistics: CenterColumns and Pearson Correlation.
//   - Fisher transforms: FisherZ (clipped atanh) and FisherZInverse (tanh).
//   - Index kernels: Induced submatrices and ScatterAdd accumulation into a
//     larger square buffer without reallocating it.
//   - Linear algebra: Mul, Transpose, Scale, AddDiagonal and SolveSymmetric,
//     which hands symmetric systems to gonum's Cholesky with an LU fallback.
//
// Errors:
//
//   - All failures are reported through the sentinels in errors.go, wrapped
//     with an operation tag. Match them with errors.Is.
//
// Complexity:
//
//   - Correlation: O(r·c²). SolveSymmetric: O(n³ + n²·k). ScatterAdd: O(k²).
package matrix
