// SPDX-License-Identifier: MIT

// Package recon reconstructs activity at every location of a correlation
// model from a subject who observed only some of them.
//
// Given the model's mean correlation Σ and the subject's known columns Y_k,
// the unknown columns are the Gaussian-process conditional mean
//
//	Ŷ_u = Y_k · (Σ_kk + λI)⁻¹ · Σ_ku
//
// applied to every sample at once. Known columns are copied verbatim. Pairs
// the model never saw jointly read as zero correlation; λ (ridge, default
// 1e-6) keeps Σ_kk invertible after masked aggregation.
//
// Errors are surfaced, never papered over: ErrInsufficientData (no folded
// subjects, or no known locations), ErrSingularMatrix, locs.ErrAlignment and
// ErrDimensionMismatch.
package recon
