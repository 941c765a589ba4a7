// SPDX-License-Identifier: MIT

// Package model aggregates many subjects' electrode correlations into one
// correlation model over a reference location set, without retaining any
// raw recording.
//
// What:
//
//   - A Model keeps two N×N running sums over the reference set. For every
//     folded subject and every pair (i,j) that subject observed:
//     Numerator[i,j] += atanh(r_ij)·n and Denominator[i,j] += n, where r is
//     the subject's Pearson correlation (clipped to |r| ≤ 1−clip) and n its
//     sample count. NSubs counts folded subjects.
//   - MeanCorrelation recovers tanh(Numerator/Denominator). Pairs no subject
//     observed jointly have zero weight and read as zero correlation; the
//     diagonal reads as 1.
//   - Folding is a sum, so it commutes: Build computes contributions in
//     parallel and applies them in input order under a single writer.
//
// Subjects with fewer than two usable locations or fewer than two samples
// contribute nothing and do not count towards NSubs.
//
// Errors:
//
//   - ErrInsufficientData for reading a model nobody was folded into.
//   - locs.ErrAlignment when a subject has locations outside the reference set
//     or when merging models over different sets.
//
// Complexity:
//
//   - Fold: O(samples·k² + k²) for k observed locations. Buffers are sized
//     once in New and never reallocated.
package model
