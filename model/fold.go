// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"math"
	"time"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/metrics"
)

// SymmetryTol bounds |r_ij − r_ji| for correlations handed to FoldCorrelation.
const SymmetryTol = 1e-12

// Contribution is one subject's Fisher-z correlation matrix positioned in a
// reference index space. The zero Contribution is empty.
type Contribution struct {
	Z      *matrix.Dense // k×k, zero diagonal
	Index  []int         // reference index of each Z row/column
	Weight float64       // sample count
}

// Empty reports whether the contribution carries no pairwise evidence.
func (c Contribution) Empty() bool { return len(c.Index) < 2 || c.Z == nil }

// Compute turns a recording into its contribution against ref.
//
// Implementation:
//   - Stage 1: Strict-align b.Locs into ref (missing location → *locs.AlignmentError).
//   - Stage 2: Pearson correlation of b.Data; drop flat electrodes, which
//     carry no correlation evidence.
//   - Stage 3: z = atanh(clip(r)) with a zero diagonal; weight = samples.
//
// Behavior highlights:
//   - Fewer than two usable locations or two samples → empty contribution, nil error.
func Compute(b *brain.Brain, ref locs.Set, clip float64) (Contribution, error) {
	if err := b.Validate(); err != nil {
		return Contribution{}, fmt.Errorf("Compute: %w", err)
	}
	al, err := locs.Expand(b.Locs, ref, locs.Strict)
	if err != nil {
		return Contribution{}, fmt.Errorf("Compute: %w", err)
	}
	if b.Locs.Len() < 2 || b.Samples() < 2 {
		return Contribution{}, nil
	}

	corr, _, stds, err := matrix.Correlation(b.Data)
	if err != nil {
		return Contribution{}, fmt.Errorf("Compute: %w", err)
	}
	keep := make([]int, 0, len(stds))
	for j, s := range stds {
		if s > 0 {
			keep = append(keep, j)
		}
	}
	if len(keep) < 2 {
		return Contribution{}, nil
	}
	index := make([]int, len(keep))
	for k, j := range keep {
		index[k] = al.Index[j]
	}
	if len(keep) < len(stds) {
		if corr, err = corr.Induced(keep, keep); err != nil {
			return Contribution{}, fmt.Errorf("Compute: %w", err)
		}
	}
	z, err := matrix.FisherZ(corr, clip)
	if err != nil {
		return Contribution{}, fmt.Errorf("Compute: %w", err)
	}

	return Contribution{Z: z, Index: index, Weight: float64(b.Samples())}, nil
}

// Apply adds c into the running sums and increments NSubs. An empty
// contribution is a no-op. On error the model is unchanged.
func (m *Model) Apply(c Contribution) error {
	if c.Empty() {
		return nil
	}
	if !(c.Weight > 0) || math.IsInf(c.Weight, 0) {
		return fmt.Errorf("Apply: weight %g: %w", c.Weight, matrix.ErrNaNInf)
	}
	if err := matrix.ScatterAdd(m.Numerator, c.Z, c.Index, c.Weight); err != nil {
		return fmt.Errorf("Apply: %w", err)
	}
	if err := matrix.ScatterAdd(m.Denominator, nil, c.Index, c.Weight); err != nil {
		return fmt.Errorf("Apply: %w", err)
	}
	m.NSubs++

	return nil
}

// Fold computes b's contribution against m.Locs and applies it. It reports
// whether the subject was counted.
func (m *Model) Fold(b *brain.Brain) (bool, error) {
	start := time.Now()
	c, err := Compute(b, m.Locs, m.clip)
	if err == nil {
		err = m.Apply(c)
	}
	m.observeFold(b, c, time.Since(start), err)
	if err != nil {
		return false, err
	}

	return !c.Empty(), nil
}

// FoldCorrelation folds an already computed k×k correlation matrix whose rows
// follow the source order of al, observed over nSamples samples. al must
// target m.Locs. corr must be symmetric within SymmetryTol; the transformed
// upper triangle is mirrored so the running sums stay exactly symmetric.
func (m *Model) FoldCorrelation(corr *matrix.Dense, al locs.Alignment, nSamples int) error {
	if !al.Target.Equal(m.Locs) {
		return fmt.Errorf("FoldCorrelation: alignment targets another set: %w", locs.ErrAlignment)
	}
	if err := matrix.ValidateSquare(corr); err != nil {
		return fmt.Errorf("FoldCorrelation: %w", err)
	}
	if corr.Rows() != len(al.Index) {
		return fmt.Errorf("FoldCorrelation: %d rows for %d locations: %w",
			corr.Rows(), len(al.Index), matrix.ErrDimensionMismatch)
	}
	if err := matrix.ValidateSymmetric(corr, SymmetryTol); err != nil {
		return fmt.Errorf("FoldCorrelation: %w", err)
	}
	if len(al.Index) < 2 || nSamples < 2 {
		return nil
	}
	z, err := matrix.FisherZ(corr, m.clip)
	if err != nil {
		return fmt.Errorf("FoldCorrelation: %w", err)
	}
	k, zd := z.Rows(), z.RawData()
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			zd[j*k+i] = zd[i*k+j]
		}
	}

	return m.Apply(Contribution{Z: z, Index: al.Index, Weight: float64(nSamples)})
}

func (m *Model) observeFold(b *brain.Brain, c Contribution, d time.Duration, err error) {
	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
		m.log.Warn("fold failed", "subject", b.ID, "error", err)
	case c.Empty():
		outcome = metrics.OutcomeSkipped
		m.log.Debug("fold skipped: no pairwise evidence", "subject", b.ID, "locations", b.Locs.Len(), "samples", b.Samples())
	default:
		m.log.Debug("fold applied", "subject", b.ID, "locations", len(c.Index), "weight", c.Weight, "n_subs", m.NSubs)
	}
	if m.observe {
		metrics.ObserveFold(d, outcome)
	}
}
