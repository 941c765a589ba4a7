// SPDX-License-Identifier: MIT

package brain

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/supereeg/matrix"
)

// DefaultKurtosisThreshold is the excess-kurtosis cutoff above which an
// electrode is treated as artifactual.
const DefaultKurtosisThreshold = 10.0

// Kurtosis returns the excess kurtosis of every column. Flat columns yield NaN.
func (b *Brain) Kurtosis() []float64 {
	out := make([]float64, b.Data.Cols())
	for j := range out {
		col, _ := b.Data.Col(j)
		out[j] = stat.ExKurtosis(col, nil)
	}

	return out
}

// FilterKurtosis drops electrodes whose excess kurtosis exceeds threshold and
// returns the filtered recording with the kept column indices. A column with
// undefined kurtosis (flat signal) is kept; it contributes no correlation
// evidence downstream anyway.
func (b *Brain) FilterKurtosis(threshold float64) (*Brain, []int, error) {
	if math.IsNaN(threshold) {
		return nil, nil, fmt.Errorf("brain.FilterKurtosis: threshold NaN: %w", ErrInvalid)
	}
	k := b.Kurtosis()
	keep := make([]int, 0, len(k))
	for j, v := range k {
		if !(v > threshold) {
			keep = append(keep, j)
		}
	}
	if len(keep) == len(k) {
		return b.derive(b.Data.Copy(), b.Locs), keep, nil
	}
	out, err := b.Restrict(keep)
	if err != nil {
		return nil, nil, err
	}

	return out, keep, nil
}

// SessionRange is a half-open row interval [Start, End) sharing one label.
type SessionRange struct {
	Label      string
	Start, End int
}

// SessionRanges splits the samples into contiguous runs of equal session
// label. Without labels the whole recording is one unnamed session.
func (b *Brain) SessionRanges() []SessionRange {
	n := b.Samples()
	if len(b.Sessions) == 0 {
		return []SessionRange{{Start: 0, End: n}}
	}
	var out []SessionRange
	start := 0
	for i := 1; i <= n; i++ {
		if i == n || b.Sessions[i] != b.Sessions[start] {
			out = append(out, SessionRange{Label: b.Sessions[start], Start: start, End: i})
			start = i
		}
	}

	return out
}

// ZScore returns a copy with every column standardized within each session
// (sample standard deviation). Columns with zero or undefined spread become 0.
func (b *Brain) ZScore() (*Brain, error) {
	r, c := b.Data.Shape()
	out, err := matrix.NewDense(r, c)
	if err != nil {
		return nil, fmt.Errorf("brain.ZScore: %w", err)
	}
	src, dst := b.Data.RawData(), out.RawData()
	for _, sr := range b.SessionRanges() {
		seg := make([]float64, sr.End-sr.Start)
		for j := 0; j < c; j++ {
			for i := sr.Start; i < sr.End; i++ {
				seg[i-sr.Start] = src[i*c+j]
			}
			mean, std := stat.MeanStdDev(seg, nil)
			if !(std > 0) {
				continue
			}
			for i := sr.Start; i < sr.End; i++ {
				dst[i*c+j] = (src[i*c+j] - mean) / std
			}
		}
	}

	return b.derive(out, b.Locs), nil
}
