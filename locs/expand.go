// SPDX-License-Identifier: MIT

package locs

import (
	"fmt"

	"github.com/katalvlaran/supereeg/matrix"
)

// Mode selects how Expand treats source locations missing from the target.
type Mode int

const (
	// Strict fails with *AlignmentError on the first unmatched location.
	Strict Mode = iota
	// Grow extends the target with Union(target, source).
	Grow
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Grow:
		return "grow"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Alignment maps a source Set into a target Set.
//   - Index[c] is the target column of source column c.
//   - Mask[t] is true when target location t is observed by the source.
type Alignment struct {
	Target Set
	Index  []int
	Mask   []bool
}

// Expand aligns source against target.
//
// Implementation:
//   - Stage 1: In Grow mode replace target by Union(target, source).
//   - Stage 2: Look every source location up in the target's hash index.
//   - Stage 3: Mark the mask; in Strict mode the first miss aborts.
//
// Complexity:
//   - Time O(|source| + |target|), Space O(|target|).
func Expand(source, target Set, mode Mode) (Alignment, error) {
	if mode == Grow {
		target = Union(target, source)
	}
	al := Alignment{
		Target: target,
		Index:  make([]int, source.Len()),
		Mask:   make([]bool, target.Len()),
	}
	for c, p := range source.pts {
		t, ok := target.Index(p)
		if !ok {
			return Alignment{}, &AlignmentError{Location: p, Column: c}
		}
		al.Index[c] = t
		al.Mask[t] = true
	}

	return al, nil
}

// Known returns the observed target indices in ascending order.
func (a Alignment) Known() []int { return a.partition(true) }

// Unknown returns the unobserved target indices in ascending order.
func (a Alignment) Unknown() []int { return a.partition(false) }

func (a Alignment) partition(want bool) []int {
	out := make([]int, 0, len(a.Mask))
	for t, observed := range a.Mask {
		if observed == want {
			out = append(out, t)
		}
	}

	return out
}

// Sources returns, for every target index, the source column observing it
// or -1.
func (a Alignment) Sources() []int {
	out := make([]int, len(a.Mask))
	for t := range out {
		out[t] = -1
	}
	for c, t := range a.Index {
		out[t] = c
	}

	return out
}

// ExpandColumns scatters the columns of m (samples × |source|) into a new
// samples × |target| matrix; unobserved columns are zero.
func ExpandColumns(m *matrix.Dense, al Alignment) (*matrix.Dense, error) {
	if err := matrix.ValidateNotNil(m); err != nil {
		return nil, fmt.Errorf("ExpandColumns: %w", err)
	}
	r, c := m.Shape()
	if c != len(al.Index) {
		return nil, fmt.Errorf("ExpandColumns: %d columns for %d source locations: %w",
			c, len(al.Index), matrix.ErrDimensionMismatch)
	}
	n := al.Target.Len()
	out, err := matrix.NewDense(r, n)
	if err != nil {
		return nil, fmt.Errorf("ExpandColumns: %w", err)
	}
	src, dst := m.RawData(), out.RawData()
	for i := 0; i < r; i++ {
		for j, t := range al.Index {
			dst[i*n+t] = src[i*c+j]
		}
	}

	return out, nil
}

// RestrictColumns gathers the columns idx of m, in idx order.
func RestrictColumns(m *matrix.Dense, idx []int) (*matrix.Dense, error) {
	if err := matrix.ValidateNotNil(m); err != nil {
		return nil, fmt.Errorf("RestrictColumns: %w", err)
	}
	rows := make([]int, m.Rows())
	for i := range rows {
		rows[i] = i
	}
	out, err := m.Induced(rows, idx)
	if err != nil {
		return nil, fmt.Errorf("RestrictColumns: %w", err)
	}

	return out, nil
}
