// SPDX-License-Identifier: MIT

package locs

import (
	"fmt"
	"math"
)

// Location is a point in a common reference space (usually MNI millimetres).
type Location struct {
	X, Y, Z float64
}

// String renders the location as "(x, y, z)".
func (l Location) String() string {
	return fmt.Sprintf("(%g, %g, %g)", l.X, l.Y, l.Z)
}

// Distance returns the Euclidean distance between l and o.
func (l Location) Distance(o Location) float64 {
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z

	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

func (l Location) finite() bool {
	for _, v := range [...]float64{l.X, l.Y, l.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// Set is an ordered, duplicate-free sequence of locations with an O(1)
// reverse index. Sets are immutable once built; the zero Set is empty.
type Set struct {
	pts   []Location
	index map[Location]int
}

// NewSet builds a Set preserving the order of pts.
//
// Errors:
//   - ErrInvalidLocation for NaN/Inf coordinates.
//   - ErrDuplicateLocation for repeated coordinates.
func NewSet(pts []Location) (Set, error) {
	s := Set{
		pts:   make([]Location, 0, len(pts)),
		index: make(map[Location]int, len(pts)),
	}
	for i, p := range pts {
		if !p.finite() {
			return Set{}, fmt.Errorf("NewSet[%d] %v: %w", i, p, ErrInvalidLocation)
		}
		if _, dup := s.index[p]; dup {
			return Set{}, fmt.Errorf("NewSet[%d] %v: %w", i, p, ErrDuplicateLocation)
		}
		s.index[p] = len(s.pts)
		s.pts = append(s.pts, p)
	}

	return s, nil
}

// MustSet is NewSet that panics on error. Intended for fixtures and
// package-level literals.
func MustSet(pts ...Location) Set {
	s, err := NewSet(pts)
	if err != nil {
		panic(err)
	}

	return s
}

// FromCoords builds a Set from [x, y, z] rows.
func FromCoords(rows [][3]float64) (Set, error) {
	pts := make([]Location, len(rows))
	for i, r := range rows {
		pts[i] = Location{X: r[0], Y: r[1], Z: r[2]}
	}

	return NewSet(pts)
}

// Len returns the number of locations.
func (s Set) Len() int { return len(s.pts) }

// At returns the i-th location. It panics if i is out of range, like a slice.
func (s Set) At(i int) Location { return s.pts[i] }

// Index returns the position of l, or (-1, false) if absent.
func (s Set) Index(l Location) (int, bool) {
	i, ok := s.index[l]
	if !ok {
		return -1, false
	}

	return i, true
}

// Contains reports whether l is in s.
func (s Set) Contains(l Location) bool {
	_, ok := s.index[l]

	return ok
}

// Points returns a copy of the ordered locations.
func (s Set) Points() []Location {
	return append([]Location(nil), s.pts...)
}

// Coords returns the locations as [x, y, z] rows.
func (s Set) Coords() [][3]float64 {
	out := make([][3]float64, len(s.pts))
	for i, p := range s.pts {
		out[i] = [3]float64{p.X, p.Y, p.Z}
	}

	return out
}

// Equal reports whether s and o hold the same locations in the same order.
func (s Set) Equal(o Set) bool {
	if len(s.pts) != len(o.pts) {
		return false
	}
	for i := range s.pts {
		if s.pts[i] != o.pts[i] {
			return false
		}
	}

	return true
}

// Subset returns the Set formed by the locations at idx, in idx order.
//
// Errors:
//   - ErrDuplicateLocation if idx repeats a position.
//   - An out-of-range error if any idx is outside [0, Len).
func (s Set) Subset(idx []int) (Set, error) {
	pts := make([]Location, len(idx))
	for k, i := range idx {
		if i < 0 || i >= len(s.pts) {
			return Set{}, fmt.Errorf("Subset[%d]=%d: index out of range [0,%d)", k, i, len(s.pts))
		}
		pts[k] = s.pts[i]
	}

	return NewSet(pts)
}

// Union returns primary followed by the locations of secondary that primary
// does not contain, in secondary's order.
func Union(primary, secondary Set) Set {
	out := Set{
		pts:   make([]Location, 0, len(primary.pts)+len(secondary.pts)),
		index: make(map[Location]int, len(primary.pts)+len(secondary.pts)),
	}
	for _, src := range [...]Set{primary, secondary} {
		for _, p := range src.pts {
			if _, seen := out.index[p]; seen {
				continue
			}
			out.index[p] = len(out.pts)
			out.pts = append(out.pts, p)
		}
	}

	return out
}
