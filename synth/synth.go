// SPDX-License-Identifier: MIT

// Package synth generates synthetic subjects with a known spatial covariance:
// full-coverage recordings drawn from a zero-mean multivariate normal, and
// sparse "patients" that see only a random subset of electrodes. It backs
// tests, examples and benchmarks of model building and reconstruction.
package synth

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
)

// ErrNotPositiveDefinite is returned when a covariance cannot be factorized
// even after adding a small diagonal jitter.
var ErrNotPositiveDefinite = errors.New("synth: covariance is not positive definite")

// ErrInvalidArgument is returned for non-positive sizes or widths.
var ErrInvalidArgument = errors.New("synth: invalid argument")

const (
	jitterStart = 1e-10
	jitterSteps = 6
)

// Toeplitz returns the n×n correlation R[i,j] = 1 − |i−j|/(n−1): neighbours
// in index order are strongly correlated and the two ends are uncorrelated.
func Toeplitz(n int) (*matrix.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("Toeplitz(%d): %w", n, ErrInvalidArgument)
	}
	R, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	den := float64(max(n-1, 1))
	if err = R.Apply(func(i, j int, _ float64) float64 {
		return 1 - math.Abs(float64(i-j))/den
	}); err != nil {
		return nil, fmt.Errorf("Toeplitz(%d): %w", n, err)
	}

	return R, nil
}

// RBF returns the spatial correlation exp(−d²/width) between every pair of
// locations in l.
func RBF(l locs.Set, width float64) (*matrix.Dense, error) {
	n := l.Len()
	if n == 0 || !(width > 0) {
		return nil, fmt.Errorf("RBF(n=%d, width=%g): %w", n, width, ErrInvalidArgument)
	}
	R, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, err
	}
	// distance is symmetric in its arguments and zero on the diagonal, so R is
	// exactly symmetric with a unit diagonal
	if err = R.Apply(func(i, j int, _ float64) float64 {
		d := l.At(i).Distance(l.At(j))
		return math.Exp(-d * d / width)
	}); err != nil {
		return nil, fmt.Errorf("RBF(n=%d, width=%g): %w", n, width, err)
	}

	return R, nil
}

// Sampler draws zero-mean multivariate normal rows with a fixed covariance.
type Sampler struct {
	n      int
	normal *distmv.Normal
}

// NewSampler prepares a sampler for cov seeded by seed. A covariance that is
// only positive semidefinite receives a growing diagonal jitter until gonum
// can factorize it.
func NewSampler(cov *matrix.Dense, seed uint64) (*Sampler, error) {
	if err := matrix.ValidateSymmetric(cov, 1e-12); err != nil {
		return nil, fmt.Errorf("NewSampler: %w", err)
	}
	n := cov.Rows()
	mu := make([]float64, n)
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)

	jitter := 0.0
	for step := 0; step <= jitterSteps; step++ {
		sym := mat.NewSymDense(n, append([]float64(nil), cov.RawData()...))
		for i := 0; i < n; i++ {
			sym.SetSym(i, i, sym.At(i, i)+jitter)
		}
		if normal, ok := distmv.NewNormal(mu, sym, src); ok {
			return &Sampler{n: n, normal: normal}, nil
		}
		if jitter == 0 {
			jitter = jitterStart
		} else {
			jitter *= 10
		}
	}

	return nil, fmt.Errorf("NewSampler: %w", ErrNotPositiveDefinite)
}

// Sample returns a samples × n matrix of independent draws.
func (s *Sampler) Sample(samples int) (*matrix.Dense, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("Sample(%d): %w", samples, ErrInvalidArgument)
	}
	out, err := matrix.NewDense(samples, s.n)
	if err != nil {
		return nil, err
	}
	data := out.RawData()
	for i := 0; i < samples; i++ {
		s.normal.Rand(data[i*s.n : (i+1)*s.n])
	}

	return out, nil
}

// RandomSubset returns k distinct indices from [0,n) in ascending order.
func RandomSubset(n, k int, seed uint64) ([]int, error) {
	if k < 0 || k > n {
		return nil, fmt.Errorf("RandomSubset(n=%d, k=%d): %w", n, k, ErrInvalidArgument)
	}
	rng := rand.New(rand.NewPCG(seed, ^seed))
	idx := rng.Perm(n)[:k]
	slices.Sort(idx)

	return idx, nil
}

// Subject draws a full-coverage recording over l from cov.
func Subject(l locs.Set, cov *matrix.Dense, samples int, seed uint64, opts ...brain.Option) (*brain.Brain, error) {
	if cov.Rows() != l.Len() {
		return nil, fmt.Errorf("Subject: covariance %d for %d locations: %w", cov.Rows(), l.Len(), matrix.ErrDimensionMismatch)
	}
	s, err := NewSampler(cov, seed)
	if err != nil {
		return nil, err
	}
	data, err := s.Sample(samples)
	if err != nil {
		return nil, err
	}

	return brain.New(data, l, opts...)
}

// Patient draws a full-coverage subject and keeps only the electrodes idx.
// It returns the sparse recording and the full ground truth.
func Patient(l locs.Set, cov *matrix.Dense, idx []int, samples int, seed uint64, opts ...brain.Option) (sparse, full *brain.Brain, err error) {
	full, err = Subject(l, cov, samples, seed, opts...)
	if err != nil {
		return nil, nil, err
	}
	sparse, err = full.Restrict(idx)
	if err != nil {
		return nil, nil, err
	}

	return sparse, full, nil
}

// Cohort draws n patients with k random electrodes each. Patient p uses seed+p
// for its electrodes and its samples.
func Cohort(l locs.Set, cov *matrix.Dense, n, k, samples int, seed uint64) ([]*brain.Brain, error) {
	out := make([]*brain.Brain, 0, n)
	for p := 0; p < n; p++ {
		s := seed + uint64(p)
		idx, err := RandomSubset(l.Len(), k, s)
		if err != nil {
			return nil, err
		}
		sparse, _, err := Patient(l, cov, idx, samples, s,
			brain.WithMeta(map[string]string{"synthetic": "true"}))
		if err != nil {
			return nil, fmt.Errorf("Cohort: patient %d: %w", p, err)
		}
		out = append(out, sparse)
	}

	return out, nil
}

// Line returns n locations spaced by step along the x axis.
func Line(n int, step float64) locs.Set {
	pts := make([]locs.Location, n)
	for i := range pts {
		pts[i] = locs.Location{X: float64(i) * step}
	}

	return locs.MustSet(pts...)
}

// Grid returns an nx×ny×nz lattice with the given spacing, x fastest.
func Grid(nx, ny, nz int, spacing float64) locs.Set {
	pts := make([]locs.Location, 0, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				pts = append(pts, locs.Location{
					X: float64(x) * spacing,
					Y: float64(y) * spacing,
					Z: float64(z) * spacing,
				})
			}
		}
	}

	return locs.MustSet(pts...)
}
