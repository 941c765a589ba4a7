// SPDX-License-Identifier: MIT

package synth_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/synth"
)

func TestToeplitz(t *testing.T) {
	t.Parallel()

	R, err := synth.Toeplitz(5)
	require.NoError(t, err)
	row, err := R.Row(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0.75, 0.5, 0.25, 0}, row)
	require.NoError(t, matrix.ValidateSymmetric(R, 0))

	one, err := synth.Toeplitz(1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, one.RawData())

	_, err = synth.Toeplitz(0)
	assert.ErrorIs(t, err, synth.ErrInvalidArgument)
}

func TestRBF(t *testing.T) {
	t.Parallel()

	R, err := synth.RBF(synth.Line(3, 1), 4)
	require.NoError(t, err)
	v, _ := R.At(0, 2)
	assert.InDelta(t, math.Exp(-1), v, 1e-15)
	d, _ := R.At(1, 1)
	assert.Equal(t, 1.0, d)

	G, err := synth.RBF(synth.Grid(3, 2, 2, 1.7), 9)
	require.NoError(t, err)
	require.NoError(t, matrix.ValidateSymmetric(G, 0))
	for i := 0; i < G.Rows(); i++ {
		d, _ = G.At(i, i)
		assert.Equal(t, 1.0, d, "diag %d", i)
	}

	_, err = synth.RBF(synth.Line(3, 1), 0)
	assert.ErrorIs(t, err, synth.ErrInvalidArgument)
}

func TestRandomSubset(t *testing.T) {
	t.Parallel()

	a, err := synth.RandomSubset(20, 6, 42)
	require.NoError(t, err)
	b, err := synth.RandomSubset(20, 6, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed, same subset")
	assert.IsIncreasing(t, a)
	assert.Len(t, a, 6)

	_, err = synth.RandomSubset(3, 4, 1)
	assert.ErrorIs(t, err, synth.ErrInvalidArgument)
}

func TestSampler_RecoversCovariance(t *testing.T) {
	t.Parallel()

	l := synth.Line(4, 1)
	cov, err := synth.RBF(l, 4)
	require.NoError(t, err)
	s, err := synth.NewSampler(cov, 7)
	require.NoError(t, err)
	X, err := s.Sample(20000)
	require.NoError(t, err)

	C, _, _, err := matrix.Correlation(X)
	require.NoError(t, err)
	ok, err := matrix.AllClose(C, cov, 0, 0.03)
	require.NoError(t, err)
	assert.True(t, ok, "empirical correlation\n%v\nwant\n%v", C, cov)
}

func TestSampler_SemidefiniteGetsJitter(t *testing.T) {
	t.Parallel()

	// Rank one: every location carries the same signal.
	cov, err := matrix.NewDenseFrom(3, 3, []float64{1, 1, 1, 1, 1, 1, 1, 1, 1})
	require.NoError(t, err)
	s, err := synth.NewSampler(cov, 1)
	require.NoError(t, err)
	X, err := s.Sample(10)
	require.NoError(t, err)
	row, _ := X.Row(0)
	assert.InDelta(t, row[0], row[2], 1e-3)
}

func TestCohort(t *testing.T) {
	t.Parallel()

	l := synth.Grid(3, 3, 1, 10)
	cov, err := synth.RBF(l, 400)
	require.NoError(t, err)

	c, err := synth.Cohort(l, cov, 4, 3, 50, 100)
	require.NoError(t, err)
	require.Len(t, c, 4)
	for _, b := range c {
		assert.Equal(t, 3, b.Locs.Len())
		assert.Equal(t, 50, b.Samples())
		assert.Equal(t, "true", b.Meta["synthetic"])
		for _, p := range b.Locs.Points() {
			assert.True(t, l.Contains(p))
		}
	}
}
