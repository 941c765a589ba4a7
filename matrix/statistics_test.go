// SPDX-License-Identifier: MIT

package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/supereeg/matrix"
)

const epsTight = 1e-12

func TestCenterColumns_SmallAndFallback(t *testing.T) {
	t.Parallel()

	X := filled(t, 2, 3, []float64{1, 2, 3, 10, 20, 30})

	Yf, meansF, err := matrix.CenterColumns(X)
	require.NoError(t, err)
	Ys, meansS, err := matrix.CenterColumns(hide{X})
	require.NoError(t, err)

	want := []float64{5.5, 11, 16.5}
	sliceClose(t, meansF, want, 0)
	sliceClose(t, meansS, want, 0)
	compareClose(t, Yf, Ys, 0, 0)

	for j := 0; j < 3; j++ {
		sum := mustAt(t, Yf, 0, j) + mustAt(t, Yf, 1, j)
		assert.InDelta(t, 0, sum, epsTight, "col %d not centered", j)
	}
}

func TestCorrelation_KnownValues(t *testing.T) {
	t.Parallel()

	// col1 = 2*col0 (r=1), col2 = -col0 (r=-1), col3 flat.
	X := filled(t, 4, 4, []float64{
		1, 2, -1, 5,
		2, 4, -2, 5,
		3, 6, -3, 5,
		4, 8, -4, 5,
	})
	C, means, stds, err := matrix.Correlation(X)
	require.NoError(t, err)

	sliceClose(t, means, []float64{2.5, 5, -2.5, 5}, epsTight)
	assert.InDelta(t, math.Sqrt(5.0/3.0), stds[0], epsTight)
	assert.Zero(t, stds[3])

	assert.InDelta(t, 1, mustAt(t, C, 0, 0), epsTight)
	assert.InDelta(t, 1, mustAt(t, C, 0, 1), epsTight)
	assert.InDelta(t, -1, mustAt(t, C, 0, 2), epsTight)
	assert.Zero(t, mustAt(t, C, 3, 3), "flat column carries no evidence")
	assert.Zero(t, mustAt(t, C, 0, 3))
	assert.NoError(t, matrix.ValidateSymmetric(C, 0))
}

// TestCorrelation_NearFlatColumns treats rounding residue around a constant
// as flat rather than amplifying it into spurious correlations.
func TestCorrelation_NearFlatColumns(t *testing.T) {
	t.Parallel()

	const r = 7
	data := make([]float64, 0, r*3)
	for i := 0; i < r; i++ {
		data = append(data, 0.1, 0.1, float64(i))
	}
	C, _, stds, err := matrix.Correlation(filled(t, r, 3, data))
	require.NoError(t, err)

	assert.Zero(t, stds[0])
	assert.Zero(t, stds[1])
	assert.Greater(t, stds[2], 0.0)
	for j := 0; j < 3; j++ {
		assert.Zero(t, mustAt(t, C, 0, j), "row 0 col %d", j)
		assert.Zero(t, mustAt(t, C, 1, j), "row 1 col %d", j)
	}
	assert.InDelta(t, 1, mustAt(t, C, 2, 2), epsTight)
}

func TestCorrelation_TooFewRows(t *testing.T) {
	t.Parallel()

	_, _, _, err := matrix.Correlation(mustDense(t, 1, 3))
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestFisherZ_ClipAndDiagonal(t *testing.T) {
	t.Parallel()

	R := filled(t, 2, 2, []float64{1, 1, 1, 1})
	Z, err := matrix.FisherZ(R, matrix.DefaultClip)
	require.NoError(t, err)
	assert.Zero(t, mustAt(t, Z, 0, 0))
	assert.InDelta(t, math.Atanh(1-matrix.DefaultClip), mustAt(t, Z, 0, 1), epsTight)
	assert.False(t, math.IsInf(mustAt(t, Z, 1, 0), 0))

	_, err = matrix.FisherZ(R, 0)
	assert.ErrorIs(t, err, matrix.ErrNaNInf)
	_, err = matrix.FisherZ(mustDense(t, 2, 3), matrix.DefaultClip)
	assert.ErrorIs(t, err, matrix.ErrNonSquare)
}

func TestFisherZInverse(t *testing.T) {
	t.Parallel()

	num := filled(t, 3, 3, []float64{
		0, math.Atanh(0.5) * 2, 0,
		math.Atanh(0.5) * 2, 0, 0,
		0, 0, 0,
	})
	den := filled(t, 3, 3, []float64{
		2, 2, 0,
		2, 2, 0,
		0, 0, 0,
	})
	R, err := matrix.FisherZInverse(num, den)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mustAt(t, R, 0, 1), epsTight)
	assert.Zero(t, mustAt(t, R, 0, 2), "unobserved pair")
	for i := 0; i < 3; i++ {
		assert.Equal(t, 1.0, mustAt(t, R, i, i))
	}
}

func TestClipCorrelation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0.9, matrix.ClipCorrelation(1, 0.1))
	assert.Equal(t, -0.9, matrix.ClipCorrelation(-3, 0.1))
	assert.Equal(t, 0.3, matrix.ClipCorrelation(0.3, 0.1))
}

func TestAllClose(t *testing.T) {
	t.Parallel()

	a := filled(t, 1, 2, []float64{1, 2})
	b := filled(t, 1, 2, []float64{1, 2 + 1e-9})
	ok, err := matrix.AllClose(a, b, 0, 1e-8)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = matrix.AllClose(a, b, 0, 1e-10)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = matrix.AllClose(a, mustDense(t, 2, 1), 0, 0)
	assert.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}
