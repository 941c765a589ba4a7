// SPDX-License-Identifier: MIT

package recon_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/model"
	"github.com/katalvlaran/supereeg/recon"
	"github.com/katalvlaran/supereeg/synth"
)

// EngineSuite builds a five-location model from three partial subjects.
type EngineSuite struct {
	suite.Suite
	ref    locs.Set
	cov    *matrix.Dense
	model  *model.Model
	engine *recon.Engine
}

func (s *EngineSuite) SetupSuite() {
	s.ref = synth.Line(5, 1)
	cov, err := synth.RBF(s.ref, 16)
	require.NoError(s.T(), err)
	s.cov = cov

	s.model, err = model.New(s.ref)
	require.NoError(s.T(), err)
	for seed, idx := range [][]int{{0, 1, 2}, {0, 3, 4}, {1, 3, 4}} {
		b, _, err := synth.Patient(s.ref, s.cov, idx, 2000, uint64(seed+1))
		require.NoError(s.T(), err)
		ok, err := s.model.Fold(b)
		require.NoError(s.T(), err)
		require.True(s.T(), ok)
	}

	s.engine, err = recon.New(recon.WithMetrics(true))
	require.NoError(s.T(), err)
}

// TestScenarioRMSE reconstructs {2,3,4} from {0,1}.
func (s *EngineSuite) TestScenarioRMSE() {
	sparse, full, err := synth.Patient(s.ref, s.cov, []int{0, 1}, 500, 4)
	require.NoError(s.T(), err)

	pred, err := s.engine.Predict(s.model, sparse)
	require.NoError(s.T(), err)
	s.True(pred.Locs.Equal(s.ref))
	s.Equal(brain.Reconstructed, pred.Kind)
	s.Equal("true", pred.Meta[brain.MetaEstimate])
	s.True(pred.IsEstimate())

	var se, zero float64
	var count int
	for i := 0; i < full.Samples(); i++ {
		for _, j := range []int{2, 3, 4} {
			want, _ := full.Data.At(i, j)
			got, _ := pred.Data.At(i, j)
			se += (got - want) * (got - want)
			zero += want * want
			count++
		}
		for _, j := range []int{0, 1} {
			want, _ := full.Data.At(i, j)
			got, _ := pred.Data.At(i, j)
			s.Equal(want, got, "known column %d must be copied", j)
		}
	}
	rmse := math.Sqrt(se / float64(count))
	baseline := math.Sqrt(zero / float64(count))
	s.Less(rmse, 0.6)
	s.Less(rmse, 0.75*baseline)
}

// TestIdentity verifies full coverage returns the input unchanged.
func (s *EngineSuite) TestIdentity() {
	b, err := synth.Subject(s.ref, s.cov, 50, 9)
	require.NoError(s.T(), err)

	pred, err := s.engine.Predict(s.model, b)
	require.NoError(s.T(), err)
	s.Equal(b.Data.RawData(), pred.Data.RawData())
}

// TestPermutedColumns verifies known values land on their model columns.
func (s *EngineSuite) TestPermutedColumns() {
	full, err := synth.Subject(s.ref, s.cov, 20, 10)
	require.NoError(s.T(), err)
	perm, err := full.Restrict([]int{4, 2, 0, 3, 1})
	require.NoError(s.T(), err)

	pred, err := s.engine.Predict(s.model, perm)
	require.NoError(s.T(), err)
	s.Equal(full.Data.RawData(), pred.Data.RawData())
}

// TestDeterministic verifies repeated predictions are bit-identical.
func (s *EngineSuite) TestDeterministic() {
	sparse, _, err := synth.Patient(s.ref, s.cov, []int{1, 3}, 100, 11)
	require.NoError(s.T(), err)

	a, err := s.engine.Predict(s.model, sparse)
	require.NoError(s.T(), err)
	b, err := s.engine.Predict(s.model, sparse)
	require.NoError(s.T(), err)
	s.Equal(a.Data.RawData(), b.Data.RawData())
	s.NotEqual(a.ID, b.ID)
	s.Equal(sparse.ID.String(), a.Meta["source_id"])
}

// TestPosterior verifies variance is zero where observed and grows with distance.
func (s *EngineSuite) TestPosterior() {
	sparse, _, err := synth.Patient(s.ref, s.cov, []int{0, 1}, 10, 12)
	require.NoError(s.T(), err)

	v, err := s.engine.Posterior(s.model, sparse)
	require.NoError(s.T(), err)
	s.Len(v, 5)
	s.Zero(v[0])
	s.Zero(v[1])
	s.Greater(v[2], 0.0)
	s.Less(v[2], v[3])
	s.Less(v[3], v[4]+1e-9)
	s.LessOrEqual(v[4], 1.0)
}

// TestErrors verifies the error taxonomy is surfaced.
func (s *EngineSuite) TestErrors() {
	empty, err := model.New(s.ref)
	require.NoError(s.T(), err)
	sparse, _, err := synth.Patient(s.ref, s.cov, []int{0, 1}, 10, 13)
	require.NoError(s.T(), err)

	_, err = s.engine.Predict(empty, sparse)
	s.ErrorIs(err, recon.ErrInsufficientData)
	_, err = s.engine.Posterior(empty, sparse)
	s.ErrorIs(err, recon.ErrInsufficientData)

	X, _ := matrix.NewDenseFrom(2, 2, []float64{1, 2, 3, 4})
	foreign, err := brain.New(X, locs.MustSet(locs.Location{X: 0}, locs.Location{Y: 3}))
	require.NoError(s.T(), err)
	_, err = s.engine.Predict(s.model, foreign)
	s.ErrorIs(err, locs.ErrAlignment)

	broken := *sparse
	broken.Locs = s.ref
	_, err = s.engine.Predict(s.model, &broken)
	s.ErrorIs(err, recon.ErrDimensionMismatch)

	_, err = s.engine.Predict(nil, sparse)
	s.ErrorIs(err, recon.ErrInsufficientData)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func TestNew_RejectsBadRidge(t *testing.T) {
	_, err := recon.New(recon.WithRidge(-1))
	assert.ErrorIs(t, err, matrix.ErrNaNInf)
	_, err = recon.New(recon.WithRidge(math.NaN()))
	assert.Error(t, err)

	e, err := recon.New(recon.WithRidge(0.1))
	require.NoError(t, err)
	assert.Equal(t, 0.1, e.Ridge())
}

// TestPredict_SingularWithoutRidge pairs two perfectly correlated known
// locations with no ridge, so Σ_kk is exactly rank one.
func TestPredict_SingularWithoutRidge(t *testing.T) {
	t.Parallel()

	ref := synth.Line(3, 1)
	num, err := matrix.NewDenseFrom(3, 3, []float64{
		0, 50, 0,
		50, 0, 0,
		0, 0, 0,
	})
	require.NoError(t, err)
	den, err := matrix.NewDenseFrom(3, 3, []float64{
		0, 1, 1,
		1, 0, 1,
		1, 1, 0,
	})
	require.NoError(t, err)
	m, err := model.Restore(ref, num, den, 1)
	require.NoError(t, err)

	X, err := matrix.NewDenseFrom(4, 2, []float64{1, 1, 2, 2, -1, -1, 0.5, 0.5})
	require.NoError(t, err)
	b, err := brain.New(X, locs.MustSet(ref.At(0), ref.At(1)))
	require.NoError(t, err)

	bare, err := recon.New(recon.WithRidge(0))
	require.NoError(t, err)
	_, err = bare.Predict(m, b)
	assert.ErrorIs(t, err, recon.ErrSingularMatrix)
	_, err = bare.Posterior(m, b)
	assert.ErrorIs(t, err, recon.ErrSingularMatrix)

	ridged, err := recon.New(recon.WithRidge(0.1))
	require.NoError(t, err)
	pred, err := ridged.Predict(m, b)
	require.NoError(t, err)
	assert.Equal(t, 3, pred.Locs.Len())
}
