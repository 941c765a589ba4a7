// SPDX-License-Identifier: MIT

package pipeline_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/codec"
	"github.com/katalvlaran/supereeg/config"
	"github.com/katalvlaran/supereeg/internal/logging"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/model"
	"github.com/katalvlaran/supereeg/pipeline"
	"github.com/katalvlaran/supereeg/storage"
	"github.com/katalvlaran/supereeg/synth"
)

type PipelineSuite struct {
	suite.Suite
	ctx      context.Context
	svc      *pipeline.Service
	ref      locs.Set
	cov      *matrix.Dense
	refID    string
	brainIDs []string
}

func newConfig(t *testing.T, driver storage.Driver) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Storage.Driver = driver
	cfg.Storage.DataRoot = filepath.Join(dir, "blobs")
	cfg.Storage.CatalogPath = filepath.Join(dir, "catalog.db")
	cfg.Metrics.Enabled = true

	return &cfg
}

func (s *PipelineSuite) SetupTest() {
	s.ctx = context.Background()
	svc, err := pipeline.NewFromConfig(s.ctx, newConfig(s.T(), storage.DriverMemory),
		pipeline.WithLogger(logging.Discard()),
		pipeline.WithRegisterer(prometheus.NewRegistry()),
	)
	s.Require().NoError(err)
	s.svc = svc

	s.ref = synth.Line(5, 1)
	s.cov, err = synth.RBF(s.ref, 16)
	s.Require().NoError(err)
	s.refID, err = svc.Repo().SaveLocations(s.ctx, s.ref)
	s.Require().NoError(err)

	s.brainIDs = nil
	for seed, idx := range [][]int{{0, 1, 2}, {0, 3, 4}, {1, 3, 4}} {
		b, _, err := synth.Patient(s.ref, s.cov, idx, 2000, uint64(seed+1))
		s.Require().NoError(err)
		id, err := svc.Repo().SaveBrain(s.ctx, b)
		s.Require().NoError(err)
		s.brainIDs = append(s.brainIDs, id)
	}
}

func (s *PipelineSuite) TearDownTest() { _ = s.svc.Close() }

func (s *PipelineSuite) TestBuildModel() {
	m, err := s.svc.BuildModel(s.ctx, s.refID, s.brainIDs)
	s.Require().NoError(err)
	s.Equal(3, m.NSubs)
	s.Equal(s.refID, m.Meta["reference_locations"])

	stored, err := s.svc.Repo().LoadModel(s.ctx, m.ID.String())
	s.Require().NoError(err)
	s.Equal(m.Numerator.RawData(), stored.Numerator.RawData())
	s.Equal(m.Clip(), stored.Clip())

	// a sequential fold of the same recordings gives the same sums
	seq, err := model.New(s.ref)
	s.Require().NoError(err)
	for _, id := range s.brainIDs {
		b, err := s.svc.Repo().LoadRecording(s.ctx, id)
		s.Require().NoError(err)
		_, err = seq.Fold(b)
		s.Require().NoError(err)
	}
	s.Equal(seq.Numerator.RawData(), m.Numerator.RawData())
	s.Equal(seq.Denominator.RawData(), m.Denominator.RawData())
}

func (s *PipelineSuite) TestReconstruct() {
	m, err := s.svc.BuildModel(s.ctx, s.refID, s.brainIDs)
	s.Require().NoError(err)
	sparse, full, err := synth.Patient(s.ref, s.cov, []int{0, 1}, 500, 4)
	s.Require().NoError(err)
	pid, err := s.svc.Repo().SaveBrain(s.ctx, sparse)
	s.Require().NoError(err)

	pred, err := s.svc.Reconstruct(s.ctx, m.ID.String(), pid)
	s.Require().NoError(err)
	s.True(pred.IsEstimate())
	s.Equal(brain.Reconstructed, pred.Kind)

	var se float64
	for i := 0; i < full.Samples(); i++ {
		for _, j := range []int{2, 3, 4} {
			want, _ := full.Data.At(i, j)
			got, _ := pred.Data.At(i, j)
			se += (got - want) * (got - want)
		}
	}
	s.Less(math.Sqrt(se/float64(3*full.Samples())), 0.6)

	saved, err := s.svc.Repo().LoadRecording(s.ctx, pred.ID.String())
	s.Require().NoError(err)
	s.True(saved.IsEstimate())

	post, err := s.svc.Posterior(s.ctx, m.ID.String(), pid)
	s.Require().NoError(err)
	s.Require().Len(post, 5)
	s.InDelta(0, post[0], 1e-9)
	s.Greater(post[4], post[2])
}

func (s *PipelineSuite) TestBuildModel_Errors() {
	_, err := s.svc.BuildModel(s.ctx, s.refID, nil)
	s.ErrorIs(err, pipeline.ErrNoRecordings)

	_, err = s.svc.BuildModel(s.ctx, "missing", s.brainIDs)
	s.Error(err)

	// a recording id passed as the reference
	_, err = s.svc.BuildModel(s.ctx, s.brainIDs[0], s.brainIDs)
	s.ErrorIs(err, codec.ErrKindMismatch)

	// electrodes outside the reference
	far, err := locs.NewSet([]locs.Location{{X: 100}, {X: 101}})
	s.Require().NoError(err)
	farID, err := s.svc.Repo().SaveLocations(s.ctx, far)
	s.Require().NoError(err)
	_, err = s.svc.BuildModel(s.ctx, farID, s.brainIDs)
	s.ErrorIs(err, locs.ErrAlignment)

	// a single electrode carries no correlation evidence
	one, _, err := synth.Patient(s.ref, s.cov, []int{2}, 100, 7)
	s.Require().NoError(err)
	oneID, err := s.svc.Repo().SaveBrain(s.ctx, one)
	s.Require().NoError(err)
	_, err = s.svc.BuildModel(s.ctx, s.refID, []string{oneID})
	s.ErrorIs(err, model.ErrInsufficientData)
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func TestNewFromConfig_Filesystem(t *testing.T) {
	cfg := newConfig(t, storage.DriverFilesystem)
	cfg.Metrics.Enabled = false
	svc, err := pipeline.NewFromConfig(context.Background(), cfg, pipeline.WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer svc.Close()

	id, err := svc.Repo().SaveLocations(context.Background(), synth.Line(3, 1))
	require.NoError(t, err)
	entries, err := svc.Repo().List(context.Background(), codec.KindLocations)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)
	assert.FileExists(t, filepath.Join(cfg.Storage.DataRoot, entries[0].BlobKey))
}

func TestNewFromConfig_Invalid(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Workers = 0
	_, err := pipeline.NewFromConfig(context.Background(), &cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestOpenStore(t *testing.T) {
	st, err := pipeline.OpenStore(context.Background(), config.StorageConfig{Driver: storage.DriverMemory})
	require.NoError(t, err)
	assert.Equal(t, storage.DriverMemory, st.Driver())

	_, err = pipeline.OpenStore(context.Background(), config.StorageConfig{Driver: "tape"})
	assert.ErrorIs(t, err, storage.ErrUnsupported)
}
