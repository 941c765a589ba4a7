// SPDX-License-Identifier: MIT

package repo_test

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/catalog"
	"github.com/katalvlaran/supereeg/codec"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/model"
	"github.com/katalvlaran/supereeg/repo"
	"github.com/katalvlaran/supereeg/storage"
	"github.com/katalvlaran/supereeg/storage/memory"
	"github.com/katalvlaran/supereeg/synth"
)

type RepoSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	cat   *catalog.Catalog
	repo  *repo.Repository
	locs  locs.Set
}

func (s *RepoSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	cat, err := catalog.Open(s.ctx, filepath.Join(s.T().TempDir(), "catalog.db"))
	s.Require().NoError(err)
	s.cat = cat
	s.repo, err = repo.New(s.store, cat)
	s.Require().NoError(err)
	s.locs = synth.Line(4, 1)
}

func (s *RepoSuite) TearDownTest() { _ = s.cat.Close() }

func (s *RepoSuite) subject(seed uint64) *brain.Brain {
	cov, err := synth.RBF(s.locs, 4)
	s.Require().NoError(err)
	b, err := synth.Subject(s.locs, cov, 64, seed, brain.WithSampleRate(250),
		brain.WithMeta(map[string]string{"subject": "s01"}))
	s.Require().NoError(err)

	return b
}

func (s *RepoSuite) TestBrainRoundTrip() {
	b := s.subject(1)
	id, err := s.repo.SaveBrain(s.ctx, b)
	s.Require().NoError(err)
	s.Equal(b.ID.String(), id)

	got, err := s.repo.LoadRecording(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(b.ID, got.ID)
	s.True(b.Locs.Equal(got.Locs))
	s.Equal(b.Data.RawData(), got.Data.RawData())
	s.Equal(250.0, got.SampleRate)
	s.Equal("s01", got.Meta["subject"])

	e, err := s.cat.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(codec.KindRecording, e.Kind)
	s.Equal(repo.BlobKey(codec.KindRecording, id), e.BlobKey)
	s.Equal(4, e.NLocations)
	s.Equal(64, e.NSamples)

	info, err := s.store.Head(s.ctx, e.BlobKey)
	s.Require().NoError(err)
	s.Equal(storage.ContentType, info.ContentType)
	s.Equal("recording", info.Metadata["kind"])
}

func (s *RepoSuite) TestModelRoundTrip() {
	m, err := model.New(s.locs)
	s.Require().NoError(err)
	for seed := uint64(1); seed <= 2; seed++ {
		_, err = m.Fold(s.subject(seed))
		s.Require().NoError(err)
	}
	id, err := s.repo.SaveModel(s.ctx, m)
	s.Require().NoError(err)

	got, err := s.repo.LoadModel(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(m.NSubs, got.NSubs)
	s.Equal(m.Numerator.RawData(), got.Numerator.RawData())
	s.Equal(m.Denominator.RawData(), got.Denominator.RawData())

	e, err := s.cat.Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(2, e.NSubjects)
}

func (s *RepoSuite) TestLocationsRoundTrip() {
	id, err := s.repo.SaveLocations(s.ctx, s.locs)
	s.Require().NoError(err)

	got, err := s.repo.LoadLocations(s.ctx, id)
	s.Require().NoError(err)
	if diff := cmp.Diff(s.locs.Points(), got.Points()); diff != "" {
		s.Failf("locations differ", "(-want +got):\n%s", diff)
	}

	res, err := s.repo.Load(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(codec.KindLocations, res.Kind)
	s.Nil(res.Brain)
	s.Nil(res.Model)
}

func (s *RepoSuite) TestKindMismatch() {
	id, err := s.repo.SaveLocations(s.ctx, s.locs)
	s.Require().NoError(err)
	_, err = s.repo.LoadModel(s.ctx, id)
	s.ErrorIs(err, codec.ErrKindMismatch)
}

func (s *RepoSuite) TestNotFound() {
	_, err := s.repo.LoadRecording(s.ctx, "missing")
	s.ErrorIs(err, repo.ErrNotFound)
}

func (s *RepoSuite) TestDuplicateSave() {
	b := s.subject(3)
	_, err := s.repo.SaveBrain(s.ctx, b)
	s.Require().NoError(err)
	_, err = s.repo.SaveBrain(s.ctx, b)
	s.ErrorIs(err, storage.ErrExists)
}

func (s *RepoSuite) TestCatalogFailureRemovesBlob() {
	// an entry already holding the ID makes the catalog write fail
	b := s.subject(4)
	s.Require().NoError(s.cat.Record(s.ctx, catalog.Entry{
		ID: b.ID.String(), Kind: codec.KindRecording, BlobKey: "elsewhere",
	}))
	_, err := s.repo.SaveBrain(s.ctx, b)
	s.ErrorIs(err, catalog.ErrExists)

	_, err = s.store.Head(s.ctx, repo.BlobKey(codec.KindRecording, b.ID.String()))
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *RepoSuite) TestCorruptBlob() {
	s.Require().NoError(s.cat.Record(s.ctx, catalog.Entry{ID: "bad", Kind: codec.KindModel, BlobKey: "models/bad"}))
	_, err := s.store.Put(s.ctx, "models/bad", bytes.NewReader([]byte("nope")), storage.PutOptions{})
	s.Require().NoError(err)
	_, err = s.repo.LoadModel(s.ctx, "bad")
	s.ErrorIs(err, codec.ErrCorrupt)
}

func (s *RepoSuite) TestList() {
	_, err := s.repo.SaveBrain(s.ctx, s.subject(5))
	s.Require().NoError(err)
	_, err = s.repo.SaveLocations(s.ctx, s.locs)
	s.Require().NoError(err)

	recs, err := s.repo.List(s.ctx, codec.KindRecording)
	s.Require().NoError(err)
	s.Len(recs, 1)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := repo.New(nil, nil)
	require.Error(t, err)
}

func TestRepoSuite(t *testing.T) {
	suite.Run(t, new(RepoSuite))
}

func TestBlobKey(t *testing.T) {
	require.Equal(t, "recordings/a", repo.BlobKey(codec.KindRecording, "a"))
	require.Equal(t, "models/a", repo.BlobKey(codec.KindModel, "a"))
	require.Equal(t, "locations/a", repo.BlobKey(codec.KindLocations, "a"))
}
