// SPDX-License-Identifier: MIT

// Package pipeline runs supereeg end to end over stored objects: it builds
// models from catalogued recordings and reconstructs patients against a
// stored model, persisting every result through the repository.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/catalog"
	"github.com/katalvlaran/supereeg/config"
	"github.com/katalvlaran/supereeg/internal/logging"
	"github.com/katalvlaran/supereeg/metrics"
	"github.com/katalvlaran/supereeg/model"
	"github.com/katalvlaran/supereeg/recon"
	"github.com/katalvlaran/supereeg/repo"
	"github.com/katalvlaran/supereeg/storage"
	"github.com/katalvlaran/supereeg/storage/fs"
	"github.com/katalvlaran/supereeg/storage/memory"
	"github.com/katalvlaran/supereeg/storage/s3"
)

// ErrNoRecordings is returned by BuildModel when no brain IDs are given.
var ErrNoRecordings = errors.New("pipeline: no recordings")

// Service owns the storage collaborators and engine settings.
type Service struct {
	cfg    config.Config
	cat    *catalog.Catalog
	repo   *repo.Repository
	engine *recon.Engine
	log    *slog.Logger
	reg    prometheus.Registerer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger overrides the logger built from the logging section.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = logging.OrDiscard(l) } }

// WithRegisterer sets where collectors are registered when metrics are
// enabled (default prometheus.DefaultRegisterer).
func WithRegisterer(reg prometheus.Registerer) Option { return func(s *Service) { s.reg = reg } }

// OpenStore constructs the blob driver named by cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case storage.DriverMemory:
		return memory.New(), nil
	case storage.DriverFilesystem:
		return fs.New(cfg.DataRoot)
	case storage.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("pipeline: storage driver %q: %w", cfg.Driver, storage.ErrUnsupported)
	}
}

// NewFromConfig opens the store and catalog described by cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		d := config.Default()
		cfg = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Service{
		cfg: *cfg,
		log: logging.New(cfg.Logging.Level, cfg.Logging.JSON),
		reg: prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(s)
	}
	if cfg.Metrics.Enabled {
		if err := metrics.Register(s.reg); err != nil {
			return nil, fmt.Errorf("pipeline: metrics: %w", err)
		}
	}

	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	s.cat, err = catalog.Open(ctx, cfg.Storage.CatalogPath)
	if err != nil {
		return nil, err
	}
	s.repo, err = repo.New(store, s.cat,
		repo.WithLogger(s.log),
		repo.WithModelOptions(s.modelOptions()...),
	)
	if err != nil {
		_ = s.cat.Close()
		return nil, err
	}
	s.engine, err = recon.New(
		recon.WithRidge(cfg.Engine.Ridge),
		recon.WithLogger(s.log),
		recon.WithMetrics(cfg.Metrics.Enabled),
	)
	if err != nil {
		_ = s.cat.Close()
		return nil, err
	}
	s.log.Info("pipeline ready",
		"driver", string(store.Driver()),
		"catalog", cfg.Storage.CatalogPath,
		"workers", cfg.Engine.Workers,
	)

	return s, nil
}

// Repo exposes the repository for importing and inspecting objects.
func (s *Service) Repo() *repo.Repository { return s.repo }

// Close releases the catalog.
func (s *Service) Close() error { return s.cat.Close() }

func (s *Service) modelOptions() []model.Option {
	return []model.Option{
		model.WithClip(s.cfg.Engine.Clip),
		model.WithLogger(s.log),
		model.WithMetrics(s.cfg.Metrics.Enabled),
	}
}

// clean applies the kurtosis filter when it is enabled.
func (s *Service) clean(b *brain.Brain) (*brain.Brain, error) {
	if s.cfg.Engine.KurtosisThreshold <= 0 {
		return b, nil
	}
	out, kept, err := b.FilterKurtosis(s.cfg.Engine.KurtosisThreshold)
	if err != nil {
		return nil, err
	}
	if dropped := b.Locs.Len() - len(kept); dropped > 0 {
		s.log.Info("dropped high-kurtosis electrodes", "subject", b.ID.String(), "dropped", dropped)
	}

	return out, nil
}

// BuildModel folds the stored recordings into a new model over the stored
// reference locations, saves it and returns it.
func (s *Service) BuildModel(ctx context.Context, refLocsID string, brainIDs []string) (*model.Model, error) {
	if len(brainIDs) == 0 {
		return nil, ErrNoRecordings
	}
	ref, err := s.repo.LoadLocations(ctx, refLocsID)
	if err != nil {
		return nil, err
	}
	brains := make([]*brain.Brain, 0, len(brainIDs))
	for _, id := range brainIDs {
		b, err := s.repo.LoadRecording(ctx, id)
		if err != nil {
			return nil, err
		}
		if b, err = s.clean(b); err != nil {
			return nil, fmt.Errorf("pipeline: subject %s: %w", id, err)
		}
		brains = append(brains, b)
	}

	opts := append(s.modelOptions(), model.WithMeta(map[string]string{
		"reference_locations": refLocsID,
		"recordings":          strconv.Itoa(len(brainIDs)),
	}))
	m, err := model.Build(ctx, ref, brains, s.cfg.Engine.Workers, opts...)
	if err != nil {
		return nil, err
	}
	if m.NSubs == 0 {
		return nil, fmt.Errorf("pipeline: no recording overlaps the reference: %w", model.ErrInsufficientData)
	}
	if _, err = s.repo.SaveModel(ctx, m); err != nil {
		return nil, err
	}
	s.log.Info("model saved", "model", m.ID.String(), "subjects", m.NSubs, "locations", m.Locs.Len())

	return m, nil
}

func (s *Service) load(ctx context.Context, modelID, brainID string) (*model.Model, *brain.Brain, error) {
	m, err := s.repo.LoadModel(ctx, modelID)
	if err != nil {
		return nil, nil, err
	}
	b, err := s.repo.LoadRecording(ctx, brainID)
	if err != nil {
		return nil, nil, err
	}
	if b, err = s.clean(b); err != nil {
		return nil, nil, fmt.Errorf("pipeline: subject %s: %w", brainID, err)
	}

	return m, b, nil
}

// Reconstruct predicts the full-brain activity of a stored recording from a
// stored model and saves the reconstruction.
func (s *Service) Reconstruct(ctx context.Context, modelID, brainID string) (*brain.Brain, error) {
	m, b, err := s.load(ctx, modelID, brainID)
	if err != nil {
		return nil, err
	}
	out, err := s.engine.Predict(m, b)
	if err != nil {
		return nil, err
	}
	if _, err = s.repo.SaveBrain(ctx, out); err != nil {
		return nil, err
	}

	return out, nil
}

// Posterior returns per-location reconstruction variance for a stored
// recording under a stored model, in model location order.
func (s *Service) Posterior(ctx context.Context, modelID, brainID string) ([]float64, error) {
	m, b, err := s.load(ctx, modelID, brainID)
	if err != nil {
		return nil, err
	}

	return s.engine.Posterior(m, b)
}
