// SPDX-License-Identifier: MIT

// Package repo persists and loads supereeg objects. Blobs are encoded with
// codec and written create-only to a storage.Store; a catalog entry indexes
// each blob by ID, kind and shape.
package repo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/catalog"
	"github.com/katalvlaran/supereeg/codec"
	"github.com/katalvlaran/supereeg/internal/logging"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/model"
	"github.com/katalvlaran/supereeg/storage"
)

// ErrNotFound is returned when an ID is unknown to the catalog.
var ErrNotFound = catalog.ErrNotFound

// Repository combines a blob store with a catalog.
type Repository struct {
	store     storage.Store
	cat       *catalog.Catalog
	log       *slog.Logger
	modelOpts []model.Option
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the logger; nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option { return func(r *Repository) { r.log = logging.OrDiscard(l) } }

// WithModelOptions are applied to every decoded model (clip, logger,
// metrics).
func WithModelOptions(opts ...model.Option) Option {
	return func(r *Repository) { r.modelOpts = append(r.modelOpts, opts...) }
}

// New returns a Repository over store and cat. Neither is owned.
func New(store storage.Store, cat *catalog.Catalog, opts ...Option) (*Repository, error) {
	if store == nil || cat == nil {
		return nil, errors.New("repo: store and catalog required")
	}
	r := &Repository{store: store, cat: cat, log: logging.Discard()}
	for _, opt := range opts {
		opt(r)
	}

	return r, nil
}

// BlobKey is the storage key for an object of kind k.
func BlobKey(k codec.Kind, id string) string {
	switch k {
	case codec.KindRecording:
		return "recordings/" + id
	case codec.KindModel:
		return "models/" + id
	case codec.KindLocations:
		return "locations/" + id
	default:
		return "objects/" + id
	}
}

// SaveBrain stores b under its own ID.
func (r *Repository) SaveBrain(ctx context.Context, b *brain.Brain) (string, error) {
	var buf bytes.Buffer
	if err := codec.EncodeBrain(&buf, b); err != nil {
		return "", err
	}
	e := catalog.Entry{
		ID:         b.ID.String(),
		Kind:       codec.KindRecording,
		NLocations: b.Locs.Len(),
		NSamples:   b.Samples(),
		CreatedAt:  b.CreatedAt,
		Meta:       b.Meta,
	}

	return e.ID, r.save(ctx, e, buf.Bytes())
}

// SaveModel stores m under its own ID.
func (r *Repository) SaveModel(ctx context.Context, m *model.Model) (string, error) {
	var buf bytes.Buffer
	if err := codec.EncodeModel(&buf, m); err != nil {
		return "", err
	}
	e := catalog.Entry{
		ID:         m.ID.String(),
		Kind:       codec.KindModel,
		NLocations: m.Locs.Len(),
		NSubjects:  m.NSubs,
		CreatedAt:  m.CreatedAt,
		Meta:       m.Meta,
	}

	return e.ID, r.save(ctx, e, buf.Bytes())
}

// SaveLocations stores l under a fresh ID.
func (r *Repository) SaveLocations(ctx context.Context, l locs.Set) (string, error) {
	var buf bytes.Buffer
	if err := codec.EncodeLocations(&buf, l); err != nil {
		return "", err
	}
	e := catalog.Entry{
		ID:         uuid.NewString(),
		Kind:       codec.KindLocations,
		NLocations: l.Len(),
	}

	return e.ID, r.save(ctx, e, buf.Bytes())
}

// save writes the blob, then the catalog entry; a failed catalog write
// removes the blob again.
func (r *Repository) save(ctx context.Context, e catalog.Entry, blob []byte) error {
	e.BlobKey = BlobKey(e.Kind, e.ID)
	_, err := r.store.Put(ctx, e.BlobKey, bytes.NewReader(blob), storage.PutOptions{
		ContentType: storage.ContentType,
		Metadata: map[string]string{
			"kind":    e.Kind.String(),
			"version": strconv.Itoa(int(codec.Version)),
		},
	})
	if err != nil {
		return fmt.Errorf("repo: save %s %s: %w", e.Kind, e.ID, err)
	}
	if err = r.cat.Record(ctx, e); err != nil {
		if _, derr := r.store.Delete(ctx, e.BlobKey); derr != nil {
			r.log.Warn("orphaned blob", "key", e.BlobKey, "err", derr)
		}
		return fmt.Errorf("repo: save %s %s: %w", e.Kind, e.ID, err)
	}
	r.log.Debug("saved object", "kind", e.Kind.String(), "id", e.ID, "bytes", len(blob))

	return nil
}

// Load decodes the object with the given ID, whatever its kind.
func (r *Repository) Load(ctx context.Context, id string) (codec.LoadResult, error) {
	e, err := r.cat.Get(ctx, id)
	if err != nil {
		return codec.LoadResult{}, fmt.Errorf("repo: load %s: %w", id, err)
	}
	_, rc, err := r.store.Get(ctx, e.BlobKey)
	if err != nil {
		return codec.LoadResult{}, fmt.Errorf("repo: load %s: %w", id, err)
	}
	defer rc.Close()

	res, err := codec.Decode(rc, r.modelOpts...)
	if err != nil {
		return codec.LoadResult{}, fmt.Errorf("repo: load %s: %w", id, err)
	}
	if res.Kind != e.Kind {
		return codec.LoadResult{}, fmt.Errorf("repo: load %s: catalog says %s, blob is %s: %w",
			id, e.Kind, res.Kind, codec.ErrKindMismatch)
	}

	return res, nil
}

func (r *Repository) loadKind(ctx context.Context, id string, want codec.Kind) (codec.LoadResult, error) {
	res, err := r.Load(ctx, id)
	if err != nil {
		return codec.LoadResult{}, err
	}
	if res.Kind != want {
		return codec.LoadResult{}, fmt.Errorf("repo: %s is a %s, want %s: %w", id, res.Kind, want, codec.ErrKindMismatch)
	}

	return res, nil
}

// LoadRecording loads a stored Brain.
func (r *Repository) LoadRecording(ctx context.Context, id string) (*brain.Brain, error) {
	res, err := r.loadKind(ctx, id, codec.KindRecording)
	if err != nil {
		return nil, err
	}

	return res.Brain, nil
}

// LoadModel loads a stored Model.
func (r *Repository) LoadModel(ctx context.Context, id string) (*model.Model, error) {
	res, err := r.loadKind(ctx, id, codec.KindModel)
	if err != nil {
		return nil, err
	}

	return res.Model, nil
}

// LoadLocations loads a stored location set.
func (r *Repository) LoadLocations(ctx context.Context, id string) (locs.Set, error) {
	res, err := r.loadKind(ctx, id, codec.KindLocations)
	if err != nil {
		return locs.Set{}, err
	}

	return res.Locs, nil
}

// List returns catalog entries of kind k (all kinds for 0).
func (r *Repository) List(ctx context.Context, k codec.Kind) ([]catalog.Entry, error) {
	return r.cat.List(ctx, k)
}
