// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/supereeg/internal/logging"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
)

// ErrInsufficientData is returned when there is nothing to aggregate or read:
// an empty reference set, or a model with no folded subjects.
var ErrInsufficientData = errors.New("model: insufficient data")

// Model is the aggregated correlation state over Locs.
// Numerator and Denominator are symmetric Locs.Len()×Locs.Len() matrices.
type Model struct {
	ID          uuid.UUID
	Locs        locs.Set
	Numerator   *matrix.Dense
	Denominator *matrix.Dense
	NSubs       int
	Meta        map[string]string
	CreatedAt   time.Time

	clip    float64
	log     *slog.Logger
	observe bool
}

// Option configures a Model.
type Option func(*Model)

// WithClip sets the correlation clip used before atanh (default matrix.DefaultClip).
func WithClip(clip float64) Option { return func(m *Model) { m.clip = clip } }

// WithLogger sets the logger; nil keeps the discard logger.
func WithLogger(l *slog.Logger) Option { return func(m *Model) { m.log = logging.OrDiscard(l) } }

// WithMetrics enables Prometheus fold observations.
func WithMetrics(on bool) Option { return func(m *Model) { m.observe = on } }

// WithMeta merges tags into the model metadata.
func WithMeta(meta map[string]string) Option { return func(m *Model) { maps.Copy(m.Meta, meta) } }

// WithID overrides the generated identifier.
func WithID(id uuid.UUID) Option { return func(m *Model) { m.ID = id } }

// WithCreatedAt overrides the creation timestamp (default: now, UTC).
func WithCreatedAt(ts time.Time) Option { return func(m *Model) { m.CreatedAt = ts } }

// New allocates an empty model over l.
func New(l locs.Set, opts ...Option) (*Model, error) {
	n := l.Len()
	if n == 0 {
		return nil, fmt.Errorf("model.New: empty location set: %w", ErrInsufficientData)
	}
	num, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("model.New: %w", err)
	}
	den, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("model.New: %w", err)
	}
	m := &Model{
		ID:          uuid.New(),
		Locs:        l,
		Numerator:   num,
		Denominator: den,
		Meta:        make(map[string]string),
		CreatedAt:   time.Now().UTC(),
		clip:        matrix.DefaultClip,
		log:         logging.Discard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if !(m.clip > 0 && m.clip < 1) {
		return nil, fmt.Errorf("model.New: clip %g outside (0,1): %w", m.clip, matrix.ErrNaNInf)
	}

	return m, nil
}

// Restore rebuilds a model from persisted sums. num and den are copied.
//
// Errors:
//   - matrix.ErrDimensionMismatch if the sums are not Locs.Len() square.
//   - matrix.ErrAsymmetry if either sum is not exactly symmetric.
//   - ErrInsufficientData for an empty location set or negative nSubs.
func Restore(l locs.Set, num, den *matrix.Dense, nSubs int, opts ...Option) (*Model, error) {
	m, err := New(l, opts...)
	if err != nil {
		return nil, err
	}
	if nSubs < 0 {
		return nil, fmt.Errorf("model.Restore: n_subs %d: %w", nSubs, ErrInsufficientData)
	}
	n := l.Len()
	for _, src := range [...]*matrix.Dense{num, den} {
		if err = matrix.ValidateNotNil(src); err != nil {
			return nil, fmt.Errorf("model.Restore: %w", err)
		}
		if r, c := src.Shape(); r != n || c != n {
			return nil, fmt.Errorf("model.Restore: %dx%d sums for %d locations: %w", r, c, n, matrix.ErrDimensionMismatch)
		}
		if err = matrix.ValidateSymmetric(src, 0); err != nil {
			return nil, fmt.Errorf("model.Restore: %w", err)
		}
	}
	copy(m.Numerator.RawData(), num.RawData())
	copy(m.Denominator.RawData(), den.RawData())
	m.NSubs = nSubs

	return m, nil
}

// Clip returns the correlation clip in effect.
func (m *Model) Clip() float64 { return m.clip }

// MeanCorrelation returns tanh(Numerator/Denominator) with zero-weight pairs
// set to 0 and the diagonal set to 1.
func (m *Model) MeanCorrelation() (*matrix.Dense, error) {
	if m.NSubs == 0 {
		return nil, fmt.Errorf("MeanCorrelation: no subjects folded: %w", ErrInsufficientData)
	}
	r, err := matrix.FisherZInverse(m.Numerator, m.Denominator)
	if err != nil {
		return nil, fmt.Errorf("MeanCorrelation: %w", err)
	}

	return r, nil
}

// Coverage returns the fraction of off-diagonal pairs with non-zero weight.
func (m *Model) Coverage() float64 {
	n := m.Locs.Len()
	if n < 2 {
		return 0
	}
	den := m.Denominator.RawData()
	var seen int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if den[i*n+j] != 0 {
				seen++
			}
		}
	}

	return float64(seen) / float64(n*(n-1)/2)
}

// Merge adds other's sums into m. Both models must share the same ordered
// location set.
func (m *Model) Merge(other *Model) error {
	if other == nil {
		return fmt.Errorf("Merge: %w", matrix.ErrNilMatrix)
	}
	if !m.Locs.Equal(other.Locs) {
		return fmt.Errorf("Merge: location sets differ: %w", locs.ErrAlignment)
	}
	dn, sn := m.Numerator.RawData(), other.Numerator.RawData()
	dd, sd := m.Denominator.RawData(), other.Denominator.RawData()
	for k := range dn {
		dn[k] += sn[k]
		dd[k] += sd[k]
	}
	m.NSubs += other.NSubs

	return nil
}

// Grow returns a new model over Union(m.Locs, l) carrying m's sums. The
// original locations keep their indices; the new ones start with no evidence.
func (m *Model) Grow(l locs.Set) (*Model, error) {
	u := locs.Union(m.Locs, l)
	g, err := New(u,
		WithClip(m.clip),
		WithLogger(m.log),
		WithMetrics(m.observe),
		WithMeta(m.Meta),
	)
	if err != nil {
		return nil, err
	}
	idx := make([]int, m.Locs.Len())
	for i := range idx {
		idx[i] = i
	}
	if err = matrix.ScatterAdd(g.Numerator, m.Numerator, idx, 1); err != nil {
		return nil, fmt.Errorf("Grow: %w", err)
	}
	if err = matrix.ScatterAdd(g.Denominator, m.Denominator, idx, 1); err != nil {
		return nil, fmt.Errorf("Grow: %w", err)
	}
	g.NSubs = m.NSubs

	return g, nil
}
