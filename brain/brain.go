// SPDX-License-Identifier: MIT

package brain

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
)

// ErrDimensionMismatch is returned when the activity matrix and the location
// set disagree in width, or session labels do not cover every sample.
var ErrDimensionMismatch = matrix.ErrDimensionMismatch

// ErrInvalid is returned for recordings that are structurally unusable
// (nil data, negative or non-finite sample rate).
var ErrInvalid = errors.New("brain: invalid recording")

// MetaEstimate is the metadata key set to "true" on reconstructed recordings.
const MetaEstimate = "estimate"

// Kind distinguishes observed recordings from reconstructions.
type Kind uint8

const (
	Observed Kind = iota
	Reconstructed
)

func (k Kind) String() string {
	switch k {
	case Observed:
		return "observed"
	case Reconstructed:
		return "reconstructed"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Brain is one subject's activity over an ordered location set.
// Data.Cols() == Locs.Len() always holds for a Brain returned by New.
type Brain struct {
	ID         uuid.UUID
	Data       *matrix.Dense // samples × locations
	Locs       locs.Set
	SampleRate float64  // Hz; 0 when unknown
	Sessions   []string // one label per sample, or empty
	Meta       map[string]string
	CreatedAt  time.Time
	Kind       Kind
}

// Option configures a Brain in New.
type Option func(*Brain)

// WithSampleRate sets the sampling rate in Hz.
func WithSampleRate(hz float64) Option { return func(b *Brain) { b.SampleRate = hz } }

// WithSessions sets one session label per sample. The slice is copied.
func WithSessions(labels []string) Option {
	return func(b *Brain) { b.Sessions = append([]string(nil), labels...) }
}

// WithMeta merges tags into the metadata.
func WithMeta(meta map[string]string) Option {
	return func(b *Brain) { maps.Copy(b.Meta, meta) }
}

// WithKind marks the recording as observed or reconstructed.
func WithKind(k Kind) Option { return func(b *Brain) { b.Kind = k } }

// WithCreatedAt overrides the creation timestamp (default: now, UTC).
func WithCreatedAt(ts time.Time) Option { return func(b *Brain) { b.CreatedAt = ts } }

// WithID overrides the generated identifier.
func WithID(id uuid.UUID) Option { return func(b *Brain) { b.ID = id } }

// New binds data to l. data is not copied; the Brain takes ownership.
func New(data *matrix.Dense, l locs.Set, opts ...Option) (*Brain, error) {
	if data == nil {
		return nil, fmt.Errorf("brain.New: nil data: %w", ErrInvalid)
	}
	b := &Brain{
		ID:        uuid.New(),
		Data:      data,
		Locs:      l,
		Meta:      make(map[string]string),
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	return b, nil
}

// Validate checks the structural invariants.
func (b *Brain) Validate() error {
	if b == nil || b.Data == nil {
		return fmt.Errorf("brain: nil data: %w", ErrInvalid)
	}
	if b.Data.Cols() != b.Locs.Len() {
		return fmt.Errorf("brain: %d columns for %d locations: %w",
			b.Data.Cols(), b.Locs.Len(), ErrDimensionMismatch)
	}
	if n := len(b.Sessions); n != 0 && n != b.Data.Rows() {
		return fmt.Errorf("brain: %d session labels for %d samples: %w",
			n, b.Data.Rows(), ErrDimensionMismatch)
	}
	if b.SampleRate < 0 || math.IsNaN(b.SampleRate) || math.IsInf(b.SampleRate, 0) {
		return fmt.Errorf("brain: sample rate %g: %w", b.SampleRate, ErrInvalid)
	}

	return nil
}

// Samples returns the number of rows.
func (b *Brain) Samples() int { return b.Data.Rows() }

// IsEstimate reports whether the recording was produced by reconstruction.
func (b *Brain) IsEstimate() bool {
	return b.Kind == Reconstructed || b.Meta[MetaEstimate] == "true"
}

// derive copies every field except Data and Locs.
func (b *Brain) derive(data *matrix.Dense, l locs.Set) *Brain {
	return &Brain{
		ID:         b.ID,
		Data:       data,
		Locs:       l,
		SampleRate: b.SampleRate,
		Sessions:   append([]string(nil), b.Sessions...),
		Meta:       maps.Clone(b.Meta),
		CreatedAt:  b.CreatedAt,
		Kind:       b.Kind,
	}
}

// Restrict returns a recording over the columns idx (in idx order) and the
// matching locations.
func (b *Brain) Restrict(idx []int) (*Brain, error) {
	sub, err := b.Locs.Subset(idx)
	if err != nil {
		return nil, fmt.Errorf("brain.Restrict: %w", err)
	}
	data, err := locs.RestrictColumns(b.Data, idx)
	if err != nil {
		return nil, fmt.Errorf("brain.Restrict: %w", err)
	}

	return b.derive(data, sub), nil
}
