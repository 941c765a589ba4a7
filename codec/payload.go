// SPDX-License-Identifier: MIT

package codec

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/katalvlaran/supereeg/brain"
	"github.com/katalvlaran/supereeg/locs"
	"github.com/katalvlaran/supereeg/matrix"
	"github.com/katalvlaran/supereeg/model"
)

type locationsPayload struct {
	Coords [][3]float64 `cbor:"1,keyasint"`
}

type brainPayload struct {
	ID         []byte            `cbor:"1,keyasint"`
	Rows       int               `cbor:"2,keyasint"`
	Cols       int               `cbor:"3,keyasint"`
	Data       []float64         `cbor:"4,keyasint"`
	Coords     [][3]float64      `cbor:"5,keyasint"`
	SampleRate float64           `cbor:"6,keyasint"`
	Sessions   []string          `cbor:"7,keyasint,omitempty"`
	Meta       map[string]string `cbor:"8,keyasint,omitempty"`
	CreatedAt  int64             `cbor:"9,keyasint"` // unix nanoseconds
	Kind       uint8             `cbor:"10,keyasint"`
}

type modelPayload struct {
	ID          []byte            `cbor:"1,keyasint"`
	Coords      [][3]float64      `cbor:"2,keyasint"`
	Numerator   []float64         `cbor:"3,keyasint"` // packed upper triangle, row-major
	Denominator []float64         `cbor:"4,keyasint"` // packed upper triangle, row-major
	NSubs       int               `cbor:"5,keyasint"`
	Meta        map[string]string `cbor:"6,keyasint,omitempty"`
	CreatedAt   int64             `cbor:"7,keyasint"`
	Clip        float64           `cbor:"8,keyasint,omitempty"` // 0 in blobs written before it was stored
}

// EncodeLocations writes l.
func EncodeLocations(w io.Writer, l locs.Set) error {
	return encode(w, KindLocations, locationsPayload{Coords: l.Coords()})
}

// DecodeLocations reads a location set.
func DecodeLocations(r io.Reader) (locs.Set, error) {
	var p locationsPayload
	if err := decodeAs(r, KindLocations, &p); err != nil {
		return locs.Set{}, err
	}

	return p.toSet()
}

func (p locationsPayload) toSet() (locs.Set, error) {
	s, err := locs.FromCoords(p.Coords)
	if err != nil {
		return locs.Set{}, fmt.Errorf("codec: locations: %v: %w", err, ErrCorrupt)
	}

	return s, nil
}

// EncodeBrain writes b.
func EncodeBrain(w io.Writer, b *brain.Brain) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("codec: %w", err)
	}
	r, c := b.Data.Shape()

	return encode(w, KindRecording, brainPayload{
		ID:         b.ID[:],
		Rows:       r,
		Cols:       c,
		Data:       b.Data.RawData(),
		Coords:     b.Locs.Coords(),
		SampleRate: b.SampleRate,
		Sessions:   b.Sessions,
		Meta:       b.Meta,
		CreatedAt:  b.CreatedAt.UnixNano(),
		Kind:       uint8(b.Kind),
	})
}

// DecodeBrain reads a recording.
func DecodeBrain(r io.Reader) (*brain.Brain, error) {
	var p brainPayload
	if err := decodeAs(r, KindRecording, &p); err != nil {
		return nil, err
	}

	return p.toBrain()
}

func (p brainPayload) toBrain() (*brain.Brain, error) {
	id, err := uuid.FromBytes(p.ID)
	if err != nil {
		return nil, fmt.Errorf("codec: recording id: %v: %w", err, ErrCorrupt)
	}
	l, err := locationsPayload{Coords: p.Coords}.toSet()
	if err != nil {
		return nil, err
	}
	if p.Rows <= 0 || p.Cols <= 0 || p.Cols != l.Len() ||
		p.Rows > math.MaxInt/p.Cols || p.Rows*p.Cols != len(p.Data) {
		return nil, fmt.Errorf("codec: recording shape %dx%d with %d values and %d locations: %w",
			p.Rows, p.Cols, len(p.Data), l.Len(), ErrCorrupt)
	}
	data, err := matrix.NewDenseFrom(p.Rows, p.Cols, p.Data)
	if err != nil {
		return nil, fmt.Errorf("codec: recording data: %v: %w", err, ErrCorrupt)
	}
	b, err := brain.New(data, l,
		brain.WithID(id),
		brain.WithSampleRate(p.SampleRate),
		brain.WithSessions(p.Sessions),
		brain.WithMeta(p.Meta),
		brain.WithCreatedAt(time.Unix(0, p.CreatedAt).UTC()),
		brain.WithKind(brain.Kind(p.Kind)),
	)
	if err != nil {
		return nil, fmt.Errorf("codec: recording: %v: %w", err, ErrCorrupt)
	}

	return b, nil
}

// EncodeModel writes m.
func EncodeModel(w io.Writer, m *model.Model) error {
	if m == nil {
		return fmt.Errorf("codec: nil model: %w", matrix.ErrNilMatrix)
	}

	return encode(w, KindModel, modelPayload{
		ID:          m.ID[:],
		Coords:      m.Locs.Coords(),
		Numerator:   packUpper(m.Numerator),
		Denominator: packUpper(m.Denominator),
		NSubs:       m.NSubs,
		Meta:        m.Meta,
		CreatedAt:   m.CreatedAt.UnixNano(),
		Clip:        m.Clip(),
	})
}

// DecodeModel reads a model. opts configure runtime settings (logger,
// metrics) of the restored model. The clip the model was built with is
// restored and overrides any WithClip in opts; only blobs that predate the
// stored clip take it from opts.
func DecodeModel(r io.Reader, opts ...model.Option) (*model.Model, error) {
	var p modelPayload
	if err := decodeAs(r, KindModel, &p); err != nil {
		return nil, err
	}

	return p.toModel(opts...)
}

func (p modelPayload) toModel(opts ...model.Option) (*model.Model, error) {
	id, err := uuid.FromBytes(p.ID)
	if err != nil {
		return nil, fmt.Errorf("codec: model id: %v: %w", err, ErrCorrupt)
	}
	l, err := locationsPayload{Coords: p.Coords}.toSet()
	if err != nil {
		return nil, err
	}
	n := l.Len()
	num, err := unpackUpper(p.Numerator, n)
	if err != nil {
		return nil, err
	}
	den, err := unpackUpper(p.Denominator, n)
	if err != nil {
		return nil, err
	}
	opts = append([]model.Option{
		model.WithID(id),
		model.WithMeta(p.Meta),
		model.WithCreatedAt(time.Unix(0, p.CreatedAt).UTC()),
	}, opts...)
	if p.Clip != 0 {
		opts = append(opts, model.WithClip(p.Clip))
	}
	m, err := model.Restore(l, num, den, p.NSubs, opts...)
	if err != nil {
		return nil, fmt.Errorf("codec: model: %v: %w", err, ErrCorrupt)
	}

	return m, nil
}

// packUpper flattens the upper triangle (diagonal included) of a square matrix.
func packUpper(m *matrix.Dense) []float64 {
	n := m.Rows()
	src := m.RawData()
	out := make([]float64, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		out = append(out, src[i*n+i:(i+1)*n]...)
	}

	return out
}

// unpackUpper mirrors a packed upper triangle into an n×n symmetric matrix.
func unpackUpper(packed []float64, n int) (*matrix.Dense, error) {
	if len(packed) != n*(n+1)/2 {
		return nil, fmt.Errorf("codec: packed triangle of %d for n=%d: %w", len(packed), n, ErrCorrupt)
	}
	m, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("codec: %v: %w", err, ErrCorrupt)
	}
	dst := m.RawData()
	k := 0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			dst[i*n+j] = packed[k]
			dst[j*n+i] = packed[k]
			k++
		}
	}

	return m, nil
}

// LoadResult is the decoded content of any blob; exactly one of Brain, Model
// or Locs is set, as named by Kind.
type LoadResult struct {
	Kind  Kind
	Brain *brain.Brain
	Model *model.Model
	Locs  locs.Set
}

// Decode reads any supported blob and dispatches on its kind byte.
func Decode(r io.Reader, opts ...model.Option) (LoadResult, error) {
	blob, err := io.ReadAll(r)
	if err != nil {
		return LoadResult{}, fmt.Errorf("codec: read: %w", err)
	}
	kind, body, err := readHeader(blob)
	if err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{Kind: kind}
	switch kind {
	case KindRecording:
		var p brainPayload
		if err = decodeBody(body, kind, &p); err == nil {
			res.Brain, err = p.toBrain()
		}
	case KindModel:
		var p modelPayload
		if err = decodeBody(body, kind, &p); err == nil {
			res.Model, err = p.toModel(opts...)
		}
	case KindLocations:
		var p locationsPayload
		if err = decodeBody(body, kind, &p); err == nil {
			res.Locs, err = p.toSet()
		}
	default:
		err = fmt.Errorf("codec: unknown kind %d: %w", uint8(kind), ErrCorrupt)
	}
	if err != nil {
		return LoadResult{}, err
	}

	return res, nil
}
