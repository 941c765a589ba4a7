// SPDX-License-Identifier: MIT

package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

var (
	// ErrCorrupt indicates a blob that is truncated, lacks the magic, or whose
	// payload cannot be decompressed or decoded.
	ErrCorrupt = errors.New("codec: corrupt blob")

	// ErrUnsupportedVersion indicates a schema version this build cannot read.
	ErrUnsupportedVersion = errors.New("codec: unsupported schema version")

	// ErrKindMismatch indicates a typed decoder was handed another kind.
	ErrKindMismatch = errors.New("codec: kind mismatch")
)

// Version is the schema version written by this package.
const Version uint16 = 1

const headerLen = 7

var magic = [4]byte{'S', 'E', 'E', 'G'}

// Kind tags the payload type.
type Kind uint8

const (
	KindRecording Kind = 1
	KindModel     Kind = 2
	KindLocations Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindRecording:
		return "recording"
	case KindModel:
		return "model"
	case KindLocations:
		return "locations"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range [...]Kind{KindRecording, KindModel, KindLocations} {
		if k.String() == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("codec: unknown kind %q", s)
}

type codecs struct {
	enc  cbor.EncMode
	dec  cbor.DecMode
	zw   *zstd.Encoder
	zr   *zstd.Decoder
	init error
}

var shared = sync.OnceValue(func() *codecs {
	c := &codecs{}
	if c.enc, c.init = cbor.CoreDetEncOptions().EncMode(); c.init != nil {
		return c
	}
	if c.dec, c.init = (cbor.DecOptions{
		MaxArrayElements: math.MaxInt32,
		MaxMapPairs:      1 << 20,
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
	}).DecMode(); c.init != nil {
		return c
	}
	if c.zw, c.init = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)); c.init != nil {
		return c
	}
	c.zr, c.init = zstd.NewReader(nil)

	return c
})

// encode writes header + zstd(cbor(v)).
func encode(w io.Writer, kind Kind, v any) error {
	c := shared()
	if c.init != nil {
		return fmt.Errorf("codec: init: %w", c.init)
	}
	payload, err := c.enc.Marshal(v)
	if err != nil {
		return fmt.Errorf("codec: encode %s: %w", kind, err)
	}
	buf := make([]byte, headerLen, headerLen+len(payload)/2)
	copy(buf, magic[:])
	binary.BigEndian.PutUint16(buf[4:6], Version)
	buf[6] = byte(kind)
	buf = c.zw.EncodeAll(payload, buf)
	if _, err = w.Write(buf); err != nil {
		return fmt.Errorf("codec: write %s: %w", kind, err)
	}

	return nil
}

// readHeader validates magic and version and returns kind and compressed body.
func readHeader(blob []byte) (Kind, []byte, error) {
	if len(blob) < headerLen || !bytes.Equal(blob[:4], magic[:]) {
		return 0, nil, fmt.Errorf("codec: missing header: %w", ErrCorrupt)
	}
	if v := binary.BigEndian.Uint16(blob[4:6]); v == 0 || v > Version {
		return 0, nil, fmt.Errorf("codec: version %d (max %d): %w", v, Version, ErrUnsupportedVersion)
	}

	return Kind(blob[6]), blob[headerLen:], nil
}

// PeekKind reads only the header of blob.
func PeekKind(blob []byte) (Kind, error) {
	k, _, err := readHeader(blob)

	return k, err
}

func decodeBody(body []byte, kind Kind, v any) error {
	c := shared()
	if c.init != nil {
		return fmt.Errorf("codec: init: %w", c.init)
	}
	raw, err := c.zr.DecodeAll(body, nil)
	if err != nil {
		return fmt.Errorf("codec: decompress %s: %v: %w", kind, err, ErrCorrupt)
	}
	if err = c.dec.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("codec: decode %s: %v: %w", kind, err, ErrCorrupt)
	}

	return nil
}

// decodeAs reads r and decodes a payload of the expected kind into v.
func decodeAs(r io.Reader, want Kind, v any) error {
	blob, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("codec: read: %w", err)
	}
	kind, body, err := readHeader(blob)
	if err != nil {
		return err
	}
	if kind != want {
		return fmt.Errorf("codec: got %s, want %s: %w", kind, want, ErrKindMismatch)
	}

	return decodeBody(body, kind, v)
}
