// SPDX-License-Identifier: MIT

// Package codec is the single persisted format for recordings, models and
// location sets.
//
// Layout:
//
//	offset 0  4 bytes  magic "SEEG"
//	offset 4  2 bytes  schema version, big endian (current: 1)
//	offset 6  1 byte   kind: 1 recording, 2 model, 3 locations
//	offset 7  ...      zstd frame holding a deterministic CBOR payload
//
// The kind byte selects the payload type, so Decode returns a tagged
// LoadResult without probing. A model payload keeps the ordered coordinates,
// both running sums (packed upper triangles; the sums are symmetric), the
// subject count, metadata, creation time and ID. Encoding the same value twice
// yields identical bytes.
package codec
