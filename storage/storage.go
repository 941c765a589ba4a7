// SPDX-License-Identifier: MIT

// Package storage defines the S3-like blob abstraction supereeg persists
// encoded recordings, models and location sets through. Drivers live in the
// memory, fs and s3 subpackages; all of them are create-only: Put on an
// existing key fails with ErrExists, so a stored object never changes under
// an ID that the catalog already points at.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// Driver identifies a concrete blob storage backend implementation.
type Driver string

const (
	// DriverFilesystem stores blobs under a local data root.
	DriverFilesystem Driver = "fs"
	// DriverS3 stores blobs in an S3 / MinIO compatible bucket.
	DriverS3 Driver = "s3"
	// DriverMemory keeps blobs in process memory (tests, one-shot runs).
	DriverMemory Driver = "memory"
)

var (
	// ErrNotFound is returned when a key does not exist.
	ErrNotFound = errors.New("storage: blob not found")

	// ErrExists is returned by Put when the key is already taken.
	ErrExists = errors.New("storage: blob already exists")

	// ErrInvalidKey is returned for empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("storage: invalid key")

	// ErrUnsupported is returned when an optional capability is not available.
	ErrUnsupported = errors.New("storage: unsupported operation")
)

// PutOptions specifies optional parameters for Put.
type PutOptions struct {
	ContentType string            // MIME type, optional
	Metadata    map[string]string // user metadata (small, flat key-value)
}

// SignedURLOptions holds options for generating a pre-signed URL.
type SignedURLOptions struct {
	Method string        // GET only
	Expiry time.Duration // default 15m
}

// Info describes a stored blob.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	URL          string            `json:"url,omitempty"`
}

// Store provides a thin S3-like abstraction used by the repository layer.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Head(ctx context.Context, key string) (Info, error)
	Delete(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	PresignURL(ctx context.Context, key string, opts SignedURLOptions) (string, error)
	Driver() Driver
}

// ContentType is the MIME type blobs written by supereeg carry.
const ContentType = "application/vnd.supereeg"

// ValidateKey rejects keys that are empty, absolute or contain "..".
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return ErrInvalidKey
	case strings.HasPrefix(key, "/"):
		return ErrInvalidKey
	case strings.Contains(key, ".."):
		return ErrInvalidKey
	}

	return nil
}

// CloneMetadata returns a copy of in (nil stays nil).
func CloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}

	return out
}
