// SPDX-License-Identifier: MIT

// Package memory implements an in-memory storage.Store.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/katalvlaran/supereeg/storage"
)

type blobEntry struct {
	info storage.Info
	data []byte
}

// Store implements storage.Store backed by process memory.
type Store struct {
	mu   sync.RWMutex
	objs map[string]blobEntry
}

var _ storage.Store = (*Store)(nil)

// New returns an in-memory blob store.
func New() *Store { return &Store{objs: make(map[string]blobEntry)} }

// Driver returns the blob driver identifier.
func (s *Store) Driver() storage.Driver { return storage.DriverMemory }

// Put stores a new blob; fails with storage.ErrExists if key exists.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts storage.PutOptions) (storage.Info, error) {
	if err := storage.ValidateKey(key); err != nil {
		return storage.Info{}, fmt.Errorf("put %q: %w", key, err)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return storage.Info{}, err
	}
	if err = ctx.Err(); err != nil {
		return storage.Info{}, err
	}
	sum := sha256.Sum256(b)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.objs[key]; exists {
		return storage.Info{}, fmt.Errorf("put %q: %w", key, storage.ErrExists)
	}
	info := storage.Info{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(sum[:]),
		Metadata:     storage.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = blobEntry{info: info, data: b}

	return cloneInfo(info), nil
}

// Get returns blob metadata and a reader over a copy of its content.
func (s *Store) Get(_ context.Context, key string) (storage.Info, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return storage.Info{}, nil, fmt.Errorf("get %q: %w", key, storage.ErrNotFound)
	}

	return cloneInfo(obj.info), io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// Head returns blob metadata only.
func (s *Store) Head(_ context.Context, key string) (storage.Info, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return storage.Info{}, fmt.Errorf("head %q: %w", key, storage.ErrNotFound)
	}

	return cloneInfo(obj.info), nil
}

// Delete removes the blob returning true if it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	if ok {
		delete(s.objs, key)
	}

	return ok, nil
}

// List returns all blobs whose key starts with prefix, sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]storage.Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]storage.Info, 0, len(s.objs))
	for k, v := range s.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, cloneInfo(v.info))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

// PresignURL is unsupported for the memory driver.
func (s *Store) PresignURL(context.Context, string, storage.SignedURLOptions) (string, error) {
	return "", storage.ErrUnsupported
}

func cloneInfo(in storage.Info) storage.Info {
	in.Metadata = storage.CloneMetadata(in.Metadata)

	return in
}
