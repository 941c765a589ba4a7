// SPDX-License-Identifier: MIT

// Package fs implements storage.Store on the local filesystem under an
// explicit data root.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/katalvlaran/supereeg/storage"
)

const metaSuffix = ".meta"

// Store implements storage.Store using the local filesystem.
// Keys map to relative file paths under the root. A sidecar (filename +
// ".meta") stores content type, user metadata, size and sha256 etag.
type Store struct {
	root string
}

var _ storage.Store = (*Store)(nil)

// New returns a filesystem-backed blob store rooted at root, creating it if
// needed.
func New(root string) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("fs store: empty data root: %w", storage.ErrInvalidKey)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &Store{root: root}, nil
}

// Root returns the data root.
func (s *Store) Root() string { return s.root }

// Driver returns the blob driver identifier.
func (s *Store) Driver() storage.Driver { return storage.DriverFilesystem }

// sanitizeKey ensures key doesn't escape root.
func sanitizeKey(key string) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", fmt.Errorf("key %q: %w", key, err)
	}
	clean := filepath.ToSlash(filepath.Clean(key))
	if strings.HasPrefix(clean, "..") || strings.HasSuffix(clean, metaSuffix) {
		return "", fmt.Errorf("key %q: %w", key, storage.ErrInvalidKey)
	}

	return clean, nil
}

func (s *Store) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	metaPath = dataPath + metaSuffix

	return dataPath, metaPath, nil
}

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Put streams r to a temp file, then links it into place; an existing key
// fails with storage.ErrExists without touching the stored blob.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts storage.PutOptions) (storage.Info, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return storage.Info{}, err
	}
	if err = os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return storage.Info{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return storage.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return storage.Info{}, err
	}
	if err = ctx.Err(); err != nil {
		return storage.Info{}, err
	}
	if err = os.Link(tmp.Name(), dataPath); err != nil {
		if errors.Is(err, iofs.ErrExist) {
			return storage.Info{}, fmt.Errorf("put %q: %w", key, storage.ErrExists)
		}
		return storage.Info{}, err
	}

	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    storage.CloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	if err = writeJSON(metaPath, mf); err != nil {
		_ = os.Remove(dataPath)
		return storage.Info{}, err
	}

	return s.info(key, mf), nil
}

// Get opens the blob for reading.
func (s *Store) Get(_ context.Context, key string) (storage.Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return storage.Info{}, nil, err
	}
	file, err := os.Open(dataPath)
	if errors.Is(err, iofs.ErrNotExist) {
		return storage.Info{}, nil, fmt.Errorf("get %q: %w", key, storage.ErrNotFound)
	}
	if err != nil {
		return storage.Info{}, nil, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return storage.Info{}, nil, fmt.Errorf("get %q: %w", key, err)
	}

	return s.info(key, mf), file, nil
}

// Head returns the sidecar metadata.
func (s *Store) Head(_ context.Context, key string) (storage.Info, error) {
	_, metaPath, err := s.pathFor(key)
	if err != nil {
		return storage.Info{}, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return storage.Info{}, fmt.Errorf("head %q: %w", key, err)
	}

	return s.info(key, mf), nil
}

// Delete removes the blob and its sidecar, reporting whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err = os.Remove(dataPath); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	_ = os.Remove(metaPath)

	return true, nil
}

// List walks the root collecting sidecars whose key starts with prefix.
func (s *Store) List(_ context.Context, prefix string) ([]storage.Info, error) {
	var infos []storage.Info
	err := filepath.WalkDir(s.root, func(path string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(s.root, strings.TrimSuffix(path, metaSuffix))
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		mf, err := readMeta(path)
		if err != nil {
			return err
		}
		infos = append(infos, s.info(key, mf))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })

	return infos, nil
}

// PresignURL returns a file:// URL for GET; no signing is involved.
func (s *Store) PresignURL(_ context.Context, key string, opts storage.SignedURLOptions) (string, error) {
	if opts.Method != "" && !strings.EqualFold(opts.Method, "GET") {
		return "", storage.ErrUnsupported
	}
	dataPath, _, err := s.pathFor(key)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(dataPath)
	if err != nil {
		return "", err
	}

	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), nil
}

func (s *Store) info(key string, mf metaFile) storage.Info {
	return storage.Info{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     storage.CloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, b, 0o644)
}

func readMeta(path string) (metaFile, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, iofs.ErrNotExist) {
		return metaFile{}, storage.ErrNotFound
	}
	if err != nil {
		return metaFile{}, err
	}
	var mf metaFile
	if err = json.Unmarshal(b, &mf); err != nil {
		return metaFile{}, err
	}

	return mf, nil
}
