// SPDX-License-Identifier: MIT

// Package storagetest holds the behavioural checks every storage.Store
// driver must pass. Driver packages call Run from their own tests.
package storagetest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/supereeg/storage"
)

// Run exercises the create-only contract against the store returned by
// newStore. newStore is called once per subtest and must return an empty
// store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Helper()

	t.Run("PutGetHead", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		body := []byte("SEEG-blob")
		info, err := s.Put(ctx, "models/m1", bytes.NewReader(body), storage.PutOptions{
			ContentType: storage.ContentType,
			Metadata:    map[string]string{"kind": "model"},
		})
		require.NoError(t, err)
		assert.Equal(t, "models/m1", info.Key)
		assert.EqualValues(t, len(body), info.Size)

		got, rc, err := s.Get(ctx, "models/m1")
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, body, data)
		assert.Equal(t, storage.ContentType, got.ContentType)

		head, err := s.Head(ctx, "models/m1")
		require.NoError(t, err)
		assert.Equal(t, "model", head.Metadata["kind"])
	})

	t.Run("CreateOnly", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, err := s.Put(ctx, "k", bytes.NewReader([]byte("first")), storage.PutOptions{})
		require.NoError(t, err)
		_, err = s.Put(ctx, "k", bytes.NewReader([]byte("second")), storage.PutOptions{})
		require.ErrorIs(t, err, storage.ErrExists)

		_, rc, err := s.Get(ctx, "k")
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		_ = rc.Close()
		assert.Equal(t, "first", string(data))
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		_, _, err := s.Get(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = s.Head(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		existed, err := s.Delete(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		s := newStore(t)
		for _, key := range []string{"", "/abs", "../up", "a/../../b"} {
			_, err := s.Put(context.Background(), key, bytes.NewReader(nil), storage.PutOptions{})
			assert.ErrorIs(t, err, storage.ErrInvalidKey, "key %q", key)
		}
	})

	t.Run("ListAndDelete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, k := range []string{"recordings/b", "recordings/a", "models/x"} {
			_, err := s.Put(ctx, k, bytes.NewReader([]byte(k)), storage.PutOptions{})
			require.NoError(t, err)
		}
		list, err := s.List(ctx, "recordings/")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "recordings/a", list[0].Key)
		assert.Equal(t, "recordings/b", list[1].Key)

		existed, err := s.Delete(ctx, "recordings/a")
		require.NoError(t, err)
		assert.True(t, existed)
		_, err = s.Head(ctx, "recordings/a")
		assert.True(t, errors.Is(err, storage.ErrNotFound))

		list, err = s.List(ctx, "")
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("PresignRejectsWrites", func(t *testing.T) {
		s := newStore(t)
		_, err := s.PresignURL(context.Background(), "k", storage.SignedURLOptions{Method: "PUT"})
		assert.ErrorIs(t, err, storage.ErrUnsupported)
	})
}
