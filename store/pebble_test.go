package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPebbleStore(t *testing.T) (*PebbleStore, string) {
	dbPath := filepath.Join(t.TempDir(), "test_pebble")

	store, err := NewPebbleStore(PebbleStoreConfig{
		Path: dbPath,
	})
	require.NoError(t, err)
	require.NotNil(t, store)

	return store, dbPath
}

func TestPebbleStore(t *testing.T) {
	runStoreSuite(t, func(t *testing.T) Store {
		s, _ := setupPebbleStore(t)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestPebbleStore_Durability(t *testing.T) {
	s, path := setupPebbleStore(t)
	ctx := context.Background()

	require.NoError(t, s.Transaction(ctx, func(ctx context.Context, txn Txn) error {
		return txn.Write("session", []byte("client1"), []byte("record"))
	}))
	require.NoError(t, s.Close())

	reopened, err := NewPebbleStore(PebbleStoreConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	value, err := reopened.DirtyRead(ctx, "session", []byte("client1"))
	require.NoError(t, err)
	assert.Equal(t, []byte("record"), value)
}

func TestPebbleStore_PanicAborts(t *testing.T) {
	s, _ := setupPebbleStore(t)
	defer s.Close()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = s.Transaction(ctx, func(ctx context.Context, txn Txn) error {
			_ = txn.Write("t", []byte("k"), []byte("v"))
			panic("boom")
		})
	})

	_, err := s.DirtyRead(ctx, "t", []byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPebbleStore_Prefix(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared")
	ctx := context.Background()

	a, err := NewPebbleStore(PebbleStoreConfig{Path: dbPath, Prefix: "a/"})
	require.NoError(t, err)

	require.NoError(t, a.Transaction(ctx, func(ctx context.Context, txn Txn) error {
		return txn.Write("t", []byte("k"), []byte("from-a"))
	}))

	count, err := a.Count(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	value, err := a.DirtyRead(ctx, "t", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-a"), value)

	b := NewPebbleStoreFromDB(a.db, "b/")
	_, err = b.DirtyRead(ctx, "t", []byte("k"))
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, a.Close())
}

func TestPebbleStore_Count(t *testing.T) {
	s, _ := setupPebbleStore(t)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Transaction(ctx, func(ctx context.Context, txn Txn) error {
		for _, k := range []string{"1", "2", "3"} {
			if err := txn.Write("iter", []byte(k), []byte("x")); err != nil {
				return err
			}
		}
		return txn.Write("iterator", []byte("1"), []byte("x"))
	}))

	count, err := s.Count(ctx, "iter")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = s.Count(ctx, "iterator")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPebbleStore_Closed(t *testing.T) {
	s, _ := setupPebbleStore(t)
	require.NoError(t, s.Close())
	ctx := context.Background()

	err := s.Transaction(ctx, func(ctx context.Context, txn Txn) error { return nil })
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = s.DirtyRead(ctx, "t", []byte("k"))
	assert.ErrorIs(t, err, ErrStoreClosed)

	_, err = s.Count(ctx, "t")
	assert.ErrorIs(t, err, ErrStoreClosed)
}
