package keystore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_StoreAndRetrieve(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "k", []byte{0x01, 0x02}))

	v, err := s.Retrieve(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, v)
}

func TestMemoryStore_RetrieveMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.Retrieve(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_StoreOverwrites(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "k", []byte("old")))
	require.NoError(t, s.Store(ctx, "k", []byte("new")))

	v, err := s.Retrieve(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), v)
}

func TestMemoryStore_DeleteIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "k", []byte{1}))
	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))

	_, err := s.Retrieve(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Exists(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	ok, err := s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Store(ctx, "k", []byte{1}))

	ok, err = s.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_RetrieveReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Store(ctx, "k", []byte{1, 2, 3}))

	v, err := s.Retrieve(ctx, "k")
	require.NoError(t, err)
	v[0] = 0xFF

	again, err := s.Retrieve(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}
