package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/schoolwear/internal/repository"
)

var _ repository.KeyValueStore = (*KeyValueStore)(nil)

func TestKeyValueStore_GetMissing(t *testing.T) {
	s := NewKeyValueStore()
	v, found, err := s.Get(context.Background(), "cart_items")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, v)
}

func TestKeyValueStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewKeyValueStore()

	require.NoError(t, s.Set(ctx, "k", "v1"))
	require.NoError(t, s.Set(ctx, "k", "v2"))

	v, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Delete(ctx, "k"))
	require.NoError(t, s.Delete(ctx, "k"))
	_, found, _ = s.Get(ctx, "k")
	assert.False(t, found)
}

func TestKeyValueStore_Clear(t *testing.T) {
	ctx := context.Background()
	s := NewKeyValueStore()
	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))

	require.NoError(t, s.Clear(ctx))
	assert.Equal(t, 0, s.Len())
}

func TestKeyValueStore_FailWith(t *testing.T) {
	ctx := context.Background()
	s := NewKeyValueStore()
	boom := errors.New("disk full")
	s.FailWith(boom)

	assert.ErrorIs(t, s.Set(ctx, "k", "v"), boom)
	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, s.Ping(ctx), boom)

	s.FailWith(nil)
	assert.NoError(t, s.Set(ctx, "k", "v"))
}
