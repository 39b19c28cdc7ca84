package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
)

func TestCacheRepository_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository(4)

	require.NoError(t, repo.Set(ctx, "k", []byte("v"), time.Minute))

	v, err := repo.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	ok, err := repo.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, "k"))
	_, err = repo.Get(ctx, "k")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
}

func TestCacheRepository_PerKeyExpiry(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository(4)
	now := time.Now()
	repo.now = func() time.Time { return now }

	require.NoError(t, repo.Set(ctx, "short", []byte("a"), time.Second))
	require.NoError(t, repo.Set(ctx, "long", []byte("b"), time.Hour))

	now = now.Add(2 * time.Second)

	_, err := repo.Get(ctx, "short")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	_, err = repo.Get(ctx, "long")
	assert.NoError(t, err)
}

func TestCacheRepository_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	repo := NewCacheRepository(2)

	require.NoError(t, repo.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, repo.Set(ctx, "b", []byte("2"), 0))
	_, _ = repo.Get(ctx, "a")
	require.NoError(t, repo.Set(ctx, "c", []byte("3"), 0))

	_, err := repo.Get(ctx, "b")
	assert.ErrorIs(t, err, outbound.ErrCacheMiss)
	for _, k := range []string{"a", "c"} {
		_, err := repo.Get(ctx, k)
		assert.NoError(t, err, fmt.Sprintf("key %s", k))
	}
	assert.Equal(t, 2, repo.Len())
}
