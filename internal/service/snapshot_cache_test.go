package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lawmon-api/internal/dto"
	"github.com/noah-isme/lawmon-api/internal/repository"
)

type brokenCacheRepo struct{ *stubCacheRepo }

func (brokenCacheRepo) DeleteByPattern(context.Context, string) error {
	return errors.New("redis down")
}

func (brokenCacheRepo) Counter(context.Context, string) (uint64, error) {
	return 0, errors.New("redis down")
}

func TestSnapshotCacheDropsWritesAfterInvalidation(t *testing.T) {
	repo := newStubCacheRepo()
	cache := NewSnapshotCache(SnapshotCacheParams{Repo: repo, Enabled: true})
	ctx := context.Background()

	generation, ok := cache.Generation(ctx)
	require.True(t, ok)
	require.NoError(t, cache.InvalidateAll(ctx))
	cache.Store(ctx, "2024-03-15", generation, &dto.DashboardSnapshot{TotalLaws: 1})
	_, hit := cache.Load(ctx, "2024-03-15")
	assert.False(t, hit, "snapshot computed before invalidation must not be cached")

	generation, ok = cache.Generation(ctx)
	require.True(t, ok)
	cache.Store(ctx, "2024-03-15", generation, &dto.DashboardSnapshot{TotalLaws: 2})
	cached, hit := cache.Load(ctx, "2024-03-15")
	require.True(t, hit)
	assert.Equal(t, 2, cached.TotalLaws)
	assert.Equal(t, []string{"dash:*"}, repo.invalidated)
}

func TestSnapshotCacheInvalidationFencesOtherInstances(t *testing.T) {
	shared := repository.NewMemoryCacheRepository(time.Minute, time.Minute)
	first := NewSnapshotCache(SnapshotCacheParams{Repo: shared, Enabled: true})
	second := NewSnapshotCache(SnapshotCacheParams{Repo: shared, Enabled: true})
	ctx := context.Background()

	generation, ok := first.Generation(ctx)
	require.True(t, ok)
	require.NoError(t, second.InvalidateAll(ctx))

	first.Store(ctx, "2024-03-15", generation, &dto.DashboardSnapshot{TotalLaws: 1})
	_, hit := second.Load(ctx, "2024-03-15")
	assert.False(t, hit, "write computed before another instance invalidated must be dropped")

	generation, ok = first.Generation(ctx)
	require.True(t, ok)
	first.Store(ctx, "2024-03-15", generation, &dto.DashboardSnapshot{TotalLaws: 2})
	cached, hit := second.Load(ctx, "2024-03-15")
	require.True(t, hit)
	assert.Equal(t, 2, cached.TotalLaws)
}

func TestSnapshotCacheDisabled(t *testing.T) {
	var nilCache *SnapshotCache
	assert.False(t, nilCache.Enabled())
	_, ok := nilCache.Generation(context.Background())
	assert.False(t, ok)
	_, hit := nilCache.Load(context.Background(), "2024-03-15")
	assert.False(t, hit)
	assert.NoError(t, nilCache.InvalidateAll(context.Background()))

	off := NewSnapshotCache(SnapshotCacheParams{Repo: newStubCacheRepo()})
	off.Store(context.Background(), "2024-03-15", 0, &dto.DashboardSnapshot{})
	_, hit = off.Load(context.Background(), "2024-03-15")
	assert.False(t, hit)
}

func TestSnapshotCacheBackendErrors(t *testing.T) {
	repo := brokenCacheRepo{newStubCacheRepo()}
	cache := NewSnapshotCache(SnapshotCacheParams{Repo: repo, Enabled: true})
	ctx := context.Background()

	err := cache.InvalidateAll(ctx)
	assert.ErrorContains(t, err, "redis down")
	assert.Equal(t, uint64(1), repo.counters["gen:dashboard"], "generation bumped even when the sweep fails")

	_, ok := cache.Generation(ctx)
	assert.False(t, ok)
}
