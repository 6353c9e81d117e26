package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lawmon-api/internal/dto"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

const (
	snapshotKeyPrefix = "dash:snapshot:"
	// snapshotPattern matches every cached dashboard snapshot.
	snapshotPattern = "dash:*"
	// generationKey lives outside snapshotPattern so invalidation never resets it.
	generationKey = "gen:dashboard"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
	Counter(ctx context.Context, key string) (uint64, error)
	Incr(ctx context.Context, key string) (uint64, error)
	SetIfCounter(ctx context.Context, key string, value interface{}, ttl time.Duration, counterKey string, expected uint64) (bool, error)
}

// SnapshotCacheParams groups constructor dependencies.
type SnapshotCacheParams struct {
	Repo    CacheRepository
	Metrics *MetricsService
	Logger  *zap.Logger
	TTL     time.Duration
	Enabled bool
}

// SnapshotCache stores dashboard snapshots keyed by reference day.
// Writes carry the generation observed before computing and are dropped when an
// invalidation happened in between. The generation lives in the cache backend,
// so an invalidation by one instance also fences writes from the others.
type SnapshotCache struct {
	repo    CacheRepository
	metrics *MetricsService
	logger  *zap.Logger
	ttl     time.Duration
	enabled bool
}

// NewSnapshotCache constructs the cache. A nil repository disables it.
func NewSnapshotCache(params SnapshotCacheParams) *SnapshotCache {
	ttl := params.TTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotCache{
		repo:    params.Repo,
		metrics: params.Metrics,
		logger:  logger,
		ttl:     ttl,
		enabled: params.Enabled,
	}
}

// Enabled indicates whether caching is active.
func (c *SnapshotCache) Enabled() bool {
	return c != nil && c.enabled && c.repo != nil
}

// Generation returns the invalidation counter to pass to Store. ok is false when
// caching is off or the counter cannot be read, in which case nothing should be stored.
func (c *SnapshotCache) Generation(ctx context.Context) (uint64, bool) {
	if !c.Enabled() {
		return 0, false
	}
	generation, err := c.repo.Counter(ctx, generationKey)
	if err != nil {
		c.logger.Warn("dashboard cache generation unavailable, skipping write", zap.Error(err))
		return 0, false
	}
	return generation, true
}

// Load returns the snapshot cached for day. Read failures count as a miss.
func (c *SnapshotCache) Load(ctx context.Context, day string) (*dto.DashboardSnapshot, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := snapshotKeyPrefix + day
	start := time.Now()
	var cached dto.DashboardSnapshot
	err := c.repo.Get(ctx, key, &cached)
	c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("dashboard cache read failed, recomputing", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return &cached, true
}

// Store caches snapshot for day unless the cache was invalidated after generation was read.
func (c *SnapshotCache) Store(ctx context.Context, day string, generation uint64, snapshot *dto.DashboardSnapshot) {
	if !c.Enabled() || snapshot == nil {
		return
	}
	key := snapshotKeyPrefix + day
	start := time.Now()
	stored, err := c.repo.SetIfCounter(ctx, key, snapshot, c.ttl, generationKey, generation)
	c.metrics.ObserveCacheWrite(time.Since(start))
	switch {
	case err != nil:
		c.logger.Warn("dashboard cache write failed", zap.String("key", key), zap.Error(err))
	case !stored:
		c.logger.Debug("dropping stale dashboard snapshot", zap.String("key", key), zap.Uint64("generation", generation))
	}
}

// InvalidateAll drops every cached snapshot.
func (c *SnapshotCache) InvalidateAll(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	var errs []error
	if _, err := c.repo.Incr(ctx, generationKey); err != nil {
		errs = append(errs, fmt.Errorf("bump %s: %w", generationKey, err))
	}
	if err := c.repo.DeleteByPattern(ctx, snapshotPattern); err != nil {
		errs = append(errs, fmt.Errorf("invalidate %s: %w", snapshotPattern, err))
	}
	return errors.Join(errs...)
}
