package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// MemoryCacheRepository caches JSON payloads in process, honouring the Redis repository contract.
type MemoryCacheRepository struct {
	store *gocache.Cache
	// mu orders counter updates against conditional writes.
	mu sync.Mutex
}

// NewMemoryCacheRepository constructs an in-process cache with the given expiry defaults.
func NewMemoryCacheRepository(defaultTTL, cleanupInterval time.Duration) *MemoryCacheRepository {
	return &MemoryCacheRepository{store: gocache.New(defaultTTL, cleanupInterval)}
}

// Get unmarshals the cached value into dest.
func (r *MemoryCacheRepository) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := r.store.Get(key)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	payload, ok := raw.([]byte)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

// Set stores the JSON encoding of value.
func (r *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}
	r.store.Set(key, payload, ttl)
	return nil
}

// DeleteByPattern removes keys matching a glob pattern such as "dash:*".
func (r *MemoryCacheRepository) DeleteByPattern(_ context.Context, pattern string) error {
	for key := range r.store.Items() {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return fmt.Errorf("match cache pattern %s: %w", pattern, err)
		}
		if matched {
			r.store.Delete(key)
		}
	}
	return nil
}

// Counter reads an integer key written by Incr. A missing key reads as zero.
func (r *MemoryCacheRepository) Counter(_ context.Context, key string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counter(key), nil
}

// Incr increments an integer key that never expires.
func (r *MemoryCacheRepository) Incr(_ context.Context, key string) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.counter(key) + 1
	r.store.Set(key, n, gocache.NoExpiration)
	return n, nil
}

// SetIfCounter stores value only while counterKey still equals expected.
func (r *MemoryCacheRepository) SetIfCounter(ctx context.Context, key string, value interface{}, ttl time.Duration, counterKey string, expected uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counter(counterKey) != expected {
		return false, nil
	}
	if err := r.Set(ctx, key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (r *MemoryCacheRepository) counter(key string) uint64 {
	raw, ok := r.store.Get(key)
	if !ok {
		return 0
	}
	n, _ := raw.(uint64)
	return n
}
