// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/viccon/sturdyc"

	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/constants"
	"github.com/buivan/bestiary/pkg/normalize"
)

// Local tier sizing. The entity universe is small (low thousands), so a
// modest capacity with sharding for concurrent readers is plenty.
const (
	localCapacity           = 8192
	localShards             = 64
	localEvictionPercentage = 10
)

// CacheConfig holds the immutable cache topology settings passed to
// [NewCachedRepository] at construction.
type CacheConfig struct {
	// LocalTTL is the retention of the in-process tier.
	LocalTTL time.Duration

	// SharedTTL is the retention of the redis tier.
	SharedTTL time.Duration

	// FailsafeTTL is the retention of the stale copies that mask
	// persistent-store outages.
	FailsafeTTL time.Duration

	// SyncPopulateTimeout is how long a cache miss waits synchronously for
	// the inner repository before degrading to a fail-safe copy.
	SyncPopulateTimeout time.Duration

	// PopulateTimeout bounds the whole population call, including the part
	// that continues in the background after a fail-safe serve.
	PopulateTimeout time.Duration
}

// DefaultCacheConfig returns the production cache topology.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		LocalTTL:            30 * time.Minute,
		SharedTTL:           24 * time.Hour,
		FailsafeTTL:         7 * 24 * time.Hour,
		SyncPopulateTimeout: 100 * time.Millisecond,
		PopulateTimeout:     5 * time.Second,
	}
}

// SharedCache is the distributed tier contract, implemented over redis by
// [RedisCache]. A nil-byte result with a nil error is a miss.
type SharedCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Publish(ctx context.Context, channel, payload string) error

	// Listen blocks delivering payloads published on channel to handler
	// until ctx is cancelled.
	Listen(ctx context.Context, channel string, handler func(payload string))
}

// CachedRepository decorates an inner [Repository] with a two-tier cache:
// a fast in-process tier (sturdyc) and a shared redis tier, plus a long
// fail-safe retention window that serves stale data when the inner
// repository is unreachable.
//
// Cache entries are derived, never authoritative. Failures of the cache
// infrastructure itself are logged and degrade transparently to inner
// repository passthrough; callers never observe them as distinct errors.
type CachedRepository struct {
	inner  Repository
	local  *sturdyc.Client[*Entity]
	shared SharedCache
	cfg    CacheConfig
	logger *slog.Logger
}

func NewCachedRepository(inner Repository, shared SharedCache, cfg CacheConfig, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{
		inner:  inner,
		local:  sturdyc.New[*Entity](localCapacity, localShards, cfg.LocalTTL, localEvictionPercentage),
		shared: shared,
		cfg:    cfg,
		logger: logger,
	}
}

// Start launches the invalidation subscriber. Saves on other instances
// broadcast the normalized entity name; dropping the local entry keeps this
// instance from serving pre-update data past the broadcast (best-effort,
// eventual consistency).
func (r *CachedRepository) Start(ctx context.Context) {
	go r.shared.Listen(ctx, constants.RedisChannelEntityInvalidate, func(payload string) {
		r.local.Delete(nameKey(payload))
	})
}

func (r *CachedRepository) GetByName(ctx context.Context, name string) (*Entity, error) {
	// Blank names go straight to the inner repository for its validation error.
	if strings.TrimSpace(name) == "" {
		return r.inner.GetByName(ctx, name)
	}

	normalized := normalize.Name(name)
	key := nameKey(normalized)

	if cached, ok := r.local.Get(key); ok {
		cacheHitsTotal.WithLabelValues("local").Inc()
		return cached.Clone(), nil
	}

	cached, err := r.sharedGet(ctx, key)
	if err != nil {
		// The cache backend itself failed: fall back to the inner repository
		// for this call only.
		r.logger.Warn("shared_cache_read_failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return r.inner.GetByName(ctx, name)
	}
	if cached != nil {
		cacheHitsTotal.WithLabelValues("shared").Inc()
		// Promote to the faster tier.
		r.local.Set(key, cached)
		return cached.Clone(), nil
	}

	cacheMissesTotal.Inc()
	return r.populate(ctx, name, normalized, key)
}

func (r *CachedRepository) Save(ctx context.Context, e *Entity) (*Entity, error) {
	saved, err := r.inner.Save(ctx, e)
	if err != nil {
		return nil, err
	}

	// The durable write succeeded; invalidation failures are logged and
	// swallowed, never surfaced to the caller.
	r.invalidate(ctx, normalize.Name(saved.Name()))
	return saved, nil
}

// # Population

type populateResult struct {
	e   *Entity
	err error
}

// populate performs the read-through on a double miss. The inner call is
// detached from the caller's cancellation so it can finish filling the cache
// in the background when the sync budget elapses first.
func (r *CachedRepository) populate(ctx context.Context, name, normalized, key string) (*Entity, error) {
	resultCh := make(chan populateResult, 1)

	populateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PopulateTimeout)
	go func() {
		defer cancel()
		e, err := r.inner.GetByName(populateCtx, name)
		if err == nil {
			// Only successes are cached; a failed lookup is never stored.
			r.store(populateCtx, key, normalized, e)
		}
		resultCh <- populateResult{e: e, err: err}
	}()

	syncTimer := time.NewTimer(r.cfg.SyncPopulateTimeout)
	defer syncTimer.Stop()

	select {
	case res := <-resultCh:
		return r.resolve(ctx, normalized, res)

	case <-syncTimer.C:
		// Sync budget exhausted. Serve the fail-safe copy if one exists and
		// let population complete in the background; otherwise keep waiting.
		if stale := r.failsafeGet(ctx, normalized); stale != nil {
			failsafeServesTotal.Inc()
			r.logger.Warn("cache_population_slow_serving_failsafe",
				slog.String("entity", normalized))
			return stale.Clone(), nil
		}
		select {
		case res := <-resultCh:
			return r.resolve(ctx, normalized, res)
		case <-ctx.Done():
			return nil, ctx.Err()
		}

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolve maps a population outcome to the caller result. A persistence
// failure can still be masked by a fail-safe copy within its retention
// window; NOT_FOUND and validation errors pass through untouched.
func (r *CachedRepository) resolve(ctx context.Context, normalized string, res populateResult) (*Entity, error) {
	if res.err == nil {
		return res.e.Clone(), nil
	}

	if apperr.Is(res.err, apperr.CodePersistence) {
		if stale := r.failsafeGet(ctx, normalized); stale != nil {
			failsafeServesTotal.Inc()
			r.logger.Error("repository_unreachable_serving_failsafe",
				slog.String("entity", normalized),
				slog.Any("error", res.err),
			)
			return stale.Clone(), nil
		}
	}

	return nil, res.err
}

// store writes a freshly fetched entity to every tier with its respective
// retention. Tier write failures are logged and swallowed.
func (r *CachedRepository) store(ctx context.Context, key, normalized string, e *Entity) {
	r.local.Set(key, e.Clone())

	payload, err := json.Marshal(e)
	if err != nil {
		r.logger.Error("entity_cache_marshal_failed",
			slog.String("entity", normalized),
			slog.Any("error", err),
		)
		return
	}

	if err := r.shared.Set(ctx, key, payload, r.cfg.SharedTTL); err != nil {
		r.logger.Warn("shared_cache_write_failed", slog.String("key", key), slog.Any("error", err))
	}
	if err := r.shared.Set(ctx, failsafeKey(normalized), payload, r.cfg.FailsafeTTL); err != nil {
		r.logger.Warn("failsafe_cache_write_failed", slog.String("entity", normalized), slog.Any("error", err))
	}
}

// # Tier access

func (r *CachedRepository) sharedGet(ctx context.Context, key string) (*Entity, error) {
	data, err := r.shared.Get(ctx, key)
	if err != nil || data == nil {
		return nil, err
	}

	e := &Entity{}
	if err := json.Unmarshal(data, e); err != nil {
		// A corrupt entry behaves like a miss; the next population overwrites it.
		r.logger.Warn("shared_cache_entry_corrupt", slog.String("key", key), slog.Any("error", err))
		return nil, nil
	}
	return e, nil
}

func (r *CachedRepository) failsafeGet(ctx context.Context, normalized string) *Entity {
	data, err := r.shared.Get(ctx, failsafeKey(normalized))
	if err != nil || data == nil {
		return nil
	}

	e := &Entity{}
	if err := json.Unmarshal(data, e); err != nil {
		return nil
	}
	return e
}

func (r *CachedRepository) invalidate(ctx context.Context, normalized string) {
	key := nameKey(normalized)
	r.local.Delete(key)

	if err := r.shared.Del(ctx, key, failsafeKey(normalized)); err != nil {
		r.logger.Warn("cache_invalidation_failed",
			slog.String("entity", normalized),
			slog.Any("error", err),
		)
	}

	if err := r.shared.Publish(ctx, constants.RedisChannelEntityInvalidate, normalized); err != nil {
		r.logger.Warn("cache_invalidation_broadcast_failed",
			slog.String("entity", normalized),
			slog.Any("error", err),
		)
	}

	invalidationsTotal.Inc()
}

// # Keys

func nameKey(normalized string) string {
	return constants.RedisPrefixEntityName + normalized
}

func failsafeKey(normalized string) string {
	return constants.RedisPrefixEntityFailsafe + normalized
}
