// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package remotecache is the resilient get-or-populate cache fronting
// every artist-metadata client: TTL freshness, a stale-serving grace
// window on upstream failure, in-flight request coalescing, rate-limit
// sentinels and a bounded retry policy. Each client constructs its own
// Cache instance; nothing here is process-global.
package remotecache

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/craiclab/gigcat/internal/metrics"
)

// FetchFunc loads the value for a key from the upstream provider.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Options tune one cache instance. Zero durations are replaced by
// conservative defaults in New.
type Options struct {
	// TTL is the freshness window after a successful fetch.
	TTL time.Duration
	// StaleGrace extends usability past TTL as an error fallback.
	StaleGrace time.Duration
	// RateLimitBackoff sizes the sentinel window after an upstream 429
	// that carried no Retry-After.
	RateLimitBackoff time.Duration
	// MaxEntries is the size budget that arms the lazy cleanup sweep.
	MaxEntries int
	// Retry bounds upstream attempts per fetch.
	Retry Policy
}

type entry[V any] struct {
	value      V
	expiresAt  time.Time
	staleUntil time.Time
	// sentinel marks a rate-limit placeholder holding an empty value.
	sentinel bool
}

// Cache is a single-process get-or-populate cache for one lookup client.
//
// Per-key state machine: Empty -> Fresh -> Stale -> Evicted. A fresh entry
// is served directly. A stale entry triggers a refetch and is served only
// if that refetch fails inside the grace window. Entries past their grace
// window are removed by a sweep triggered on writes once the cache
// exceeds its size budget.
type Cache[V any] struct {
	name   string
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*entry[V]

	group singleflight.Group
}

// New constructs a cache. name labels this instance's metrics and logs.
func New[V any](name string, opts Options, logger zerolog.Logger) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = 15 * time.Minute
	}
	if opts.StaleGrace < 0 {
		opts.StaleGrace = 0
	}
	if opts.RateLimitBackoff <= 0 {
		opts.RateLimitBackoff = time.Minute
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = DefaultPolicy()
	}
	return &Cache[V]{
		name:    name,
		opts:    opts,
		logger:  logger.With().Str("component", "remotecache").Str("cache", name).Logger(),
		now:     time.Now,
		entries: make(map[string]*entry[V]),
	}
}

// Get returns the cached value for key, fetching from upstream when no
// fresh entry exists. Concurrent calls for the same key share one
// in-flight fetch. On upstream failure a stale value inside the grace
// window is returned instead of the error; this includes rate limits.
// After an upstream rate limit with nothing stale to serve, the zero
// value is returned, and repeat callers inside the backoff window are
// served the same empty result without touching upstream.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	if v, ok := c.fresh(key); ok {
		metrics.CacheHits.WithLabelValues(c.name).Inc()
		return v, nil
	}
	metrics.CacheMisses.WithLabelValues(c.name).Inc()

	res, err, shared := c.group.Do(key, func() (any, error) {
		// A caller that queued behind the previous flight for this key
		// may find the entry already refreshed.
		if v, ok := c.fresh(key); ok {
			return v, nil
		}
		return c.populate(ctx, key, fetch)
	})
	if shared {
		metrics.CacheCoalesced.WithLabelValues(c.name).Inc()
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// fresh returns the entry value when it exists and is inside its
// freshness window. Sentinel entries report their empty value as fresh.
func (c *Cache[V]) fresh(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) populate(ctx context.Context, key string, fetch FetchFunc[V]) (V, error) {
	var value V
	err := c.opts.Retry.Do(ctx, c.name, func(ctx context.Context) error {
		v, err := fetch(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})

	if err == nil {
		c.store(key, value, c.opts.TTL, false)
		return value, nil
	}

	// A usable stale value beats both the error and the rate-limit
	// sentinel; the sentinel is written only when nothing is servable.
	if v, ok := c.staleValue(key); ok {
		metrics.CacheStaleServes.WithLabelValues(c.name).Inc()
		c.logger.Warn().Err(err).Str("key", key).Msg("Upstream fetch failed, serving stale value")
		return v, nil
	}

	if IsRateLimited(err) {
		backoff := RetryAfterOf(err)
		if backoff <= 0 {
			backoff = c.opts.RateLimitBackoff
		}
		var zero V
		c.store(key, zero, backoff, true)
		metrics.CacheRateLimitSentinels.WithLabelValues(c.name).Inc()
		c.logger.Warn().
			Str("key", key).
			Dur("backoff", backoff).
			Msg("Upstream rate limited, holding sentinel")
		return zero, nil
	}

	var zero V
	return zero, err
}

func (c *Cache[V]) staleValue(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.sentinel || !c.now().Before(e.staleUntil) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) store(key string, value V, ttl time.Duration, sentinel bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e := &entry[V]{
		value:     value,
		expiresAt: now.Add(ttl),
		sentinel:  sentinel,
	}
	if sentinel {
		// A sentinel is useless once its backoff lapses.
		e.staleUntil = e.expiresAt
	} else {
		e.staleUntil = e.expiresAt.Add(c.opts.StaleGrace)
	}
	c.entries[key] = e

	c.sweepLocked(now)
	metrics.CacheSize.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// sweepLocked removes entries past their grace window, but only once the
// cache is over its size budget. Requires c.mu held for writing.
func (c *Cache[V]) sweepLocked(now time.Time) {
	if len(c.entries) <= c.opts.MaxEntries {
		return
	}
	evicted := 0
	for key, e := range c.entries {
		if !now.Before(e.staleUntil) {
			delete(c.entries, key)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.CacheEvictions.WithLabelValues(c.name).Add(float64(evicted))
		c.logger.Debug().Int("evicted", evicted).Int("remaining", len(c.entries)).Msg("Cache sweep completed")
	}
}

// Len reports the current number of entries, sentinels included.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
