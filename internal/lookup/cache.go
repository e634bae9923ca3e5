// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package lookup

import (
	"context"
	"strings"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/remotecache"
)

// Each client keeps one cache map holding every value shape it returns,
// keyed by method and query. cached restores the static type on the way
// out; a nil value is the rate-limit sentinel and yields the zero value.
func cached[T any](ctx context.Context, c *remotecache.Cache[any], key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.Get(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	var zero T
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, nil
	}
	return t, nil
}

// cacheOptions maps client cache configuration onto remotecache options.
func cacheOptions(cfg config.CacheConfig) remotecache.Options {
	opts := remotecache.Options{
		TTL:              cfg.TTL,
		StaleGrace:       cfg.StaleGrace,
		RateLimitBackoff: cfg.RateLimitBackoff,
		MaxEntries:       cfg.MaxEntries,
	}
	if cfg.RetryAttempts > 0 {
		opts.Retry = remotecache.DefaultPolicy()
		opts.Retry.MaxAttempts = cfg.RetryAttempts
	}
	return opts
}

// normalizeQuery lowercases and trims a query for use in cache keys, so
// "Bicep " and "bicep" share one entry.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// clampLimit bounds a caller-supplied result limit.
func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
