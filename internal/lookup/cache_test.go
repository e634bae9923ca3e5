// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package lookup

import (
	"testing"
	"time"

	"github.com/craiclab/gigcat/internal/config"
)

// testCacheConfig keeps retries single-shot so failing upstreams do not
// stall tests on backoff sleeps.
func testCacheConfig() config.CacheConfig {
	return config.CacheConfig{
		TTL:              time.Minute,
		StaleGrace:       time.Minute,
		RetryAttempts:    1,
		RateLimitBackoff: time.Minute,
		MaxEntries:       100,
	}
}

func TestNormalizeQuery(t *testing.T) {
	if got := normalizeQuery("  Bicep "); got != "bicep" {
		t.Fatalf("normalizeQuery = %q, want %q", got, "bicep")
	}
}

func TestClampLimit(t *testing.T) {
	cases := []struct {
		limit, fallback, max, want int
	}{
		{0, 20, 50, 20},
		{-3, 20, 50, 20},
		{10, 20, 50, 10},
		{80, 20, 50, 50},
	}
	for _, tc := range cases {
		if got := clampLimit(tc.limit, tc.fallback, tc.max); got != tc.want {
			t.Errorf("clampLimit(%d, %d, %d) = %d, want %d", tc.limit, tc.fallback, tc.max, got, tc.want)
		}
	}
}
