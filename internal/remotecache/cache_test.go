// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package remotecache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func immediateRetry() Policy {
	return Policy{MaxAttempts: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func newTestCache(t *testing.T, opts Options) (*Cache[string], *time.Time) {
	t.Helper()
	c := New[string]("test", opts, zerolog.Nop())
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, &clock
}

func TestCache_CoalescesConcurrentLookups(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Minute, Retry: immediateRetry()})

	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "value", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(context.Background(), "artist:overmono", fetch)
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			if v != "value" {
				t.Errorf("Get = %q, want %q", v, "value")
			}
		}()
	}
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}
}

func TestCache_FreshHitSkipsUpstream(t *testing.T) {
	c, _ := newTestCache(t, Options{TTL: time.Minute, Retry: immediateRetry()})
	ctx := context.Background()

	var calls int
	fetch := func(ctx context.Context) (string, error) {
		calls++
		return "value", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := c.Get(ctx, "k", fetch); err != nil {
			t.Fatalf("Get #%d: %v", i, err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestCache_ServesStaleOnUpstreamFailure(t *testing.T) {
	c, clock := newTestCache(t, Options{
		TTL:        time.Minute,
		StaleGrace: 5 * time.Minute,
		Retry:      immediateRetry(),
	})
	ctx := context.Background()

	if _, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		return "cached", nil
	}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	// Past freshness, inside the grace window: the failed refetch must be
	// masked by the previous value.
	*clock = clock.Add(2 * time.Minute)
	v, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		return "", errors.New("upstream down")
	})
	if err != nil {
		t.Fatalf("Get inside grace window: %v", err)
	}
	if v != "cached" {
		t.Errorf("Get = %q, want stale %q", v, "cached")
	}

	// Past the grace window the error propagates.
	*clock = clock.Add(10 * time.Minute)
	if _, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		return "", errors.New("upstream down")
	}); err == nil {
		t.Error("expected error once the grace window passed")
	}
}

func TestCache_RateLimitContainment(t *testing.T) {
	c, clock := newTestCache(t, Options{TTL: time.Minute, Retry: immediateRetry()})
	ctx := context.Background()

	var calls int
	limited := func(ctx context.Context) (string, error) {
		calls++
		return "", &UpstreamError{Client: "test", StatusCode: http.StatusTooManyRequests, RetryAfter: 30 * time.Second}
	}

	v, err := c.Get(ctx, "k", limited)
	if err != nil {
		t.Fatalf("rate-limited Get must not error: %v", err)
	}
	if v != "" {
		t.Errorf("rate-limited Get = %q, want empty", v)
	}

	// Inside the provider's 30s window: served the sentinel, no new call.
	*clock = clock.Add(10 * time.Second)
	if _, err := c.Get(ctx, "k", limited); err != nil {
		t.Fatalf("sentinel Get: %v", err)
	}
	if calls != 1 {
		t.Fatalf("upstream calls inside backoff window = %d, want 1", calls)
	}

	// Past the window the upstream is tried again.
	*clock = clock.Add(25 * time.Second)
	if _, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "recovered", nil
	}); err != nil {
		t.Fatalf("Get after backoff: %v", err)
	}
	if calls != 2 {
		t.Errorf("upstream calls after backoff = %d, want 2", calls)
	}
}

func TestCache_RateLimitInsideGraceServesStale(t *testing.T) {
	c, clock := newTestCache(t, Options{
		TTL:        time.Minute,
		StaleGrace: 10 * time.Minute,
		Retry:      immediateRetry(),
	})
	ctx := context.Background()

	var calls int
	if _, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "good-data", nil
	}); err != nil {
		t.Fatalf("populate: %v", err)
	}

	// Past freshness but inside the grace window: a 429 must serve the
	// stale value, not clobber it with the empty sentinel.
	*clock = clock.Add(2 * time.Minute)
	limited := func(ctx context.Context) (string, error) {
		calls++
		return "", &UpstreamError{Client: "test", StatusCode: http.StatusTooManyRequests, RetryAfter: 30 * time.Second}
	}
	v, err := c.Get(ctx, "k", limited)
	if err != nil {
		t.Fatalf("rate-limited Get inside grace: %v", err)
	}
	if v != "good-data" {
		t.Errorf("Get = %q, want stale %q", v, "good-data")
	}

	// No sentinel was written: the next call goes back upstream and a
	// recovered provider refreshes the entry.
	v, err = c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		calls++
		return "refreshed", nil
	})
	if err != nil {
		t.Fatalf("Get after recovery: %v", err)
	}
	if v != "refreshed" {
		t.Errorf("Get = %q, want %q (stale entry must not become a sentinel)", v, "refreshed")
	}
	if calls != 3 {
		t.Errorf("upstream calls = %d, want 3", calls)
	}
}

func TestCache_RateLimitWithoutRetryAfterUsesDefaultBackoff(t *testing.T) {
	c, clock := newTestCache(t, Options{
		TTL:              time.Minute,
		RateLimitBackoff: 45 * time.Second,
		Retry:            immediateRetry(),
	})
	ctx := context.Background()

	var calls int
	limited := func(ctx context.Context) (string, error) {
		calls++
		return "", &UpstreamError{Client: "test", StatusCode: http.StatusTooManyRequests}
	}

	if _, err := c.Get(ctx, "k", limited); err != nil {
		t.Fatalf("rate-limited Get: %v", err)
	}
	*clock = clock.Add(40 * time.Second)
	if _, err := c.Get(ctx, "k", limited); err != nil {
		t.Fatalf("sentinel Get: %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1 inside the configured backoff", calls)
	}
}

func TestCache_SweepEvictsExpiredOverBudget(t *testing.T) {
	c, clock := newTestCache(t, Options{
		TTL:        time.Minute,
		MaxEntries: 2,
		Retry:      immediateRetry(),
	})
	ctx := context.Background()

	ok := func(ctx context.Context) (string, error) { return "v", nil }
	if _, err := c.Get(ctx, "a", ok); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "b", ok); err != nil {
		t.Fatal(err)
	}

	// Both entries pass their grace window; the next write is over budget
	// and triggers the sweep.
	*clock = clock.Add(3 * time.Minute)
	if _, err := c.Get(ctx, "c", ok); err != nil {
		t.Fatal(err)
	}

	if got := c.Len(); got != 1 {
		t.Errorf("entries after sweep = %d, want 1", got)
	}
}

func TestCache_SweepKeepsEntriesUnderBudget(t *testing.T) {
	c, clock := newTestCache(t, Options{
		TTL:        time.Minute,
		MaxEntries: 10,
		Retry:      immediateRetry(),
	})
	ctx := context.Background()

	ok := func(ctx context.Context) (string, error) { return "v", nil }
	if _, err := c.Get(ctx, "a", ok); err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(3 * time.Minute)
	if _, err := c.Get(ctx, "b", ok); err != nil {
		t.Fatal(err)
	}

	// Under budget: expired entries stay until the budget arms the sweep.
	if got := c.Len(); got != 2 {
		t.Errorf("entries = %d, want 2 (no sweep under budget)", got)
	}
}
