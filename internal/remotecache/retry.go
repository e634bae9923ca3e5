// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package remotecache

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/craiclab/gigcat/internal/metrics"
)

// Policy is a bounded retry strategy for transient upstream failures.
// Delay selection prefers a provider-supplied Retry-After, otherwise an
// exponential function of the attempt count capped at MaxDelay, plus a
// small random jitter so concurrent callers do not retry in lockstep.
type Policy struct {
	// MaxAttempts is the total number of tries including the first.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff before jitter.
	MaxDelay time.Duration
	// JitterFraction adds up to this fraction of the delay at random.
	JitterFraction float64
}

// DefaultPolicy mirrors the retry behavior the lookup clients ship with.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      500 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		JitterFraction: 0.2,
	}
}

// Delay computes the wait before retry number attempt (0-based count of
// failures so far). A positive retryAfter from the provider wins outright.
func (p Policy) Delay(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := p.BaseDelay << uint(attempt)
	if d > p.MaxDelay || d <= 0 {
		d = p.MaxDelay
	}
	if p.JitterFraction > 0 {
		d += time.Duration(rand.Float64() * p.JitterFraction * float64(d))
	}
	return d
}

// Do runs fn until it succeeds, exhausts MaxAttempts, hits a
// non-transient error, or ctx is done. The last error is returned.
func (p Policy) Do(ctx context.Context, client string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			metrics.UpstreamRetries.WithLabelValues(client).Inc()
			select {
			case <-time.After(p.Delay(attempt-1, RetryAfterOf(err))):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return err
		}
	}
	return err
}
