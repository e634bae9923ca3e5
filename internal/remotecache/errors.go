// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package remotecache

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ErrMissingCredential marks a client whose upstream credential is not
// configured. Callers skip the lookup rather than treating it as a failure.
var ErrMissingCredential = errors.New("remotecache: upstream credential not configured")

// UpstreamError is a non-2xx response from a remote provider.
type UpstreamError struct {
	Client     string
	StatusCode int
	// RetryAfter is the provider-supplied retry delay, zero when the
	// response carried none.
	RetryAfter time.Duration
}

func (e *UpstreamError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s upstream returned %d (retry after %s)", e.Client, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("%s upstream returned %d", e.Client, e.StatusCode)
}

// NewUpstreamError builds an UpstreamError from a response, capturing the
// Retry-After header when the provider sent one.
func NewUpstreamError(client string, resp *http.Response) *UpstreamError {
	return &UpstreamError{
		Client:     client,
		StatusCode: resp.StatusCode,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusTooManyRequests
}

// IsTransient reports whether err is worth retrying: an upstream 429 or
// 5xx, or a network-level failure (connection reset, timeout, refused).
func IsTransient(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.StatusCode == http.StatusTooManyRequests || ue.StatusCode >= 500
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}

// RetryAfterOf extracts the provider-supplied retry delay from err, or
// zero when err carries none.
func RetryAfterOf(err error) time.Duration {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.RetryAfter
	}
	return 0
}

// ParseRetryAfter interprets a Retry-After header value, either an
// integer number of seconds or an HTTP-date. Unparseable or empty values
// yield zero.
func ParseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		d := time.Until(at)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}
