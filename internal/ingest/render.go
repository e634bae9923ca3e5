// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/craiclab/gigcat/internal/metrics"
)

// nextDataPattern extracts the Next.js embedded data block from raw HTML
// on the direct-fetch fallback path.
var nextDataPattern = regexp.MustCompile(`(?is)<script[^>]*id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

// RenderClient talks to the external render service, a headless-browser
// collaborator that loads a page and returns its embedded JSON data
// block. The service is the flakiest dependency in the system, so calls
// go through a circuit breaker, and an open breaker or failed render
// degrades to fetching the page directly and regex-extracting the block.
type RenderClient struct {
	renderURL string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[[]byte]
	logger    zerolog.Logger
}

// NewRenderClient builds a client for the render service at renderURL.
func NewRenderClient(renderURL string, timeout time.Duration, logger zerolog.Logger) *RenderClient {
	c := &RenderClient{
		renderURL: renderURL,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "render_client").Logger(),
	}
	settings := gobreaker.Settings{
		Name:    "render_service",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			c.logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Render breaker state change")
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](settings)
	return c
}

// Render returns the embedded JSON data block for targetURL, via the
// render service when healthy, else via direct fetch. A
// RenderUnavailableError means neither path produced the block.
func (c *RenderClient) Render(ctx context.Context, targetURL, userAgent string) ([]byte, error) {
	blob, err := c.breaker.Execute(func() ([]byte, error) {
		return c.renderRemote(ctx, targetURL, userAgent)
	})
	if err == nil {
		return blob, nil
	}
	c.logger.Warn().Err(err).Str("url", targetURL).Msg("Render service failed, trying direct fetch")

	blob, directErr := c.directFetch(ctx, targetURL, userAgent)
	if directErr != nil {
		return nil, &RenderUnavailableError{URL: targetURL, Reason: directErr.Error()}
	}
	return blob, nil
}

func (c *RenderClient) renderRemote(ctx context.Context, targetURL, userAgent string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"url": targetURL, "userAgent": userAgent})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.renderURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render service returned %d", resp.StatusCode)
	}

	var body struct {
		OK       bool   `json:"ok"`
		NextData string `json:"nextData"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if !body.OK || body.NextData == "" {
		return nil, fmt.Errorf("render service produced no data block: %s", body.Error)
	}
	return []byte(body.NextData), nil
}

func (c *RenderClient) directFetch(ctx context.Context, targetURL, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("direct fetch returned %d", resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	m := nextDataPattern.FindSubmatch(html)
	if m == nil || len(m[1]) == 0 {
		return nil, fmt.Errorf("no embedded data block in page")
	}
	return m[1], nil
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 2
	}
}
