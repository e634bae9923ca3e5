// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/catalog"
	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/metrics"
	"github.com/craiclab/gigcat/internal/models"
)

// Run outcome labels.
const (
	outcomeOK      = "ok"
	outcomeSkipped = "skipped"
	outcomeError   = "error"
)

// resyncTimeout bounds a background run triggered off the search path.
const resyncTimeout = 5 * time.Minute

// Orchestrator decides when each (source, city) pair needs a resync and
// drives the page loop for each source adapter, funneling candidates
// through the canonicalizer.
//
// Concurrent resync triggers for the same (source, city) are collapsed by
// a process-local pending set: the second trigger is a no-op, it does not
// wait for or attach to the running one. Different pairs run freely in
// parallel; the canonicalizer serializes the actual writes.
type Orchestrator struct {
	store    catalog.EventStore
	canon    *catalog.Canonicalizer
	adapters []SourceAdapter
	cfg      config.IngestConfig
	logger   zerolog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewOrchestrator wires the orchestrator over a store, canonicalizer and
// the configured source adapters.
func NewOrchestrator(store catalog.EventStore, canon *catalog.Canonicalizer, adapters []SourceAdapter, cfg config.IngestConfig, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		canon:    canon,
		adapters: adapters,
		cfg:      cfg,
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		now:      time.Now,
		pending:  make(map[string]struct{}),
	}
}

// MaybeResync is the fire-and-forget hook for the search path: for every
// source whose cursor for city is older than the staleness threshold (or
// missing), it starts a background run. It never blocks the caller and
// never returns an error; a trigger that finds a run already in flight
// for the same (source, city) is a no-op.
func (o *Orchestrator) MaybeResync(city string) {
	if !o.cfg.Enabled {
		return
	}
	if city == "" {
		city = o.cfg.DefaultCity
	}
	for _, adapter := range o.adapters {
		if !adapter.Enabled() {
			continue
		}
		if !o.acquire(adapter.Name(), city) {
			metrics.ResyncSkippedInFlight.WithLabelValues(adapter.Name()).Inc()
			continue
		}
		go func(a SourceAdapter) {
			defer o.release(a.Name(), city)

			ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
			defer cancel()

			due, err := o.resyncDue(ctx, a.Name(), city)
			if err != nil {
				o.logger.Error().Err(err).Str("source", a.Name()).Str("city", city).Msg("Cursor lookup failed")
				return
			}
			if !due {
				return
			}
			o.runLocked(ctx, a, city)
		}(adapter)
	}
}

// RunAll synchronously runs every enabled source for a city, for the
// periodic sweeper and operational triggers. Sources already in flight
// are skipped. One source's failure never stops the others.
func (o *Orchestrator) RunAll(ctx context.Context, city string) []models.IngestOutcome {
	if city == "" {
		city = o.cfg.DefaultCity
	}
	outcomes := make([]models.IngestOutcome, 0, len(o.adapters))
	for _, adapter := range o.adapters {
		if !o.acquire(adapter.Name(), city) {
			metrics.ResyncSkippedInFlight.WithLabelValues(adapter.Name()).Inc()
			outcomes = append(outcomes, models.IngestOutcome{
				Source: adapter.Name(), City: city, Skipped: true, Reason: "already_in_flight",
			})
			continue
		}
		outcome := o.runLocked(ctx, adapter, city)
		o.release(adapter.Name(), city)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// resyncDue reports whether (source, city) has no cursor or one older
// than the staleness threshold.
func (o *Orchestrator) resyncDue(ctx context.Context, source, city string) (bool, error) {
	cur, err := o.store.GetCursor(ctx, source, city)
	if err != nil {
		return false, err
	}
	if cur == nil {
		return true, nil
	}
	return o.now().Sub(cur.LastSyncedAt) > o.cfg.StalenessThreshold, nil
}

// runLocked executes one run for a source the caller has already
// acquired the pending slot for.
func (o *Orchestrator) runLocked(ctx context.Context, adapter SourceAdapter, city string) models.IngestOutcome {
	source := adapter.Name()
	start := o.now()
	runID := uuid.NewString()
	logger := o.logger.With().Str("run_id", runID).Str("source", source).Str("city", city).Logger()

	if !adapter.Enabled() {
		logger.Info().Str("reason", adapter.SkipReason()).Msg("Source skipped")
		metrics.ObserveIngestRun(source, outcomeSkipped, 0, start)
		return models.IngestOutcome{Source: source, City: city, Skipped: true, Reason: adapter.SkipReason()}
	}

	window := models.TimeWindow{
		Start: start,
		End:   start.AddDate(0, 0, o.cfg.WindowDays),
	}
	logger.Info().Time("window_end", window.End).Msg("Ingestion run started")

	outcome := o.runPages(ctx, adapter, city, window, logger)

	// The cursor advances whatever happened, so a permanently broken
	// window is never retry-looped.
	if err := o.store.UpsertCursor(ctx, &models.IngestCursor{
		Source:       source,
		City:         city,
		LastSyncedAt: o.now(),
		WindowStart:  window.Start,
		WindowEnd:    window.End,
	}); err != nil {
		logger.Error().Err(err).Msg("Cursor update failed")
	}

	switch {
	case outcome.Skipped:
		metrics.ObserveIngestRun(source, outcomeSkipped, outcome.Count, start)
	case outcome.Reason != "":
		metrics.ObserveIngestRun(source, outcomeError, outcome.Count, start)
	default:
		metrics.ObserveIngestRun(source, outcomeOK, outcome.Count, start)
	}
	logger.Info().
		Bool("skipped", outcome.Skipped).
		Str("reason", outcome.Reason).
		Int("count", outcome.Count).
		Dur("duration", o.now().Sub(start)).
		Msg("Ingestion run finished")
	return outcome
}

func (o *Orchestrator) runPages(ctx context.Context, adapter SourceAdapter, city string, window models.TimeWindow, logger zerolog.Logger) models.IngestOutcome {
	source := adapter.Name()
	outcome := models.IngestOutcome{Source: source, City: city}

	token := ""
	maxPages := o.cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 5
	}

	for pageNum := 0; pageNum < maxPages; pageNum++ {
		page, err := adapter.FetchPage(ctx, city, window, token)
		if err != nil {
			if IsRenderUnavailable(err) {
				logger.Warn().Err(err).Msg("Render collaborator unavailable, skipping source")
				outcome.Skipped = true
				outcome.Reason = ReasonRenderUnavailable
				return outcome
			}
			logger.Error().Err(err).Int("page", pageNum).Msg("Page fetch failed")
			outcome.Reason = fetchFailureReason(err)
			return outcome
		}
		metrics.IngestPagesTotal.WithLabelValues(source).Inc()

		for i := range page.Candidates {
			cand := &page.Candidates[i]
			if _, err := o.canon.Ingest(ctx, source, cand); err != nil {
				if errors.Is(err, catalog.ErrInvalidCandidate) {
					metrics.IngestDroppedTotal.WithLabelValues(source).Inc()
					continue
				}
				// A store failure is not recoverable within the run.
				logger.Error().Err(err).Str("source_id", cand.SourceID).Msg("Canonicalization failed")
				outcome.Reason = "store_error"
				return outcome
			}
			outcome.Count++
		}

		if !page.HasMore {
			break
		}
		token = page.NextToken
	}
	return outcome
}

func fetchFailureReason(err error) string {
	switch {
	case IsPermanent(err):
		return "provider_rejected"
	default:
		return "provider_unreachable"
	}
}

func (o *Orchestrator) acquire(source, city string) bool {
	key := source + "|" + city
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, inFlight := o.pending[key]; inFlight {
		return false
	}
	o.pending[key] = struct{}{}
	return true
}

func (o *Orchestrator) release(source, city string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, source+"|"+city)
}
