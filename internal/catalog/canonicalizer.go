// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package catalog implements the canonical event catalog: dedupe-key
// derivation, the canonicalizer that merges provider candidates into
// canonical rows, and the Postgres and in-memory stores behind it.
package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/models"
)

// ErrInvalidCandidate is returned for candidates missing a title or start
// time. Callers drop the record and continue the run.
var ErrInvalidCandidate = errors.New("catalog: candidate missing title or start time")

// Canonicalizer is the single write path into the canonical catalog.
// Every ingestion run for every source funnels its candidates through one
// Canonicalizer, which serializes upserts so that concurrent runs cannot
// interleave an event insert with its source-link insert.
type Canonicalizer struct {
	store  EventStore
	logger zerolog.Logger

	mu sync.Mutex
}

// NewCanonicalizer creates a canonicalizer writing through the given store.
func NewCanonicalizer(store EventStore, logger zerolog.Logger) *Canonicalizer {
	return &Canonicalizer{
		store:  store,
		logger: logger.With().Str("component", "canonicalizer").Logger(),
	}
}

// Ingest merges one provider candidate into the catalog and records its
// provenance link. Re-ingesting an unchanged candidate is a no-op beyond
// refreshing last_seen_at. Returns the canonical event row ID.
func (c *Canonicalizer) Ingest(ctx context.Context, source string, cand *models.CandidateEvent) (int64, error) {
	if !cand.Valid() {
		return 0, ErrInvalidCandidate
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UTC()
	ev := &models.CanonicalEvent{
		DedupeKey:      DedupeKey(cand.Title, cand.Latitude, cand.Longitude, cand.StartTime),
		Title:          cand.Title,
		Description:    cand.Description,
		StartTime:      cand.StartTime.UTC(),
		EndTime:        cand.EndTime,
		City:           cand.City,
		Latitude:       cand.Latitude,
		Longitude:      cand.Longitude,
		VenueName:      cand.VenueName,
		TicketURL:      cand.TicketURL,
		AgeRestriction: cand.AgeRestriction,
		PriceMin:       cand.PriceMin,
		PriceMax:       cand.PriceMax,
		Currency:       cand.Currency,
		Genres:         cand.Genres,
		Tags:           cand.Tags,
		Images:         cand.Images,
		UpdatedAt:      now,
	}

	id, err := c.store.UpsertEvent(ctx, ev)
	if err != nil {
		return 0, err
	}

	link := &models.SourceLink{
		Source:     source,
		SourceID:   cand.SourceID,
		EventID:    id,
		RawPayload: cand.Raw,
		LastSeenAt: now,
	}
	if err := c.store.UpsertSourceLink(ctx, link); err != nil {
		return 0, err
	}

	c.logger.Debug().
		Str("source", source).
		Str("source_id", cand.SourceID).
		Int64("event_id", id).
		Str("dedupe_key", ev.DedupeKey).
		Msg("Candidate canonicalized")

	return id, nil
}
