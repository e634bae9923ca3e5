// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package models defines the data structures shared across Gigcat: canonical
// catalog records, provider-independent candidate events, ingestion state and
// the normalized artist-metadata DTOs returned by the lookup clients.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// CanonicalEvent is the single merged event record surfaced to consumers,
// independent of originating provider.
//
// Identity is the dedupe key: exactly one row exists per distinct
// (normalized title, geo bucket, time bucket) triple. Listings from
// different providers that resolve to the same key share one row; on merge
// the most recent ingest wins, except that a provider omitting a field
// never blanks a value an earlier provider supplied.
type CanonicalEvent struct {
	ID          int64   `json:"id"`
	DedupeKey   string  `json:"dedupe_key"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`

	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	City      *string  `json:"city,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	VenueName *string  `json:"venue_name,omitempty"`

	TicketURL      *string  `json:"ticket_url,omitempty"`
	AgeRestriction *string  `json:"age_restriction,omitempty"`
	PriceMin       *float64 `json:"price_min,omitempty"`
	PriceMax       *float64 `json:"price_max,omitempty"`
	Currency       *string  `json:"currency,omitempty"`

	Genres []string     `json:"genres"`
	Tags   []string     `json:"tags"`
	Images []EventImage `json:"images"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EventImage is a provider-supplied promotional image.
type EventImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// SourceLink is the provenance record tying a canonical event back to one
// provider's native ID and raw payload.
//
// Identity is (Source, SourceID). Many links may reference one canonical
// event (cross-source merge). LastSeenAt is refreshed on every successful
// re-fetch and never rolled back.
type SourceLink struct {
	Source     string          `json:"source"`
	SourceID   string          `json:"source_id"`
	EventID    int64           `json:"event_id"`
	RawPayload json.RawMessage `json:"raw_payload"`
	LastSeenAt time.Time       `json:"last_seen_at"`
}

// IngestCursor records the last successful synchronization of one
// (source, city) pair. Created on first sync, overwritten on every
// subsequent run (including failed ones, so a bad window is never
// retry-looped), never deleted.
type IngestCursor struct {
	Source       string    `json:"source"`
	City         string    `json:"city"`
	LastSyncedAt time.Time `json:"last_synced_at"`
	WindowStart  time.Time `json:"window_start"`
	WindowEnd    time.Time `json:"window_end"`
}

// TimeWindow bounds one ingestion run.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CandidateEvent is the common shape every source adapter normalizes its
// provider-specific payload into, before canonicalization.
//
// Title and StartTime are the only required fields; candidates missing
// either are dropped silently (providers frequently emit placeholder rows).
type CandidateEvent struct {
	// SourceID is the provider's native identifier for this listing.
	SourceID string

	Title       string
	Description *string
	StartTime   time.Time
	EndTime     *time.Time

	City      *string
	Latitude  *float64
	Longitude *float64
	VenueName *string

	TicketURL      *string
	AgeRestriction *string
	PriceMin       *float64
	PriceMax       *float64
	Currency       *string

	Genres []string
	Tags   []string
	Images []EventImage

	// Raw is the untouched provider payload, retained on the SourceLink.
	Raw json.RawMessage
}

// Valid reports whether the candidate carries the minimum fields required
// for canonicalization.
func (c *CandidateEvent) Valid() bool {
	return c.Title != "" && !c.StartTime.IsZero()
}

// IngestOutcome is the per-source result of one ingestion run.
type IngestOutcome struct {
	Source  string `json:"source"`
	City    string `json:"city"`
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	Count   int    `json:"count"`
}

// EventFilter selects canonical events on the search path.
type EventFilter struct {
	City  string
	Genre string
	From  *time.Time
	To    *time.Time
	Limit int
}
