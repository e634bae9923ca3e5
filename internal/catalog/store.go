// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package catalog

import (
	"context"

	"github.com/craiclab/gigcat/internal/models"
)

// EventStore is the persistence boundary for the canonical catalog.
// Implementations must make UpsertEvent idempotent on the dedupe key and
// UpsertSourceLink idempotent on (source, source_id).
type EventStore interface {
	// UpsertEvent inserts the event, or overwrites the descriptive
	// fields of the existing row with the same dedupe key (last writer
	// wins, nulls included), returning the canonical row ID.
	UpsertEvent(ctx context.Context, ev *models.CanonicalEvent) (int64, error)

	// UpsertSourceLink records that a provider listing maps to a
	// canonical event, refreshing last_seen_at and the raw payload on
	// repeat sightings.
	UpsertSourceLink(ctx context.Context, link *models.SourceLink) error

	// GetCursor returns the ingestion cursor for a (source, city) pair,
	// or nil when the pair has never been synced.
	GetCursor(ctx context.Context, source, city string) (*models.IngestCursor, error)

	// UpsertCursor records run completion for a (source, city) pair.
	UpsertCursor(ctx context.Context, cur *models.IngestCursor) error

	// SearchEvents returns canonical events matching the filter, ordered
	// by start time ascending.
	SearchEvents(ctx context.Context, filter models.EventFilter) ([]models.CanonicalEvent, error)

	// GetEvent returns a single canonical event by row ID, or nil when
	// no such row exists.
	GetEvent(ctx context.Context, id int64) (*models.CanonicalEvent, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close()
}
