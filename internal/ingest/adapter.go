// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package ingest pulls event listings from the upstream providers and
// funnels them through the canonicalizer: one SourceAdapter per provider,
// an Orchestrator that decides when each (source, city) pair is stale
// enough to resync, and a periodic sweeper that does the same proactively.
package ingest

import (
	"context"

	"github.com/craiclab/gigcat/internal/models"
)

// Source names as recorded on provenance rows and cursors.
const (
	SourceTicketmaster = "ticketmaster"
	SourceEventbrite   = "eventbrite"
	SourceXRaves       = "xraves"
)

// Page is one provider page of normalized candidates.
type Page struct {
	Candidates []models.CandidateEvent
	// HasMore reports whether the provider claims further pages. The
	// orchestrator still caps the page count regardless.
	HasMore bool
	// NextToken is the opaque provider-specific continuation token to
	// pass to the next FetchPage call.
	NextToken string
}

// SourceAdapter maps one provider's API onto the common candidate shape.
// Adapters own their HTTP specifics (auth, rate limiting, payload
// decoding); they never touch the store.
type SourceAdapter interface {
	// Name is the stable source identifier.
	Name() string

	// Enabled reports whether the provider credential is configured.
	// Disabled sources are skipped, not failed.
	Enabled() bool

	// SkipReason is the outcome reason reported when Enabled is false.
	SkipReason() string

	// FetchPage fetches one page of candidates for a city inside the
	// time window. An empty token requests the first page.
	FetchPage(ctx context.Context, city string, window models.TimeWindow, token string) (*Page, error)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
