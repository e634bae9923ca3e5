// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package api provides the operational HTTP surface using the Chi router.
//
// The surface is deliberately thin: health and metrics endpoints, read
// access to the canonical event catalog, and the artist-metadata lookup
// endpoints backed by the resilient caches. The event search path fires
// the ingestion orchestrator's staleness check as a side effect, so a
// searched city that has gone stale is refreshed in the background
// without delaying the response.
//
// Lookup endpoints degrade rather than fail: an unreachable or
// unconfigured metadata provider yields an empty result, never a 5xx.
package api
