// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package lookup implements the auxiliary artist-metadata clients:
// streaming-platform artist search (Spotify), mix-platform DJ profiles and
// genre discovery (Mixcloud), audio-platform user search (SoundCloud) and
// video-platform channel search with latest-video enrichment (YouTube).
//
// Every client fronts its upstream with its own remotecache instance, so
// all four share the same resilience behavior: TTL caching, request
// coalescing, stale serving on upstream failure and rate-limit sentinels.
// Callers receive normalized DTOs from internal/models, never provider
// wire formats.
package lookup
