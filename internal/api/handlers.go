// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package api

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/craiclab/gigcat/internal/catalog"
	"github.com/craiclab/gigcat/internal/models"
)

// Resyncer triggers background ingestion for a city when its cursors have
// gone stale. MaybeResync must return immediately; the orchestrator runs
// the actual sync off the request path.
type Resyncer interface {
	MaybeResync(city string)
}

// ArtistSource is the streaming-platform metadata client.
type ArtistSource interface {
	Enabled() bool
	SearchArtists(ctx context.Context, query string, limit int) ([]models.ArtistProfile, error)
	GetArtist(ctx context.Context, artistID string) (models.ArtistProfile, error)
	GetRelatedArtists(ctx context.Context, artistID string, limit int) ([]models.ArtistProfile, error)
	GetTopTracks(ctx context.Context, artistID, market string) ([]models.TopTrack, error)
}

// DJSource is the mix-platform metadata client.
type DJSource interface {
	SearchDJs(ctx context.Context, query string, limit int) ([]models.DJProfile, error)
	GetDJProfile(ctx context.Context, username string) (models.DJProfile, error)
	GetDJCloudcasts(ctx context.Context, username string, limit int) ([]models.Cloudcast, error)
	DiscoverDJsByGenre(ctx context.Context, genre string, limit int) ([]models.DiscoveredDJ, error)
}

// AudioSource is the audio-platform metadata client.
type AudioSource interface {
	SearchUsers(ctx context.Context, query string, limit int) ([]models.AudioUser, error)
}

// ChannelSource is the video-platform metadata client.
type ChannelSource interface {
	SearchChannels(ctx context.Context, query string, limit int) ([]models.VideoChannel, error)
}

// Handler carries the dependencies shared by all HTTP handlers.
type Handler struct {
	store    catalog.EventStore
	resyncer Resyncer

	artists  ArtistSource
	djs      DJSource
	audio    AudioSource
	channels ChannelSource
}

// NewHandler creates the handler set. Any lookup source may be nil; its
// endpoints then always return empty results.
func NewHandler(store catalog.EventStore, resyncer Resyncer, artists ArtistSource, djs DJSource, audio AudioSource, channels ChannelSource) *Handler {
	return &Handler{
		store:    store,
		resyncer: resyncer,
		artists:  artists,
		djs:      djs,
		audio:    audio,
		channels: channels,
	}
}

// queryLimit parses a limit query parameter, zero when absent or invalid.
// Downstream callers apply their own clamping.
func queryLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// queryTime parses an RFC3339 query parameter; nil when absent.
func queryTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
