// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/craiclab/gigcat/internal/logging"
	"github.com/craiclab/gigcat/internal/models"
)

// Artist metadata is best-effort decoration on top of the catalog: an
// unreachable, rate-limited or unconfigured provider yields an empty
// result, never a 5xx. Failures are logged with the provider name.

// SearchArtists serves GET /api/v1/artists/search?q=...&limit=...
func (h *Handler) SearchArtists(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		rw.BadRequest("missing 'q' parameter")
		return
	}

	var profiles []models.ArtistProfile
	if h.artists != nil {
		var err error
		profiles, err = h.artists.SearchArtists(r.Context(), query, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "spotify").Msg("Artist search degraded to empty")
			profiles = nil
		}
	}
	if profiles == nil {
		profiles = []models.ArtistProfile{}
	}
	rw.SuccessWithCount(profiles, len(profiles))
}

// GetArtist serves GET /api/v1/artists/{id}. A lookup failure yields a
// null payload rather than an error.
func (h *Handler) GetArtist(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	artistID := chi.URLParam(r, "id")

	if h.artists == nil || !h.artists.Enabled() {
		rw.Success(nil)
		return
	}
	profile, err := h.artists.GetArtist(r.Context(), artistID)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "spotify").Msg("Artist lookup degraded to null")
		rw.Success(nil)
		return
	}
	rw.Success(profile)
}

// GetRelatedArtists serves GET /api/v1/artists/{id}/related.
func (h *Handler) GetRelatedArtists(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	artistID := chi.URLParam(r, "id")

	var profiles []models.ArtistProfile
	if h.artists != nil {
		var err error
		profiles, err = h.artists.GetRelatedArtists(r.Context(), artistID, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "spotify").Msg("Related artists degraded to empty")
			profiles = nil
		}
	}
	if profiles == nil {
		profiles = []models.ArtistProfile{}
	}
	rw.SuccessWithCount(profiles, len(profiles))
}

// GetTopTracks serves GET /api/v1/artists/{id}/top-tracks?market=...
func (h *Handler) GetTopTracks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	artistID := chi.URLParam(r, "id")

	var tracks []models.TopTrack
	if h.artists != nil {
		var err error
		tracks, err = h.artists.GetTopTracks(r.Context(), artistID, r.URL.Query().Get("market"))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "spotify").Msg("Top tracks degraded to empty")
			tracks = nil
		}
	}
	if tracks == nil {
		tracks = []models.TopTrack{}
	}
	rw.SuccessWithCount(tracks, len(tracks))
}

// SearchDJs serves GET /api/v1/djs/search?q=...
func (h *Handler) SearchDJs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		rw.BadRequest("missing 'q' parameter")
		return
	}

	var djs []models.DJProfile
	if h.djs != nil {
		var err error
		djs, err = h.djs.SearchDJs(r.Context(), query, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "mixcloud").Msg("DJ search degraded to empty")
			djs = nil
		}
	}
	if djs == nil {
		djs = []models.DJProfile{}
	}
	rw.SuccessWithCount(djs, len(djs))
}

// DiscoverDJs serves GET /api/v1/djs/discover?genre=...
func (h *Handler) DiscoverDJs(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	genre := strings.TrimSpace(r.URL.Query().Get("genre"))
	if genre == "" {
		rw.BadRequest("missing 'genre' parameter")
		return
	}

	var djs []models.DiscoveredDJ
	if h.djs != nil {
		var err error
		djs, err = h.djs.DiscoverDJsByGenre(r.Context(), genre, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "mixcloud").Msg("DJ discovery degraded to empty")
			djs = nil
		}
	}
	if djs == nil {
		djs = []models.DiscoveredDJ{}
	}
	rw.SuccessWithCount(djs, len(djs))
}

// GetDJProfile serves GET /api/v1/djs/{username}.
func (h *Handler) GetDJProfile(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	username := chi.URLParam(r, "username")

	if h.djs == nil {
		rw.Success(nil)
		return
	}
	profile, err := h.djs.GetDJProfile(r.Context(), username)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "mixcloud").Msg("DJ profile degraded to null")
		rw.Success(nil)
		return
	}
	rw.Success(profile)
}

// GetDJCloudcasts serves GET /api/v1/djs/{username}/cloudcasts.
func (h *Handler) GetDJCloudcasts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	username := chi.URLParam(r, "username")

	var casts []models.Cloudcast
	if h.djs != nil {
		var err error
		casts, err = h.djs.GetDJCloudcasts(r.Context(), username, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "mixcloud").Msg("Cloudcasts degraded to empty")
			casts = nil
		}
	}
	if casts == nil {
		casts = []models.Cloudcast{}
	}
	rw.SuccessWithCount(casts, len(casts))
}

// SearchAudioUsers serves GET /api/v1/audio/search?q=...
func (h *Handler) SearchAudioUsers(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		rw.BadRequest("missing 'q' parameter")
		return
	}

	var users []models.AudioUser
	if h.audio != nil {
		var err error
		users, err = h.audio.SearchUsers(r.Context(), query, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "soundcloud").Msg("Audio user search degraded to empty")
			users = nil
		}
	}
	if users == nil {
		users = []models.AudioUser{}
	}
	rw.SuccessWithCount(users, len(users))
}

// SearchChannels serves GET /api/v1/channels/search?q=...
func (h *Handler) SearchChannels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		rw.BadRequest("missing 'q' parameter")
		return
	}

	var channels []models.VideoChannel
	if h.channels != nil {
		var err error
		channels, err = h.channels.SearchChannels(r.Context(), query, queryLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("provider", "youtube").Msg("Channel search degraded to empty")
			channels = nil
		}
	}
	if channels == nil {
		channels = []models.VideoChannel{}
	}
	rw.SuccessWithCount(channels, len(channels))
}
