// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
	"github.com/craiclab/gigcat/internal/remotecache"
)

const soundcloudAPIBase = "https://api-v2.soundcloud.com"

// genreTokenSplitter breaks a profile's free-text fields into candidate
// genre tokens.
var genreTokenSplitter = regexp.MustCompile(`[\n,|/#;]+`)

// SoundCloudClient searches users on the audio platform. Profiles carry
// no structured genre field, so genres are mined heuristically from the
// free-text ones. An unconfigured client ID yields empty results rather
// than errors; the platform is strictly optional.
type SoundCloudClient struct {
	clientID string
	apiBase  string
	client   *http.Client
	cache    *remotecache.Cache[any]
	logger   zerolog.Logger
}

// NewSoundCloudClient builds the client.
func NewSoundCloudClient(cfg config.SoundCloudConfig, logger zerolog.Logger) *SoundCloudClient {
	return &SoundCloudClient{
		clientID: cfg.ClientID,
		apiBase:  soundcloudAPIBase,
		client:   &http.Client{Timeout: 10 * time.Second},
		cache:    remotecache.New[any]("soundcloud", cacheOptions(cfg.Cache), logger),
		logger:   logger.With().Str("client", "soundcloud").Logger(),
	}
}

// SearchUsers returns normalized users matching query. Without a client
// ID or with a blank query it returns nothing.
func (c *SoundCloudClient) SearchUsers(ctx context.Context, query string, limit int) ([]models.AudioUser, error) {
	if c.clientID == "" {
		return nil, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	limit = clampLimit(limit, 20, 50)
	key := fmt.Sprintf("users:%s:%d", normalizeQuery(query), limit)

	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.AudioUser, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("client_id", c.clientID)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("linked_partitioning", "1")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+"/search/users?"+params.Encode(), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, remotecache.NewUpstreamError("soundcloud", resp)
		}

		var body struct {
			Collection []scUser `json:"collection"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, err
		}

		out := make([]models.AudioUser, 0, len(body.Collection))
		for _, u := range body.Collection {
			name := firstNonEmptyString(u.FullName, u.Username)
			if name == "" {
				continue
			}
			out = append(out, models.AudioUser{
				Name:       name,
				Username:   u.Username,
				URL:        u.PermalinkURL,
				Image:      bestAvatar(u.AvatarURL),
				Genres:     extractGenreTokens(u.Genre, u.Description, u.TrackTags),
				Followers:  u.FollowersCount,
				Popularity: u.FollowersCount + u.LikesCount,
				Source:     "soundcloud",
			})
		}
		return out, nil
	})
}

type scUser struct {
	FullName       string `json:"full_name"`
	Username       string `json:"username"`
	PermalinkURL   string `json:"permalink_url"`
	AvatarURL      string `json:"avatar_url"`
	Genre          string `json:"genre"`
	Description    string `json:"description"`
	TrackTags      string `json:"track_tags"`
	FollowersCount int    `json:"followers_count"`
	LikesCount     int    `json:"likes_count"`
}

// bestAvatar upgrades the platform's default -large rendition to the
// 500px one when the URL follows the usual pattern.
func bestAvatar(avatarURL string) string {
	if avatarURL == "" {
		return ""
	}
	return strings.Replace(avatarURL, "-large.", "-t500x500.", 1)
}

// extractGenreTokens mines genre-like tokens from free-text profile
// fields: split on common separators, normalize, drop implausibly short
// or long tokens, dedupe, cap at eight.
func extractGenreTokens(fields ...string) []string {
	joined := strings.TrimSpace(strings.Join(fields, " "))
	if joined == "" {
		return []string{}
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, token := range genreTokenSplitter.Split(joined, -1) {
		token = strings.ToLower(strings.TrimSpace(token))
		if len(token) < 3 || len(token) > 40 {
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
		if len(out) == 8 {
			break
		}
	}
	return out
}
