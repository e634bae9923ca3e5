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
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
	"github.com/craiclab/gigcat/internal/remotecache"
)

const mixcloudAPIBase = "https://api.mixcloud.com"

// MixcloudClient looks up DJ profiles and mixes on the mix platform. The
// API is unauthenticated, so the client is always enabled.
type MixcloudClient struct {
	apiBase string
	client  *http.Client
	cache   *remotecache.Cache[any]
	logger  zerolog.Logger
}

// NewMixcloudClient builds the client.
func NewMixcloudClient(cfg config.MixcloudConfig, logger zerolog.Logger) *MixcloudClient {
	return &MixcloudClient{
		apiBase: mixcloudAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   remotecache.New[any]("mixcloud", cacheOptions(cfg.Cache), logger),
		logger:  logger.With().Str("client", "mixcloud").Logger(),
	}
}

// SearchDJs returns users matching query.
func (c *MixcloudClient) SearchDJs(ctx context.Context, query string, limit int) ([]models.DJProfile, error) {
	limit = clampLimit(limit, 20, 50)
	key := fmt.Sprintf("searchDJs:%s:%d", normalizeQuery(query), limit)
	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.DJProfile, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("type", "user")
		params.Set("limit", strconv.Itoa(limit))

		var body struct {
			Data []mcUser `json:"data"`
		}
		if err := c.getJSON(ctx, "/search/?"+params.Encode(), &body); err != nil {
			return nil, err
		}
		out := make([]models.DJProfile, 0, len(body.Data))
		for _, u := range body.Data {
			out = append(out, u.toProfile())
		}
		return out, nil
	})
}

// SearchCloudcasts returns published mixes matching query, with genre tags.
func (c *MixcloudClient) SearchCloudcasts(ctx context.Context, query string, limit int) ([]models.Cloudcast, error) {
	limit = clampLimit(limit, 20, 50)
	key := fmt.Sprintf("searchCloudcasts:%s:%d", normalizeQuery(query), limit)
	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.Cloudcast, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("type", "cloudcast")
		params.Set("limit", strconv.Itoa(limit))

		var body struct {
			Data []mcCloudcast `json:"data"`
		}
		if err := c.getJSON(ctx, "/search/?"+params.Encode(), &body); err != nil {
			return nil, err
		}
		out := make([]models.Cloudcast, 0, len(body.Data))
		for _, cc := range body.Data {
			out = append(out, cc.toCloudcast())
		}
		return out, nil
	})
}

// GetDJProfile returns one user's full profile by username.
func (c *MixcloudClient) GetDJProfile(ctx context.Context, username string) (models.DJProfile, error) {
	key := "getDJProfile:" + normalizeQuery(username)
	return cached(ctx, c.cache, key, func(ctx context.Context) (models.DJProfile, error) {
		var u mcUser
		if err := c.getJSON(ctx, "/"+url.PathEscape(username)+"/", &u); err != nil {
			return models.DJProfile{}, err
		}
		return u.toProfile(), nil
	})
}

// GetDJCloudcasts returns a user's recent mixes, primarily for genre
// extraction.
func (c *MixcloudClient) GetDJCloudcasts(ctx context.Context, username string, limit int) ([]models.Cloudcast, error) {
	limit = clampLimit(limit, 10, 50)
	key := fmt.Sprintf("getDJCloudcasts:%s:%d", normalizeQuery(username), limit)
	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.Cloudcast, error) {
		var body struct {
			Data []mcCloudcast `json:"data"`
		}
		if err := c.getJSON(ctx, "/"+url.PathEscape(username)+"/cloudcasts/?limit="+strconv.Itoa(limit), &body); err != nil {
			return nil, err
		}
		out := make([]models.Cloudcast, 0, len(body.Data))
		for _, cc := range body.Data {
			out = append(out, cc.toCloudcast())
		}
		return out, nil
	})
}

// DiscoverDJsByGenre surfaces DJs active in a genre by searching mixes
// tagged with it and collecting their unique uploaders. The query is
// anchored to the local scene.
func (c *MixcloudClient) DiscoverDJsByGenre(ctx context.Context, genre string, limit int) ([]models.DiscoveredDJ, error) {
	limit = clampLimit(limit, 20, 50)
	casts, err := c.SearchCloudcasts(ctx, genre+" Dublin Ireland", clampLimit(limit*2, 40, 50))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []models.DiscoveredDJ
	for _, cc := range casts {
		if cc.Username == "" {
			continue
		}
		if _, dup := seen[cc.Username]; dup {
			continue
		}
		seen[cc.Username] = struct{}{}
		out = append(out, models.DiscoveredDJ{
			Name:     cc.UserDisplay,
			Username: cc.Username,
			URL:      cc.URL,
			Genres:   cc.Tags,
			Source:   "mixcloud",
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (c *MixcloudClient) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remotecache.NewUpstreamError("mixcloud", resp)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

type mcPictures struct {
	Medium     string `json:"medium"`
	Large      string `json:"large"`
	ExtraLarge string `json:"extra_large"`
}

// best picks the largest useful rendition.
func (p mcPictures) best() string {
	return firstNonEmptyString(p.Large, p.ExtraLarge, p.Medium)
}

type mcUser struct {
	Name           string     `json:"name"`
	Username       string     `json:"username"`
	Key            string     `json:"key"`
	URL            string     `json:"url"`
	Biog           string     `json:"biog"`
	City           string     `json:"city"`
	Country        string     `json:"country"`
	Pictures       mcPictures `json:"pictures"`
	FollowerCount  int        `json:"follower_count"`
	FollowingCount int        `json:"following_count"`
	CloudcastCount int        `json:"cloudcast_count"`
}

func (u *mcUser) toProfile() models.DJProfile {
	return models.DJProfile{
		Name:           u.Name,
		Username:       u.Username,
		Key:            u.Key,
		URL:            u.URL,
		Bio:            u.Biog,
		City:           u.City,
		Country:        u.Country,
		Image:          u.Pictures.best(),
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
		CloudcastCount: u.CloudcastCount,
	}
}

type mcCloudcast struct {
	Name string `json:"name"`
	User *struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		URL      string `json:"url"`
	} `json:"user"`
	Tags []struct {
		Name string `json:"name"`
		Key  string `json:"key"`
	} `json:"tags"`
	URL         string     `json:"url"`
	Pictures    mcPictures `json:"pictures"`
	AudioLength int        `json:"audio_length"`
	PlayCount   int        `json:"play_count"`
	CreatedTime string     `json:"created_time"`
}

func (cc *mcCloudcast) toCloudcast() models.Cloudcast {
	out := models.Cloudcast{
		Name:        cc.Name,
		URL:         cc.URL,
		Image:       cc.Pictures.best(),
		AudioLength: cc.AudioLength,
		PlayCount:   cc.PlayCount,
		CreatedTime: cc.CreatedTime,
	}
	if cc.User != nil {
		out.Username = cc.User.Username
		out.UserDisplay = cc.User.Name
	}
	for _, tag := range cc.Tags {
		if name := firstNonEmptyString(tag.Name, tag.Key); name != "" {
			out.Tags = append(out.Tags, name)
		}
	}
	return out
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
