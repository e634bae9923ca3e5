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
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
	"github.com/craiclab/gigcat/internal/remotecache"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIBase  = "https://api.spotify.com/v1"
)

// tokenRefreshMargin renews the client-credentials token this long before
// its actual expiry, so in-flight requests never race the cutoff.
const tokenRefreshMargin = time.Minute

// SpotifyClient looks up artist metadata on the streaming platform using
// the client-credentials flow. The platform enforces aggressive per-app
// rate limits, so calls are throttled locally as well as cached.
type SpotifyClient struct {
	clientID     string
	clientSecret string
	tokenURL     string
	apiBase      string
	client       *http.Client
	limiter      *rate.Limiter
	cache        *remotecache.Cache[any]
	logger       zerolog.Logger

	tokenMu     sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewSpotifyClient builds the client. Without credentials every lookup
// returns ErrMissingCredential.
func NewSpotifyClient(cfg config.SpotifyConfig, logger zerolog.Logger) *SpotifyClient {
	return &SpotifyClient{
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		tokenURL:     spotifyTokenURL,
		apiBase:      spotifyAPIBase,
		client:       &http.Client{Timeout: 10 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(5), 1),
		cache:        remotecache.New[any]("spotify", cacheOptions(cfg.Cache), logger),
		logger:       logger.With().Str("client", "spotify").Logger(),
	}
}

// Enabled reports whether credentials are configured.
func (c *SpotifyClient) Enabled() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// SearchArtists returns normalized artist profiles matching query.
func (c *SpotifyClient) SearchArtists(ctx context.Context, query string, limit int) ([]models.ArtistProfile, error) {
	if !c.Enabled() {
		return nil, remotecache.ErrMissingCredential
	}
	limit = clampLimit(limit, 20, 50)
	key := fmt.Sprintf("search:%s:%d", normalizeQuery(query), limit)
	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.ArtistProfile, error) {
		params := url.Values{}
		params.Set("q", query)
		params.Set("type", "artist")
		params.Set("limit", strconv.Itoa(limit))

		var body struct {
			Artists struct {
				Items []spArtist `json:"items"`
			} `json:"artists"`
		}
		if err := c.getJSON(ctx, "/search?"+params.Encode(), &body); err != nil {
			return nil, err
		}
		out := make([]models.ArtistProfile, 0, len(body.Artists.Items))
		for _, a := range body.Artists.Items {
			out = append(out, a.toProfile())
		}
		return out, nil
	})
}

// GetArtist returns one artist by platform ID.
func (c *SpotifyClient) GetArtist(ctx context.Context, artistID string) (models.ArtistProfile, error) {
	if !c.Enabled() {
		return models.ArtistProfile{}, remotecache.ErrMissingCredential
	}
	return cached(ctx, c.cache, "artist:"+artistID, func(ctx context.Context) (models.ArtistProfile, error) {
		var a spArtist
		if err := c.getJSON(ctx, "/artists/"+url.PathEscape(artistID), &a); err != nil {
			return models.ArtistProfile{}, err
		}
		return a.toProfile(), nil
	})
}

// GetRelatedArtists returns up to limit artists related to artistID, for
// discovery surfaces.
func (c *SpotifyClient) GetRelatedArtists(ctx context.Context, artistID string, limit int) ([]models.ArtistProfile, error) {
	if !c.Enabled() {
		return nil, remotecache.ErrMissingCredential
	}
	limit = clampLimit(limit, 10, 50)
	key := fmt.Sprintf("related:%s:%d", artistID, limit)
	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.ArtistProfile, error) {
		var body struct {
			Artists []spArtist `json:"artists"`
		}
		if err := c.getJSON(ctx, "/artists/"+url.PathEscape(artistID)+"/related-artists", &body); err != nil {
			return nil, err
		}
		if len(body.Artists) > limit {
			body.Artists = body.Artists[:limit]
		}
		out := make([]models.ArtistProfile, 0, len(body.Artists))
		for _, a := range body.Artists {
			out = append(out, a.toProfile())
		}
		return out, nil
	})
}

// GetTopTracks returns the artist's most played tracks for a market.
func (c *SpotifyClient) GetTopTracks(ctx context.Context, artistID, market string) ([]models.TopTrack, error) {
	if !c.Enabled() {
		return nil, remotecache.ErrMissingCredential
	}
	if market == "" {
		market = "IE"
	}
	key := fmt.Sprintf("toptracks:%s:%s", artistID, market)
	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.TopTrack, error) {
		var body struct {
			Tracks []struct {
				Name       string `json:"name"`
				PreviewURL string `json:"preview_url"`
				DurationMs int    `json:"duration_ms"`
				Popularity int    `json:"popularity"`
				Album      struct {
					Name   string    `json:"name"`
					Images []spImage `json:"images"`
				} `json:"album"`
			} `json:"tracks"`
		}
		if err := c.getJSON(ctx, "/artists/"+url.PathEscape(artistID)+"/top-tracks?market="+url.QueryEscape(market), &body); err != nil {
			return nil, err
		}
		out := make([]models.TopTrack, 0, len(body.Tracks))
		for _, t := range body.Tracks {
			track := models.TopTrack{
				Name:       t.Name,
				PreviewURL: t.PreviewURL,
				Album:      t.Album.Name,
				DurationMs: t.DurationMs,
				Popularity: t.Popularity,
			}
			if len(t.Album.Images) > 0 {
				track.AlbumImage = t.Album.Images[0].URL
			}
			out = append(out, track)
		}
		return out, nil
	})
}

func (c *SpotifyClient) getJSON(ctx context.Context, path string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remotecache.NewUpstreamError("spotify", resp)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// token returns a valid client-credentials token, refreshing shortly
// before expiry. Concurrent refreshes are serialized by the mutex.
func (c *SpotifyClient) token(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-tokenRefreshMargin)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.clientID, c.clientSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", remotecache.NewUpstreamError("spotify", resp)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}

	c.accessToken = body.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	c.logger.Debug().Time("expiry", c.tokenExpiry).Msg("Refreshed access token")
	return c.accessToken, nil
}

type spImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type spArtist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  struct {
		Total int `json:"total"`
	} `json:"followers"`
	Images       []spImage `json:"images"`
	ExternalURLs struct {
		Spotify string `json:"spotify"`
	} `json:"external_urls"`
}

func (a *spArtist) toProfile() models.ArtistProfile {
	p := models.ArtistProfile{
		Name:       a.Name,
		SpotifyID:  a.ID,
		Genres:     a.Genres,
		Popularity: a.Popularity,
		Followers:  a.Followers.Total,
		SpotifyURL: a.ExternalURLs.Spotify,
	}
	if p.Genres == nil {
		p.Genres = []string{}
	}
	for _, img := range a.Images {
		p.Images = append(p.Images, models.EventImage{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	if len(a.Images) > 0 {
		p.Image = a.Images[0].URL
	}
	return p
}
