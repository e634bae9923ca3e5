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
	"golang.org/x/sync/errgroup"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
	"github.com/craiclab/gigcat/internal/remotecache"
)

const youtubeAPIBase = "https://www.googleapis.com/youtube/v3"

var (
	// orgKeywords mark a channel as a label, venue or promoter rather than
	// an individual act.
	orgKeywords = []string{
		"records", "recordings", "record label", "label", "club", "venue",
		"radio", "fm", "tv", "festival", "events", "promotions", "agency",
		"collective", "official label", "booking",
	}
	// artistHints override the organization classification: a label keyword
	// alongside any of these reads as an artist channel.
	artistHints = []string{"dj", "producer", "artist", "live set", "music", "selector"}

	channelTokenSeparators = regexp.MustCompile(`[|/#]`)
	channelTokenSplitter   = regexp.MustCompile(`[,.\n;]+`)
)

// YouTubeClient searches channels on the video platform and enriches each
// hit with its most recent upload. Without an API key every lookup returns
// empty results; the platform is strictly optional.
type YouTubeClient struct {
	apiKey  string
	apiBase string
	client  *http.Client
	cache   *remotecache.Cache[any]
	logger  zerolog.Logger
}

// NewYouTubeClient builds the client.
func NewYouTubeClient(cfg config.YouTubeConfig, logger zerolog.Logger) *YouTubeClient {
	return &YouTubeClient{
		apiKey:  cfg.APIKey,
		apiBase: youtubeAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   remotecache.New[any]("youtube", cacheOptions(cfg.Cache), logger),
		logger:  logger.With().Str("client", "youtube").Logger(),
	}
}

// SearchChannels returns classified channels matching query, newest upload
// attached where one could be fetched. Enrichment failures are tolerated
// per channel; a channel without a latest video is still returned.
func (c *YouTubeClient) SearchChannels(ctx context.Context, query string, limit int) ([]models.VideoChannel, error) {
	if c.apiKey == "" {
		return nil, nil
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	limit = clampLimit(limit, 10, 25)
	key := fmt.Sprintf("channels:%s:%d", normalizeQuery(query), limit)

	return cached(ctx, c.cache, key, func(ctx context.Context) ([]models.VideoChannel, error) {
		ids, err := c.searchChannelIDs(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return []models.VideoChannel{}, nil
		}

		channels, err := c.channelDetails(ctx, ids)
		if err != nil {
			return nil, err
		}
		c.attachLatestVideos(ctx, channels)
		return channels, nil
	})
}

func (c *YouTubeClient) searchChannelIDs(ctx context.Context, query string, limit int) ([]string, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "channel")
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))

	var body struct {
		Items []struct {
			ID struct {
				ChannelID string `json:"channelId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, "/search", params, &body); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		if item.ID.ChannelID != "" {
			ids = append(ids, item.ID.ChannelID)
		}
	}
	return ids, nil
}

func (c *YouTubeClient) channelDetails(ctx context.Context, ids []string) ([]models.VideoChannel, error) {
	params := url.Values{}
	params.Set("part", "snippet,statistics,brandingSettings")
	params.Set("id", strings.Join(ids, ","))

	var body struct {
		Items []ytChannel `json:"items"`
	}
	if err := c.getJSON(ctx, "/channels", params, &body); err != nil {
		return nil, err
	}

	out := make([]models.VideoChannel, 0, len(body.Items))
	for _, ch := range body.Items {
		title := strings.TrimSpace(ch.Snippet.Title)
		if title == "" {
			continue
		}
		out = append(out, models.VideoChannel{
			Name:        title,
			Source:      "youtube",
			Image:       ch.Snippet.Thumbnails.best(),
			Genres:      channelGenreTokens(ch.BrandingSettings.Channel.Keywords, ch.Snippet.Description),
			ChannelID:   ch.ID,
			ChannelURL:  "https://www.youtube.com/channel/" + ch.ID,
			CustomURL:   ch.Snippet.CustomURL,
			ChannelType: classifyChannelType(title, ch.Snippet.Description),
			Followers:   atoiLoose(ch.Statistics.SubscriberCount),
			Popularity:  atoiLoose(ch.Statistics.ViewCount),
		})
	}
	return out, nil
}

// attachLatestVideos fetches each channel's newest upload concurrently.
// A failed or empty per-channel lookup leaves that channel untouched.
func (c *YouTubeClient) attachLatestVideos(ctx context.Context, channels []models.VideoChannel) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := range channels {
		g.Go(func() error {
			videoID, publishedAt, err := c.latestVideo(ctx, channels[i].ChannelID)
			if err != nil {
				c.logger.Debug().Err(err).
					Str("channel_id", channels[i].ChannelID).
					Msg("latest video lookup failed")
				return nil
			}
			if videoID != "" {
				channels[i].LatestVideoID = videoID
				channels[i].LatestVideoURL = "https://www.youtube.com/watch?v=" + videoID
				channels[i].LatestPublishedAt = publishedAt
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *YouTubeClient) latestVideo(ctx context.Context, channelID string) (videoID, publishedAt string, err error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("type", "video")
	params.Set("order", "date")
	params.Set("maxResults", "1")

	var body struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				PublishedAt string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, "/search", params, &body); err != nil {
		return "", "", err
	}
	if len(body.Items) == 0 {
		return "", "", nil
	}
	return body.Items[0].ID.VideoID, body.Items[0].Snippet.PublishedAt, nil
}

func (c *YouTubeClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remotecache.NewUpstreamError("youtube", resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type ytChannel struct {
	ID      string `json:"id"`
	Snippet struct {
		Title       string       `json:"title"`
		Description string       `json:"description"`
		CustomURL   string       `json:"customUrl"`
		Thumbnails  ytThumbnails `json:"thumbnails"`
	} `json:"snippet"`
	Statistics struct {
		SubscriberCount string `json:"subscriberCount"`
		ViewCount       string `json:"viewCount"`
	} `json:"statistics"`
	BrandingSettings struct {
		Channel struct {
			Keywords string `json:"keywords"`
		} `json:"channel"`
	} `json:"brandingSettings"`
}

type ytThumbnails struct {
	High    ytThumbnail `json:"high"`
	Medium  ytThumbnail `json:"medium"`
	Default ytThumbnail `json:"default"`
}

type ytThumbnail struct {
	URL string `json:"url"`
}

func (t ytThumbnails) best() string {
	return firstNonEmptyString(t.High.URL, t.Medium.URL, t.Default.URL)
}

// classifyChannelType decides whether a channel is an individual act or an
// organization. An organization keyword in the combined text classifies as
// organization unless an artist hint is also present.
func classifyChannelType(title, description string) models.ChannelType {
	text := strings.ToLower(title + " " + description)

	org := false
	for _, kw := range orgKeywords {
		if strings.Contains(text, kw) {
			org = true
			break
		}
	}
	if !org {
		return models.ChannelTypeArtist
	}
	for _, hint := range artistHints {
		if strings.Contains(text, hint) {
			return models.ChannelTypeArtist
		}
	}
	return models.ChannelTypeOrganization
}

// channelGenreTokens mines genre tokens from the channel keywords and
// description, same budget as the audio-platform heuristic.
func channelGenreTokens(fields ...string) []string {
	joined := strings.TrimSpace(strings.Join(fields, " "))
	if joined == "" {
		return []string{}
	}
	joined = channelTokenSeparators.ReplaceAllString(joined, ",")

	seen := make(map[string]struct{})
	out := []string{}
	for _, token := range channelTokenSplitter.Split(joined, -1) {
		token = strings.ToLower(strings.Trim(strings.TrimSpace(token), `"`))
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

// atoiLoose parses the platform's string-typed counters, zero on failure.
func atoiLoose(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
