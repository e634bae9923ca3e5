// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
)

const ytChannelSearchPage = `{
	"items": [
		{"id": {"channelId": "UC-bicep"}},
		{"id": {"channelId": "UC-label"}}
	]
}`

const ytChannelDetails = `{
	"items": [
		{
			"id": "UC-bicep",
			"snippet": {
				"title": "Bicep",
				"description": "Producer duo from Belfast",
				"customUrl": "@bicep",
				"thumbnails": {
					"high": {"url": "https://yt.example/bicep-high.jpg"},
					"default": {"url": "https://yt.example/bicep-default.jpg"}
				}
			},
			"statistics": {"subscriberCount": "412000", "viewCount": "98000000"},
			"brandingSettings": {"channel": {"keywords": "electronica|uk dance|techno"}}
		},
		{
			"id": "UC-label",
			"snippet": {
				"title": "Feel My Bicep Records",
				"description": "Label uploads and premieres",
				"thumbnails": {"default": {"url": "https://yt.example/label.jpg"}}
			},
			"statistics": {"subscriberCount": "9000", "viewCount": "500000"}
		}
	]
}`

func newYouTubeTestClient(t *testing.T, handler http.HandlerFunc) *YouTubeClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewYouTubeClient(config.YouTubeConfig{APIKey: "key", Cache: testCacheConfig()}, zerolog.Nop())
	c.apiBase = srv.URL
	return c
}

func TestYouTubeClient_SearchChannels(t *testing.T) {
	c := newYouTubeTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "key" {
			t.Errorf("key param = %q", q.Get("key"))
		}
		switch {
		case r.URL.Path == "/search" && q.Get("type") == "channel":
			w.Write([]byte(ytChannelSearchPage))
		case r.URL.Path == "/channels":
			if q.Get("id") != "UC-bicep,UC-label" {
				t.Errorf("channel ids = %q", q.Get("id"))
			}
			w.Write([]byte(ytChannelDetails))
		case r.URL.Path == "/search" && q.Get("type") == "video":
			if q.Get("order") != "date" || q.Get("maxResults") != "1" {
				t.Errorf("latest-video query = %q", r.URL.RawQuery)
			}
			if q.Get("channelId") == "UC-bicep" {
				w.Write([]byte(`{"items": [{"id": {"videoId": "vid-1"}, "snippet": {"publishedAt": "2026-08-01T20:00:00Z"}}]}`))
				return
			}
			// The label channel's enrichment fails; the channel survives.
			http.Error(w, "quota", http.StatusForbidden)
		default:
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
			http.NotFound(w, r)
		}
	})

	channels, err := c.SearchChannels(context.Background(), "bicep", 10)
	if err != nil {
		t.Fatalf("SearchChannels: %v", err)
	}
	if len(channels) != 2 {
		t.Fatalf("got %d channels, want 2", len(channels))
	}

	bicep := channels[0]
	if bicep.Name != "Bicep" || bicep.ChannelID != "UC-bicep" || bicep.Source != "youtube" {
		t.Errorf("channel mapping = %#v", bicep)
	}
	if bicep.ChannelType != models.ChannelTypeArtist {
		t.Errorf("Bicep classified as %q", bicep.ChannelType)
	}
	if bicep.Image != "https://yt.example/bicep-high.jpg" {
		t.Errorf("Image = %q, want the high rendition", bicep.Image)
	}
	if bicep.Followers != 412000 || bicep.Popularity != 98000000 {
		t.Errorf("followers/popularity = %d/%d", bicep.Followers, bicep.Popularity)
	}
	if bicep.LatestVideoID != "vid-1" || bicep.LatestVideoURL != "https://www.youtube.com/watch?v=vid-1" {
		t.Errorf("latest video = %q / %q", bicep.LatestVideoID, bicep.LatestVideoURL)
	}
	wantGenres := []string{"electronica", "uk dance", "techno producer duo from belfast"}
	if !reflect.DeepEqual(bicep.Genres, wantGenres) {
		t.Errorf("genres = %#v, want %#v", bicep.Genres, wantGenres)
	}

	label := channels[1]
	if label.ChannelType != models.ChannelTypeOrganization {
		t.Errorf("label classified as %q", label.ChannelType)
	}
	if label.LatestVideoID != "" {
		t.Errorf("failed enrichment still set LatestVideoID = %q", label.LatestVideoID)
	}
}

func TestYouTubeClient_MissingAPIKeyReturnsEmpty(t *testing.T) {
	c := NewYouTubeClient(config.YouTubeConfig{Cache: testCacheConfig()}, zerolog.Nop())
	c.apiBase = "" // any request would fail loudly

	channels, err := c.SearchChannels(context.Background(), "bicep", 10)
	if err != nil {
		t.Fatalf("SearchChannels: %v", err)
	}
	if len(channels) != 0 {
		t.Fatalf("got %d channels, want none", len(channels))
	}
}

func TestClassifyChannelType(t *testing.T) {
	cases := []struct {
		name, title, desc string
		want              models.ChannelType
	}{
		{"plain act", "Bicep", "Duo from Belfast", models.ChannelTypeArtist},
		{"label", "Permanent Vacation Records", "Label uploads", models.ChannelTypeOrganization},
		{"venue", "The Button Factory", "Venue in Temple Bar", models.ChannelTypeOrganization},
		{"festival", "Life Festival", "Annual weekender", models.ChannelTypeOrganization},
		{"label keyword with artist hint", "DJ Deece Records", "dj and producer", models.ChannelTypeArtist},
		{"radio", "Dublin Digital Radio", "Independent station", models.ChannelTypeOrganization},
		{"hint only in description", "Efa O Neill", "club selector and dj", models.ChannelTypeArtist},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyChannelType(tc.title, tc.desc); got != tc.want {
				t.Errorf("classifyChannelType(%q, %q) = %q, want %q", tc.title, tc.desc, got, tc.want)
			}
		})
	}
}

func TestChannelGenreTokens(t *testing.T) {
	got := channelGenreTokens("techno|house", "Breaks. Acid; breaks, Techno")
	want := []string{"techno", "house breaks", "acid", "breaks"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("channelGenreTokens = %#v, want %#v", got, want)
	}
	if got := channelGenreTokens("", " "); len(got) != 0 {
		t.Errorf("blank input = %#v", got)
	}
}
