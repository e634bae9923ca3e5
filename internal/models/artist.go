// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package models

// Normalized DTOs returned by the auxiliary metadata lookup clients.
// These are deliberately independent of provider payload shape: callers
// never see Spotify/Mixcloud/SoundCloud/YouTube wire formats.

// ArtistProfile is the normalized artist record from the streaming-platform
// search (Spotify-shaped upstream).
type ArtistProfile struct {
	Name       string       `json:"name"`
	SpotifyID  string       `json:"spotifyId"`
	Genres     []string     `json:"genres"`
	Popularity int          `json:"popularity"`
	Followers  int          `json:"followers"`
	Image      string       `json:"image,omitempty"`
	Images     []EventImage `json:"images,omitempty"`
	SpotifyURL string       `json:"spotifyUrl,omitempty"`
}

// TopTrack is one of an artist's most played tracks.
type TopTrack struct {
	Name       string `json:"name"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Album      string `json:"album,omitempty"`
	AlbumImage string `json:"albumImage,omitempty"`
	DurationMs int    `json:"durationMs"`
	Popularity int    `json:"popularity"`
}

// DJProfile is the normalized DJ/user record from the mix-platform lookup
// (Mixcloud-shaped upstream).
type DJProfile struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	Key            string `json:"key,omitempty"`
	URL            string `json:"url,omitempty"`
	Bio            string `json:"bio,omitempty"`
	City           string `json:"city,omitempty"`
	Country        string `json:"country,omitempty"`
	Image          string `json:"image,omitempty"`
	FollowerCount  int    `json:"followerCount"`
	FollowingCount int    `json:"followingCount"`
	CloudcastCount int    `json:"cloudcastCount"`
}

// Cloudcast is a published mix with its genre tags.
type Cloudcast struct {
	Name        string   `json:"name"`
	Username    string   `json:"username,omitempty"`
	UserDisplay string   `json:"userDisplay,omitempty"`
	Tags        []string `json:"tags"`
	URL         string   `json:"url,omitempty"`
	Image       string   `json:"image,omitempty"`
	AudioLength int      `json:"audioLength,omitempty"`
	PlayCount   int      `json:"playCount"`
	CreatedTime string   `json:"createdTime,omitempty"`
}

// DiscoveredDJ is a DJ surfaced from genre-tag discovery, unique by username.
type DiscoveredDJ struct {
	Name     string   `json:"name"`
	Username string   `json:"username"`
	URL      string   `json:"url,omitempty"`
	Genres   []string `json:"genres"`
	Source   string   `json:"source"`
}

// AudioUser is the normalized user record from the audio-platform search
// (SoundCloud-shaped upstream). Genres are heuristic tokens mined from the
// profile's free-text fields; Popularity folds followers and likes into a
// single sortable counter.
type AudioUser struct {
	Name       string   `json:"name"`
	Username   string   `json:"username,omitempty"`
	URL        string   `json:"url,omitempty"`
	Image      string   `json:"image,omitempty"`
	Genres     []string `json:"genres"`
	Followers  int      `json:"followers"`
	Popularity int      `json:"popularity"`
	Source     string   `json:"source"`
}

// ChannelType classifies a video channel as an individual artist or an
// organization (label, club, festival, agency).
type ChannelType string

const (
	ChannelTypeArtist       ChannelType = "artist"
	ChannelTypeOrganization ChannelType = "organization"
)

// VideoChannel is the normalized channel record from the video-platform
// search (YouTube-shaped upstream), enriched with the channel's most recent
// video when available.
type VideoChannel struct {
	Name              string      `json:"name"`
	Source            string      `json:"source"`
	Image             string      `json:"image,omitempty"`
	Genres            []string    `json:"genres"`
	ChannelID         string      `json:"youtubeChannelId"`
	ChannelURL        string      `json:"youtubeChannelUrl,omitempty"`
	CustomURL         string      `json:"youtubeCustomUrl,omitempty"`
	LatestVideoID     string      `json:"youtubeVideoId,omitempty"`
	LatestVideoURL    string      `json:"latestYoutubeUrl,omitempty"`
	LatestPublishedAt string      `json:"latestYoutubePublishedAt,omitempty"`
	ChannelType       ChannelType `json:"channelType"`
	Followers         int         `json:"followers"`
	Popularity        int         `json:"popularity"`
}
