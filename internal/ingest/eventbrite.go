// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"context"
	"errors"
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

const eventbriteBaseURL = "https://www.eventbriteapi.com/v3"

// maxFallbackOrgs bounds the organization enumeration so a token with
// access to many organizations cannot stall a run.
const maxFallbackOrgs = 10

// EventbriteAdapter pulls the v3 event search, one page per FetchPage
// call. Pages are one-based; the continuation token is the next page
// number.
//
// Newer API tokens no longer have access to the public search endpoint
// and receive a definitive 404 for it. On that signal the adapter falls
// back to enumerating the organizations the token can see and reading
// each organization's own event feed. The fallback is completed in a
// single FetchPage call and reports no further pages.
type EventbriteAdapter struct {
	token   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewEventbriteAdapter builds the adapter. A missing token yields a
// disabled adapter that the orchestrator will skip.
func NewEventbriteAdapter(cfg config.EventbriteConfig, timeout time.Duration, logger zerolog.Logger) *EventbriteAdapter {
	return &EventbriteAdapter{
		token:   cfg.Token,
		baseURL: eventbriteBaseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("adapter", SourceEventbrite).Logger(),
	}
}

func (a *EventbriteAdapter) Name() string       { return SourceEventbrite }
func (a *EventbriteAdapter) Enabled() bool      { return a.token != "" }
func (a *EventbriteAdapter) SkipReason() string { return ReasonMissingAPIToken }

func (a *EventbriteAdapter) FetchPage(ctx context.Context, city string, window models.TimeWindow, token string) (*Page, error) {
	page := 1
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("eventbrite: bad page token %q: %w", token, err)
		}
		page = n
	}

	out, err := a.searchPage(ctx, city, window, page)
	if err == nil {
		return out, nil
	}

	var ue *remotecache.UpstreamError
	if page == 1 && errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
		a.logger.Info().Msg("Search endpoint not available for this token, falling back to organization feeds")
		return a.organizationFeeds(ctx, city, window)
	}
	return nil, err
}

func (a *EventbriteAdapter) searchPage(ctx context.Context, city string, window models.TimeWindow, page int) (*Page, error) {
	params := url.Values{}
	params.Set("location.address", city)
	params.Set("start_date.range_start", window.Start.UTC().Format(time.RFC3339))
	params.Set("start_date.range_end", window.End.UTC().Format(time.RFC3339))
	params.Set("expand", "venue")
	params.Set("page", strconv.Itoa(page))

	var body ebEventsPage
	if err := a.getJSON(ctx, "/events/search/?"+params.Encode(), &body); err != nil {
		return nil, err
	}

	out := &Page{
		HasMore:   body.Pagination.HasMoreItems,
		NextToken: strconv.Itoa(page + 1),
	}
	a.appendCandidates(out, body.Events, city)
	return out, nil
}

// organizationFeeds enumerates the token's organizations and reads the
// first page of each one's event feed, concatenated into a single page.
func (a *EventbriteAdapter) organizationFeeds(ctx context.Context, city string, window models.TimeWindow) (*Page, error) {
	var orgs struct {
		Organizations []struct {
			ID string `json:"id"`
		} `json:"organizations"`
	}
	if err := a.getJSON(ctx, "/users/me/organizations/", &orgs); err != nil {
		return nil, fmt.Errorf("eventbrite: enumerate organizations: %w", err)
	}

	out := &Page{}
	for i, org := range orgs.Organizations {
		if i >= maxFallbackOrgs {
			a.logger.Warn().Int("organizations", len(orgs.Organizations)).Msg("Organization fallback truncated")
			break
		}
		params := url.Values{}
		params.Set("expand", "venue")
		params.Set("start_date.range_start", window.Start.UTC().Format(time.RFC3339))
		params.Set("start_date.range_end", window.End.UTC().Format(time.RFC3339))

		var feed ebEventsPage
		if err := a.getJSON(ctx, "/organizations/"+org.ID+"/events/?"+params.Encode(), &feed); err != nil {
			// One unreadable organization must not sink the others.
			a.logger.Warn().Err(err).Str("organization", org.ID).Msg("Skipping organization feed")
			continue
		}
		a.appendCandidates(out, feed.Events, city)
	}
	return out, nil
}

func (a *EventbriteAdapter) getJSON(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return remotecache.NewUpstreamError(SourceEventbrite, resp)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func (a *EventbriteAdapter) appendCandidates(out *Page, events []json.RawMessage, fallbackCity string) {
	for _, raw := range events {
		var evt ebEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			a.logger.Warn().Err(err).Msg("Skipping undecodable event payload")
			continue
		}
		out.Candidates = append(out.Candidates, evt.toCandidate(fallbackCity, raw))
	}
}

type ebEventsPage struct {
	Events     []json.RawMessage `json:"events"`
	Pagination struct {
		HasMoreItems bool `json:"has_more_items"`
	} `json:"pagination"`
}

type ebEvent struct {
	ID   string `json:"id"`
	Name struct {
		Text string `json:"text"`
	} `json:"name"`
	Description struct {
		Text string `json:"text"`
	} `json:"description"`
	Start struct {
		UTC   string `json:"utc"`
		Local string `json:"local"`
	} `json:"start"`
	End struct {
		UTC   string `json:"utc"`
		Local string `json:"local"`
	} `json:"end"`
	URL      string `json:"url"`
	IsFree   bool   `json:"is_free"`
	Currency string `json:"currency"`
	Venue    struct {
		Name    string `json:"name"`
		Address struct {
			City      string `json:"city"`
			Latitude  string `json:"latitude"`
			Longitude string `json:"longitude"`
		} `json:"address"`
	} `json:"venue"`
	Logo *struct {
		URL string `json:"url"`
	} `json:"logo"`
}

func (e *ebEvent) toCandidate(fallbackCity string, raw json.RawMessage) models.CandidateEvent {
	cand := models.CandidateEvent{
		SourceID:  e.ID,
		Title:     e.Name.Text,
		StartTime: parseEbTime(e.Start.UTC, e.Start.Local),
		Tags:      []string{SourceEventbrite},
		Raw:       raw,
	}

	if e.Description.Text != "" {
		desc := e.Description.Text
		cand.Description = &desc
	}
	if end := parseEbTime(e.End.UTC, e.End.Local); !end.IsZero() {
		cand.EndTime = &end
	}
	if e.URL != "" {
		cand.TicketURL = &e.URL
	}

	city := fallbackCity
	if e.Venue.Address.City != "" {
		city = e.Venue.Address.City
	}
	cand.City = &city
	if e.Venue.Name != "" {
		name := e.Venue.Name
		cand.VenueName = &name
	}
	if lat, err := strconv.ParseFloat(e.Venue.Address.Latitude, 64); err == nil {
		cand.Latitude = &lat
	}
	if lon, err := strconv.ParseFloat(e.Venue.Address.Longitude, 64); err == nil {
		cand.Longitude = &lon
	}

	if e.IsFree {
		zero := 0.0
		cand.PriceMin = &zero
		cand.PriceMax = &zero
	}
	if e.Currency != "" {
		cand.Currency = &e.Currency
	}
	if e.Logo != nil && e.Logo.URL != "" {
		cand.Images = append(cand.Images, models.EventImage{URL: e.Logo.URL})
	}
	return cand
}

// parseEbTime prefers the UTC timestamp and falls back to the venue-local
// one. Eventbrite serializes both without an offset suffix on local.
func parseEbTime(utc, local string) time.Time {
	if t, err := time.Parse(time.RFC3339, utc); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05", local); err == nil {
		return t
	}
	return time.Time{}
}
