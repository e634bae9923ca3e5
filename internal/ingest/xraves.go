// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
)

// XRavesAdapter ingests the browser-rendered listings site. The site has
// no API: the adapter asks the render collaborator for the page's
// embedded Next.js data block and reads the event list out of it. The
// whole catalog arrives in one block, so every fetch is a single page.
type XRavesAdapter struct {
	baseURL   string
	userAgent string
	render    *RenderClient
	logger    zerolog.Logger
}

// NewXRavesAdapter builds the adapter around a render client.
func NewXRavesAdapter(cfg config.XRavesConfig, render *RenderClient, logger zerolog.Logger) *XRavesAdapter {
	return &XRavesAdapter{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		render:    render,
		logger:    logger.With().Str("adapter", SourceXRaves).Logger(),
	}
}

func (a *XRavesAdapter) Name() string  { return SourceXRaves }
func (a *XRavesAdapter) Enabled() bool { return a.baseURL != "" }

func (a *XRavesAdapter) SkipReason() string { return ReasonRenderUnavailable }

func (a *XRavesAdapter) FetchPage(ctx context.Context, city string, window models.TimeWindow, _ string) (*Page, error) {
	blob, err := a.render.Render(ctx, a.baseURL, a.userAgent)
	if err != nil {
		return nil, err
	}

	var data xrNextData
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("xraves: decode data block: %w", err)
	}

	out := &Page{}
	for _, evt := range data.Props.PageProps.Events {
		cand, ok := evt.toCandidate(city, window)
		if !ok {
			continue
		}
		out.Candidates = append(out.Candidates, cand)
	}
	a.logger.Debug().Int("events", len(data.Props.PageProps.Events)).Int("candidates", len(out.Candidates)).Msg("Parsed data block")
	return out, nil
}

type xrNextData struct {
	Props struct {
		PageProps struct {
			Events []xrEvent `json:"events"`
		} `json:"pageProps"`
	} `json:"props"`
}

type xrEvent struct {
	ID          any      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	URL         string   `json:"url"`
	Genres      []string `json:"genres"`
	Image       string   `json:"image"`
	Venue       struct {
		Name      string   `json:"name"`
		City      string   `json:"city"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"venue"`
}

// toCandidate filters to listings in the requested city and window.
// Listings without a city are assumed local to the requested one.
func (e *xrEvent) toCandidate(city string, window models.TimeWindow) (models.CandidateEvent, bool) {
	start, err := time.Parse(time.RFC3339, e.StartDate)
	if err != nil {
		return models.CandidateEvent{}, false
	}
	if start.Before(window.Start) || start.After(window.End) {
		return models.CandidateEvent{}, false
	}
	if e.Venue.City != "" && !strings.EqualFold(e.Venue.City, city) {
		return models.CandidateEvent{}, false
	}

	raw, _ := json.Marshal(e)
	cand := models.CandidateEvent{
		SourceID:  xrSourceID(e.ID),
		Title:     e.Title,
		StartTime: start,
		Latitude:  e.Venue.Latitude,
		Longitude: e.Venue.Longitude,
		Genres:    lowerAll(e.Genres),
		Tags:      []string{SourceXRaves},
		Raw:       raw,
	}
	if e.Description != "" {
		desc := e.Description
		cand.Description = &desc
	}
	if end, err := time.Parse(time.RFC3339, e.EndDate); err == nil {
		cand.EndTime = &end
	}
	c := city
	if e.Venue.City != "" {
		c = e.Venue.City
	}
	cand.City = &c
	if e.Venue.Name != "" {
		name := e.Venue.Name
		cand.VenueName = &name
	}
	if e.URL != "" {
		cand.TicketURL = &e.URL
	}
	if e.Image != "" {
		cand.Images = append(cand.Images, models.EventImage{URL: e.Image})
	}
	return cand, true
}

// xrSourceID tolerates the site flip-flopping between numeric and string
// IDs across deploys.
func xrSourceID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}
