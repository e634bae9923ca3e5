// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/models"
	"github.com/craiclab/gigcat/internal/remotecache"
)

const ticketmasterBaseURL = "https://app.ticketmaster.com/discovery/v2"

// TicketmasterAdapter pulls the discovery API's event search, one page per
// FetchPage call. Pages are zero-based; the continuation token is the next
// page number. Discovery applies a strict global rate limit, so every
// request passes through a local limiter.
type TicketmasterAdapter struct {
	apiKey   string
	pageSize int
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewTicketmasterAdapter builds the adapter. A missing API key yields a
// disabled adapter that the orchestrator will skip.
func NewTicketmasterAdapter(cfg config.TicketmasterConfig, timeout time.Duration, logger zerolog.Logger) *TicketmasterAdapter {
	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 100
	}
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 4
	}
	return &TicketmasterAdapter{
		apiKey:   cfg.APIKey,
		pageSize: pageSize,
		baseURL:  ticketmasterBaseURL,
		client:   &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		logger:   logger.With().Str("adapter", SourceTicketmaster).Logger(),
	}
}

func (a *TicketmasterAdapter) Name() string       { return SourceTicketmaster }
func (a *TicketmasterAdapter) Enabled() bool      { return a.apiKey != "" }
func (a *TicketmasterAdapter) SkipReason() string { return ReasonMissingAPIKey }

func (a *TicketmasterAdapter) FetchPage(ctx context.Context, city string, window models.TimeWindow, token string) (*Page, error) {
	page := 0
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, fmt.Errorf("ticketmaster: bad page token %q: %w", token, err)
		}
		page = n
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("apikey", a.apiKey)
	params.Set("city", city)
	params.Set("startDateTime", window.Start.UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("endDateTime", window.End.UTC().Format("2006-01-02T15:04:05Z"))
	params.Set("size", strconv.Itoa(a.pageSize))
	params.Set("page", strconv.Itoa(page))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/events.json?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remotecache.NewUpstreamError(SourceTicketmaster, resp)
	}

	var body tmSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("ticketmaster: decode page %d: %w", page, err)
	}

	out := &Page{
		HasMore:   page+1 < body.Page.TotalPages,
		NextToken: strconv.Itoa(page + 1),
	}
	for _, raw := range body.Embedded.Events {
		var evt tmEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			a.logger.Warn().Err(err).Msg("Skipping undecodable event payload")
			continue
		}
		out.Candidates = append(out.Candidates, evt.toCandidate(city, raw))
	}
	return out, nil
}

type tmSearchResponse struct {
	Page struct {
		TotalPages int `json:"totalPages"`
	} `json:"page"`
	Embedded struct {
		Events []json.RawMessage `json:"events"`
	} `json:"_embedded"`
}

type tmEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Info       string `json:"info"`
	PleaseNote string `json:"pleaseNote"`
	Dates      struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
			LocalTime string `json:"localTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	} `json:"dates"`
	PriceRanges []struct {
		Min      float64 `json:"min"`
		Max      float64 `json:"max"`
		Currency string  `json:"currency"`
	} `json:"priceRanges"`
	Classifications []struct {
		Genre struct {
			Name string `json:"name"`
		} `json:"genre"`
	} `json:"classifications"`
	AgeRestrictions struct {
		LegalAgeEnforced bool `json:"legalAgeEnforced"`
	} `json:"ageRestrictions"`
	Images []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"images"`
	Embedded struct {
		Venues []tmVenue `json:"venues"`
	} `json:"_embedded"`
}

type tmVenue struct {
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	// Discovery serializes coordinates as strings.
	Location struct {
		Latitude  string `json:"latitude"`
		Longitude string `json:"longitude"`
	} `json:"location"`
}

func (e *tmEvent) toCandidate(fallbackCity string, raw json.RawMessage) models.CandidateEvent {
	cand := models.CandidateEvent{
		SourceID:  e.ID,
		Title:     e.Name,
		StartTime: e.startTime(),
		Tags:      []string{SourceTicketmaster},
		Raw:       raw,
	}

	if desc := firstNonEmpty(e.Info, e.PleaseNote); desc != "" {
		cand.Description = &desc
	}
	if end, err := time.Parse(time.RFC3339, e.Dates.End.DateTime); err == nil {
		cand.EndTime = &end
	}
	if e.URL != "" {
		cand.TicketURL = &e.URL
	}
	if e.AgeRestrictions.LegalAgeEnforced {
		age := "18+"
		cand.AgeRestriction = &age
	}

	city := fallbackCity
	var venue tmVenue
	if len(e.Embedded.Venues) > 0 {
		venue = e.Embedded.Venues[0]
	}
	if venue.City.Name != "" {
		city = venue.City.Name
	}
	cand.City = &city
	if venue.Name != "" {
		name := venue.Name
		cand.VenueName = &name
	}
	if lat, err := strconv.ParseFloat(venue.Location.Latitude, 64); err == nil {
		cand.Latitude = &lat
	}
	if lon, err := strconv.ParseFloat(venue.Location.Longitude, 64); err == nil {
		cand.Longitude = &lon
	}

	if len(e.PriceRanges) > 0 {
		pr := e.PriceRanges[0]
		cand.PriceMin = &pr.Min
		cand.PriceMax = &pr.Max
		if pr.Currency != "" {
			cand.Currency = &pr.Currency
		}
	}

	for _, c := range e.Classifications {
		if c.Genre.Name != "" {
			cand.Genres = append(cand.Genres, strings.ToLower(c.Genre.Name))
		}
	}
	for _, img := range e.Images {
		cand.Images = append(cand.Images, models.EventImage{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	return cand
}

// startTime resolves the provider's layered start representations: a full
// UTC dateTime when present, else localDate plus localTime, else the bare
// localDate at midnight.
func (e *tmEvent) startTime() time.Time {
	s := e.Dates.Start
	if t, err := time.Parse(time.RFC3339, s.DateTime); err == nil {
		return t
	}
	if s.LocalDate != "" && s.LocalTime != "" {
		if t, err := time.Parse("2006-01-02T15:04:05", s.LocalDate+"T"+s.LocalTime); err == nil {
			return t
		}
	}
	if t, err := time.Parse("2006-01-02", s.LocalDate); err == nil {
		return t
	}
	return time.Time{}
}
