// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/config"
)

const ebSearchPage = `{
	"events": [{
		"id": "751234",
		"name": {"text": "Techno & Cans"},
		"description": {"text": "BYOB warehouse session"},
		"start": {"utc": "2026-06-20T21:00:00Z", "local": "2026-06-20T22:00:00"},
		"end": {"utc": "2026-06-21T02:00:00Z"},
		"url": "https://www.eventbrite.ie/e/751234",
		"is_free": true,
		"currency": "EUR",
		"venue": {
			"name": "The Complex",
			"address": {"city": "Dublin", "latitude": "53.3489", "longitude": "-6.2701"}
		},
		"logo": {"url": "https://img.eb/techno.png"}
	}],
	"pagination": {"has_more_items": true}
}`

const ebOrgFeed = `{
	"events": [{
		"id": "880001",
		"name": {"text": "Org Showcase"},
		"start": {"utc": "2026-07-01T20:00:00Z"},
		"venue": {"name": "Workmans Club", "address": {"city": "Dublin"}}
	}],
	"pagination": {"has_more_items": false}
}`

func newEBAdapter(t *testing.T, handler http.HandlerFunc) *EventbriteAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	a := NewEventbriteAdapter(config.EventbriteConfig{Token: "test-token"}, 5*time.Second, zerolog.Nop())
	a.baseURL = srv.URL
	return a
}

func TestEventbriteAdapter_FetchPage(t *testing.T) {
	var gotAuth string
	a := newEBAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if !strings.HasPrefix(r.URL.Path, "/events/search/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(ebSearchPage))
	})

	page, err := a.FetchPage(context.Background(), "Dublin", testWindow(), "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if !page.HasMore || page.NextToken != "2" {
		t.Errorf("pagination = hasMore %v token %q, want more with token 2", page.HasMore, page.NextToken)
	}
	if len(page.Candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(page.Candidates))
	}

	c := page.Candidates[0]
	if c.SourceID != "751234" || c.Title != "Techno & Cans" {
		t.Errorf("identity = %q / %q", c.SourceID, c.Title)
	}
	if !c.StartTime.Equal(time.Date(2026, 6, 20, 21, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %s, want the UTC timestamp", c.StartTime)
	}
	if c.PriceMin == nil || *c.PriceMin != 0 || c.PriceMax == nil || *c.PriceMax != 0 {
		t.Error("free event must map to a zero price range")
	}
	if c.Latitude == nil || *c.Latitude != 53.3489 {
		t.Error("venue latitude not parsed from its string form")
	}
	if len(c.Images) != 1 || c.Images[0].URL != "https://img.eb/techno.png" {
		t.Errorf("logo not mapped: %v", c.Images)
	}
}

func TestEventbriteAdapter_OrganizationFallbackOn404(t *testing.T) {
	var paths []string
	a := newEBAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasPrefix(r.URL.Path, "/events/search/"):
			// Definitive rejection for this token generation.
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/users/me/organizations/":
			w.Write([]byte(`{"organizations": [{"id": "org-1"}, {"id": "org-2"}]}`))
		case strings.HasPrefix(r.URL.Path, "/organizations/"):
			w.Write([]byte(ebOrgFeed))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	page, err := a.FetchPage(context.Background(), "Dublin", testWindow(), "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if page.HasMore {
		t.Error("organization fallback is single-shot, must report no more pages")
	}
	// One candidate per organization feed.
	if len(page.Candidates) != 2 {
		t.Fatalf("candidates = %d, want 2 (one per organization)", len(page.Candidates))
	}
	if page.Candidates[0].Title != "Org Showcase" {
		t.Errorf("title = %q", page.Candidates[0].Title)
	}

	wantOrder := []string{"/events/search/", "/users/me/organizations/", "/organizations/org-1/events/", "/organizations/org-2/events/"}
	if len(paths) != len(wantOrder) {
		t.Fatalf("requests = %v", paths)
	}
	for i, want := range wantOrder {
		if paths[i] != want {
			t.Errorf("request %d = %s, want %s", i, paths[i], want)
		}
	}
}

func TestEventbriteAdapter_404OnLaterPageIsNotFallback(t *testing.T) {
	a := newEBAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	// A 404 mid-pagination is a plain permanent error, not the
	// structural token signal, which only appears on the first page.
	_, err := a.FetchPage(context.Background(), "Dublin", testWindow(), "3")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsPermanent(err) {
		t.Errorf("mid-pagination 404 must classify as permanent: %v", err)
	}
}

func TestEventbriteAdapter_OrganizationFallbackIsCapped(t *testing.T) {
	var feedRequests int
	a := newEBAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/events/search/"):
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/users/me/organizations/":
			var orgs []string
			for i := 0; i < maxFallbackOrgs+5; i++ {
				orgs = append(orgs, fmt.Sprintf(`{"id": "org-%d"}`, i))
			}
			w.Write([]byte(`{"organizations": [` + strings.Join(orgs, ",") + `]}`))
		default:
			feedRequests++
			w.Write([]byte(ebOrgFeed))
		}
	})

	page, err := a.FetchPage(context.Background(), "Dublin", testWindow(), "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if feedRequests != maxFallbackOrgs {
		t.Errorf("feed requests = %d, want the enumeration truncated at %d", feedRequests, maxFallbackOrgs)
	}
	if len(page.Candidates) != maxFallbackOrgs {
		t.Errorf("candidates = %d, want %d", len(page.Candidates), maxFallbackOrgs)
	}
}

func TestEventbriteAdapter_BrokenOrgFeedIsSkipped(t *testing.T) {
	a := newEBAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/events/search/"):
			w.WriteHeader(http.StatusNotFound)
		case r.URL.Path == "/users/me/organizations/":
			w.Write([]byte(`{"organizations": [{"id": "org-bad"}, {"id": "org-good"}]}`))
		case strings.HasPrefix(r.URL.Path, "/organizations/org-bad/"):
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.Write([]byte(ebOrgFeed))
		}
	})

	page, err := a.FetchPage(context.Background(), "Dublin", testWindow(), "")
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(page.Candidates) != 1 {
		t.Errorf("candidates = %d, want 1 from the healthy organization", len(page.Candidates))
	}
}
