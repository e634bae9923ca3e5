// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/craiclab/gigcat/internal/catalog"
	"github.com/craiclab/gigcat/internal/models"
)

// fakeResyncer records MaybeResync calls.
type fakeResyncer struct {
	mu     sync.Mutex
	cities []string
}

func (f *fakeResyncer) MaybeResync(city string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cities = append(f.cities, city)
}

func (f *fakeResyncer) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cities...)
}

// fakeArtistSource serves canned profiles or a fixed error.
type fakeArtistSource struct {
	profiles []models.ArtistProfile
	err      error
}

func (f *fakeArtistSource) Enabled() bool { return true }

func (f *fakeArtistSource) SearchArtists(context.Context, string, int) ([]models.ArtistProfile, error) {
	return f.profiles, f.err
}

func (f *fakeArtistSource) GetArtist(context.Context, string) (models.ArtistProfile, error) {
	if f.err != nil {
		return models.ArtistProfile{}, f.err
	}
	return f.profiles[0], nil
}

func (f *fakeArtistSource) GetRelatedArtists(context.Context, string, int) ([]models.ArtistProfile, error) {
	return f.profiles, f.err
}

func (f *fakeArtistSource) GetTopTracks(context.Context, string, string) ([]models.TopTrack, error) {
	return nil, f.err
}

func seedStore(t *testing.T, store *catalog.MemoryStore, title, city string, start time.Time) int64 {
	t.Helper()
	cityVal := city
	id, err := store.UpsertEvent(context.Background(), &models.CanonicalEvent{
		DedupeKey: title + "|" + city,
		Title:     title,
		StartTime: start,
		City:      &cityVal,
		Genres:    []string{"techno"},
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return id
}

func newTestServer(t *testing.T, store *catalog.MemoryStore, resyncer Resyncer, artists ArtistSource) *httptest.Server {
	t.Helper()
	handler := NewHandler(store, resyncer, artists, nil, nil, nil)
	srv := httptest.NewServer(NewRouter(handler, &ChiMiddlewareConfig{RateLimitDisabled: true}).Setup())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, APIResponse) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var body APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.StatusCode, body
}

func TestSearchEvents_FiltersAndTriggersResync(t *testing.T) {
	store := catalog.NewMemoryStore()
	seedStore(t, store, "Bicep Live", "Dublin", time.Now().Add(24*time.Hour))
	seedStore(t, store, "Corner Boys", "Cork", time.Now().Add(48*time.Hour))
	resyncer := &fakeResyncer{}
	srv := newTestServer(t, store, resyncer, nil)

	status, body := getJSON(t, srv.URL+"/api/v1/events?city=Dublin")
	if status != http.StatusOK || !body.Success {
		t.Fatalf("status=%d success=%v", status, body.Success)
	}
	if body.Meta == nil || body.Meta.Count != 1 {
		t.Fatalf("meta = %#v, want count 1", body.Meta)
	}
	if calls := resyncer.calls(); len(calls) != 1 || calls[0] != "Dublin" {
		t.Errorf("resync calls = %v", calls)
	}
}

func TestSearchEvents_RejectsBadTimestamps(t *testing.T) {
	srv := newTestServer(t, catalog.NewMemoryStore(), &fakeResyncer{}, nil)

	status, body := getJSON(t, srv.URL+"/api/v1/events?from=yesterday")
	if status != http.StatusBadRequest || body.Success {
		t.Fatalf("status=%d success=%v", status, body.Success)
	}
	if body.Error == nil || body.Error.Code != ErrCodeBadRequest {
		t.Errorf("error = %#v", body.Error)
	}
}

func TestEventByID(t *testing.T) {
	store := catalog.NewMemoryStore()
	id := seedStore(t, store, "Bicep Live", "Dublin", time.Now().Add(24*time.Hour))
	srv := newTestServer(t, store, &fakeResyncer{}, nil)

	status, body := getJSON(t, srv.URL+"/api/v1/events/"+strconv.FormatInt(id, 10))
	if status != http.StatusOK || !body.Success {
		t.Fatalf("status=%d success=%v", status, body.Success)
	}

	status, body = getJSON(t, srv.URL+"/api/v1/events/99999")
	if status != http.StatusNotFound || body.Error == nil || body.Error.Code != ErrCodeNotFound {
		t.Fatalf("missing event status=%d error=%#v", status, body.Error)
	}

	status, _ = getJSON(t, srv.URL+"/api/v1/events/zero")
	if status != http.StatusBadRequest {
		t.Fatalf("non-numeric id status=%d", status)
	}
}

func TestSearchArtists_DegradesToEmptyOnFailure(t *testing.T) {
	artists := &fakeArtistSource{err: errors.New("upstream exploded")}
	srv := newTestServer(t, catalog.NewMemoryStore(), &fakeResyncer{}, artists)

	status, body := getJSON(t, srv.URL+"/api/v1/artists/search?q=bicep")
	if status != http.StatusOK || !body.Success {
		t.Fatalf("status=%d success=%v, lookup failures must not surface as errors", status, body.Success)
	}
	if body.Meta == nil || body.Meta.Count != 0 {
		t.Errorf("meta = %#v, want empty result", body.Meta)
	}
}

func TestSearchArtists_ReturnsProfiles(t *testing.T) {
	artists := &fakeArtistSource{profiles: []models.ArtistProfile{{Name: "Bicep", SpotifyID: "4cPH", Genres: []string{}}}}
	srv := newTestServer(t, catalog.NewMemoryStore(), &fakeResyncer{}, artists)

	status, body := getJSON(t, srv.URL+"/api/v1/artists/search?q=bicep")
	if status != http.StatusOK || body.Meta == nil || body.Meta.Count != 1 {
		t.Fatalf("status=%d meta=%#v", status, body.Meta)
	}

	status, body = getJSON(t, srv.URL+"/api/v1/artists/search")
	if status != http.StatusBadRequest || body.Error == nil {
		t.Fatalf("blank query status=%d error=%#v", status, body.Error)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, catalog.NewMemoryStore(), &fakeResyncer{}, nil)

	status, body := getJSON(t, srv.URL+"/api/v1/health")
	if status != http.StatusOK || !body.Success {
		t.Fatalf("health status=%d success=%v", status, body.Success)
	}

	status, _ = getJSON(t, srv.URL+"/api/v1/health/live")
	if status != http.StatusOK {
		t.Fatalf("live status=%d", status)
	}

	status, _ = getJSON(t, srv.URL+"/api/v1/health/ready")
	if status != http.StatusOK {
		t.Fatalf("ready status=%d", status)
	}
}

func TestRequestIDHeaderRoundTrip(t *testing.T) {
	srv := newTestServer(t, catalog.NewMemoryStore(), &fakeResyncer{}, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/health/live", nil)
	req.Header.Set("X-Request-ID", "trace-me-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "trace-me-123" {
		t.Errorf("X-Request-ID = %q, want the client-supplied ID echoed", got)
	}

	var body APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Meta == nil || body.Meta.RequestID != "trace-me-123" {
		t.Errorf("meta request ID = %#v", body.Meta)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	srv := newTestServer(t, catalog.NewMemoryStore(), &fakeResyncer{}, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
}
