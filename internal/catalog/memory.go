// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/craiclab/gigcat/internal/models"
)

// MemoryStore is an in-process EventStore. It backs standalone deployments
// that run without a database and every test that exercises the write path.
// Upsert semantics mirror the Postgres store: last writer wins on every
// descriptive field, including nil ones.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	events  map[string]*models.CanonicalEvent // dedupe key -> event
	byID    map[int64]*models.CanonicalEvent
	links   map[string]*models.SourceLink // source + "|" + source id
	cursors map[string]*models.IngestCursor
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:  1,
		events:  make(map[string]*models.CanonicalEvent),
		byID:    make(map[int64]*models.CanonicalEvent),
		links:   make(map[string]*models.SourceLink),
		cursors: make(map[string]*models.IngestCursor),
	}
}

func (s *MemoryStore) UpsertEvent(_ context.Context, ev *models.CanonicalEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := s.events[ev.DedupeKey]
	if !ok {
		stored := *ev
		stored.ID = s.nextID
		s.nextID++
		stored.CreatedAt = now
		stored.UpdatedAt = now
		s.events[stored.DedupeKey] = &stored
		s.byID[stored.ID] = &stored
		return stored.ID, nil
	}

	// Last writer wins wholesale; only identity and creation time survive.
	stored := *ev
	stored.ID = existing.ID
	stored.DedupeKey = existing.DedupeKey
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = now
	*existing = stored
	return existing.ID, nil
}

func (s *MemoryStore) UpsertSourceLink(_ context.Context, link *models.SourceLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *link
	s.links[link.Source+"|"+link.SourceID] = &stored
	return nil
}

func (s *MemoryStore) GetCursor(_ context.Context, source, city string) (*models.IngestCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.cursors[source+"|"+city]
	if !ok {
		return nil, nil
	}
	copied := *cur
	return &copied, nil
}

func (s *MemoryStore) UpsertCursor(_ context.Context, cur *models.IngestCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *cur
	s.cursors[cur.Source+"|"+cur.City] = &stored
	return nil
}

func (s *MemoryStore) SearchEvents(_ context.Context, filter models.EventFilter) ([]models.CanonicalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.CanonicalEvent
	for _, ev := range s.events {
		if filter.City != "" && (ev.City == nil || !strings.EqualFold(*ev.City, filter.City)) {
			continue
		}
		if filter.Genre != "" && !containsFold(ev.Genres, filter.Genre) {
			continue
		}
		if filter.From != nil && ev.StartTime.Before(*filter.From) {
			continue
		}
		if filter.To != nil && ev.StartTime.After(*filter.To) {
			continue
		}
		out = append(out, *ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) GetEvent(_ context.Context, id int64) (*models.CanonicalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	copied := *ev
	return &copied, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}

// SourceLink returns the stored provenance link for (source, sourceID), or
// nil when absent. Test helper, not part of EventStore.
func (s *MemoryStore) SourceLink(source, sourceID string) *models.SourceLink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[source+"|"+sourceID]
	if !ok {
		return nil
	}
	copied := *link
	return &copied
}

// EventCount returns the number of canonical rows. Test helper.
func (s *MemoryStore) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
