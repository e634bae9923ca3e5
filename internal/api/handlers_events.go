// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/craiclab/gigcat/internal/models"
)

// SearchEvents serves GET /api/v1/events.
//
// Query parameters: city, genre, from, to (RFC3339), limit. Before running
// the query the handler hands the searched city to the orchestrator, which
// refreshes stale sources in the background; the response is always served
// from the catalog as it currently stands.
func (h *Handler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	q := r.URL.Query()

	from, err := queryTime(q.Get("from"))
	if err != nil {
		rw.BadRequest("invalid 'from' parameter, expected RFC3339 timestamp")
		return
	}
	to, err := queryTime(q.Get("to"))
	if err != nil {
		rw.BadRequest("invalid 'to' parameter, expected RFC3339 timestamp")
		return
	}
	if from != nil && to != nil && to.Before(*from) {
		rw.BadRequest("'to' must not precede 'from'")
		return
	}

	filter := models.EventFilter{
		City:  strings.TrimSpace(q.Get("city")),
		Genre: strings.TrimSpace(q.Get("genre")),
		From:  from,
		To:    to,
		Limit: queryLimit(q.Get("limit")),
	}

	if h.resyncer != nil {
		h.resyncer.MaybeResync(filter.City)
	}

	events, err := h.store.SearchEvents(r.Context(), filter)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if events == nil {
		events = []models.CanonicalEvent{}
	}
	rw.SuccessWithCount(events, len(events))
}

// EventByID serves GET /api/v1/events/{id}.
func (h *Handler) EventByID(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		rw.BadRequest("invalid event id")
		return
	}

	event, err := h.store.GetEvent(r.Context(), id)
	if err != nil {
		rw.DatabaseError(err)
		return
	}
	if event == nil {
		rw.NotFound("event not found")
		return
	}
	rw.Success(event)
}
