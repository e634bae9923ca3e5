// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the payload of the health endpoints.
type HealthStatus struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Database string `json:"database"`
	Version  string `json:"version,omitempty"`
}

// Version is stamped at build time via -ldflags.
var Version = "dev"

const healthPingTimeout = 2 * time.Second

// Health serves GET /api/v1/health with component detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	status := HealthStatus{Status: "ok", Database: "ok", Version: Version}

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		status.Status = "degraded"
		status.Database = err.Error()
	}

	rw.Success(status)
}

// HealthLive serves GET /api/v1/health/live. It answers 200 whenever the
// process can serve requests at all; no dependencies are checked.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]string{"status": "ok"})
}

// HealthReady serves GET /api/v1/health/ready. Readiness requires the
// canonical store to answer a ping.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		rw.ServiceUnavailable("canonical store unreachable")
		return
	}
	rw.Success(map[string]string{"status": "ready"})
}
