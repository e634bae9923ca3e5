// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"errors"
	"fmt"

	"github.com/craiclab/gigcat/internal/remotecache"
)

// Skip reasons reported in run outcomes.
const (
	ReasonMissingAPIKey     = "missing_api_key"
	ReasonMissingAPIToken   = "missing_api_token"
	ReasonRenderUnavailable = "render_unavailable"
	ReasonDisabled          = "ingestion_disabled"
)

// RenderUnavailableError marks a browser-rendered source whose render
// collaborator failed and whose direct-fetch fallback found no embedded
// data block. The source is skipped for the run, never failed.
type RenderUnavailableError struct {
	URL    string
	Reason string
}

func (e *RenderUnavailableError) Error() string {
	return fmt.Sprintf("render unavailable for %s: %s", e.URL, e.Reason)
}

// IsRenderUnavailable reports whether err is a render collaborator failure.
func IsRenderUnavailable(err error) bool {
	var re *RenderUnavailableError
	return errors.As(err, &re)
}

// IsPermanent reports whether err is a non-retryable upstream rejection,
// a 4xx other than 429. Permanent errors abort the failing source's run
// and leave the other sources untouched.
func IsPermanent(err error) bool {
	var ue *remotecache.UpstreamError
	if !errors.As(err, &ue) {
		return false
	}
	return ue.StatusCode >= 400 && ue.StatusCode < 500 && !remotecache.IsRateLimited(err)
}
