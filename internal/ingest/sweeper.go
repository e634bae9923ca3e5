// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/config"
)

// Sweeper proactively resyncs the default city on a fixed interval, so
// the catalog stays warm even when nobody is searching. It implements
// suture.Service and is restarted by the supervisor on failure.
type Sweeper struct {
	orch     *Orchestrator
	city     string
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper builds the periodic sweeper from the ingest configuration.
func NewSweeper(orch *Orchestrator, cfg config.IngestConfig, logger zerolog.Logger) *Sweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		orch:     orch,
		city:     cfg.DefaultCity,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Serve implements suture.Service. Blocks until ctx is canceled.
func (s *Sweeper) Serve(ctx context.Context) error {
	s.logger.Info().Str("city", s.city).Dur("interval", s.interval).Msg("Starting ingestion sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// One pass at startup so a fresh deployment does not wait a full
	// interval for its first catalog.
	s.orch.MaybeResync(s.city)

	for {
		select {
		case <-ticker.C:
			s.orch.MaybeResync(s.city)
		case <-ctx.Done():
			s.logger.Info().Msg("Stopping ingestion sweeper")
			return ctx.Err()
		}
	}
}

// String names the service in supervisor logs.
func (s *Sweeper) String() string { return "ingest-sweeper" }
