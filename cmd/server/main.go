// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

// Package main is the entry point for the Gigcat server application.
//
// Gigcat aggregates live-music event listings from several unreliable
// upstream providers into a single canonical, deduplicated catalog, and
// serves that catalog over a REST API together with best-effort artist
// and DJ metadata lookups.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: settings from environment variables and config files (Koanf v2)
//  2. Event store: PostgreSQL via pgx, or an in-memory store when no DSN is set
//  3. Ingestion: source adapters (ticketing API, community-events API,
//     browser-rendered listings via the render collaborator) behind the
//     resync orchestrator
//  4. Lookup clients: streaming, mix, audio, and video platform clients,
//     each behind its own resilient remote-lookup cache
//  5. HTTP server: Chi REST API with Prometheus metrics on /metrics
//
// Everything long-running goes under a suture supervisor tree: a failed
// ingestion sweeper or HTTP listener is restarted with backoff instead of
// taking the process down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (TICKETMASTER_API_KEY, DATABASE_DSN, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Standalone Mode
//
// Gigcat runs without PostgreSQL when DATABASE_DSN is empty: the catalog
// lives in memory and is rebuilt from the providers on the next resync.
// Useful for development and for throwaway deployments; the cursor
// history is lost on restart, so every boot ingests from scratch.
//
// Provider credentials are all optional. A source with no credential is
// skipped without consuming its resync cursor; a lookup platform with no
// credential answers with empty results. The server is useful with any
// subset configured.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Stops the ingestion sweeper and closes the database pool
//
// # Example Usage
//
// Development, in-memory catalog, ticketing provider only:
//
//	export DATABASE_DSN=
//	export TICKETMASTER_API_KEY=your-discovery-api-key
//	./gigcat
//
// Production with PostgreSQL and the full provider set:
//
//	export DATABASE_DSN=postgres://gigcat:secret@db:5432/gigsdb
//	export TICKETMASTER_API_KEY=...
//	export EVENTBRITE_API_TOKEN=...
//	export XRAVES_RENDER_URL=http://render:3000
//	export SPOTIFY_CLIENT_ID=...
//	export SPOTIFY_CLIENT_SECRET=...
//	export INGESTION_SWEEP_INTERVAL=6h
//	./gigcat
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craiclab/gigcat/internal/api"
	"github.com/craiclab/gigcat/internal/catalog"
	"github.com/craiclab/gigcat/internal/config"
	"github.com/craiclab/gigcat/internal/ingest"
	"github.com/craiclab/gigcat/internal/logging"
	"github.com/craiclab/gigcat/internal/lookup"
	"github.com/craiclab/gigcat/internal/supervisor"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Gigcat with supervisor tree")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Event store: PostgreSQL when a DSN is configured, otherwise an
	// in-memory store (standalone mode).
	var store catalog.EventStore
	if cfg.Database.DSN != "" {
		pg, err := catalog.NewPostgresStore(ctx, cfg.Database.DSN, logging.Logger())
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to event store")
		}
		defer pg.Close()
		store = pg
		logging.Info().Msg("Connected to PostgreSQL event store")
	} else {
		store = catalog.NewMemoryStore()
		logging.Warn().Msg("No database DSN configured - using in-memory event store (standalone mode, catalog is lost on restart)")
	}

	canon := catalog.NewCanonicalizer(store, logging.Logger())

	// Source adapters. All three are always registered; an adapter with no
	// credential reports itself disabled and the orchestrator skips it
	// without consuming its resync cursor.
	render := ingest.NewRenderClient(cfg.Ingest.XRaves.RenderURL, cfg.Ingest.HTTPTimeout, logging.Logger())
	adapters := []ingest.SourceAdapter{
		ingest.NewTicketmasterAdapter(cfg.Ingest.Ticketmaster, cfg.Ingest.HTTPTimeout, logging.Logger()),
		ingest.NewEventbriteAdapter(cfg.Ingest.Eventbrite, cfg.Ingest.HTTPTimeout, logging.Logger()),
		ingest.NewXRavesAdapter(cfg.Ingest.XRaves, render, logging.Logger()),
	}
	for _, adapter := range adapters {
		logging.Info().
			Str("source", adapter.Name()).
			Bool("enabled", adapter.Enabled()).
			Msg("Source adapter registered")
	}

	orch := ingest.NewOrchestrator(store, canon, adapters, cfg.Ingest, logging.Logger())
	if !cfg.Ingest.Enabled {
		logging.Warn().Msg("Ingestion disabled (INGESTION_ENABLED=false) - catalog is read-only")
	}

	// Lookup clients. Each owns an independent resilient cache; a client
	// with no credential answers with empty results instead of erroring.
	spotify := lookup.NewSpotifyClient(cfg.Lookup.Spotify, logging.Logger())
	mixcloud := lookup.NewMixcloudClient(cfg.Lookup.Mixcloud, logging.Logger())
	soundcloud := lookup.NewSoundCloudClient(cfg.Lookup.SoundCloud, logging.Logger())
	youtube := lookup.NewYouTubeClient(cfg.Lookup.YouTube, logging.Logger())
	if !spotify.Enabled() {
		logging.Info().Msg("Streaming-platform credentials not configured - artist lookups will return empty results")
	}

	handler := api.NewHandler(store, orch, spotify, mixcloud, soundcloud, youtube)
	router := api.NewRouter(handler, &api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type"},
		CORSMaxAge:         86400,

		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		RateLimitDisabled: cfg.Server.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Ingest layer services
	if cfg.Ingest.Enabled && cfg.Ingest.SweepInterval > 0 {
		tree.AddIngestService(ingest.NewSweeper(orch, cfg.Ingest, logging.Logger()))
		logging.Info().
			Dur("interval", cfg.Ingest.SweepInterval).
			Str("city", cfg.Ingest.DefaultCity).
			Msg("Ingestion sweeper added to supervisor tree")
	} else {
		logging.Info().Msg("Periodic sweeper disabled - resyncs are search-triggered only")
	}

	// API layer services
	tree.AddAPIService(supervisor.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
