// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/craiclab/gigcat/internal/metrics"
	"github.com/craiclab/gigcat/internal/models"
)

// PostgresStore backs the canonical catalog with a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresStore connects to Postgres, verifies reachability and ensures
// the catalog schema exists.
func NewPostgresStore(ctx context.Context, dsn string, logger zerolog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "postgres_store").Logger(),
	}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id              BIGSERIAL PRIMARY KEY,
			dedupe_key      TEXT NOT NULL UNIQUE,
			title           TEXT NOT NULL,
			description     TEXT,
			start_time      TIMESTAMPTZ NOT NULL,
			end_time        TIMESTAMPTZ,
			city            TEXT,
			latitude        DOUBLE PRECISION,
			longitude       DOUBLE PRECISION,
			venue_name      TEXT,
			ticket_url      TEXT,
			age_restriction TEXT,
			price_min       DOUBLE PRECISION,
			price_max       DOUBLE PRECISION,
			currency        TEXT,
			genres          JSONB NOT NULL DEFAULT '[]',
			tags            JSONB NOT NULL DEFAULT '[]',
			images          JSONB NOT NULL DEFAULT '[]',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_start_time ON events (start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_events_city ON events (city)`,
		`CREATE TABLE IF NOT EXISTS event_sources (
			source       TEXT NOT NULL,
			source_id    TEXT NOT NULL,
			event_id     BIGINT NOT NULL REFERENCES events (id) ON DELETE CASCADE,
			raw_payload  JSONB,
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (source, source_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_cursors (
			source         TEXT NOT NULL,
			city           TEXT NOT NULL,
			last_synced_at TIMESTAMPTZ NOT NULL,
			window_start   TIMESTAMPTZ NOT NULL,
			window_end     TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (source, city)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertEvent inserts the event, or replaces the descriptive fields of the
// row holding the same dedupe key. Last writer wins on every field, nulls
// included; only identity and creation time survive a rewrite.
func (s *PostgresStore) UpsertEvent(ctx context.Context, ev *models.CanonicalEvent) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.StoreUpsertDuration.WithLabelValues("event").Observe(time.Since(start).Seconds())
	}()

	genres, err := json.Marshal(sliceOrEmpty(ev.Genres))
	if err != nil {
		return 0, fmt.Errorf("marshal genres: %w", err)
	}
	tags, err := json.Marshal(sliceOrEmpty(ev.Tags))
	if err != nil {
		return 0, fmt.Errorf("marshal tags: %w", err)
	}
	images, err := json.Marshal(imagesOrEmpty(ev.Images))
	if err != nil {
		return 0, fmt.Errorf("marshal images: %w", err)
	}

	const q = `
		INSERT INTO events (
			dedupe_key, title, description, start_time, end_time,
			city, latitude, longitude, venue_name,
			ticket_url, age_restriction, price_min, price_max, currency,
			genres, tags, images, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, now()
		)
		ON CONFLICT (dedupe_key) DO UPDATE SET
			title           = EXCLUDED.title,
			description     = EXCLUDED.description,
			start_time      = EXCLUDED.start_time,
			end_time        = EXCLUDED.end_time,
			city            = EXCLUDED.city,
			latitude        = EXCLUDED.latitude,
			longitude       = EXCLUDED.longitude,
			venue_name      = EXCLUDED.venue_name,
			ticket_url      = EXCLUDED.ticket_url,
			age_restriction = EXCLUDED.age_restriction,
			price_min       = EXCLUDED.price_min,
			price_max       = EXCLUDED.price_max,
			currency        = EXCLUDED.currency,
			genres          = EXCLUDED.genres,
			tags            = EXCLUDED.tags,
			images          = EXCLUDED.images,
			updated_at      = now()
		RETURNING id`

	var id int64
	err = s.pool.QueryRow(ctx, q,
		ev.DedupeKey, ev.Title, ev.Description, ev.StartTime, ev.EndTime,
		ev.City, ev.Latitude, ev.Longitude, ev.VenueName,
		ev.TicketURL, ev.AgeRestriction, ev.PriceMin, ev.PriceMax, ev.Currency,
		genres, tags, images,
	).Scan(&id)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("event").Inc()
		return 0, fmt.Errorf("upsert event: %w", err)
	}
	return id, nil
}

// UpsertSourceLink records provenance for a provider listing, refreshing
// the raw payload and last_seen_at on repeat sightings.
func (s *PostgresStore) UpsertSourceLink(ctx context.Context, link *models.SourceLink) error {
	start := time.Now()
	defer func() {
		metrics.StoreUpsertDuration.WithLabelValues("source_link").Observe(time.Since(start).Seconds())
	}()

	const q = `
		INSERT INTO event_sources (source, source_id, event_id, raw_payload, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, source_id) DO UPDATE SET
			event_id     = EXCLUDED.event_id,
			raw_payload  = EXCLUDED.raw_payload,
			last_seen_at = EXCLUDED.last_seen_at`

	if _, err := s.pool.Exec(ctx, q, link.Source, link.SourceID, link.EventID, link.RawPayload, link.LastSeenAt); err != nil {
		metrics.StoreErrors.WithLabelValues("source_link").Inc()
		return fmt.Errorf("upsert source link: %w", err)
	}
	return nil
}

// GetCursor returns the ingestion cursor for (source, city), or nil when
// the pair has never been synced.
func (s *PostgresStore) GetCursor(ctx context.Context, source, city string) (*models.IngestCursor, error) {
	const q = `
		SELECT source, city, last_synced_at, window_start, window_end
		FROM ingest_cursors
		WHERE source = $1 AND city = $2`

	var cur models.IngestCursor
	err := s.pool.QueryRow(ctx, q, source, city).Scan(
		&cur.Source, &cur.City, &cur.LastSyncedAt, &cur.WindowStart, &cur.WindowEnd,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("cursor").Inc()
		return nil, fmt.Errorf("get cursor: %w", err)
	}
	return &cur, nil
}

// UpsertCursor records run completion for (source, city).
func (s *PostgresStore) UpsertCursor(ctx context.Context, cur *models.IngestCursor) error {
	start := time.Now()
	defer func() {
		metrics.StoreUpsertDuration.WithLabelValues("cursor").Observe(time.Since(start).Seconds())
	}()

	const q = `
		INSERT INTO ingest_cursors (source, city, last_synced_at, window_start, window_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, city) DO UPDATE SET
			last_synced_at = EXCLUDED.last_synced_at,
			window_start   = EXCLUDED.window_start,
			window_end     = EXCLUDED.window_end`

	if _, err := s.pool.Exec(ctx, q, cur.Source, cur.City, cur.LastSyncedAt, cur.WindowStart, cur.WindowEnd); err != nil {
		metrics.StoreErrors.WithLabelValues("cursor").Inc()
		return fmt.Errorf("upsert cursor: %w", err)
	}
	return nil
}

// SearchEvents returns canonical events matching the filter, ordered by
// start time ascending.
func (s *PostgresStore) SearchEvents(ctx context.Context, filter models.EventFilter) ([]models.CanonicalEvent, error) {
	q := `
		SELECT id, dedupe_key, title, description, start_time, end_time,
		       city, latitude, longitude, venue_name,
		       ticket_url, age_restriction, price_min, price_max, currency,
		       genres, tags, images, created_at, updated_at
		FROM events
		WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.City != "" {
		q += fmt.Sprintf(" AND lower(city) = lower($%d)", idx)
		args = append(args, filter.City)
		idx++
	}
	if filter.Genre != "" {
		q += fmt.Sprintf(" AND genres @> to_jsonb(ARRAY[lower($%d)])", idx)
		args = append(args, filter.Genre)
		idx++
	}
	if filter.From != nil {
		q += fmt.Sprintf(" AND start_time >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		q += fmt.Sprintf(" AND start_time <= $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	q += " ORDER BY start_time ASC"
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	q += fmt.Sprintf(" LIMIT $%d", idx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	var events []models.CanonicalEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		metrics.StoreErrors.WithLabelValues("search").Inc()
		return nil, fmt.Errorf("search events: %w", err)
	}
	return events, nil
}

// GetEvent returns one canonical event by row ID, or nil when absent.
func (s *PostgresStore) GetEvent(ctx context.Context, id int64) (*models.CanonicalEvent, error) {
	const q = `
		SELECT id, dedupe_key, title, description, start_time, end_time,
		       city, latitude, longitude, venue_name,
		       ticket_url, age_restriction, price_min, price_max, currency,
		       genres, tags, images, created_at, updated_at
		FROM events
		WHERE id = $1`

	row := s.pool.QueryRow(ctx, q, id)
	ev, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.StoreErrors.WithLabelValues("get").Inc()
		return nil, err
	}
	return ev, nil
}

// Ping verifies database reachability.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func scanEvent(row pgx.Row) (*models.CanonicalEvent, error) {
	var ev models.CanonicalEvent
	var genres, tags, images []byte
	err := row.Scan(
		&ev.ID, &ev.DedupeKey, &ev.Title, &ev.Description, &ev.StartTime, &ev.EndTime,
		&ev.City, &ev.Latitude, &ev.Longitude, &ev.VenueName,
		&ev.TicketURL, &ev.AgeRestriction, &ev.PriceMin, &ev.PriceMax, &ev.Currency,
		&genres, &tags, &images, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(genres, &ev.Genres); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	if err := json.Unmarshal(tags, &ev.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(images, &ev.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return &ev, nil
}

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func imagesOrEmpty(s []models.EventImage) []models.EventImage {
	if s == nil {
		return []models.EventImage{}
	}
	return s
}
