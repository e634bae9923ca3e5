// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with defaults failed: %v", err)
	}

	if cfg.Ingest.DefaultCity != "Dublin" {
		t.Errorf("expected default city Dublin, got %q", cfg.Ingest.DefaultCity)
	}
	if cfg.Ingest.MaxPages != 5 {
		t.Errorf("expected default max pages 5, got %d", cfg.Ingest.MaxPages)
	}
	if cfg.Ingest.StalenessThreshold != 6*time.Hour {
		t.Errorf("expected default staleness threshold 6h, got %s", cfg.Ingest.StalenessThreshold)
	}
	if cfg.Lookup.Spotify.Cache.TTL != 24*time.Hour {
		t.Errorf("expected spotify cache TTL 24h, got %s", cfg.Lookup.Spotify.Cache.TTL)
	}
	if cfg.Lookup.YouTube.Cache.MaxEntries != 1000 {
		t.Errorf("expected youtube cache budget 1000, got %d", cfg.Lookup.YouTube.Cache.MaxEntries)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INGESTION_MAX_PAGES", "2")
	t.Setenv("INGESTION_DEFAULT_CITY", "Cork")
	t.Setenv("TICKETMASTER_API_KEY", "tm-key-123")
	t.Setenv("YOUTUBE_CACHE_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Ingest.MaxPages != 2 {
		t.Errorf("expected max pages 2 from env, got %d", cfg.Ingest.MaxPages)
	}
	if cfg.Ingest.DefaultCity != "Cork" {
		t.Errorf("expected city Cork from env, got %q", cfg.Ingest.DefaultCity)
	}
	if cfg.Ingest.Ticketmaster.APIKey != "tm-key-123" {
		t.Errorf("expected ticketmaster key from env, got %q", cfg.Ingest.Ticketmaster.APIKey)
	}
	if cfg.Lookup.YouTube.Cache.TTL != 30*time.Minute {
		t.Errorf("expected youtube TTL 30m from env, got %s", cfg.Lookup.YouTube.Cache.TTL)
	}
}

func TestLoad_UnmappedEnvIgnored(t *testing.T) {
	t.Setenv("PATH_LIKE_RANDOM_VAR", "should-not-leak")

	if _, err := Load(); err != nil {
		t.Fatalf("Load() should ignore unmapped env vars, got error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid defaults",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "bad port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: "server.port",
		},
		{
			name:    "zero max pages",
			mutate:  func(c *Config) { c.Ingest.MaxPages = 0 },
			wantErr: "max_pages",
		},
		{
			name:    "negative staleness",
			mutate:  func(c *Config) { c.Ingest.StalenessThreshold = -time.Hour },
			wantErr: "staleness_threshold",
		},
		{
			name:    "empty city",
			mutate:  func(c *Config) { c.Ingest.DefaultCity = "" },
			wantErr: "default_city",
		},
		{
			name:    "zero cache ttl",
			mutate:  func(c *Config) { c.Lookup.Mixcloud.Cache.TTL = 0 },
			wantErr: "lookup.mixcloud.cache.ttl",
		},
		{
			name:    "zero rate limit",
			mutate:  func(c *Config) { c.Server.RateLimitRequests = 0 },
			wantErr: "rate_limit_requests",
		},
		{
			name: "disabled rate limiting skips the check",
			mutate: func(c *Config) {
				c.Server.RateLimitRequests = 0
				c.Server.RateLimitDisabled = true
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}
