// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package catalog

import (
	"testing"
	"time"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Fontaines D.C.", "fontaines d c"},
		{"collapses punctuation runs", "DJ Shadow @ The Button Factory!!!", "dj shadow the button factory"},
		{"trims edges", "  ~~Warehouse Project~~  ", "warehouse project"},
		{"digits survive", "2manydjs (Live)", "2manydjs live"},
		{"empty stays empty", "", ""},
		{"only punctuation", "***", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.input); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGeoBucket(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		lat  *float64
		lon  *float64
		want string
	}{
		{"rounds to two decimals", f(53.3498), f(-6.2603), "53.35,-6.26"},
		{"trims trailing zeros", f(53.3), f(-6.2), "53.3,-6.2"},
		{"integral coordinate", f(53.0), f(-6.0), "53,-6"},
		{"missing latitude", nil, f(-6.26), "na"},
		{"missing longitude", f(53.35), nil, "na"},
		{"missing both", nil, nil, "na"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GeoBucket(tt.lat, tt.lon); got != tt.want {
				t.Errorf("GeoBucket = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTimeBucket(t *testing.T) {
	in := time.Date(2026, 5, 1, 20, 45, 12, 987654321, time.UTC)
	want := "2026-05-01T20:00:00Z"
	if got := TimeBucket(in); got != want {
		t.Errorf("TimeBucket = %q, want %q", got, want)
	}

	// Non-UTC inputs bucket in UTC, not wall-clock time.
	dublin := time.FixedZone("IST", 3600)
	in = time.Date(2026, 5, 1, 21, 15, 0, 0, dublin)
	if got := TimeBucket(in); got != want {
		t.Errorf("TimeBucket(non-UTC) = %q, want %q", got, want)
	}
}

func TestDedupeKey_CollidesAcrossProviderNoise(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	base := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

	a := DedupeKey("Fontaines D.C. live!", f(53.3498), f(-6.2603), base)
	b := DedupeKey("fontaines dc live", f(53.3501), f(-6.2598), base.Add(45*time.Minute))
	if a == b {
		// Title normalization keeps the separating space, so "D.C." and
		// "dc" normalize differently and must not collide.
		t.Fatal("distinct normalized titles produced the same key")
	}

	c := DedupeKey("Fontaines D.C. live!", f(53.3498), f(-6.2603), base)
	d := DedupeKey("fontaines d.c. LIVE", f(53.3501), f(-6.2598), base.Add(45*time.Minute))
	if c != d {
		t.Error("same gig with provider noise produced different keys")
	}

	e := DedupeKey("Fontaines D.C. live!", f(53.3498), f(-6.2603), base.Add(time.Hour))
	if c == e {
		t.Error("different hour bucket must produce a different key")
	}
}

func TestDedupeKey_NoLocationSentinel(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	start := time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

	// Two location-less listings of the same title and hour share a key.
	a := DedupeKey("Secret Warehouse Rave", nil, nil, start)
	b := DedupeKey("secret warehouse rave!", nil, nil, start.Add(30*time.Minute))
	if a != b {
		t.Error("location-less listings with same title and hour must collide")
	}

	// A located listing never collides with the "na" bucket.
	c := DedupeKey("Secret Warehouse Rave", f(53.35), f(-6.26), start)
	if a == c {
		t.Error("located listing must not collide with the no-location bucket")
	}
}
