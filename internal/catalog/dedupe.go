// Gigcat - Event Listing Aggregation and Canonical Catalog
// Copyright 2026 Craic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/craiclab/gigcat

package catalog

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cross-source duplicate detection hashes three lossy components of a
// listing: a normalized title, a coarse geographic bucket, and the start
// time floored to the hour. Two providers describing the same gig with
// different casing, punctuation, coordinates a few metres apart, or start
// times inside the same hour collapse to a single key.

const geoNoLocation = "na"

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeTitle lowercases a title and collapses every run of
// non-alphanumeric characters to a single space. "DJ Shadow @ The Button
// Factory!" and "dj shadow the button factory" normalize identically.
func NormalizeTitle(title string) string {
	s := strings.ToLower(title)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// GeoBucket rounds coordinates to two decimal places, roughly a 1km cell.
// Either coordinate missing yields the "na" bucket: listings without
// location data can still merge on title and hour alone.
func GeoBucket(lat, lon *float64) string {
	if lat == nil || lon == nil {
		return geoNoLocation
	}
	return formatBucket(*lat) + "," + formatBucket(*lon)
}

func formatBucket(v float64) string {
	rounded := math.Round(v*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

// TimeBucket floors a start time to the hour in UTC.
func TimeBucket(start time.Time) string {
	return start.UTC().Truncate(time.Hour).Format(time.RFC3339)
}

// DedupeKey derives the canonical identity of a listing. The key is the
// hex SHA-1 of "title|geo|time" over the three buckets above. SHA-1 is an
// identity hash here, not a security boundary.
func DedupeKey(title string, lat, lon *float64, start time.Time) string {
	payload := NormalizeTitle(title) + "|" + GeoBucket(lat, lon) + "|" + TimeBucket(start)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
