// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package models defines the shared domain types: points of interest,
// visitor positions, enclosure zones, and the API response envelope.
package models

import "time"

// POICategory classifies a point of interest on the zoo map.
type POICategory string

const (
	CategoryAnimal    POICategory = "animal"
	CategoryPlant     POICategory = "plant"
	CategoryPractical POICategory = "practical"
	CategoryOther     POICategory = "other"
)

// POI is a named geographic location on the zoo map. The list is loaded once
// at process start and is immutable for the process lifetime.
type POI struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Category  POICategory `json:"category"`
	Image     string      `json:"image,omitempty"`
	Icon      string      `json:"icon,omitempty"`
}

// POIAffluence is a POI annotated with its current occupancy count.
// The count is transient: recomputed on every position change, never stored.
type POIAffluence struct {
	POI
	Affluence int `json:"affluence"`
}

// Position is the most recent location sample for a connected visitor.
// No history is retained; each update overwrites the previous value.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EnclosureZone is a circular geofence around a capturable exhibit.
// Zones are static for the session and configured, not computed.
type EnclosureZone struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// APIResponse is the JSON envelope returned by every REST endpoint.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
}

// APIError is a structured error payload.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
