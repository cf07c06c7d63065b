// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package catalog loads the static point-of-interest and enclosure zone
// definitions. Both lists are read once at startup and shared read-only by
// every evaluation, so no locking is needed after load.
package catalog

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/capturzoo/proximity/internal/models"
)

// LoadPOIs reads the POI list from a JSON file.
func LoadPOIs(path string) ([]models.POI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read poi catalog: %w", err)
	}

	var pois []models.POI
	if err := json.Unmarshal(data, &pois); err != nil {
		return nil, fmt.Errorf("parse poi catalog %s: %w", path, err)
	}

	for i := range pois {
		if pois[i].ID == "" {
			return nil, fmt.Errorf("poi catalog %s: entry %d has no id", path, i)
		}
		if pois[i].Category == "" {
			pois[i].Category = models.CategoryOther
		}
	}

	return pois, nil
}

// LoadZones reads the enclosure zone list from a JSON file.
func LoadZones(path string) ([]models.EnclosureZone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone catalog: %w", err)
	}

	var zones []models.EnclosureZone
	if err := json.Unmarshal(data, &zones); err != nil {
		return nil, fmt.Errorf("parse zone catalog %s: %w", path, err)
	}

	seen := make(map[string]struct{}, len(zones))
	for i, z := range zones {
		if z.ID == "" {
			return nil, fmt.Errorf("zone catalog %s: entry %d has no id", path, i)
		}
		if _, dup := seen[z.ID]; dup {
			return nil, fmt.Errorf("zone catalog %s: duplicate zone id %q", path, z.ID)
		}
		seen[z.ID] = struct{}{}
		if z.RadiusMeters <= 0 {
			return nil, fmt.Errorf("zone catalog %s: zone %q has non-positive radius", path, z.ID)
		}
	}

	return zones, nil
}
