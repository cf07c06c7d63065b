// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/capturzoo/proximity/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadPOIs(t *testing.T) {
	path := writeFile(t, "pois.json", `[
		{"id": "polar-bears", "name": "Ours polaires", "latitude": 47.7325722919737, "longitude": 7.35002809820136, "category": "animal"},
		{"id": "sequoia", "name": "Séquoia géant", "latitude": 47.7337356521441, "longitude": 7.34905418430901, "category": "plant"},
		{"id": "picnic", "name": "Aire de pique-nique", "latitude": 47.7351371410331, "longitude": 7.34910517930985}
	]`)

	pois, err := LoadPOIs(path)
	if err != nil {
		t.Fatalf("LoadPOIs: %v", err)
	}
	if len(pois) != 3 {
		t.Fatalf("got %d POIs, want 3", len(pois))
	}
	if pois[0].Category != models.CategoryAnimal {
		t.Errorf("category = %q, want animal", pois[0].Category)
	}
	// Missing category falls back to "other".
	if pois[2].Category != models.CategoryOther {
		t.Errorf("missing category = %q, want other", pois[2].Category)
	}
}

func TestLoadPOIs_MissingID(t *testing.T) {
	path := writeFile(t, "pois.json", `[{"name": "anonymous", "latitude": 0, "longitude": 0}]`)
	if _, err := LoadPOIs(path); err == nil || !strings.Contains(err.Error(), "no id") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestLoadPOIs_FileMissing(t *testing.T) {
	if _, err := LoadPOIs(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadZones(t *testing.T) {
	path := writeFile(t, "zones.json", `[
		{"id": "wolves", "name": "Loups à crinière", "latitude": 47.7359862276551, "longitude": 7.34845876693106, "radius_meters": 25},
		{"id": "lemurs", "name": "Lémuriens", "latitude": 47.7341645866362, "longitude": 7.34772502774197, "radius_meters": 18}
	]`)

	zones, err := LoadZones(path)
	if err != nil {
		t.Fatalf("LoadZones: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("got %d zones, want 2", len(zones))
	}
	if zones[0].RadiusMeters != 25 {
		t.Errorf("radius = %v, want 25", zones[0].RadiusMeters)
	}
}

func TestLoadZones_Invalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"duplicate id", `[{"id":"a","radius_meters":5},{"id":"a","radius_meters":5}]`, "duplicate"},
		{"zero radius", `[{"id":"a","radius_meters":0}]`, "non-positive radius"},
		{"no id", `[{"radius_meters":5}]`, "no id"},
		{"bad json", `{`, "parse"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "zones.json", tc.content)
			_, err := LoadZones(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("got %v, want error containing %q", err, tc.wantErr)
			}
		})
	}
}
