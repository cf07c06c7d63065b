// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package geo

import (
	"math"
	"testing"
)

func TestDistance_IdenticalPoints(t *testing.T) {
	points := []struct {
		name     string
		lat, lon float64
	}{
		{"origin", 0, 0},
		{"zoo", 47.7359161766421, 7.35098874264392},
		{"pole", 90, 0},
		{"negative", -33.8688, 151.2093},
	}

	for _, p := range points {
		if d := Distance(p.lat, p.lon, p.lat, p.lon); d != 0 {
			t.Errorf("%s: Distance(p, p) = %v, want 0", p.name, d)
		}
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := []float64{47.7359161766421, 7.35098874264392}
	b := []float64{47.7326599448522, 7.34860832807854}

	ab := Distance(a[0], a[1], b[0], b[1])
	ba := Distance(b[0], b[1], a[0], a[1])
	if ab != ba {
		t.Errorf("distance not symmetric: %v != %v", ab, ba)
	}
}

func TestDistance_EquatorLatitudeDegree(t *testing.T) {
	// 0.001 degrees of latitude at the equator is about 111.19 m.
	d := Distance(0, 0, 0.001, 0)
	want := 111.19
	if math.Abs(d-want)/want > 0.01 {
		t.Errorf("Distance over 0.001 deg latitude = %v m, want %v m ±1%%", d, want)
	}
}

func TestDistance_Antipodal(t *testing.T) {
	// Antipodal points are half the circumference apart: π·R.
	d := Distance(0, 0, 0, 180)
	want := math.Pi * EarthRadiusMeters
	if math.Abs(d-want) > 1 {
		t.Errorf("antipodal distance = %v, want %v", d, want)
	}
}

func TestDistance_KnownZooSeparation(t *testing.T) {
	// Two enclosures in the same park should be a few hundred meters apart,
	// never kilometers. Sanity bound rather than an exact oracle.
	d := Distance(47.7359161766421, 7.35098874264392, 47.7326599448522, 7.34860832807854)
	if d < 100 || d > 1000 {
		t.Errorf("expected a few hundred meters between enclosures, got %v m", d)
	}
}
