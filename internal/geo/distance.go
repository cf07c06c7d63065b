// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package geo provides the great-circle distance primitive shared by the
// affluence tracker and the geofence engine. Both sides depend on
// bit-for-bit identical results, so the computation lives in exactly one
// place and is pure.
package geo

import "math"

// EarthRadiusMeters is the fixed spherical Earth radius used for all
// distance computations. Part of the observable contract; do not change.
const EarthRadiusMeters = 6371000.0

// Distance returns the haversine great-circle distance in meters between
// two points given as latitude/longitude in degrees.
//
// Inputs are not range-checked: out-of-range coordinates produce
// mathematically defined but meaningless results, which is the caller's
// problem, not an error condition.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusMeters * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
