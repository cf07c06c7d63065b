// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package metrics provides Prometheus instrumentation for the live
// occupancy pipeline: websocket connections, position updates, affluence
// broadcasts, geofence triggers, and the REST surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocketConnections tracks currently connected visitor devices.
	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of connected visitor devices",
		},
	)

	// TrackedPositions tracks positions currently held by the tracker.
	TrackedPositions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "affluence_tracked_positions",
			Help: "Current number of visitor positions held by the affluence tracker",
		},
	)

	// PositionUpdates counts inbound position samples by outcome.
	PositionUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "affluence_position_updates_total",
			Help: "Total number of inbound position updates",
		},
		[]string{"outcome"}, // "accepted", "malformed", "throttled"
	)

	// AffluenceBroadcasts counts occupancy fan-outs to connected clients.
	AffluenceBroadcasts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "affluence_broadcasts_total",
			Help: "Total number of occupancy broadcasts",
		},
	)

	// GeofenceTriggers counts enclosure enter events by zone.
	GeofenceTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geofence_triggers_total",
			Help: "Total number of enclosure enter events",
		},
		[]string{"zone"},
	)

	// APIRequestsTotal counts REST requests.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// APIRequestDuration measures REST request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	// APIActiveRequests tracks in-flight REST requests.
	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
