// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package affluence maintains the live positions of connected visitors and
// computes per-POI occupancy counts.
//
// The tracker owns a single mutable map of connection id to the most recent
// position sample. Every mutation recomputes the occupancy of every POI and
// pushes the result to all connected clients through the Broadcaster. This
// push-on-every-mutation policy is a deliberate contract with deployed
// clients: no debouncing, no coalescing. It caps out at high update rates,
// which is an accepted ceiling rather than a bug.
package affluence

import (
	"sync"

	"github.com/capturzoo/proximity/internal/geo"
	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/metrics"
	"github.com/capturzoo/proximity/internal/models"
)

// DefaultCaptureRadiusMeters is the occupancy radius around each POI.
// Part of the observable contract with deployed clients.
const DefaultCaptureRadiusMeters = 30.0

// Broadcaster pushes a freshly computed occupancy list to every connected
// client. Satisfied by the websocket hub. Delivery is send-and-forget: a
// failing client is the hub's cleanup problem, never the tracker's.
type Broadcaster interface {
	BroadcastAffluence(pois []models.POIAffluence)
}

// Tracker aggregates visitor positions into per-POI occupancy counts.
//
// All exported methods are safe for concurrent use. The critical section
// covers mutate → snapshot → compute so a reader can never observe a
// half-applied position map; the broadcast itself happens outside the lock
// and never blocks a subsequent update.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]models.Position

	pois        []models.POI
	radiusM     float64
	broadcaster Broadcaster
}

// NewTracker creates a tracker over the given static POI list.
// A non-positive radius falls back to DefaultCaptureRadiusMeters.
// The broadcaster may be nil, in which case mutations only update state
// (used by the REST-only read path in tests).
func NewTracker(pois []models.POI, radiusMeters float64, b Broadcaster) *Tracker {
	if radiusMeters <= 0 {
		radiusMeters = DefaultCaptureRadiusMeters
	}
	return &Tracker{
		positions:   make(map[string]models.Position),
		pois:        pois,
		radiusM:     radiusMeters,
		broadcaster: b,
	}
}

// SetBroadcaster attaches the fan-out target after construction. The hub
// and the tracker reference each other, so one of them has to be wired
// late; call this before any position flows in.
func (t *Tracker) SetBroadcaster(b Broadcaster) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.broadcaster = b
}

// RegisterPosition inserts or overwrites the position for a connection and
// broadcasts the recomputed occupancy. Coordinates are pass-through: no
// range validation happens here.
func (t *Tracker) RegisterPosition(connectionID string, lat, lon float64) {
	t.mu.Lock()
	t.positions[connectionID] = models.Position{Latitude: lat, Longitude: lon}
	counts := t.computeLocked()
	size := len(t.positions)
	t.mu.Unlock()

	metrics.TrackedPositions.Set(float64(size))
	t.publish(counts)
}

// RemoveConnection deletes the stored position for a connection, if present,
// and broadcasts the recomputed occupancy. Removing an unknown connection
// still broadcasts; the disconnect event is the authoritative cleanup signal
// and must propagate exactly once.
func (t *Tracker) RemoveConnection(connectionID string) {
	t.mu.Lock()
	delete(t.positions, connectionID)
	counts := t.computeLocked()
	size := len(t.positions)
	t.mu.Unlock()

	metrics.TrackedPositions.Set(float64(size))
	t.publish(counts)
}

// Snapshot returns the current per-POI occupancy without mutating anything.
// Serves the read-only REST endpoint; uses the same computation as the
// broadcast path.
func (t *Tracker) Snapshot() []models.POIAffluence {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.computeLocked()
}

// ConnectionCount returns the number of currently tracked connections.
func (t *Tracker) ConnectionCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.positions)
}

// computeLocked counts, for every POI, the visitors within the capture
// radius. Callers must hold at least a read lock.
func (t *Tracker) computeLocked() []models.POIAffluence {
	out := make([]models.POIAffluence, len(t.pois))
	for i, poi := range t.pois {
		count := 0
		for _, pos := range t.positions {
			d := geo.Distance(poi.Latitude, poi.Longitude, pos.Latitude, pos.Longitude)
			if d <= t.radiusM {
				count++
			}
		}
		out[i] = models.POIAffluence{POI: poi, Affluence: count}
	}
	return out
}

// publish fans the occupancy list out to connected clients.
func (t *Tracker) publish(counts []models.POIAffluence) {
	if t.broadcaster == nil {
		return
	}
	t.broadcaster.BroadcastAffluence(counts)
	metrics.AffluenceBroadcasts.Inc()
	logging.Debug().Int("pois", len(counts)).Msg("occupancy broadcast")
}
