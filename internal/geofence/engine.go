// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package geofence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/capturzoo/proximity/internal/geo"
	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/metrics"
	"github.com/capturzoo/proximity/internal/models"
)

const (
	// DefaultCooldown is how long a zone stays quiet after triggering.
	DefaultCooldown = 5 * time.Minute

	// DefaultMinMovementMeters is the minimum displacement between two
	// consecutive positions for the later one to be evaluated at all.
	DefaultMinMovementMeters = 5.0
)

// EnterFunc is invoked synchronously each time a zone triggers.
type EnterFunc func(zone models.EnclosureZone)

// Engine evaluates one visitor's position stream against a static set of
// circular enclosure zones.
//
// The trigger model is deliberately NOT edge-triggered: membership is
// re-evaluated on every qualifying sample, and a zone fires whenever the
// visitor is inside it and its cooldown has lapsed, even if the previous
// sample was already inside. A visitor who lingers in an enclosure past
// the cooldown window is reminded again.
type Engine struct {
	mu         sync.Mutex
	visitorID  string
	zones      []models.EnclosureZone
	store      StateStore
	onEnter    EnterFunc
	cooldown   time.Duration
	minMoveM   float64
	now        func() time.Time
	state      *State
	lastLat    float64
	lastLon    float64
	hasLastPos bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithCooldown overrides the re-trigger cooldown.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) { e.cooldown = d }
}

// WithMinMovement overrides the movement filter threshold in meters.
func WithMinMovement(meters float64) Option {
	return func(e *Engine) { e.minMoveM = meters }
}

// WithClock overrides the time source. Tests use this to step through
// cooldown windows without sleeping.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an engine for one visitor, restoring any state the
// store holds for them. A store read failure is logged and the engine
// starts fresh; it must never prevent position evaluation.
func NewEngine(ctx context.Context, visitorID string, zones []models.EnclosureZone, store StateStore, onEnter EnterFunc, opts ...Option) *Engine {
	e := &Engine{
		visitorID: visitorID,
		zones:     zones,
		store:     store,
		onEnter:   onEnter,
		cooldown:  DefaultCooldown,
		minMoveM:  DefaultMinMovementMeters,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.state = e.restore(ctx)
	return e
}

func (e *Engine) restore(ctx context.Context) *State {
	if e.store == nil {
		return NewState()
	}

	state, err := e.store.Load(ctx, e.visitorID)
	if errors.Is(err, ErrStateNotFound) {
		return NewState()
	}
	if err != nil {
		logging.Warn().Err(err).Str("visitor_id", e.visitorID).Msg("failed to restore geofence state, starting fresh")
		return NewState()
	}
	return state
}

// OnPositionUpdate feeds one position sample through the engine. The engine
// serializes calls internally; position delivery is expected to be
// single-threaded but a concurrent host must not corrupt the movement
// filter. Not safe to call reentrantly from the enter callback.
func (e *Engine) OnPositionUpdate(ctx context.Context, lat, lon float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// Movement filter: under 5 m of displacement nothing is re-evaluated,
	// not even cooldown expiry. The very first sample always evaluates.
	if e.hasLastPos && geo.Distance(e.lastLat, e.lastLon, lat, lon) < e.minMoveM {
		return
	}
	e.lastLat, e.lastLon = lat, lon
	e.hasLastPos = true

	now := e.now()
	nowMs := now.UnixMilli()
	cooldownMs := e.cooldown.Milliseconds()

	var triggered []models.EnclosureZone
	for _, zone := range e.zones {
		if geo.Distance(lat, lon, zone.Latitude, zone.Longitude) > zone.RadiusMeters {
			continue
		}

		// Missing entry reads as zero, which is always at least a full
		// cooldown in the past for any realistic clock.
		last := e.state.LastTriggerTimes[zone.ID]
		if nowMs-last < cooldownMs {
			continue
		}

		e.state.LastTriggerTimes[zone.ID] = nowMs
		e.state.markVisited(zone.ID)
		triggered = append(triggered, zone)
	}

	if len(triggered) == 0 {
		return
	}

	e.persist(ctx)

	for _, zone := range triggered {
		metrics.GeofenceTriggers.WithLabelValues(zone.ID).Inc()
		logging.Info().
			Str("visitor_id", e.visitorID).
			Str("zone_id", zone.ID).
			Str("zone_name", zone.Name).
			Msg("visitor entered enclosure")
		if e.onEnter != nil {
			e.onEnter(zone)
		}
	}
}

// IsZoneVisited reports whether the visitor has ever entered the zone.
func (e *Engine) IsZoneVisited(zoneID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.hasVisited(zoneID)
}

// MarkZoneVisited records the zone as visited without firing the enter
// callback or touching its cooldown. Used when a visit is confirmed by
// another mechanism, such as a successful photo capture.
func (e *Engine) MarkZoneVisited(ctx context.Context, zoneID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.state.markVisited(zoneID) {
		return
	}
	e.persist(ctx)
}

// TimeUntilCooldownExpires returns how long until the zone may trigger
// again. Zero if the zone has never triggered or its cooldown has lapsed.
func (e *Engine) TimeUntilCooldownExpires(zoneID string) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, ok := e.state.LastTriggerTimes[zoneID]
	if !ok {
		return 0
	}

	remaining := e.cooldown - time.Duration(e.now().UnixMilli()-last)*time.Millisecond
	if remaining < 0 {
		return 0
	}
	return remaining
}

// VisitedZones returns the zone ids ever entered, in first-entry order.
func (e *Engine) VisitedZones() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]string, len(e.state.VisitedEnclosures))
	copy(out, e.state.VisitedEnclosures)
	return out
}

// persist writes the current state. A failed write is logged and ignored
// so that a broken disk never stalls position evaluation.
func (e *Engine) persist(ctx context.Context) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, e.visitorID, e.state.Clone()); err != nil {
		logging.Warn().Err(err).Str("visitor_id", e.visitorID).Msg("failed to persist geofence state")
	}
}
