// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package geofence turns a stream of visitor positions into discrete
// "entered enclosure" events with a per-zone re-trigger cooldown, and
// keeps the set of enclosures the visitor has ever entered.
package geofence

// State is the durable per-visitor record. It survives restarts via a
// StateStore; the field names are the wire format and must stay stable.
type State struct {
	// LastTriggerTimes maps zone id to the epoch-millisecond timestamp
	// of its most recent trigger. A missing entry means the zone has
	// never triggered.
	LastTriggerTimes map[string]int64 `json:"lastTriggerTimes"`

	// VisitedEnclosures lists zone ids ever entered, each at most once,
	// in first-entry order.
	VisitedEnclosures []string `json:"visitedEnclosures"`
}

// NewState returns an empty state ready for mutation.
func NewState() *State {
	return &State{
		LastTriggerTimes:  make(map[string]int64),
		VisitedEnclosures: []string{},
	}
}

// Clone returns a deep copy so callers can hand state to a store without
// racing subsequent mutations.
func (s *State) Clone() *State {
	clone := &State{
		LastTriggerTimes:  make(map[string]int64, len(s.LastTriggerTimes)),
		VisitedEnclosures: make([]string, len(s.VisitedEnclosures)),
	}
	for id, ts := range s.LastTriggerTimes {
		clone.LastTriggerTimes[id] = ts
	}
	copy(clone.VisitedEnclosures, s.VisitedEnclosures)
	return clone
}

// hasVisited reports whether the zone id is in VisitedEnclosures.
func (s *State) hasVisited(zoneID string) bool {
	for _, id := range s.VisitedEnclosures {
		if id == zoneID {
			return true
		}
	}
	return false
}

// markVisited appends the zone id if absent. Returns true if it was added.
func (s *State) markVisited(zoneID string) bool {
	if s.hasVisited(zoneID) {
		return false
	}
	s.VisitedEnclosures = append(s.VisitedEnclosures, zoneID)
	return true
}
