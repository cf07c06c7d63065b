// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package geofence

import (
	"context"
	"errors"
	"sync"
)

// ErrStateNotFound is returned by Load when the visitor has no saved state.
var ErrStateNotFound = errors.New("geofence state not found")

// StateStore persists per-visitor geofence state. Implementations must be
// safe for concurrent use.
type StateStore interface {
	// Load returns the saved state for a visitor, or ErrStateNotFound.
	Load(ctx context.Context, visitorID string) (*State, error)

	// Save durably replaces the visitor's state.
	Save(ctx context.Context, visitorID string, state *State) error
}

// MarkVisited idempotently records a zone as visited for a visitor,
// creating state if none exists. Used when a visit is confirmed outside
// the trigger engine, such as a validated photo capture.
func MarkVisited(ctx context.Context, store StateStore, visitorID, zoneID string) error {
	state, err := store.Load(ctx, visitorID)
	if errors.Is(err, ErrStateNotFound) {
		state = NewState()
	} else if err != nil {
		return err
	}

	if !state.markVisited(zoneID) {
		return nil
	}
	return store.Save(ctx, visitorID, state)
}

// MemoryStateStore keeps state in process memory. Used in tests and when
// the deployment has no durable volume.
type MemoryStateStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStateStore creates an empty in-memory store.
func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]*State)}
}

// Load implements StateStore.
func (m *MemoryStateStore) Load(ctx context.Context, visitorID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[visitorID]
	if !ok {
		return nil, ErrStateNotFound
	}
	return state.Clone(), nil
}

// Save implements StateStore.
func (m *MemoryStateStore) Save(ctx context.Context, visitorID string, state *State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[visitorID] = state.Clone()
	return nil
}
