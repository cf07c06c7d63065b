// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package geofence

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
)

// Key prefix for BadgerDB storage.
const stateKeyPrefix = "geofence_state:"

// BadgerStateStore implements StateStore using BadgerDB for durable storage.
// Each visitor's state is one JSON blob, so a restart restores exactly the
// trigger times and visited set that were last saved.
type BadgerStateStore struct {
	db *badger.DB
}

// NewBadgerStateStore creates a new BadgerDB-backed state store.
func NewBadgerStateStore(db *badger.DB) *BadgerStateStore {
	return &BadgerStateStore{db: db}
}

// Load retrieves a visitor's state.
func (s *BadgerStateStore) Load(ctx context.Context, visitorID string) (*State, error) {
	var state State

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(stateKeyPrefix + visitorID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrStateNotFound
		}
		if err != nil {
			return fmt.Errorf("get geofence state: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		return nil, err
	}

	if state.LastTriggerTimes == nil {
		state.LastTriggerTimes = make(map[string]int64)
	}
	return &state, nil
}

// Save durably replaces a visitor's state.
func (s *BadgerStateStore) Save(ctx context.Context, visitorID string, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal geofence state: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(stateKeyPrefix+visitorID), data); err != nil {
			return fmt.Errorf("set geofence state: %w", err)
		}
		return nil
	})
}
