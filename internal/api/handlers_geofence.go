// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/capturzoo/proximity/internal/geofence"
)

// visitorHeader identifies the device across sessions. The app generates
// a stable uuid on first launch and sends it with every geofence call.
const visitorHeader = "X-Visitor-ID"

func visitorID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(visitorHeader)
	if id == "" || len(id) > 128 {
		respondError(w, http.StatusBadRequest, "MISSING_VISITOR_ID", "X-Visitor-ID header is required", nil)
		return "", false
	}
	return id, true
}

// GeofenceState returns the visitor's persisted trigger times and visited
// enclosures. A visitor with no saved state gets an empty record, not 404;
// the device treats both the same way.
func (h *Handler) GeofenceState(w http.ResponseWriter, r *http.Request) {
	id, ok := visitorID(w, r)
	if !ok {
		return
	}

	state, err := h.geofenceStore.Load(r.Context(), id)
	if errors.Is(err, geofence.ErrStateNotFound) {
		state = geofence.NewState()
	} else if err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to load geofence state", err)
		return
	}

	respondSuccess(w, http.StatusOK, state)
}

// SaveGeofenceState replaces the visitor's persisted state. The device
// pushes its full state after every local mutation so a reinstall or a
// second device restores the same visited set.
func (h *Handler) SaveGeofenceState(w http.ResponseWriter, r *http.Request) {
	id, ok := visitorID(w, r)
	if !ok {
		return
	}

	var state geofence.State
	if err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&state); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_STATE", "Invalid geofence state body", err)
		return
	}
	if state.LastTriggerTimes == nil {
		state.LastTriggerTimes = make(map[string]int64)
	}

	if err := h.geofenceStore.Save(r.Context(), id, &state); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to save geofence state", err)
		return
	}

	respondSuccess(w, http.StatusOK, state)
}

// MarkZoneVisited idempotently adds one zone to the visitor's visited set
// without touching cooldowns. Only zones from the catalog are accepted.
func (h *Handler) MarkZoneVisited(w http.ResponseWriter, r *http.Request) {
	id, ok := visitorID(w, r)
	if !ok {
		return
	}

	zoneID := chi.URLParam(r, "zoneID")
	if !h.knownZone(zoneID) {
		respondError(w, http.StatusNotFound, "UNKNOWN_ZONE", "No such enclosure zone", nil)
		return
	}

	if err := geofence.MarkVisited(r.Context(), h.geofenceStore, id, zoneID); err != nil {
		respondError(w, http.StatusInternalServerError, "STORE_ERROR", "Failed to mark zone visited", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"zone_id": zoneID, "status": "visited"})
}

func (h *Handler) knownZone(zoneID string) bool {
	for _, zone := range h.zones {
		if zone.ID == zoneID {
			return true
		}
	}
	return false
}
