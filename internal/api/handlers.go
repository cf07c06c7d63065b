// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package api exposes the HTTP surface: POI and zone catalogs, the live
// websocket channel, authentication, photo recognition, and health.
package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	gorilla "github.com/gorilla/websocket"

	"github.com/capturzoo/proximity/internal/affluence"
	"github.com/capturzoo/proximity/internal/auth"
	"github.com/capturzoo/proximity/internal/config"
	"github.com/capturzoo/proximity/internal/detection"
	"github.com/capturzoo/proximity/internal/geofence"
	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/models"
	ws "github.com/capturzoo/proximity/internal/websocket"
)

// maxPhotoBytes caps detect uploads at 10 MiB.
const maxPhotoBytes = 10 << 20

// Handler holds the dependencies of every HTTP endpoint.
type Handler struct {
	cfg           *config.Config
	tracker       *affluence.Tracker
	wsHub         *ws.Hub
	zones         []models.EnclosureZone
	geofenceStore geofence.StateStore
	jwt           *auth.JWTManager
	creds         *auth.CredentialChecker
	analyzer      detection.Analyzer
	started       time.Time
}

// NewHandler wires the endpoint dependencies. jwt, creds, and analyzer may
// be nil when their feature is disabled in config.
func NewHandler(cfg *config.Config, tracker *affluence.Tracker, hub *ws.Hub, zones []models.EnclosureZone, store geofence.StateStore, jwtManager *auth.JWTManager, creds *auth.CredentialChecker, analyzer detection.Analyzer) *Handler {
	return &Handler{
		cfg:           cfg,
		tracker:       tracker,
		wsHub:         hub,
		zones:         zones,
		geofenceStore: store,
		jwt:           jwtManager,
		creds:         creds,
		analyzer:      analyzer,
		started:       time.Now(),
	}
}

// POIs returns the catalog with live occupancy counts. The counts come
// from the same snapshot the websocket channel broadcasts, so a client
// polling this endpoint sees numbers consistent with the live feed.
func (h *Handler) POIs(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.tracker.Snapshot())
}

// Zones returns the enclosure zones used by on-device geofencing.
func (h *Handler) Zones(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, h.zones)
}

// WebSocket upgrades to the live visitor channel.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := gorilla.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}

// checkOrigin accepts same-origin requests and any configured CORS origin.
// With no origins configured every origin is accepted, which matches the
// open visitor-facing deployment.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origins := h.cfg.Security.CORSOrigins
	if len(origins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range origins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// Health reports overall service status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"status":            "ok",
		"uptime_seconds":    int(time.Since(h.started).Seconds()),
		"connected_clients": h.wsHub.ClientCount(),
		"tracked_positions": h.tracker.ConnectionCount(),
	})
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady is the readiness probe. The service is ready as soon as the
// hub is running; there is no external dependency to wait for.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "websocket hub not running", nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"status": "ready"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates the admin account and issues a bearer token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.creds == nil || h.jwt == nil {
		respondError(w, http.StatusForbidden, "AUTH_DISABLED", "Authentication is not configured", nil)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body", err)
		return
	}

	if err := h.creds.Check(req.Username, req.Password); err != nil {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("failed login attempt")
		respondError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}

	token, err := h.jwt.GenerateToken(req.Username, auth.AdminRole)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "TOKEN_ERROR", "Failed to issue token", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"token": token})
}

// Detect runs an uploaded photo through the recognition analyzer.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	if h.analyzer == nil || !h.cfg.Detection.Enabled {
		respondError(w, http.StatusServiceUnavailable, "DETECTION_DISABLED", "Photo recognition is not available", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes)
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_UPLOAD", "No photo provided", err)
		return
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_UPLOAD", "No photo provided", err)
		return
	}
	defer file.Close()

	imagePath, err := saveUpload(file, header.Filename)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "UPLOAD_ERROR", "Failed to store photo", err)
		return
	}
	defer os.Remove(imagePath)

	analysis, err := h.analyzer.Analyze(r.Context(), imagePath)
	if err != nil {
		var missing *detection.MissingDependencyError
		switch {
		case errors.As(err, &missing):
			respondError(w, http.StatusServiceUnavailable, "MISSING_DEPENDENCY", missing.Error(), err)
		case errors.Is(err, detection.ErrEmptyResponse):
			respondError(w, http.StatusInternalServerError, "EMPTY_RESPONSE", "Recognition produced no result", err)
		default:
			respondError(w, http.StatusInternalServerError, "DETECTION_FAILED", "Recognition unavailable", err)
		}
		return
	}

	// The script reports unusable images as {"error": "..."} on a
	// successful run; that is the client's fault, not ours.
	var errPayload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(analysis, &errPayload) == nil && errPayload.Error != "" {
		respondError(w, http.StatusBadRequest, "UNUSABLE_PHOTO", errPayload.Error, nil)
		return
	}

	respondSuccess(w, http.StatusOK, json.RawMessage(analysis))
}

// saveUpload writes the photo to a temp file for the analyzer command.
func saveUpload(file io.Reader, originalName string) (string, error) {
	safeName := strings.ReplaceAll(filepath.Base(originalName), " ", "_")
	tmp, err := os.CreateTemp("", "capturzoo-*-"+safeName)
	if err != nil {
		return "", err
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, file); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
