// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package main is the entry point for the CapturZoo proximity server.
//
// The server tracks connected visitor positions over a websocket channel,
// recomputes per-enclosure occupancy on every position change, and pushes
// the counts back to all visitors in real time. It also serves the static
// POI and enclosure zone catalogs, an admin login, and the photo
// recognition endpoint.
//
// # Application Architecture
//
// Initialization order:
//
//  1. Configuration: layered defaults, config.yaml, environment (Koanf v2)
//  2. Catalogs: POI and enclosure zone JSON files
//  3. Geofence store: BadgerDB (or memory) for per-visitor visited state
//  4. WebSocket hub + affluence tracker
//  5. Authentication: JWT or none
//  6. HTTP server: REST API plus websocket upgrade
//
// # Configuration
//
// Highest priority wins: environment variables, then config.yaml, then
// built-in defaults. Common variables:
//
//	HTTP_PORT=8088
//	AUTH_MODE=none            # or "jwt"
//	JWT_SECRET=...            # 32+ characters when AUTH_MODE=jwt
//	ADMIN_USERNAME=...
//	ADMIN_PASSWORD=...
//	GEOFENCE_STORE=badger     # or "memory"
//	GEOFENCE_STORE_PATH=/data/geofence
//	DETECTION_ENABLED=true    # external recognition command
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests (10s timeout) and the hub closes all websocket
// clients.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/capturzoo/proximity/internal/affluence"
	"github.com/capturzoo/proximity/internal/api"
	"github.com/capturzoo/proximity/internal/auth"
	"github.com/capturzoo/proximity/internal/catalog"
	"github.com/capturzoo/proximity/internal/config"
	"github.com/capturzoo/proximity/internal/detection"
	"github.com/capturzoo/proximity/internal/geofence"
	"github.com/capturzoo/proximity/internal/logging"
	"github.com/capturzoo/proximity/internal/supervisor"
	"github.com/capturzoo/proximity/internal/supervisor/services"
	ws "github.com/capturzoo/proximity/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("auth_mode", cfg.Security.AuthMode).
		Str("geofence_store", cfg.Geofence.Store).
		Float64("capture_radius_m", cfg.Catalog.CaptureRadiusMeters).
		Msg("Configuration loaded")

	pois, err := catalog.LoadPOIs(cfg.Catalog.POIPath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Catalog.POIPath).Msg("Failed to load POI catalog")
	}
	zones, err := catalog.LoadZones(cfg.Catalog.ZonesPath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Catalog.ZonesPath).Msg("Failed to load zone catalog")
	}
	logging.Info().Int("pois", len(pois)).Int("zones", len(zones)).Msg("Catalogs loaded")

	// The geofence state store backs the visited-enclosures API even
	// though trigger evaluation runs on the visitor's device.
	var geofenceDB *badger.DB
	if cfg.Geofence.Store == "badger" {
		opts := badger.DefaultOptions(cfg.Geofence.StorePath).WithLogger(nil)
		geofenceDB, err = badger.Open(opts)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Geofence.StorePath).Msg("Failed to open geofence store")
		}
		defer func() {
			if err := geofenceDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing geofence store")
			}
		}()
		logging.Info().Str("path", cfg.Geofence.StorePath).Msg("Geofence state store opened")
	} else {
		logging.Warn().Msg("Geofence state store is in-memory; visited state will not survive restarts")
	}
	stateStore := newStateStore(geofenceDB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tracker := affluence.NewTracker(pois, cfg.Catalog.CaptureRadiusMeters, nil)
	hub := ws.NewHub(tracker)
	tracker.SetBroadcaster(hub)

	var jwtManager *auth.JWTManager
	var creds *auth.CredentialChecker
	if cfg.Security.AuthMode == "jwt" {
		jwtManager, err = auth.NewJWTManager(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
		}
		creds, err = auth.NewCredentialChecker(&cfg.Security)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize admin credentials")
		}
		logging.Info().Msg("JWT authentication enabled")
	} else {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none); use only in development")
	}

	var analyzer detection.Analyzer
	if cfg.Detection.Enabled {
		analyzer = detection.NewCommandAnalyzer(&cfg.Detection)
		logging.Info().Str("command", cfg.Detection.Command).Msg("Photo recognition enabled")
	}

	handler := api.NewHandler(cfg, tracker, hub, zones, stateStore, jwtManager, creds, analyzer)
	router := api.NewRouter(cfg, handler, jwtManager)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Services added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}

// newStateStore selects the geofence state store backend.
func newStateStore(db *badger.DB) geofence.StateStore {
	if db != nil {
		return geofence.NewBadgerStateStore(db)
	}
	return geofence.NewMemoryStateStore()
}
