// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capturzoo/proximity/internal/auth"
	"github.com/capturzoo/proximity/internal/config"
	"github.com/capturzoo/proximity/internal/middleware"
)

// Router builds the HTTP handler tree.
type Router struct {
	handler *Handler
	cfg     *config.Config
	jwt     *auth.JWTManager
}

// NewRouter creates a router around the given handler set.
func NewRouter(cfg *config.Config, handler *Handler, jwtManager *auth.JWTManager) *Router {
	return &Router{
		handler: handler,
		cfg:     cfg,
		jwt:     jwtManager,
	}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.corsHandler())

	// Health gets a permissive limit so monitoring can poll freely.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Login is rate limited hard to slow brute force attempts.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.With(httprate.LimitByIP(5, 5*time.Minute)).Post("/login", router.handler.Login)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.rateLimit())
		r.Use(middleware.PrometheusMetrics)

		// Visitor-facing data. Protected only when auth mode says so.
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(router.jwt, router.cfg.Security.AuthMode))
			r.Get("/pois", router.handler.POIs)
			r.Get("/zones", router.handler.Zones)
			r.Post("/detect", router.handler.Detect)
		})

		// Per-device geofence state sync, keyed by X-Visitor-ID.
		r.Route("/geofence", func(r chi.Router) {
			r.Get("/state", router.handler.GeofenceState)
			r.Put("/state", router.handler.SaveGeofenceState)
			r.Post("/visited/{zoneID}", router.handler.MarkZoneVisited)
		})

		// The websocket carries its own identity per connection and
		// stays open to anonymous visitors.
		r.Get("/ws", router.handler.WebSocket)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (router *Router) corsHandler() func(http.Handler) http.Handler {
	origins := router.cfg.Security.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID", "X-Visitor-ID"},
		AllowCredentials: false,
		MaxAge:           86400,
	})
}

func (router *Router) rateLimit() func(http.Handler) http.Handler {
	reqs := router.cfg.Security.RateLimitReqs
	window := router.cfg.Security.RateLimitWindow
	if reqs <= 0 {
		reqs = 100
	}
	if window <= 0 {
		window = time.Minute
	}
	return httprate.LimitByIP(reqs, window)
}
