// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package config loads the server configuration with Koanf v2 layered
// sources: built-in defaults, an optional YAML file, then environment
// variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Catalog   CatalogConfig   `koanf:"catalog"`
	Geofence  GeofenceConfig  `koanf:"geofence"`
	Detection DetectionConfig `koanf:"detection"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// Addr returns the listen address in host:port form.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds authentication and rate limiting settings.
//
// AuthMode selects how data endpoints are protected:
//   - "jwt":  bearer tokens signed with JWTSecret (HS256)
//   - "none": no authentication (development only)
type SecurityConfig struct {
	AuthMode        string        `koanf:"auth_mode"`
	JWTSecret       string        `koanf:"jwt_secret"`
	SessionTimeout  time.Duration `koanf:"session_timeout"`
	AdminUsername   string        `koanf:"admin_username"`
	AdminPassword   string        `koanf:"admin_password"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// CatalogConfig locates the static POI and zone definitions.
type CatalogConfig struct {
	// POIPath is the JSON file holding the point-of-interest list.
	POIPath string `koanf:"poi_path"`

	// ZonesPath is the JSON file holding the enclosure zone list.
	ZonesPath string `koanf:"zones_path"`

	// CaptureRadiusMeters is the occupancy radius around each POI.
	// 30 m is part of the observable contract with deployed clients.
	CaptureRadiusMeters float64 `koanf:"capture_radius_meters"`
}

// GeofenceConfig tunes the trigger engine and its durable state store.
type GeofenceConfig struct {
	// Store selects the state store backend: "badger" or "memory".
	Store string `koanf:"store"`

	// StorePath is the BadgerDB directory (ignored for "memory").
	StorePath string `koanf:"store_path"`

	// Cooldown is the per-zone re-trigger window.
	Cooldown time.Duration `koanf:"cooldown"`

	// MinMovementMeters is the movement filter threshold.
	MinMovementMeters float64 `koanf:"min_movement_meters"`
}

// DetectionConfig configures the external photo recognition command.
type DetectionConfig struct {
	Enabled bool          `koanf:"enabled"`
	Command string        `koanf:"command"`
	Script  string        `koanf:"script"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Default returns a Config with all defaults applied. Defaults are
// loaded first, then overridden by the config file and environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8088,
			Timeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			JWTSecret:       "",
			SessionTimeout:  24 * time.Hour,
			AdminUsername:   "",
			AdminPassword:   "",
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Catalog: CatalogConfig{
			POIPath:             "configs/pois.json",
			ZonesPath:           "configs/zones.json",
			CaptureRadiusMeters: 30,
		},
		Geofence: GeofenceConfig{
			Store:             "badger",
			StorePath:         "/data/geofence",
			Cooldown:          5 * time.Minute,
			MinMovementMeters: 5,
		},
		Detection: DetectionConfig{
			Enabled: false,
			Command: "python3",
			Script:  "detect_objects.py",
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < 32 {
			return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
		}
	default:
		return fmt.Errorf("security.auth_mode %q is not one of jwt, none", c.Security.AuthMode)
	}

	switch c.Geofence.Store {
	case "badger", "memory":
	default:
		return fmt.Errorf("geofence.store %q is not one of badger, memory", c.Geofence.Store)
	}

	if c.Catalog.CaptureRadiusMeters <= 0 {
		return fmt.Errorf("catalog.capture_radius_meters must be positive")
	}
	if c.Geofence.MinMovementMeters < 0 {
		return fmt.Errorf("geofence.min_movement_meters must not be negative")
	}
	if c.Geofence.Cooldown < 0 {
		return fmt.Errorf("geofence.cooldown must not be negative")
	}

	return nil
}
