// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package auth

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/capturzoo/proximity/internal/config"
	"github.com/capturzoo/proximity/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Output: io.Discard})
}

const testSecret = "test-secret-key-at-least-32-chars-long"

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	manager, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      testSecret,
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return manager
}

func TestJWTRoundTrip(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateToken("gardien", AdminRole)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := manager.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.Username != "gardien" || claims.Role != AdminRole {
		t.Errorf("claims mismatch: %+v", claims)
	}
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	manager := newTestManager(t)

	token, err := manager.GenerateToken("gardien", AdminRole)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	tampered := token[:len(token)-4] + "XXXX"
	if _, err := manager.ValidateToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	manager := newTestManager(t)
	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "another-secret-key-also-32-chars-x",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	token, _ := manager.GenerateToken("gardien", AdminRole)
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected rejection across secrets, got %v", err)
	}
}

func TestJWTRejectsGarbage(t *testing.T) {
	manager := newTestManager(t)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := manager.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager(&config.SecurityConfig{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestCredentialChecker(t *testing.T) {
	checker, err := NewCredentialChecker(&config.SecurityConfig{
		AdminUsername: "gardien",
		AdminPassword: "sanglier-rouge-42",
	})
	if err != nil {
		t.Fatalf("failed to create checker: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"valid", "gardien", "sanglier-rouge-42", false},
		{"wrong password", "gardien", "sanglier-bleu-42", true},
		{"wrong username", "visiteur", "sanglier-rouge-42", true},
		{"both wrong", "visiteur", "nope", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checker.Check(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("Check(%q, …) error = %v, wantErr %v", tt.username, err, tt.wantErr)
			}
		})
	}
}

func TestNewCredentialCheckerRequiresBoth(t *testing.T) {
	if _, err := NewCredentialChecker(&config.SecurityConfig{AdminUsername: "gardien"}); err == nil {
		t.Fatal("expected error with password missing")
	}
}

func TestMiddleware(t *testing.T) {
	manager := newTestManager(t)
	token, _ := manager.GenerateToken("gardien", AdminRole)

	handler := Middleware(manager, "jwt")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok || claims.Username != "gardien" {
			t.Error("expected claims in request context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
	}{
		{"valid bearer", "Bearer " + token, http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, http.StatusNoContent},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"invalid token", "Bearer garbage", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/pois", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddlewareAuthModeNone(t *testing.T) {
	handler := Middleware(nil, "none")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pois", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("auth mode none must pass through, got %d", rec.Code)
	}
}
