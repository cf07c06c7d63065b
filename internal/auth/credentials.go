// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/capturzoo/proximity/internal/config"
)

// ErrBadCredentials is returned for any failed login attempt. Username and
// password failures are indistinguishable on purpose.
var ErrBadCredentials = errors.New("invalid username or password")

// AdminRole is the role claim granted to the configured admin account.
const AdminRole = "admin"

// CredentialChecker validates the single configured admin account.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker hashes the configured admin password once at
// startup so login requests only pay the bcrypt comparison cost.
func NewCredentialChecker(cfg *config.SecurityConfig) (*CredentialChecker, error) {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil, errors.New("admin credentials are not configured")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	return &CredentialChecker{
		username:     cfg.AdminUsername,
		passwordHash: hash,
	}, nil
}

// Check verifies a username/password pair. Both comparisons run in
// constant time relative to their inputs.
func (c *CredentialChecker) Check(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(c.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))

	if !userOK || passErr != nil {
		return ErrBadCredentials
	}
	return nil
}
