// CapturZoo Proximity - Zoo Visitor Geofencing and Live Occupancy
// Copyright 2026 CapturZoo
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/capturzoo/proximity

// Package detection runs visitor photos through the external species
// recognition model. The model itself is an external collaborator; this
// package only manages the process boundary.
package detection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/capturzoo/proximity/internal/config"
	"github.com/capturzoo/proximity/internal/logging"
)

var (
	// ErrScriptFailed means the recognition command exited non-zero
	// without producing a usable JSON payload.
	ErrScriptFailed = errors.New("detection script failed")

	// ErrEmptyResponse means the command succeeded but printed no JSON.
	ErrEmptyResponse = errors.New("empty detection response")
)

// MissingDependencyError reports a Python module the recognition script
// could not import. Surfaced as 503 so operators know it is a deployment
// problem, not a bad photo.
type MissingDependencyError struct {
	Module string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("missing python dependency: %s", e.Module)
}

var missingModuleRe = regexp.MustCompile(`ModuleNotFoundError: No module named '([^']+)'`)

// Analyzer turns an image file into a recognition result.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (json.RawMessage, error)
}

// CommandAnalyzer implements Analyzer by spawning the configured command
// with the image path as its argument and reading JSON from stdout.
type CommandAnalyzer struct {
	command string
	script  string
	timeout time.Duration
}

// NewCommandAnalyzer builds an analyzer from the detection config.
func NewCommandAnalyzer(cfg *config.DetectionConfig) *CommandAnalyzer {
	return &CommandAnalyzer{
		command: cfg.Command,
		script:  cfg.Script,
		timeout: cfg.Timeout,
	}
}

// Analyze runs the recognition command on one image. The script may print
// progress noise before its result, so the payload is the LAST parseable
// JSON line of stdout.
func (a *CommandAnalyzer) Analyze(ctx context.Context, imagePath string) (json.RawMessage, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, a.command, a.script, imagePath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	payload := extractJSONLine(stdout.String())

	if err != nil {
		// A JSON error payload from the script is still a result;
		// the handler maps it to a client error.
		if payload != nil {
			return payload, nil
		}
		if match := missingModuleRe.FindStringSubmatch(stderr.String()); match != nil {
			return nil, &MissingDependencyError{Module: match[1]}
		}
		logging.Error().
			Err(err).
			Str("stderr", stderr.String()).
			Msg("detection command failed")
		return nil, fmt.Errorf("%w: %v", ErrScriptFailed, err)
	}

	if payload == nil {
		return nil, ErrEmptyResponse
	}
	return payload, nil
}

// extractJSONLine returns the last line of output that parses as a JSON
// object or array, or nil.
func extractJSONLine(output string) json.RawMessage {
	lines := strings.FieldsFunc(output, func(r rune) bool {
		return r == '\n' || r == '\r'
	})

	for i := len(lines) - 1; i >= 0; i-- {
		candidate := strings.TrimSpace(lines[i])
		if candidate == "" {
			continue
		}
		if candidate[0] != '{' && candidate[0] != '[' {
			continue
		}
		if json.Valid([]byte(candidate)) {
			return json.RawMessage(candidate)
		}
	}
	return nil
}
