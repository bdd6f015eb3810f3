// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package session guards outbound REST requests for authentication
// expiry. The Guard wraps the HTTP transport once at startup; when a
// request fails with 401/403 and expiry wording, it forces a clean
// logout exactly once per expiry episode.
package session

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/metrics"
	"github.com/paywatch/paywatch/internal/models"
)

// DefaultResetDelay is how long duplicate expiry handling stays
// suppressed after a forced logout.
const DefaultResetDelay = 3 * time.Second

// DefaultSigninRoute is the navigation target after a forced logout.
const DefaultSigninRoute = "signin"

// ExpiredMessage is the user-visible message shown once per episode.
const ExpiredMessage = "Session expired. Please log in again to continue."

// maxErrorBodySize caps how much of an error response body is read for
// message inspection. This prevents unbounded allocation on large
// error responses.
const maxErrorBodySize = 64 * 1024 // 64KB

// Config holds the guard's collaborators and timing. Any nil
// collaborator is skipped.
type Config struct {
	// Notify surfaces a user-visible message.
	Notify func(message string)

	// Logout clears stored credentials and authentication state.
	Logout func()

	// Navigate transitions the UI to a named route.
	Navigate func(route string)

	// ResetDelay is how long the expiry flag stays set.
	// Default: DefaultResetDelay
	ResetDelay time.Duration

	// SigninRoute is where Navigate is pointed after logout.
	// Default: DefaultSigninRoute
	SigninRoute string
}

// Guard is an http.RoundTripper that watches responses for session
// expiry. It never swallows a response or error: everything passes
// through unchanged after optional side effects.
//
// One Guard is installed per application lifetime, on the REST client's
// transport. The expiry flag is owned by the instance and auto-clears
// after ResetDelay so a later, independent expiry is handled again.
type Guard struct {
	base http.RoundTripper
	cfg  Config

	mu      sync.Mutex
	expired bool
}

// NewGuard wraps base (http.DefaultTransport when nil) with expiry
// detection.
func NewGuard(base http.RoundTripper, cfg Config) *Guard {
	if base == nil {
		base = http.DefaultTransport
	}
	if cfg.ResetDelay <= 0 {
		cfg.ResetDelay = DefaultResetDelay
	}
	if cfg.SigninRoute == "" {
		cfg.SigninRoute = DefaultSigninRoute
	}
	return &Guard{base: base, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (g *Guard) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := g.base.RoundTrip(req)
	if err != nil {
		// Transport-level failures are not auth failures.
		return resp, err
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		g.inspect(resp)
	}

	return resp, nil
}

// Reset clears the expiry flag immediately, e.g. after a fresh signin.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expired = false
}

// inspect reads the error body, restores it for downstream readers, and
// runs the expiry side effects when the wording matches.
func (g *Guard) inspect(resp *http.Response) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		logging.Debug().Err(err).Msg("failed to read auth failure body")
		body = nil
	}
	_ = resp.Body.Close()
	// Downstream readers still see the payload.
	resp.Body = io.NopCloser(bytes.NewReader(body))

	message := extractErrorMessage(body)
	if !matchesExpiry(message) {
		return
	}

	g.mu.Lock()
	if g.expired {
		g.mu.Unlock()
		return
	}
	g.expired = true
	time.AfterFunc(g.cfg.ResetDelay, g.Reset)
	g.mu.Unlock()

	metrics.SessionExpiries.Inc()
	logging.Warn().
		Int("status", resp.StatusCode).
		Str("message", message).
		Msg("session expired, forcing logout")

	if g.cfg.Notify != nil {
		g.cfg.Notify(ExpiredMessage)
	}
	if g.cfg.Logout != nil {
		g.cfg.Logout()
	}
	if g.cfg.Navigate != nil {
		g.cfg.Navigate(g.cfg.SigninRoute)
	}
}

// extractErrorMessage pulls the server-provided error message out of a
// JSON error body. Bodies without one fall back to "Session expired",
// matching how the web client treated missing error fields.
func extractErrorMessage(body []byte) string {
	var apiErr models.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil {
		if apiErr.Error != "" {
			return apiErr.Error
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Session expired"
}

// matchesExpiry reports whether the message carries expiry wording.
func matchesExpiry(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "expired") ||
		strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "forbidden")
}
