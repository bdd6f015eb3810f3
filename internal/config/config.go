// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package config loads and validates Paywatch configuration.
//
// Configuration is loaded via Koanf v2 with layered sources
// (highest priority wins):
//   - Environment variables
//   - Config file (config.yaml)
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Environment names used to select the socket endpoint.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the root configuration for the Paywatch client.
type Config struct {
	// Environment selects between development and production endpoints.
	Environment string `koanf:"environment"`

	API     APIConfig     `koanf:"api"`
	Socket  SocketConfig  `koanf:"socket"`
	Popup   PopupConfig   `koanf:"popup"`
	Session SessionConfig `koanf:"session"`
	Metrics MetricsConfig `koanf:"metrics"`
	Logging LoggingConfig `koanf:"logging"`
}

// APIConfig configures the payment REST API client.
type APIConfig struct {
	// BaseURL is the REST API base, including the version prefix
	// (e.g. http://localhost:5000/api/v1). Independent of the socket URL.
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`

	// RetryAttempts bounds retries on HTTP 429 responses.
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`

	// RequestsPerSecond paces outbound requests (0 disables pacing).
	RequestsPerSecond float64 `koanf:"requests_per_second"`
}

// SocketConfig configures the notification socket connection.
type SocketConfig struct {
	// URL overrides environment selection when set.
	URL string `koanf:"url"`

	// DevURL and ProdURL are the per-environment endpoints.
	DevURL  string `koanf:"dev_url"`
	ProdURL string `koanf:"prod_url"`

	// ReconnectDelay is the fixed wait before a reconnect attempt.
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`

	HandshakeTimeout time.Duration `koanf:"handshake_timeout"`
}

// Endpoint returns the socket URL for the given environment.
// An explicit URL override wins; otherwise production selects ProdURL
// and everything else selects DevURL.
func (s SocketConfig) Endpoint(environment string) string {
	if s.URL != "" {
		return s.URL
	}
	if environment == EnvProduction {
		return s.ProdURL
	}
	return s.DevURL
}

// PopupConfig configures the money-received popup presenter.
type PopupConfig struct {
	// Lifetime is how long the popup stays visible without interaction.
	Lifetime time.Duration `koanf:"lifetime"`

	// Tick is the countdown resolution.
	Tick time.Duration `koanf:"tick"`
}

// SessionConfig configures the session expiry guard.
type SessionConfig struct {
	// ExpiryResetDelay is how long the guard suppresses duplicate
	// expiry handling after a forced logout.
	ExpiryResetDelay time.Duration `koanf:"expiry_reset_delay"`

	// SigninRoute is the navigation target after a forced logout.
	SigninRoute string `koanf:"signin_route"`
}

// MetricsConfig configures the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would only fail
// later at connect time. It returns the first problem found.
func (c *Config) Validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q",
			EnvDevelopment, EnvProduction, c.Environment)
	}

	if err := validateHTTPURL(c.API.BaseURL, "api.base_url"); err != nil {
		return err
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.API.RetryAttempts < 0 {
		return fmt.Errorf("api.retry_attempts must not be negative, got %d", c.API.RetryAttempts)
	}

	endpoint := c.Socket.Endpoint(c.Environment)
	if err := validateSocketURL(endpoint, "socket endpoint"); err != nil {
		return err
	}
	if c.Socket.ReconnectDelay <= 0 {
		return fmt.Errorf("socket.reconnect_delay must be positive, got %v", c.Socket.ReconnectDelay)
	}
	if c.Socket.HandshakeTimeout <= 0 {
		return fmt.Errorf("socket.handshake_timeout must be positive, got %v", c.Socket.HandshakeTimeout)
	}

	if c.Popup.Lifetime <= 0 {
		return fmt.Errorf("popup.lifetime must be positive, got %v", c.Popup.Lifetime)
	}
	if c.Popup.Tick <= 0 || c.Popup.Tick > c.Popup.Lifetime {
		return fmt.Errorf("popup.tick must be positive and at most popup.lifetime, got %v", c.Popup.Tick)
	}

	if c.Session.ExpiryResetDelay <= 0 {
		return fmt.Errorf("session.expiry_reset_delay must be positive, got %v", c.Session.ExpiryResetDelay)
	}

	return nil
}

// validateHTTPURL checks that raw parses and uses an http(s) scheme.
func validateHTTPURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https scheme, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s missing host: %q", field, raw)
	}
	return nil
}

// validateSocketURL checks that raw parses and uses a ws(s) scheme.
func validateSocketURL(raw, field string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%s must use ws or wss scheme, got %q", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s missing host: %q", field, raw)
	}
	return nil
}
