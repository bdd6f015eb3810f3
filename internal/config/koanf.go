// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/paywatch/config.yaml",
	"/etc/paywatch/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Defaults returns a Config with all default values applied. The socket
// and popup timings below are the client-visible constants: 3s reconnect
// delay, 10s popup lifetime at 1s resolution, 3s expiry-flag reset.
func Defaults() *Config {
	return &Config{
		Environment: EnvDevelopment,
		API: APIConfig{
			BaseURL:           "http://localhost:5000/api/v1",
			Timeout:           30 * time.Second,
			RetryAttempts:     5,
			RetryDelay:        1 * time.Second,
			RequestsPerSecond: 0, // Unpaced
		},
		Socket: SocketConfig{
			URL:              "",
			DevURL:           "ws://localhost:5000",
			ProdURL:          "wss://payment-gateway-be.onrender.com",
			ReconnectDelay:   3 * time.Second,
			HandshakeTimeout: 10 * time.Second,
		},
		Popup: PopupConfig{
			Lifetime: 10 * time.Second,
			Tick:     1 * time.Second,
		},
		Session: SessionConfig{
			ExpiryResetDelay: 3 * time.Second,
			SigninRoute:      "signin",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9465",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// The returned config has already passed Validate.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - API_BASE_URL -> api.base_url
//   - WS_URL_DEV -> socket.dev_url
//   - POPUP_LIFETIME -> popup.lifetime
//
// Unmapped variables are skipped so random environment variables do not
// pollute the config.
func envTransformFunc(key string) string {
	envMappings := map[string]string{
		"ENVIRONMENT": "environment",

		// API mappings
		"API_BASE_URL":            "api.base_url",
		"API_TIMEOUT":             "api.timeout",
		"API_RETRY_ATTEMPTS":      "api.retry_attempts",
		"API_RETRY_DELAY":         "api.retry_delay",
		"API_REQUESTS_PER_SECOND": "api.requests_per_second",

		// Socket mappings
		"WS_URL":               "socket.url",
		"WS_URL_DEV":           "socket.dev_url",
		"WS_URL_PROD":          "socket.prod_url",
		"WS_RECONNECT_DELAY":   "socket.reconnect_delay",
		"WS_HANDSHAKE_TIMEOUT": "socket.handshake_timeout",

		// Popup mappings
		"POPUP_LIFETIME": "popup.lifetime",
		"POPUP_TICK":     "popup.tick",

		// Session mappings
		"SESSION_EXPIRY_RESET": "session.expiry_reset_delay",
		"SESSION_SIGNIN_ROUTE": "session.signin_route",

		// Metrics mappings
		"METRICS_ENABLED": "metrics.enabled",
		"METRICS_ADDR":    "metrics.addr",

		// Logging mappings
		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
