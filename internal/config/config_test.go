// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	if cfg.Socket.ReconnectDelay != 3*time.Second {
		t.Errorf("reconnect delay = %v, want 3s", cfg.Socket.ReconnectDelay)
	}
	if cfg.Popup.Lifetime != 10*time.Second {
		t.Errorf("popup lifetime = %v, want 10s", cfg.Popup.Lifetime)
	}
	if cfg.Popup.Tick != 1*time.Second {
		t.Errorf("popup tick = %v, want 1s", cfg.Popup.Tick)
	}
	if cfg.Session.ExpiryResetDelay != 3*time.Second {
		t.Errorf("expiry reset delay = %v, want 3s", cfg.Session.ExpiryResetDelay)
	}
}

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no config file is picked up.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("environment = %q, want development", cfg.Environment)
	}
	if cfg.API.BaseURL != "http://localhost:5000/api/v1" {
		t.Errorf("base url = %q", cfg.API.BaseURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("WS_URL_PROD", "wss://payments.example.com")
	t.Setenv("API_BASE_URL", "https://payments.example.com/api/v1")
	t.Setenv("WS_RECONNECT_DELAY", "5s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Environment != EnvProduction {
		t.Errorf("environment = %q, want production", cfg.Environment)
	}
	if got := cfg.Socket.Endpoint(cfg.Environment); got != "wss://payments.example.com" {
		t.Errorf("endpoint = %q", got)
	}
	if cfg.Socket.ReconnectDelay != 5*time.Second {
		t.Errorf("reconnect delay = %v, want 5s", cfg.Socket.ReconnectDelay)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := strings.Join([]string{
		"api:",
		"  base_url: http://10.0.0.5:5000/api/v1",
		"popup:",
		"  lifetime: 20s",
	}, "\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://10.0.0.5:5000/api/v1" {
		t.Errorf("base url = %q, want the file value", cfg.API.BaseURL)
	}
	if cfg.Popup.Lifetime != 20*time.Second {
		t.Errorf("popup lifetime = %v, want 20s from file", cfg.Popup.Lifetime)
	}
	// Untouched keys keep their defaults.
	if cfg.Popup.Tick != 1*time.Second {
		t.Errorf("popup tick = %v, want the 1s default", cfg.Popup.Tick)
	}
}

func TestEnvBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	content := "api:\n  base_url: http://from-file:5000/api/v1\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("API_BASE_URL", "http://from-env:5000/api/v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.API.BaseURL != "http://from-env:5000/api/v1" {
		t.Errorf("base url = %q, env should win over file", cfg.API.BaseURL)
	}
}

func TestSocketEndpointSelection(t *testing.T) {
	sc := SocketConfig{
		DevURL:  "ws://localhost:5000",
		ProdURL: "wss://prod.example.com",
	}

	if got := sc.Endpoint(EnvDevelopment); got != "ws://localhost:5000" {
		t.Errorf("development endpoint = %q", got)
	}
	if got := sc.Endpoint(EnvProduction); got != "wss://prod.example.com" {
		t.Errorf("production endpoint = %q", got)
	}

	sc.URL = "ws://override.example.com"
	if got := sc.Endpoint(EnvProduction); got != "ws://override.example.com" {
		t.Errorf("override endpoint = %q, explicit URL should win", got)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "staging" }},
		{"http socket url", func(c *Config) { c.Socket.DevURL = "http://localhost:5000" }},
		{"socket url without host", func(c *Config) { c.Socket.DevURL = "ws://" }},
		{"ws api url", func(c *Config) { c.API.BaseURL = "ws://localhost:5000" }},
		{"zero api timeout", func(c *Config) { c.API.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.API.RetryAttempts = -1 }},
		{"zero reconnect delay", func(c *Config) { c.Socket.ReconnectDelay = 0 }},
		{"zero popup lifetime", func(c *Config) { c.Popup.Lifetime = 0 }},
		{"tick longer than lifetime", func(c *Config) {
			c.Popup.Lifetime = time.Second
			c.Popup.Tick = 2 * time.Second
		}},
		{"zero expiry reset", func(c *Config) { c.Session.ExpiryResetDelay = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation to fail")
			}
		})
	}
}

func TestUnmappedEnvVarsIgnored(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("PATH mapped to %q, want ignored", got)
	}
	if got := envTransformFunc("WS_URL"); got != "socket.url" {
		t.Errorf("WS_URL mapped to %q", got)
	}
}
