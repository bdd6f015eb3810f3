// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"disabled", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	old := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(old)

	Info().Str("sender", "Alice Nguyen").Float64("amount", 25.5).Msg("received")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if entry["sender"] != "Alice Nguyen" {
		t.Errorf("sender = %v", entry["sender"])
	}
	if entry["amount"] != 25.5 {
		t.Errorf("amount = %v", entry["amount"])
	}
	if entry["message"] != "received" {
		t.Errorf("message = %v", entry["message"])
	}
}

func TestSlogHandlerBridgesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.Info("service started", "service", "socket-notifier", "restarts", int64(2))

	out := buf.String()
	if !strings.Contains(out, `"service":"socket-notifier"`) {
		t.Errorf("missing string attr in %s", out)
	}
	if !strings.Contains(out, `"restarts":2`) {
		t.Errorf("missing int attr in %s", out)
	}
	if !strings.Contains(out, "service started") {
		t.Errorf("missing message in %s", out)
	}
}

func TestSlogHandlerGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandlerWithLogger(NewTestLogger(&buf)))

	logger.WithGroup("supervisor").With("name", "transport-layer").Info("restarting")

	if !strings.Contains(buf.String(), `"supervisor.name":"transport-layer"`) {
		t.Errorf("group prefix missing in %s", buf.String())
	}
}
