// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	// Registers the client metrics on the default registry.
	_ "github.com/paywatch/paywatch/internal/metrics"
)

// freeListenAddr reserves a loopback port for the service under test.
func freeListenAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func TestMetricsServiceLifecycle(t *testing.T) {
	addr := freeListenAddr(t)
	svc := NewMetricsService(addr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// The listener comes up and serves the Prometheus exposition.
	var body string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(fmt.Sprintf("http://%s/metrics", addr))
		if err != nil {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			t.Fatalf("read metrics body: %v", readErr)
		}
		body = string(data)
		break
	}
	if body == "" {
		t.Fatal("metrics listener never came up")
	}
	if !strings.Contains(body, "paywatch_") {
		t.Errorf("exposition is missing paywatch metrics:\n%.200s", body)
	}

	// Cancellation shuts the listener down cleanly.
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	if _, err := http.Get(fmt.Sprintf("http://%s/metrics", addr)); err == nil {
		t.Error("listener still reachable after shutdown")
	}
}

func TestMetricsServiceListenFailure(t *testing.T) {
	// Hold the port so the service cannot bind it.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	defer l.Close()

	svc := NewMetricsService(l.Addr().String())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(context.Background()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Error("Serve should fail when the address is taken")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return on bind failure")
	}
}
