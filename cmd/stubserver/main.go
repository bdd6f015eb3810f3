// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Command stubserver runs the in-memory payment backend used for local
// development: the REST API under /api/v1 and the notification socket
// at /ws, seeded with the demo accounts alice and bob.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/stubserver"
)

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	secret := flag.String("secret", "", "JWT signing secret (or STUBSERVER_SECRET)")
	flag.Parse()

	if err := run(*addr, *secret); err != nil {
		fmt.Fprintf(os.Stderr, "stubserver: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, secret string) error {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: os.Stderr})

	if secret == "" {
		secret = os.Getenv("STUBSERVER_SECRET")
	}
	if secret == "" {
		secret = "paywatch-dev-secret"
		logging.Warn().Msg("using built-in dev signing secret")
	}

	srv, err := stubserver.New(stubserver.Config{Secret: []byte(secret)})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("stub backend listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		logging.Info().Msg("stub backend stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
