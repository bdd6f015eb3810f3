// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paywatch/paywatch/internal/logging"
)

// MetricsService exposes the Prometheus registry on a local listener
// while supervised.
type MetricsService struct {
	addr string
}

// NewMetricsService creates a metrics listener service for addr.
func NewMetricsService(addr string) *MetricsService {
	return &MetricsService{addr: addr}
}

// Serve implements suture.Service. It runs the listener until the
// context is canceled, then shuts it down gracefully.
func (s *MetricsService) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.addr).Msg("metrics listener starting")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("metrics listener shutdown failed")
		}
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *MetricsService) String() string {
	return "metrics-listener"
}
