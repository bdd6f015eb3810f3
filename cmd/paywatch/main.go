// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Command paywatch is the terminal client: it signs in to the payment
// backend, opens the notification socket, and surfaces money-received
// popups with live balance refreshes until interrupted.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paywatch/paywatch/internal/api"
	"github.com/paywatch/paywatch/internal/config"
	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/models"
	"github.com/paywatch/paywatch/internal/notify"
	"github.com/paywatch/paywatch/internal/popup"
	"github.com/paywatch/paywatch/internal/session"
	"github.com/paywatch/paywatch/internal/supervisor"
	"github.com/paywatch/paywatch/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "paywatch: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
		Output: os.Stderr,
	})

	logging.Info().
		Str("environment", cfg.Environment).
		Str("api", cfg.API.BaseURL).
		Str("socket", cfg.Socket.Endpoint(cfg.Environment)).
		Msg("paywatch starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session expiry anywhere on the REST path forces a clean logout:
	// the root context is canceled, which disconnects the socket and
	// stops the supervision tree.
	guard := session.NewGuard(nil, session.Config{
		Notify: func(message string) {
			fmt.Fprintln(os.Stderr, message)
		},
		Logout: func() {
			cancel()
		},
		Navigate: func(route string) {
			logging.Info().Str("route", route).Msg("redirecting")
		},
		ResetDelay:  cfg.Session.ExpiryResetDelay,
		SigninRoute: cfg.Session.SigninRoute,
	})

	client := api.NewClient(cfg.API, guard)

	token, err := authenticate(ctx, client)
	if err != nil {
		return err
	}

	store := notify.NewStore()
	manager := notify.NewManager(notify.Config{
		Endpoint:         cfg.Socket.Endpoint(cfg.Environment),
		ReconnectDelay:   cfg.Socket.ReconnectDelay,
		HandshakeTimeout: cfg.Socket.HandshakeTimeout,
	}, store)

	presenter := popup.NewPresenter(
		popup.NewConsoleRenderer(os.Stdout),
		routeLogger{},
		popup.Config{
			Lifetime: cfg.Popup.Lifetime,
			Tick:     cfg.Popup.Tick,
		},
	)
	manager.AddSink(presenter.HandleNotification)

	// Incoming money changes the balance; refresh it off the socket
	// goroutine so a slow API call never blocks the read loop.
	manager.AddSink(func(n models.Notification) {
		if n.Type != models.NotificationMoneyReceived {
			return
		}
		go refreshBalance(ctx, client)
	})

	slogger := slog.New(logging.NewSlogHandler())
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())
	tree.AddTransportService(services.NewNotifierService(manager, token))
	if cfg.Metrics.Enabled {
		tree.AddUIService(services.NewMetricsService(cfg.Metrics.Addr))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	refreshBalance(ctx, client)

	err = tree.Serve(ctx)
	if err != nil && err != context.Canceled {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("paywatch stopped")
	return nil
}

// authenticate resolves a bearer token: PAYWATCH_TOKEN wins, otherwise
// PAYWATCH_USERNAME/PAYWATCH_PASSWORD drive a signin.
func authenticate(ctx context.Context, client *api.Client) (string, error) {
	if token := os.Getenv("PAYWATCH_TOKEN"); token != "" {
		client.SetToken(token)
		return token, nil
	}

	username := os.Getenv("PAYWATCH_USERNAME")
	password := os.Getenv("PAYWATCH_PASSWORD")
	if username == "" || password == "" {
		return "", fmt.Errorf("set PAYWATCH_TOKEN, or PAYWATCH_USERNAME and PAYWATCH_PASSWORD")
	}

	signinCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := client.Signin(signinCtx, models.SigninRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return "", fmt.Errorf("signin: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("signin succeeded but returned no token")
	}

	logging.Info().Str("username", username).Msg("signed in")
	return resp.Token, nil
}

// refreshBalance fetches and prints the current balance.
func refreshBalance(ctx context.Context, client *api.Client) {
	fetchCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	balance, err := client.Balance(fetchCtx)
	if err != nil {
		logging.Warn().Err(err).Msg("balance refresh failed")
		return
	}
	fmt.Printf("Balance: %s\n", models.FormatBalance(balance))
}

// routeLogger satisfies popup.Navigator for the terminal client, where
// there is no page to switch to.
type routeLogger struct{}

func (routeLogger) Navigate(route string) {
	logging.Info().Str("route", route).Msg("navigating")
}
