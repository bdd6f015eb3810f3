// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package metrics provides Prometheus instrumentation for Paywatch:
// socket lifecycle, frame handling, popup activity and session expiry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/paywatch/paywatch/internal/models"
)

var (
	// Socket Metrics

	SocketConnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywatch_socket_connects_total",
			Help: "Total number of socket connection attempts",
		},
	)

	SocketReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywatch_socket_reconnects_total",
			Help: "Total number of scheduled reconnect attempts",
		},
	)

	SocketFramesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywatch_socket_frames_received_total",
			Help: "Total inbound frames by type discriminator",
		},
		[]string{"type"},
	)

	SocketFramesMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywatch_socket_frames_malformed_total",
			Help: "Total inbound frames discarded due to parse failures",
		},
	)

	SocketSendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywatch_socket_send_failures_total",
			Help: "Total best-effort sends that failed or found no open connection",
		},
	)

	// ConnectionState reports the socket lifecycle state:
	// 0=disconnected, 1=connecting, 2=connected, 3=authenticated.
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "paywatch_socket_connection_state",
			Help: "Socket state (0=disconnected, 1=connecting, 2=connected, 3=authenticated)",
		},
	)

	// Notification Metrics

	NotificationsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywatch_notifications_received_total",
			Help: "Total notifications appended to the store by type",
		},
		[]string{"type"},
	)

	// Popup Metrics

	PopupShown = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywatch_popup_shown_total",
			Help: "Total money-received popups shown (including replacements)",
		},
	)

	PopupDismissed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywatch_popup_dismissed_total",
			Help: "Total popup dismissals by reason",
		},
		[]string{"reason"}, // "auto", "manual", "details", "replaced"
	)

	// Session Metrics

	SessionExpiries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "paywatch_session_expiries_total",
			Help: "Total forced logouts triggered by session expiry responses",
		},
	)

	// API Client Metrics

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "paywatch_api_requests_total",
			Help: "Total REST API requests by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "rejected"
	)
)

// RecordConnectionState updates the connection state gauge.
func RecordConnectionState(state models.ConnectionState) {
	ConnectionState.Set(state.Ordinal())
}
