// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package models

// ConnectionState tracks the socket lifecycle. Transitions are driven
// by socket events and the authentication handshake reply:
//
//	disconnected -> connecting -> connected -> authenticated
//
// Any error or close returns the state to disconnected.
type ConnectionState string

const (
	StateDisconnected  ConnectionState = "disconnected"
	StateConnecting    ConnectionState = "connecting"
	StateConnected     ConnectionState = "connected"
	StateAuthenticated ConnectionState = "authenticated"
)

// Ordinal returns a stable numeric value for gauges.
func (s ConnectionState) Ordinal() float64 {
	switch s {
	case StateConnecting:
		return 1
	case StateConnected:
		return 2
	case StateAuthenticated:
		return 3
	default:
		return 0
	}
}
