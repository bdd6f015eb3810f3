// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package models

import "github.com/goccy/go-json"

// Frame type discriminators for socket messages.
//
// Outbound:
//   - authenticate: {"type":"authenticate","token":"<bearer>"}
//
// Inbound:
//   - authenticated: informational ack
//   - notification: carries a Notification in Data
//   - error: informational, non-fatal, Message set
const (
	FrameAuthenticate  = "authenticate"
	FrameAuthenticated = "authenticated"
	FrameNotification  = "notification"
	FrameError         = "error"
)

// Frame is a JSON text frame exchanged over the socket, in either
// direction. Fields are omitted when empty so an authenticate frame
// serializes to exactly {"type":"authenticate","token":...}.
type Frame struct {
	Type    string          `json:"type"`
	Token   string          `json:"token,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// AuthenticateFrame builds the handshake frame for the given token.
func AuthenticateFrame(token string) Frame {
	return Frame{Type: FrameAuthenticate, Token: token}
}
