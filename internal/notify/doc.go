// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package notify implements the real-time notification subsystem: a
// reconnecting websocket client (Manager) that authenticates with the
// payment backend, decodes typed push frames, and appends them to an
// in-memory session-scoped Store.
//
// # Wire Protocol
//
// JSON text frames with a "type" discriminator:
//
//	-> {"type":"authenticate","token":"<bearer>"}
//	<- {"type":"authenticated"}
//	<- {"type":"notification","data":{...}}
//	<- {"type":"error","message":"..."}
//
// The authenticated ack is informational; inbound notifications are
// processed whether or not the ack has arrived.
//
// # Failure Model
//
// Transient connectivity failures recover automatically through a
// fixed-delay reconnect (one pending attempt at a time, cancellable by
// Disconnect). Malformed frames are logged and discarded without
// touching the connection. Sends while disconnected report failure as
// a boolean rather than an error.
package notify
