// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package models holds the wire and domain types shared across Paywatch:
// push notifications, socket frames, connection state and the payment
// REST API payloads.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification types. The tag is extensible; unrecognized values are
// treated as generic notifications.
const (
	NotificationMoneyReceived = "money_received"
	NotificationMoneySent     = "money_sent"
	NotificationGeneric       = "generic"
)

// Notification is a single push event received over the socket.
// Notifications are immutable once stored.
type Notification struct {
	// ID is assigned by the server; synthesized on receipt if absent.
	ID string `json:"id,omitempty"`

	Type string `json:"type"`

	// Amount is present for money-movement types.
	Amount float64 `json:"amount,omitempty"`

	SenderName    string `json:"senderName,omitempty"`
	RecipientName string `json:"recipientName,omitempty"`

	// TransactionID links the event to a ledger entry when known.
	TransactionID string `json:"transactionId,omitempty"`

	// Timestamp is server-assigned when present, else client receipt time.
	Timestamp time.Time `json:"timestamp"`
}

// IsMoneyMovement reports whether the notification carries an amount.
func (n Notification) IsMoneyMovement() bool {
	return n.Type == NotificationMoneyReceived || n.Type == NotificationMoneySent
}

// Normalized returns a copy with a synthesized ID and the receipt time
// filled in where the server omitted them.
func (n Notification) Normalized(receivedAt time.Time) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NotificationGeneric
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = receivedAt
	}
	return n
}
