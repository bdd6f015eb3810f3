// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package services adapts Paywatch components to the suture.Service
// interface for supervision.
package services

import (
	"context"
)

// Notifier matches *notify.Manager without importing the notify
// package, keeping the service wrappers dependency-free.
type Notifier interface {
	Connect(token string)
	Disconnect()
}

// NotifierService scopes a notifier connection to a token lifetime
// under supervision: Connect on start, Disconnect on context
// cancellation. The notifier handles reconnects itself; this wrapper
// guarantees teardown runs on logout or shutdown.
type NotifierService struct {
	notifier Notifier
	token    string
}

// NewNotifierService creates the wrapper for one token's session.
func NewNotifierService(notifier Notifier, token string) *NotifierService {
	return &NotifierService{notifier: notifier, token: token}
}

// Serve implements suture.Service.
func (s *NotifierService) Serve(ctx context.Context) error {
	s.notifier.Connect(s.token)
	<-ctx.Done()
	s.notifier.Disconnect()
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *NotifierService) String() string {
	return "socket-notifier"
}
