// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package notify

import (
	"sync"

	"github.com/paywatch/paywatch/internal/models"
)

// Store accumulates received notifications in arrival order,
// most-recent-first, for the lifetime of the session.
//
// The store only appends or clears in bulk; stored notifications are
// never mutated or partially removed. Growth is unbounded: the store is
// session-scoped and the upstream product accepted unbounded growth, so
// no eviction policy is applied here.
type Store struct {
	mu    sync.RWMutex
	items []models.Notification
}

// NewStore creates an empty notification store.
func NewStore() *Store {
	return &Store{}
}

// Append prepends a notification, making it the most recent entry.
func (s *Store) Append(n models.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]models.Notification{n}, s.items...)
}

// Clear empties the store atomically.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// All returns a snapshot of the stored notifications, newest first.
func (s *Store) All() []models.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Notification, len(s.items))
	copy(out, s.items)
	return out
}

// Latest returns the most recent notification, if any.
func (s *Store) Latest() (models.Notification, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.items) == 0 {
		return models.Notification{}, false
	}
	return s.items[0], true
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// HasUnread reports whether at least one notification is held,
// for badge/indicator purposes.
func (s *Store) HasUnread() bool {
	return s.Len() > 0
}
