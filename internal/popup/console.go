// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package popup

import (
	"fmt"
	"io"
	"sync"

	"github.com/paywatch/paywatch/internal/models"
)

// ConsoleRenderer renders the popup as lines on a terminal. It is the
// headless stand-in for the web client's notification card.
type ConsoleRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleRenderer creates a renderer writing to out.
func NewConsoleRenderer(out io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{out: out}
}

// Show prints the money-received card.
func (r *ConsoleRenderer) Show(n models.Notification, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "+--------------------------------------+\n")
	fmt.Fprintf(r.out, "| Money Received!                      |\n")
	fmt.Fprintf(r.out, "| $%-10s from %-18s |\n", models.FormatBalance(n.Amount), n.SenderName)
	fmt.Fprintf(r.out, "| %s |\n", n.Timestamp.Format("Jan 2 15:04:05 MST 2006         "))
	fmt.Fprintf(r.out, "+--- auto-close in %2ds ----------------+\n", remaining)
}

// Countdown updates the auto-close line.
func (r *ConsoleRenderer) Countdown(remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "  ... auto-close in %ds\n", remaining)
}

// Hide prints the dismissal marker.
func (r *ConsoleRenderer) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "  (popup closed)\n")
}
