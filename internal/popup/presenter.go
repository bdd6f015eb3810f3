// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package popup drives the transient money-received popup: a small
// state machine that surfaces the most recent money_received
// notification with a ticking auto-dismiss countdown.
package popup

import (
	"sync"
	"time"

	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/metrics"
	"github.com/paywatch/paywatch/internal/models"
)

// Presenter states.
type State string

const (
	StateIdle    State = "idle"
	StateShowing State = "showing"
)

// Default timing: the popup lives for 10 seconds, counted down in
// whole-second units.
const (
	DefaultLifetime = 10 * time.Second
	DefaultTick     = 1 * time.Second

	// DefaultDetailsRoute is where "view details" navigates.
	DefaultDetailsRoute = "transactions"
)

// Renderer surfaces the popup to the user. Implementations must accept
// calls from the presenter's timer goroutine.
type Renderer interface {
	// Show displays the popup for a notification with the countdown
	// at its initial value.
	Show(n models.Notification, remaining int)

	// Countdown updates the remaining whole units on a visible popup.
	Countdown(remaining int)

	// Hide removes the popup.
	Hide()
}

// Navigator transitions the UI to a named route.
type Navigator interface {
	Navigate(route string)
}

// Config holds presenter settings. Zero values take the defaults above;
// tests compress the timings through here.
type Config struct {
	Lifetime     time.Duration
	Tick         time.Duration
	DetailsRoute string
}

// Presenter reacts to money_received notifications by showing a single
// transient popup with an auto-dismiss countdown.
//
// Invariants:
//   - At most one popup is visible at any time.
//   - A new money_received notification while showing replaces the
//     current one and restarts the countdown; popups never queue.
//   - Dismissal, manual or automatic, stops the tick timer; no interval
//     outlives the showing state.
type Presenter struct {
	cfg       Config
	ticks     int // countdown start value, lifetime/tick
	renderer  Renderer
	navigator Navigator

	mu        sync.Mutex
	state     State
	current   models.Notification
	remaining int
	stop      chan struct{}
}

// NewPresenter creates an idle presenter. Renderer and navigator may be
// nil for headless library use.
func NewPresenter(renderer Renderer, navigator Navigator, cfg Config) *Presenter {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = DefaultLifetime
	}
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.DetailsRoute == "" {
		cfg.DetailsRoute = DefaultDetailsRoute
	}
	return &Presenter{
		cfg:       cfg,
		ticks:     int(cfg.Lifetime / cfg.Tick),
		renderer:  renderer,
		navigator: navigator,
		state:     StateIdle,
	}
}

// HandleNotification is the notification sink: money_received events
// transition the presenter to showing; everything else is ignored.
func (p *Presenter) HandleNotification(n models.Notification) {
	if n.Type != models.NotificationMoneyReceived {
		return
	}

	p.mu.Lock()
	if p.state == StateShowing {
		// Replace the current popup; the countdown restarts.
		close(p.stop)
		metrics.PopupDismissed.WithLabelValues("replaced").Inc()
	}
	p.state = StateShowing
	p.current = n
	p.remaining = p.ticks
	p.stop = make(chan struct{})
	stop := p.stop
	remaining := p.remaining
	p.mu.Unlock()

	metrics.PopupShown.Inc()
	logging.Info().
		Str("sender", n.SenderName).
		Float64("amount", n.Amount).
		Msg("showing money received popup")

	if p.renderer != nil {
		p.renderer.Show(n, remaining)
	}
	go p.countdown(stop)
}

// Dismiss closes the popup immediately, regardless of the remaining
// countdown. No-op when idle.
func (p *Presenter) Dismiss() {
	p.dismiss("manual")
}

// ViewDetails navigates to the details route and closes the popup.
func (p *Presenter) ViewDetails() {
	p.mu.Lock()
	showing := p.state == StateShowing
	p.mu.Unlock()
	if !showing {
		return
	}

	if p.navigator != nil {
		p.navigator.Navigate(p.cfg.DetailsRoute)
	}
	p.dismiss("details")
}

// State returns the presenter state.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the notification being shown, if any.
func (p *Presenter) Current() (models.Notification, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.state == StateShowing
}

// Remaining returns the countdown value in whole tick units.
func (p *Presenter) Remaining() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining
}

// countdown decrements once per tick until zero or until stop closes.
// The stop channel identity check guards against a replacement racing a
// tick: an old goroutine that wakes after its popup was replaced must
// not touch the new countdown.
func (p *Presenter) countdown(stop chan struct{}) {
	ticker := time.NewTicker(p.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.mu.Lock()
			if p.state != StateShowing || p.stop != stop {
				p.mu.Unlock()
				return
			}
			p.remaining--
			remaining := p.remaining
			if remaining <= 0 {
				p.state = StateIdle
				p.stop = nil
				p.mu.Unlock()
				if p.renderer != nil {
					p.renderer.Hide()
				}
				metrics.PopupDismissed.WithLabelValues("auto").Inc()
				logging.Debug().Msg("popup auto-dismissed")
				return
			}
			p.mu.Unlock()
			if p.renderer != nil {
				p.renderer.Countdown(remaining)
			}
		}
	}
}

// dismiss performs the showing -> idle transition and cancels the tick timer.
func (p *Presenter) dismiss(reason string) {
	p.mu.Lock()
	if p.state != StateShowing {
		p.mu.Unlock()
		return
	}
	close(p.stop)
	p.stop = nil
	p.state = StateIdle
	p.mu.Unlock()

	if p.renderer != nil {
		p.renderer.Hide()
	}
	metrics.PopupDismissed.WithLabelValues(reason).Inc()
	logging.Debug().Str("reason", reason).Msg("popup dismissed")
}
