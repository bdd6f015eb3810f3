// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package popup

import (
	"sync"
	"testing"
	"time"

	"github.com/paywatch/paywatch/internal/models"
)

// recordingRenderer captures presenter callbacks for assertions.
type recordingRenderer struct {
	mu         sync.Mutex
	shows      []models.Notification
	showValues []int
	countdowns []int
	hides      int
}

func (r *recordingRenderer) Show(n models.Notification, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shows = append(r.shows, n)
	r.showValues = append(r.showValues, remaining)
}

func (r *recordingRenderer) Countdown(remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countdowns = append(r.countdowns, remaining)
}

func (r *recordingRenderer) Hide() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hides++
}

func (r *recordingRenderer) snapshot() (shows []models.Notification, showValues, countdowns []int, hides int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Notification(nil), r.shows...),
		append([]int(nil), r.showValues...),
		append([]int(nil), r.countdowns...),
		r.hides
}

// recordingNavigator captures navigation targets.
type recordingNavigator struct {
	mu     sync.Mutex
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.routes = append(n.routes, route)
}

// fastConfig compresses the countdown to 5 ticks of 10ms.
func fastConfig() Config {
	return Config{Lifetime: 50 * time.Millisecond, Tick: 10 * time.Millisecond}
}

func moneyReceived(sender string, amount float64) models.Notification {
	return models.Notification{
		ID:         sender + "-tx",
		Type:       models.NotificationMoneyReceived,
		Amount:     amount,
		SenderName: sender,
	}
}

func waitForState(t *testing.T, p *Presenter, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("presenter never reached state %q, still %q", want, p.State())
}

func TestPresenterShowsMoneyReceived(t *testing.T) {
	renderer := &recordingRenderer{}
	p := NewPresenter(renderer, nil, fastConfig())

	p.HandleNotification(moneyReceived("Alice Nguyen", 42))

	if got := p.State(); got != StateShowing {
		t.Fatalf("state = %q, want showing", got)
	}
	current, ok := p.Current()
	if !ok || current.SenderName != "Alice Nguyen" {
		t.Errorf("current = %+v (ok=%v), want the received notification", current, ok)
	}
	if got := p.Remaining(); got != 5 {
		t.Errorf("remaining = %d, want the full countdown of 5", got)
	}

	shows, showValues, _, _ := renderer.snapshot()
	if len(shows) != 1 || showValues[0] != 5 {
		t.Errorf("renderer shows = %d with values %v, want one show at 5", len(shows), showValues)
	}
}

func TestPresenterIgnoresOtherTypes(t *testing.T) {
	renderer := &recordingRenderer{}
	p := NewPresenter(renderer, nil, fastConfig())

	p.HandleNotification(models.Notification{Type: models.NotificationMoneySent, Amount: 10})
	p.HandleNotification(models.Notification{Type: models.NotificationGeneric})

	if got := p.State(); got != StateIdle {
		t.Errorf("state = %q, want idle", got)
	}
	shows, _, _, _ := renderer.snapshot()
	if len(shows) != 0 {
		t.Errorf("renderer should not have been shown, got %d shows", len(shows))
	}
}

func TestPresenterAutoDismiss(t *testing.T) {
	renderer := &recordingRenderer{}
	p := NewPresenter(renderer, nil, fastConfig())

	p.HandleNotification(moneyReceived("Bob Okafor", 5))
	waitForState(t, p, StateIdle)

	_, _, _, hides := renderer.snapshot()
	if hides != 1 {
		t.Errorf("hides = %d, want 1", hides)
	}
	if got := p.Remaining(); got != 0 {
		t.Errorf("remaining = %d after auto-dismiss, want 0", got)
	}

	// No interval outlives the dismissal.
	_, _, countdowns, _ := renderer.snapshot()
	time.Sleep(50 * time.Millisecond)
	_, _, later, _ := renderer.snapshot()
	if len(later) != len(countdowns) {
		t.Errorf("countdown kept ticking after dismissal: %v then %v", countdowns, later)
	}
}

func TestPresenterManualDismiss(t *testing.T) {
	renderer := &recordingRenderer{}
	p := NewPresenter(renderer, nil, Config{Lifetime: time.Hour, Tick: time.Minute})

	p.HandleNotification(moneyReceived("Alice Nguyen", 42))
	p.Dismiss()

	if got := p.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle", got)
	}
	_, _, _, hides := renderer.snapshot()
	if hides != 1 {
		t.Errorf("hides = %d, want 1", hides)
	}

	// Dismiss when idle is a no-op.
	p.Dismiss()
	_, _, _, hides = renderer.snapshot()
	if hides != 1 {
		t.Errorf("idle dismiss should not hide again, got %d", hides)
	}
}

func TestPresenterReplacementRestartsCountdown(t *testing.T) {
	renderer := &recordingRenderer{}
	p := NewPresenter(renderer, nil, Config{Lifetime: time.Hour, Tick: time.Minute})

	p.HandleNotification(moneyReceived("Alice Nguyen", 42))
	p.HandleNotification(moneyReceived("Bob Okafor", 7))

	current, ok := p.Current()
	if !ok || current.SenderName != "Bob Okafor" {
		t.Errorf("current = %+v, want the replacement notification", current)
	}
	if got := p.Remaining(); got != 60 {
		t.Errorf("remaining = %d, want the countdown reset to 60", got)
	}

	shows, _, _, _ := renderer.snapshot()
	if len(shows) != 2 {
		t.Errorf("shows = %d, want 2 (original and replacement)", len(shows))
	}
}

func TestPresenterReplacementCancelsOldCountdown(t *testing.T) {
	renderer := &recordingRenderer{}
	p := NewPresenter(renderer, nil, fastConfig())

	p.HandleNotification(moneyReceived("Alice Nguyen", 1))
	p.HandleNotification(moneyReceived("Bob Okafor", 2))
	waitForState(t, p, StateIdle)

	// Only the replacement's countdown ran to completion.
	_, _, _, hides := renderer.snapshot()
	if hides != 1 {
		t.Errorf("hides = %d, want exactly 1 from the surviving countdown", hides)
	}
}

func TestPresenterViewDetails(t *testing.T) {
	renderer := &recordingRenderer{}
	navigator := &recordingNavigator{}
	p := NewPresenter(renderer, navigator, Config{Lifetime: time.Hour, Tick: time.Minute})

	p.HandleNotification(moneyReceived("Alice Nguyen", 42))
	p.ViewDetails()

	if got := p.State(); got != StateIdle {
		t.Fatalf("state = %q, want idle after view details", got)
	}
	navigator.mu.Lock()
	routes := append([]string(nil), navigator.routes...)
	navigator.mu.Unlock()
	if len(routes) != 1 || routes[0] != DefaultDetailsRoute {
		t.Errorf("routes = %v, want [%s]", routes, DefaultDetailsRoute)
	}

	// ViewDetails when idle does not navigate.
	p.ViewDetails()
	navigator.mu.Lock()
	count := len(navigator.routes)
	navigator.mu.Unlock()
	if count != 1 {
		t.Errorf("idle view details should not navigate, got %d routes", count)
	}
}
