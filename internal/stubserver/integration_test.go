// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package stubserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/paywatch/paywatch/internal/api"
	"github.com/paywatch/paywatch/internal/config"
	"github.com/paywatch/paywatch/internal/models"
	"github.com/paywatch/paywatch/internal/notify"
	"github.com/paywatch/paywatch/internal/popup"
)

// TestClientStackEndToEnd runs the real client stack against the stub
// backend: signin over REST, the socket authenticate handshake, and a
// transfer that lands in the recipient's store and pops the popup.
func TestClientStackEndToEnd(t *testing.T) {
	backend := newTestBackend(t)
	wsURL := "ws" + strings.TrimPrefix(backend.URL, "http") + "/ws"

	apiCfg := config.APIConfig{
		BaseURL:       backend.URL + "/api/v1",
		Timeout:       5 * time.Second,
		RetryAttempts: 1,
		RetryDelay:    10 * time.Millisecond,
	}

	ctx := context.Background()

	// Bob's side: sign in, open the socket, arm the popup.
	bobClient := api.NewClient(apiCfg, nil)
	bobAuth, err := bobClient.Signin(ctx, models.SigninRequest{Username: "bob", Password: "password123"})
	if err != nil {
		t.Fatalf("bob signin: %v", err)
	}

	manager := notify.NewManager(notify.Config{
		Endpoint:       wsURL,
		ReconnectDelay: 50 * time.Millisecond,
	}, notify.NewStore())
	t.Cleanup(manager.Disconnect)

	presenter := popup.NewPresenter(nil, nil, popup.Config{
		Lifetime: time.Hour,
		Tick:     time.Minute,
	})
	manager.AddSink(presenter.HandleNotification)

	received := make(chan models.Notification, 1)
	manager.AddSink(func(n models.Notification) { received <- n })

	manager.Connect(bobAuth.Token)
	waitForCondition(t, "socket authenticated", func() bool {
		return manager.State() == models.StateAuthenticated
	})

	// Alice's side: sign in and send money to Bob.
	aliceClient := api.NewClient(apiCfg, nil)
	if _, err := aliceClient.Signin(ctx, models.SigninRequest{Username: "alice", Password: "password123"}); err != nil {
		t.Fatalf("alice signin: %v", err)
	}
	users, err := aliceClient.SearchUsers(ctx, "bob")
	if err != nil || len(users) == 0 {
		t.Fatalf("search bob: %v (%d results)", err, len(users))
	}
	if err := aliceClient.Transfer(ctx, models.TransferRequest{RecipientID: users[0].ID, Amount: 75}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	select {
	case n := <-received:
		if n.Type != models.NotificationMoneyReceived || n.Amount != 75 {
			t.Errorf("notification = %+v, want money_received of 75", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bob never received the push notification")
	}

	latest, ok := manager.Store().Latest()
	if !ok || latest.Amount != 75 {
		t.Errorf("store head = %+v (ok=%v)", latest, ok)
	}
	if got := presenter.State(); got != popup.StateShowing {
		t.Errorf("presenter state = %q, want showing", got)
	}

	// The refreshed balance reflects the transfer.
	balance, err := bobClient.Balance(ctx)
	if err != nil {
		t.Fatalf("bob balance: %v", err)
	}
	if balance != 5075 {
		t.Errorf("bob balance = %v, want 5075", balance)
	}
}

func waitForCondition(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
