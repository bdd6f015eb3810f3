// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package stubserver

import "context"

var accountKey = contextKey{}

func contextWithAccount(ctx context.Context, acct *account) context.Context {
	return context.WithValue(ctx, accountKey, acct)
}

// accountFromContext returns the authenticated account. Only reachable
// behind requireAuth, so the value is always present.
func accountFromContext(ctx context.Context) *account {
	return ctx.Value(accountKey).(*account)
}
