// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package models

import (
	"math"
	"strconv"
)

// Balance helpers. The backend keeps amounts in cents internally;
// these functions keep client-side display math away from raw
// floating-point rounding.

// FormatBalance renders a balance with two decimal places, rounding to
// avoid floating-point display artifacts. NaN and infinities render as
// "0.00".
func FormatBalance(balance float64) string {
	if math.IsNaN(balance) || math.IsInf(balance, 0) {
		return "0.00"
	}
	rounded := math.Round(balance*100) / 100
	return strconv.FormatFloat(rounded, 'f', 2, 64)
}

// IsBalanceZero reports whether a balance is effectively zero,
// below one cent in magnitude.
func IsBalanceZero(balance float64) bool {
	if math.IsNaN(balance) {
		return true
	}
	return math.Abs(balance) < 0.01
}

// ParseServerBalance cleans a balance value received from the server,
// clamping it to cent precision.
func ParseServerBalance(balance float64) float64 {
	if math.IsNaN(balance) || math.IsInf(balance, 0) {
		return 0
	}
	return math.Round(balance*100) / 100
}

// DollarsToCents converts a dollar amount to integer cents.
func DollarsToCents(dollars float64) int64 {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0
	}
	return int64(math.Round(dollars * 100))
}

// CentsToDollars converts integer cents to a dollar amount.
func CentsToDollars(cents int64) float64 {
	return float64(cents) / 100
}
