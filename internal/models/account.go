// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package models

import "time"

// SignupRequest creates a new account.
type SignupRequest struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
}

// SigninRequest authenticates an existing account.
type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the bearer token returned by signin/signup.
type AuthResponse struct {
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// User is a directory entry returned by user search.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Contact is a saved payee.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// BalanceResponse is the GET /accounts/balance payload.
type BalanceResponse struct {
	Balance float64 `json:"balance"`
}

// TransferRequest is the POST /accounts/transfer payload.
type TransferRequest struct {
	RecipientID string  `json:"recipientId"`
	Amount      float64 `json:"amount"`
}

// Transaction is a single ledger entry.
type Transaction struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"` // sent, received
	Amount        float64   `json:"amount"`
	SenderName    string    `json:"senderName,omitempty"`
	RecipientName string    `json:"recipientName,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// TransactionsPage is the paginated GET /accounts/transactions payload.
type TransactionsPage struct {
	Transactions []Transaction `json:"transactions"`
	CurrentPage  int           `json:"currentPage"`
	TotalPages   int           `json:"totalPages"`
}

// UsersResponse wraps user search results.
type UsersResponse struct {
	Users []User `json:"users"`
}

// ContactsResponse wraps the contact list.
type ContactsResponse struct {
	Contacts []Contact `json:"contacts"`
}

// APIError is the error body shape returned by the backend.
type APIError struct {
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
