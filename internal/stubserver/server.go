// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package stubserver is a self-contained payment backend for local
// development and integration tests. It implements the subset of the
// REST API and socket protocol that the client speaks: signin with JWT
// issuance, balance, transfers, transaction history, and push frames to
// the recipient's authenticated sockets on transfer.
//
// State is in-memory and resets on restart. Not for production use.
package stubserver

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/models"
)

// tokenLifetime bounds issued JWTs. Expired tokens produce the 403
// "Token expired" the client's session guard watches for.
const tokenLifetime = 24 * time.Hour

// account is one stored user with its balance, ledger and live sockets.
type account struct {
	ID        string
	Username  string
	FirstName string
	LastName  string
	Password  string

	Balance      float64
	Transactions []models.Transaction

	contacts map[string]models.Contact
	conns    map[*socketClient]struct{}
}

// socketClient wraps one websocket connection with a write mutex.
// Transfer pushes arrive from HTTP handler goroutines while the read
// loop replies on the same connection; gorilla/websocket allows only
// one concurrent writer, so every write goes through writeFrame.
type socketClient struct {
	writeMu sync.Mutex
	conn    *websocket.Conn
}

func (c *socketClient) writeFrame(frame models.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		logging.Error().Err(err).Msg("encode frame")
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		logging.Debug().Err(err).Msg("socket write failed")
	}
}

// Config controls the stub server.
type Config struct {
	// Secret signs issued JWTs. Required.
	Secret []byte

	// TokenLifetime overrides the default 24h issuance window.
	TokenLifetime time.Duration
}

// Server is the in-memory payment backend.
type Server struct {
	secret        []byte
	tokenLifetime time.Duration
	upgrader      websocket.Upgrader

	mu         sync.Mutex
	byUsername map[string]*account
	byID       map[string]*account
}

// New creates a stub server seeded with a couple of demo accounts.
func New(cfg Config) (*Server, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("stubserver: signing secret required")
	}
	lifetime := cfg.TokenLifetime
	if lifetime <= 0 {
		lifetime = tokenLifetime
	}

	s := &Server{
		secret:        cfg.Secret,
		tokenLifetime: lifetime,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Local development tool; accept any origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		byUsername: make(map[string]*account),
		byID:       make(map[string]*account),
	}

	s.seed("alice", "Alice", "Nguyen", "password123", 5000)
	s.seed("bob", "Bob", "Okafor", "password123", 5000)

	return s, nil
}

func (s *Server) seed(username, first, last, password string, balance float64) {
	acct := &account{
		ID:        uuid.NewString(),
		Username:  username,
		FirstName: first,
		LastName:  last,
		Password:  password,
		Balance:   balance,
		contacts:  make(map[string]models.Contact),
		conns:     make(map[*socketClient]struct{}),
	}
	s.byUsername[username] = acct
	s.byID[acct.ID] = acct
}

// Handler returns the HTTP handler covering /api/v1 and /ws.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users/signup", s.handleSignup)
		r.Post("/users/signin", s.handleSignin)
		r.Post("/users/verify-email-code", s.handleVerifyCode)
		r.Post("/users/resend-verification", s.handleResend)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/users/getUser", s.handleSearchUsers)
			r.Get("/users/contacts", s.handleContacts)
			r.Get("/accounts/balance", s.handleBalance)
			r.Post("/accounts/transfer", s.handleTransfer)
			r.Get("/accounts/transactions", s.handleTransactions)
		})
	})

	r.Get("/ws", s.handleSocket)

	return r
}

// issueToken signs a JWT for the account.
func (s *Server) issueToken(acct *account) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   acct.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenLifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// parseToken validates a JWT and returns the account it names.
func (s *Server) parseToken(raw string) (*account, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("Token expired")
		}
		return nil, errors.New("Invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return nil, errors.New("Invalid token")
	}

	s.mu.Lock()
	acct, ok := s.byID[claims.Subject]
	s.mu.Unlock()
	if !ok {
		return nil, errors.New("Unknown account")
	}
	return acct, nil
}

type contextKey struct{}

// requireAuth validates the Bearer token and stashes the account.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			writeError(w, http.StatusUnauthorized, "Missing token")
			return
		}

		acct, err := s.parseToken(raw)
		if err != nil {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}

		ctx := r.Context()
		next.ServeHTTP(w, r.WithContext(contextWithAccount(ctx, acct)))
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	s.mu.Lock()
	if _, exists := s.byUsername[req.Username]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "Username already taken")
		return
	}
	acct := &account{
		ID:        uuid.NewString(),
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
		Balance:   1000,
		contacts:  make(map[string]models.Contact),
		conns:     make(map[*socketClient]struct{}),
	}
	s.byUsername[acct.Username] = acct
	s.byID[acct.ID] = acct
	s.mu.Unlock()

	token, err := s.issueToken(acct)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Token issuance failed")
		return
	}
	writeJSON(w, http.StatusCreated, models.AuthResponse{Token: token, Message: "Account created"})
}

func (s *Server) handleSignin(w http.ResponseWriter, r *http.Request) {
	var req models.SigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	acct, ok := s.byUsername[req.Username]
	s.mu.Unlock()
	if !ok || acct.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := s.issueToken(acct)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Token issuance failed")
		return
	}
	writeJSON(w, http.StatusOK, models.AuthResponse{Token: token})
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	// Email verification is a no-op in the stub; any code passes.
	writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified"})
}

func (s *Server) handleResend(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification email sent"})
}

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	filter := strings.ToLower(r.URL.Query().Get("filter"))
	caller := accountFromContext(r.Context())

	s.mu.Lock()
	var users []models.User
	for _, acct := range s.byID {
		if acct.ID == caller.ID {
			continue
		}
		name := strings.ToLower(acct.FirstName + " " + acct.LastName + " " + acct.Username)
		if filter != "" && !strings.Contains(name, filter) {
			continue
		}
		users = append(users, models.User{
			ID:        acct.ID,
			Username:  acct.Username,
			FirstName: acct.FirstName,
			LastName:  acct.LastName,
		})
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	writeJSON(w, http.StatusOK, models.UsersResponse{Users: users})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)
	caller := accountFromContext(r.Context())

	// Contacts are everyone the caller has transacted with, keyed by
	// the counterparty's account ID so repeat lookups stay stable.
	s.mu.Lock()
	contacts := make([]models.Contact, 0, len(caller.contacts))
	for _, c := range caller.contacts {
		contacts = append(contacts, c)
	}
	s.mu.Unlock()
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].Name < contacts[j].Name })
	if len(contacts) > limit {
		contacts = contacts[:limit]
	}
	writeJSON(w, http.StatusOK, models.ContactsResponse{Contacts: contacts})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	caller := accountFromContext(r.Context())

	s.mu.Lock()
	balance := caller.Balance
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.BalanceResponse{Balance: balance})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	caller := accountFromContext(r.Context())

	s.mu.Lock()
	recipient, ok := s.byID[req.RecipientID]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "Recipient not found")
		return
	}
	if recipient.ID == caller.ID {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Cannot transfer to yourself")
		return
	}
	if caller.Balance < req.Amount {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Insufficient balance")
		return
	}

	now := time.Now().UTC()
	txID := uuid.NewString()
	senderName := caller.FirstName + " " + caller.LastName
	recipientName := recipient.FirstName + " " + recipient.LastName

	caller.Balance -= req.Amount
	recipient.Balance += req.Amount
	caller.Transactions = append(caller.Transactions, models.Transaction{
		ID:            txID,
		Type:          "sent",
		Amount:        req.Amount,
		RecipientName: recipientName,
		Timestamp:     now,
	})
	recipient.Transactions = append(recipient.Transactions, models.Transaction{
		ID:         txID,
		Type:       "received",
		Amount:     req.Amount,
		SenderName: senderName,
		Timestamp:  now,
	})
	caller.contacts[recipient.ID] = models.Contact{ID: recipient.ID, Name: recipientName}
	recipient.contacts[caller.ID] = models.Contact{ID: caller.ID, Name: senderName}

	clients := make([]*socketClient, 0, len(recipient.conns))
	for client := range recipient.conns {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	s.push(clients, models.Notification{
		ID:            uuid.NewString(),
		Type:          models.NotificationMoneyReceived,
		Amount:        req.Amount,
		SenderName:    senderName,
		TransactionID: txID,
		Timestamp:     now,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "Transfer successful"})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	caller := accountFromContext(r.Context())

	s.mu.Lock()
	all := make([]models.Transaction, len(caller.Transactions))
	copy(all, caller.Transactions)
	s.mu.Unlock()

	// Newest first.
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	totalPages := (len(all) + limit - 1) / limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	writeJSON(w, http.StatusOK, models.TransactionsPage{
		Transactions: all[start:end],
		CurrentPage:  page,
		TotalPages:   totalPages,
	})
}

// handleSocket upgrades the connection and waits for the authenticate
// frame. Until it arrives and validates, nothing is pushed.
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("socket upgrade failed")
		return
	}

	go s.serveSocket(&socketClient{conn: conn})
}

func (s *Server) serveSocket(client *socketClient) {
	defer client.conn.Close()

	var acct *account
	defer func() {
		if acct != nil {
			s.mu.Lock()
			delete(acct.conns, client)
			s.mu.Unlock()
		}
	}()

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame models.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			client.writeFrame(models.Frame{Type: models.FrameError, Message: "Malformed frame"})
			continue
		}

		switch frame.Type {
		case models.FrameAuthenticate:
			authed, err := s.parseToken(frame.Token)
			if err != nil {
				client.writeFrame(models.Frame{Type: models.FrameError, Message: err.Error()})
				continue
			}
			if acct != nil {
				s.mu.Lock()
				delete(acct.conns, client)
				s.mu.Unlock()
			}
			acct = authed
			s.mu.Lock()
			acct.conns[client] = struct{}{}
			s.mu.Unlock()
			client.writeFrame(models.Frame{Type: models.FrameAuthenticated})
			logging.Debug().Str("username", acct.Username).Msg("socket authenticated")
		default:
			client.writeFrame(models.Frame{
				Type:    models.FrameError,
				Message: fmt.Sprintf("Unsupported frame type %q", frame.Type),
			})
		}
	}
}

// push fans a notification frame out to the given sockets.
func (s *Server) push(clients []*socketClient, notif models.Notification) {
	if len(clients) == 0 {
		return
	}

	data, err := json.Marshal(notif)
	if err != nil {
		logging.Error().Err(err).Msg("encode notification")
		return
	}
	frame := models.Frame{Type: models.FrameNotification, Data: data}

	for _, client := range clients {
		client.writeFrame(frame)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.APIError{Error: message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
