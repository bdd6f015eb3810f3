// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

// Package api is the payment REST API client.
//
// Client Features:
//   - Bearer token authentication
//   - Circuit breaker protection (opens after 3 consecutive failures,
//     60s open period; client errors below 500 do not trip it)
//   - Automatic HTTP 429 handling with exponential backoff
//   - Optional request pacing
//   - Context support for cancellation and timeouts
//
// The session guard is installed as the underlying transport, so every
// call made here is watched for auth expiry.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/paywatch/paywatch/internal/config"
	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/metrics"
	"github.com/paywatch/paywatch/internal/models"
)

// maxErrorBodySize limits how much of an error response body is kept
// for diagnostics.
const maxErrorBodySize = 64 * 1024 // 64KB

// StatusError reports a non-2xx response with its capped body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// Client calls the payment backend (/api/v1).
//
// Thread Safety: all methods are safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	breaker       *gobreaker.CircuitBreaker[[]byte]
	limiter       *rate.Limiter
	retryAttempts int
	retryDelay    time.Duration

	tokenMu sync.RWMutex
	token   string
}

// NewClient creates a client for cfg.BaseURL. transport is installed on
// the HTTP client; pass the session guard here (nil falls back to
// http.DefaultTransport).
func NewClient(cfg config.APIConfig, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "payment-api",
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		// Client errors mean the request was wrong, not that the
		// service is down; only transport failures, 5xx and 429
		// count against the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var statusErr *StatusError
			if errors.As(err, &statusErr) {
				return statusErr.Status < http.StatusInternalServerError &&
					statusErr.Status != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		breaker:       breaker,
		limiter:       limiter,
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay,
	}
}

// SetToken installs the bearer token used on subsequent requests.
func (c *Client) SetToken(token string) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// Signup creates an account. On success the returned token is installed
// on the client.
func (c *Client) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/users/signup", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}

// Signin authenticates. On success the returned token is installed on
// the client.
func (c *Client) Signin(ctx context.Context, req models.SigninRequest) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/users/signin", nil, req, &resp); err != nil {
		return nil, err
	}
	if resp.Token != "" {
		c.SetToken(resp.Token)
	}
	return &resp, nil
}

// VerifyEmailCode confirms the emailed verification code.
func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) error {
	payload := map[string]string{"email": email, "code": code}
	return c.do(ctx, http.MethodPost, "/users/verify-email-code", nil, payload, nil)
}

// ResendVerification requests a fresh verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/users/resend-verification", nil, payload, nil)
}

// Balance fetches the current account balance. Called by the
// notification subsystem after a money_received event to refresh the
// displayed amount.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	var resp models.BalanceResponse
	if err := c.do(ctx, http.MethodGet, "/accounts/balance", nil, nil, &resp); err != nil {
		return 0, err
	}
	return models.ParseServerBalance(resp.Balance), nil
}

// Transfer moves money to another account.
func (c *Client) Transfer(ctx context.Context, req models.TransferRequest) error {
	return c.do(ctx, http.MethodPost, "/accounts/transfer", nil, req, nil)
}

// Transactions fetches one page of ledger history.
func (c *Client) Transactions(ctx context.Context, page, limit int) (*models.TransactionsPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var resp models.TransactionsPage
	if err := c.do(ctx, http.MethodGet, "/accounts/transactions", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Contacts fetches up to limit saved payees.
func (c *Client) Contacts(ctx context.Context, limit int) ([]models.Contact, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var resp models.ContactsResponse
	if err := c.do(ctx, http.MethodGet, "/users/contacts", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Contacts, nil
}

// SearchUsers looks up recipients by name fragment.
func (c *Client) SearchUsers(ctx context.Context, filter string) ([]models.User, error) {
	query := url.Values{}
	query.Set("filter", filter)

	var resp models.UsersResponse
	if err := c.do(ctx, http.MethodGet, "/users/getUser", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// do runs one API call through the pacing limiter and circuit breaker,
// decoding a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.request(ctx, method, path, query, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.APIRequests.WithLabelValues("rejected").Inc()
			return fmt.Errorf("payment api unavailable: %w", err)
		}
		metrics.APIRequests.WithLabelValues("failure").Inc()
		return fmt.Errorf("%s %s: %w", method, path, err)
	}

	metrics.APIRequests.WithLabelValues("success").Inc()

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

// request performs the HTTP exchange, retrying rate-limited responses
// with exponential backoff (retryDelay, doubled per attempt).
func (c *Client) request(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, error) {
	var reqBody []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = data
	}

	delay := c.retryDelay
	attempts := c.retryAttempts + 1

	for attempt := 0; attempt < attempts; attempt++ {
		body, retryable, err := c.exchange(ctx, method, path, query, reqBody)
		if err == nil {
			return body, nil
		}
		if !retryable || attempt == attempts-1 {
			return nil, err
		}

		logging.Warn().
			Str("path", path).
			Dur("delay", delay).
			Int("attempt", attempt+1).
			Msg("rate limited, backing off")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("%s %s: retries exhausted", method, path)
}

// exchange performs a single HTTP round trip. The second return value
// reports whether the failure is retryable (HTTP 429).
func (c *Client) exchange(ctx context.Context, method, path string, query url.Values, reqBody []byte) ([]byte, bool, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, true, &StatusError{Status: resp.StatusCode, Body: "rate limited"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if readErr != nil {
			errBody = []byte("(failed to read response body)")
		}
		return nil, false, &StatusError{Status: resp.StatusCode, Body: string(errBody)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read response: %w", err)
	}
	return body, false, nil
}
