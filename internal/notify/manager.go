// Paywatch - Real-Time Client for Peer-to-Peer Payment Services
// Copyright 2026 Paywatch Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paywatch/paywatch

package notify

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/paywatch/paywatch/internal/logging"
	"github.com/paywatch/paywatch/internal/metrics"
	"github.com/paywatch/paywatch/internal/models"
)

const (
	// DefaultReconnectDelay is the fixed wait before a reconnect attempt.
	DefaultReconnectDelay = 3 * time.Second

	defaultHandshakeTimeout = 10 * time.Second
	writeWait               = 10 * time.Second
	maxMessageSize          = 512 * 1024 // 512 KB
)

// Config holds connection manager settings.
type Config struct {
	// Endpoint is the socket URL (ws:// or wss://).
	Endpoint string

	// ReconnectDelay is the fixed wait before a reconnect attempt.
	// Default: DefaultReconnectDelay
	ReconnectDelay time.Duration

	// HandshakeTimeout bounds the websocket dial.
	// Default: 10s
	HandshakeTimeout time.Duration
}

// Sink receives each notification after it has been appended to the store.
type Sink func(models.Notification)

// Manager owns the single authenticated push channel for the current
// session. It dials the configured endpoint, performs the authenticate
// handshake, decodes inbound frames into the Store, and transparently
// reconnects after a fixed delay when the connection drops.
//
// Contract:
//   - At most one underlying connection is alive at a time; a new
//     Connect supersedes any prior connection.
//   - The connection is scoped to the token passed to Connect; a token
//     change requires a fresh Connect, which tears the old channel down
//     first.
//   - Disconnect cancels any pending reconnect before returning and is
//     safe to call repeatedly or before ever connecting.
//
// The websocket connection is owned exclusively by the Manager; no
// other component holds a reference to it.
type Manager struct {
	cfg   Config
	store *Store

	mu             sync.Mutex
	conn           *websocket.Conn
	state          models.ConnectionState
	token          string
	gen            uint64 // connection generation; bumped on Connect/Disconnect to invalidate stale work
	reconnectTimer *time.Timer

	// writeMu serializes writes; gorilla/websocket allows one concurrent writer.
	writeMu sync.Mutex

	sinkMu sync.RWMutex
	sinks  []Sink
}

// NewManager creates a connection manager feeding the given store.
// The manager starts disconnected; call Connect with a bearer token.
func NewManager(cfg Config, store *Store) *Manager {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	return &Manager{
		cfg:   cfg,
		store: store,
		state: models.StateDisconnected,
	}
}

// AddSink registers a callback invoked for every stored notification.
// Sinks run on the socket read goroutine and should return quickly.
func (m *Manager) AddSink(s Sink) {
	m.sinkMu.Lock()
	defer m.sinkMu.Unlock()
	m.sinks = append(m.sinks, s)
}

// Connect opens the push channel for the given bearer token. It is a
// no-op when the token is empty. Any prior connection or pending
// reconnect is torn down first, so duplicate sockets and stale
// reconnect loops cannot race a fresh login.
//
// The dial happens asynchronously; the authenticate frame is sent as
// the first outbound frame once the connection opens.
func (m *Manager) Connect(token string) {
	if token == "" {
		logging.Debug().Msg("connect skipped: no token")
		return
	}

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.cancelReconnectLocked()
	m.closeConnLocked()
	m.token = token
	m.setStateLocked(models.StateConnecting)
	m.mu.Unlock()

	metrics.SocketConnects.Inc()
	go m.dial(gen, token)
}

// Disconnect tears the channel down: it cancels any pending reconnect
// timer, closes the live socket if present, and resets the state to
// disconnected. Safe to call multiple times and when never connected.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.cancelReconnectLocked()
	m.closeConnLocked()
	m.token = ""
	m.setStateLocked(models.StateDisconnected)
}

// SendMessage attempts a best-effort send of payload as a JSON text
// frame. It returns false, never an error, when the connection is not
// open or the write fails.
func (m *Manager) SendMessage(payload interface{}) bool {
	m.mu.Lock()
	conn := m.conn
	state := m.state
	m.mu.Unlock()

	if conn == nil || (state != models.StateConnected && state != models.StateAuthenticated) {
		metrics.SocketSendFailures.Inc()
		return false
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Warn().Err(err).Msg("failed to marshal outbound frame")
		metrics.SocketSendFailures.Inc()
		return false
	}

	if err := m.write(conn, data); err != nil {
		logging.Warn().Err(err).Msg("failed to write outbound frame")
		metrics.SocketSendFailures.Inc()
		return false
	}
	return true
}

// State returns the current connection state.
func (m *Manager) State() models.ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsConnected reports whether the socket is open (connected or
// authenticated). Used by the passive offline indicator.
func (m *Manager) IsConnected() bool {
	state := m.State()
	return state == models.StateConnected || state == models.StateAuthenticated
}

// Store returns the notification store this manager appends to.
func (m *Manager) Store() *Store {
	return m.store
}

// dial establishes the websocket connection for generation gen and, on
// success, sends the authenticate frame and starts the read loop.
func (m *Manager) dial(gen uint64, token string) {
	dialer := websocket.Dialer{
		HandshakeTimeout:  m.cfg.HandshakeTimeout,
		EnableCompression: true,
	}

	conn, resp, err := dialer.Dial(m.cfg.Endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		logging.Warn().Err(err).Str("endpoint", m.cfg.Endpoint).Msg("socket dial failed")
		m.connLost(gen)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		// Superseded by a newer Connect or a Disconnect while dialing.
		m.mu.Unlock()
		_ = conn.Close()
		return
	}
	m.conn = conn
	m.setStateLocked(models.StateConnected)
	m.mu.Unlock()

	logging.Info().Str("endpoint", m.cfg.Endpoint).Msg("socket connected")

	// The authenticate frame must be the only initial outbound frame.
	auth, err := json.Marshal(models.AuthenticateFrame(token))
	if err == nil {
		err = m.write(conn, auth)
	}
	if err != nil {
		logging.Warn().Err(err).Msg("failed to send authenticate frame")
		m.connLost(gen)
		return
	}

	go m.readLoop(conn, gen)
}

// readLoop pumps inbound frames until the connection drops.
func (m *Manager) readLoop(conn *websocket.Conn, gen uint64) {
	conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Msg("socket closed unexpectedly")
			} else {
				logging.Debug().Err(err).Msg("socket closed")
			}
			m.connLost(gen)
			return
		}
		m.handleFrame(data)
	}
}

// handleFrame decodes one inbound JSON text frame and routes it by its
// type discriminator. Malformed frames are logged and discarded; they
// never affect the connection.
func (m *Manager) handleFrame(data []byte) {
	var frame models.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		logging.Warn().Err(err).Msg("discarding malformed socket frame")
		metrics.SocketFramesMalformed.Inc()
		return
	}

	metrics.SocketFramesReceived.WithLabelValues(frame.Type).Inc()

	switch frame.Type {
	case models.FrameAuthenticated:
		m.mu.Lock()
		if m.state == models.StateConnected {
			m.setStateLocked(models.StateAuthenticated)
		}
		m.mu.Unlock()
		logging.Info().Msg("socket authenticated")

	case models.FrameNotification:
		var n models.Notification
		if err := json.Unmarshal(frame.Data, &n); err != nil {
			logging.Warn().Err(err).Msg("discarding malformed notification payload")
			metrics.SocketFramesMalformed.Inc()
			return
		}
		n = n.Normalized(time.Now().UTC())
		m.store.Append(n)
		metrics.NotificationsReceived.WithLabelValues(n.Type).Inc()
		m.dispatch(n)

	case models.FrameError:
		// Informational, non-fatal.
		logging.Warn().Str("message", frame.Message).Msg("server reported socket error")

	default:
		logging.Debug().Str("type", frame.Type).Msg("ignoring unknown frame type")
	}
}

// dispatch fans a stored notification out to the registered sinks.
func (m *Manager) dispatch(n models.Notification) {
	m.sinkMu.RLock()
	sinks := make([]Sink, len(m.sinks))
	copy(sinks, m.sinks)
	m.sinkMu.RUnlock()

	for _, sink := range sinks {
		sink(n)
	}
}

// connLost handles an error or close on generation gen: the state drops
// to disconnected and exactly one reconnect is scheduled. Stale
// generations (superseded connections, deliberate disconnects) are
// ignored, which makes a Disconnect racing a dial or read error safe.
func (m *Manager) connLost(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return
	}
	m.closeConnLocked()
	m.setStateLocked(models.StateDisconnected)
	m.scheduleReconnectLocked(gen)
}

// scheduleReconnectLocked arms the reconnect timer unless one is
// already pending. The callback re-invokes the full Connect sequence,
// including re-authentication, with the token in effect when the
// connection dropped. Must be called with mu held.
func (m *Manager) scheduleReconnectLocked(gen uint64) {
	if m.reconnectTimer != nil {
		return
	}

	token := m.token
	logging.Info().Dur("delay", m.cfg.ReconnectDelay).Msg("scheduling socket reconnect")

	m.reconnectTimer = time.AfterFunc(m.cfg.ReconnectDelay, func() {
		m.mu.Lock()
		if gen != m.gen {
			m.mu.Unlock()
			return
		}
		m.reconnectTimer = nil
		m.mu.Unlock()

		metrics.SocketReconnects.Inc()
		logging.Info().Msg("attempting socket reconnect")
		m.Connect(token)
	})
}

// cancelReconnectLocked stops a pending reconnect timer, if any.
// Must be called with mu held.
func (m *Manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// closeConnLocked closes the live socket, if any. Must be called with mu held.
func (m *Manager) closeConnLocked() {
	if m.conn == nil {
		return
	}
	if err := m.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(1*time.Second),
	); err != nil {
		logging.Debug().Err(err).Msg("failed to send close message")
	}
	if err := m.conn.Close(); err != nil {
		logging.Debug().Err(err).Msg("failed to close socket")
	}
	m.conn = nil
}

// setStateLocked updates the tracked connection state and its gauge.
// Must be called with mu held.
func (m *Manager) setStateLocked(state models.ConnectionState) {
	m.state = state
	metrics.RecordConnectionState(state)
}

// write sends one text frame with a write deadline.
func (m *Manager) write(conn *websocket.Conn, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
