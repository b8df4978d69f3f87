package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/StayHubLab/stayhub-go/api"
	"github.com/StayHubLab/stayhub-go/internal/metrics"
)

// ConnState is the lifecycle state of the realtime connection.
type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	// ErrTokenMissing is returned by Connect when no token is available.
	ErrTokenMissing = errors.New("chat: missing auth token")
	// ErrTokenExpired is returned by Connect when the token is past its expiry.
	ErrTokenExpired = errors.New("chat: auth token expired")
)

// Transport is the realtime channel the chat components multiplex over.
// Send-path methods never fail hard: they report failure through a
// boolean or degrade to a no-op, and callers fall back to REST.
type Transport interface {
	Connect(token string) error
	Disconnect()
	State() ConnState

	JoinConversation(conversationID string)
	LeaveConversation(conversationID string)
	SendMessage(conversationID, content string) bool
	SetTyping(conversationID string, typing bool)

	OnNewMessage(fn func(api.Message)) (unsubscribe func())
	OnTyping(fn func(TypingEvent)) (unsubscribe func())
	OnPresence(fn func(user api.User, online bool)) (unsubscribe func())
	OnStateChange(fn func(ConnState)) (unsubscribe func())
}

type subscribers struct {
	mu       sync.Mutex
	nextID   int
	message  map[int]func(api.Message)
	typing   map[int]func(TypingEvent)
	presence map[int]func(api.User, bool)
	state    map[int]func(ConnState)
}

// WSTransport is the websocket-backed Transport. A single instance is
// shared process-wide and injected into the components that need it.
type WSTransport struct {
	// ReconnectAttempts bounds automatic redials after a drop.
	ReconnectAttempts int
	// ReconnectDelay is the fixed backoff between redial attempts.
	ReconnectDelay time.Duration

	url    string
	dialer *websocket.Dialer
	logger zerolog.Logger

	mu     sync.RWMutex
	state  ConnState
	conn   *websocket.Conn
	send   chan []byte
	token  string
	joined map[string]struct{}
	closed bool

	subs subscribers
}

// NewWSTransport creates a transport for the given websocket endpoint.
func NewWSTransport(url string, logger zerolog.Logger) *WSTransport {
	return &WSTransport{
		ReconnectAttempts: 5,
		ReconnectDelay:    2 * time.Second,
		url:               url,
		dialer:            &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		logger:            logger.With().Str("component", "transport").Logger(),
		joined:            make(map[string]struct{}),
		subs: subscribers{
			message:  make(map[int]func(api.Message)),
			typing:   make(map[int]func(TypingEvent)),
			presence: make(map[int]func(api.User, bool)),
			state:    make(map[int]func(ConnState)),
		},
	}
}

// Connect validates the token and opens the connection. It is
// idempotent: an established or in-flight connection is reused.
func (t *WSTransport) Connect(token string) error {
	if token == "" {
		return ErrTokenMissing
	}
	if api.TokenExpired(token) {
		return ErrTokenExpired
	}

	t.mu.Lock()
	if t.state != StateDisconnected {
		// Pick up a refreshed credential so later redials don't reuse
		// the stale one.
		t.token = token
		t.mu.Unlock()
		return nil
	}
	t.token = token
	t.closed = false
	t.mu.Unlock()

	return t.dial()
}

// Disconnect closes the connection and stops any reconnection attempts.
// Safe to call when not connected.
func (t *WSTransport) Disconnect() {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn != nil {
		conn.Close()
	} else {
		t.setState(StateDisconnected)
	}
}

// State returns the current connection state.
func (t *WSTransport) State() ConnState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *WSTransport) dial() error {
	t.mu.RLock()
	established := t.conn != nil
	token := t.token
	t.mu.RUnlock()
	if established {
		return nil
	}

	t.setState(StateConnecting)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, _, err := t.dialer.Dial(t.url, header)
	if err != nil {
		t.setState(StateDisconnected)
		return fmt.Errorf("chat: connect %s: %w", t.url, err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		t.setState(StateDisconnected)
		return fmt.Errorf("chat: connect %s: transport closed", t.url)
	}
	if t.conn != nil {
		// Another dial won the race while ours was in flight. Only one
		// connection may be live; drop the extra one.
		t.mu.Unlock()
		conn.Close()
		t.setState(StateConnected)
		return nil
	}
	t.conn = conn
	t.send = make(chan []byte, 64)
	send := t.send
	done := make(chan struct{})
	rejoin := make([]string, 0, len(t.joined))
	for id := range t.joined {
		rejoin = append(rejoin, id)
	}
	t.mu.Unlock()

	t.setState(StateConnected)
	go t.writePump(conn, send, done)
	go t.readPump(conn, done)

	// Room membership does not survive a redial server-side.
	for _, id := range rejoin {
		t.emit(EventJoinConversation, JoinPayload{ConversationID: id})
	}

	t.logger.Info().Str("url", t.url).Msg("realtime channel connected")
	return nil
}

func (t *WSTransport) readPump(conn *websocket.Conn, done chan struct{}) {
	defer t.handleDrop(conn, done)

	conn.SetReadLimit(64 << 10)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				t.logger.Warn().Err(err).Msg("realtime channel dropped")
			}
			return
		}
		t.dispatch(frame)
	}
}

func (t *WSTransport) writePump(conn *websocket.Conn, send chan []byte, done chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame := <-send:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// handleDrop tears down a dead connection and, unless Disconnect was
// called, starts the bounded reconnection loop.
func (t *WSTransport) handleDrop(conn *websocket.Conn, done chan struct{}) {
	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.send = nil
	close(done)
	closed := t.closed
	t.mu.Unlock()

	t.setState(StateDisconnected)

	if closed {
		t.logger.Info().Msg("realtime channel closed")
		return
	}

	metrics.Disconnects.Inc()
	go t.reconnect()
}

func (t *WSTransport) reconnect() {
	for attempt := 1; attempt <= t.ReconnectAttempts; attempt++ {
		time.Sleep(t.ReconnectDelay)

		t.mu.RLock()
		closed := t.closed
		established := t.conn != nil
		t.mu.RUnlock()
		if closed || established {
			// Disconnected for good, or a manual Connect already
			// re-established the connection during the backoff.
			return
		}

		metrics.Reconnects.Inc()
		t.logger.Info().Int("attempt", attempt).Msg("reconnecting")
		if err := t.dial(); err == nil {
			return
		}
	}
	t.logger.Warn().Int("attempts", t.ReconnectAttempts).Msg("reconnection given up, realtime updates disabled")
}

// emit sends an envelope if connected. Returns false when offline or
// when the outbound buffer is full.
func (t *WSTransport) emit(eventType EventType, payload interface{}) bool {
	env, err := NewEnvelope(eventType, payload)
	if err != nil {
		return false
	}
	frame, err := json.Marshal(env)
	if err != nil {
		return false
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state != StateConnected || t.send == nil {
		return false
	}
	select {
	case t.send <- frame:
		return true
	default:
		return false
	}
}

// JoinConversation signals room membership. Best-effort: a no-op when
// offline, but the room is remembered and re-joined after a redial.
func (t *WSTransport) JoinConversation(conversationID string) {
	t.mu.Lock()
	t.joined[conversationID] = struct{}{}
	t.mu.Unlock()
	t.emit(EventJoinConversation, JoinPayload{ConversationID: conversationID})
}

// LeaveConversation signals leaving a room. No-op when offline.
func (t *WSTransport) LeaveConversation(conversationID string) {
	t.mu.Lock()
	delete(t.joined, conversationID)
	t.mu.Unlock()
	t.emit(EventLeaveConversation, JoinPayload{ConversationID: conversationID})
}

// SendMessage emits a send event. False means the message did not go
// out and the caller must use the REST path.
func (t *WSTransport) SendMessage(conversationID, content string) bool {
	return t.emit(EventSendMessage, SendPayload{ConversationID: conversationID, Content: content})
}

// SetTyping reports the local typing state. Silently dropped when offline.
func (t *WSTransport) SetTyping(conversationID string, typing bool) {
	t.emit(EventTyping, TypingPayload{ConversationID: conversationID, Typing: typing})
}

func (t *WSTransport) dispatch(frame []byte) {
	env, err := ParseEnvelope(frame)
	if err != nil {
		t.logger.Warn().Err(err).Msg("unparseable realtime frame")
		return
	}
	metrics.PushEvents.WithLabelValues(string(env.Type)).Inc()

	switch env.Type {
	case EventNewMessage:
		var msg api.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			t.logger.Warn().Err(err).Msg("bad newMessage payload")
			return
		}
		for _, fn := range t.messageHandlers() {
			fn(msg)
		}

	case EventUserTyping:
		var ev TypingEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			t.logger.Warn().Err(err).Msg("bad userTyping payload")
			return
		}
		for _, fn := range t.typingHandlers() {
			fn(ev)
		}

	case EventUserOnline, EventUserOffline:
		var ev PresenceEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			t.logger.Warn().Err(err).Msg("bad presence payload")
			return
		}
		online := env.Type == EventUserOnline
		for _, fn := range t.presenceHandlers() {
			fn(ev.User, online)
		}

	default:
		t.logger.Debug().Str("type", string(env.Type)).Msg("ignoring unknown event")
	}
}

func (t *WSTransport) setState(s ConnState) {
	t.mu.Lock()
	if t.state == s {
		t.mu.Unlock()
		return
	}
	t.state = s
	t.mu.Unlock()

	for _, fn := range t.stateHandlers() {
		fn(s)
	}
}

// OnNewMessage registers a handler for pushed messages. The returned
// closure removes the subscription.
func (t *WSTransport) OnNewMessage(fn func(api.Message)) func() {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	id := t.subs.nextID
	t.subs.nextID++
	t.subs.message[id] = fn
	return func() {
		t.subs.mu.Lock()
		delete(t.subs.message, id)
		t.subs.mu.Unlock()
	}
}

// OnTyping registers a handler for remote typing changes.
func (t *WSTransport) OnTyping(fn func(TypingEvent)) func() {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	id := t.subs.nextID
	t.subs.nextID++
	t.subs.typing[id] = fn
	return func() {
		t.subs.mu.Lock()
		delete(t.subs.typing, id)
		t.subs.mu.Unlock()
	}
}

// OnPresence registers a handler for online/offline changes.
func (t *WSTransport) OnPresence(fn func(api.User, bool)) func() {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	id := t.subs.nextID
	t.subs.nextID++
	t.subs.presence[id] = fn
	return func() {
		t.subs.mu.Lock()
		delete(t.subs.presence, id)
		t.subs.mu.Unlock()
	}
}

// OnStateChange registers a handler for connection lifecycle changes.
func (t *WSTransport) OnStateChange(fn func(ConnState)) func() {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	id := t.subs.nextID
	t.subs.nextID++
	t.subs.state[id] = fn
	return func() {
		t.subs.mu.Lock()
		delete(t.subs.state, id)
		t.subs.mu.Unlock()
	}
}

func (t *WSTransport) messageHandlers() []func(api.Message) {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	out := make([]func(api.Message), 0, len(t.subs.message))
	for _, fn := range t.subs.message {
		out = append(out, fn)
	}
	return out
}

func (t *WSTransport) typingHandlers() []func(TypingEvent) {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	out := make([]func(TypingEvent), 0, len(t.subs.typing))
	for _, fn := range t.subs.typing {
		out = append(out, fn)
	}
	return out
}

func (t *WSTransport) presenceHandlers() []func(api.User, bool) {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	out := make([]func(api.User, bool), 0, len(t.subs.presence))
	for _, fn := range t.subs.presence {
		out = append(out, fn)
	}
	return out
}

func (t *WSTransport) stateHandlers() []func(ConnState) {
	t.subs.mu.Lock()
	defer t.subs.mu.Unlock()
	out := make([]func(ConnState), 0, len(t.subs.state))
	for _, fn := range t.subs.state {
		out = append(out, fn)
	}
	return out
}
