package chat

import (
	"sync"
	"time"

	"github.com/StayHubLab/stayhub-go/api"
)

// fakeTransport is an in-memory Transport for exercising the chat
// components without a websocket.
type fakeTransport struct {
	mu       sync.Mutex
	state    ConnState
	sendOK   bool
	sent     []SendPayload
	typings  []TypingPayload
	typingAt []time.Time
	joined   []string
	left     []string

	msgHandlers      []func(api.Message)
	typingHandlers   []func(TypingEvent)
	presenceHandlers []func(api.User, bool)
	stateHandlers    []func(ConnState)
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{state: StateConnected, sendOK: true}
}

func (f *fakeTransport) Connect(token string) error {
	f.mu.Lock()
	f.state = StateConnected
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	f.state = StateDisconnected
	f.mu.Unlock()
}

func (f *fakeTransport) State() ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeTransport) JoinConversation(id string) {
	f.mu.Lock()
	f.joined = append(f.joined, id)
	f.mu.Unlock()
}

func (f *fakeTransport) LeaveConversation(id string) {
	f.mu.Lock()
	f.left = append(f.left, id)
	f.mu.Unlock()
}

func (f *fakeTransport) SendMessage(conversationID, content string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateConnected || !f.sendOK {
		return false
	}
	f.sent = append(f.sent, SendPayload{ConversationID: conversationID, Content: content})
	return true
}

func (f *fakeTransport) SetTyping(conversationID string, typing bool) {
	f.mu.Lock()
	f.typings = append(f.typings, TypingPayload{ConversationID: conversationID, Typing: typing})
	f.typingAt = append(f.typingAt, time.Now())
	f.mu.Unlock()
}

func (f *fakeTransport) typingCalls() []TypingPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TypingPayload, len(f.typings))
	copy(out, f.typings)
	return out
}

func (f *fakeTransport) OnNewMessage(fn func(api.Message)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.msgHandlers)
	f.msgHandlers = append(f.msgHandlers, fn)
	return func() {
		f.mu.Lock()
		f.msgHandlers[i] = nil
		f.mu.Unlock()
	}
}

func (f *fakeTransport) OnTyping(fn func(TypingEvent)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.typingHandlers)
	f.typingHandlers = append(f.typingHandlers, fn)
	return func() {
		f.mu.Lock()
		f.typingHandlers[i] = nil
		f.mu.Unlock()
	}
}

func (f *fakeTransport) OnPresence(fn func(api.User, bool)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.presenceHandlers)
	f.presenceHandlers = append(f.presenceHandlers, fn)
	return func() {
		f.mu.Lock()
		f.presenceHandlers[i] = nil
		f.mu.Unlock()
	}
}

func (f *fakeTransport) OnStateChange(fn func(ConnState)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.stateHandlers)
	f.stateHandlers = append(f.stateHandlers, fn)
	return func() {
		f.mu.Lock()
		f.stateHandlers[i] = nil
		f.mu.Unlock()
	}
}

func (f *fakeTransport) pushMessage(msg api.Message) {
	f.mu.Lock()
	handlers := append([]func(api.Message){}, f.msgHandlers...)
	f.mu.Unlock()
	for _, fn := range handlers {
		if fn != nil {
			fn(msg)
		}
	}
}

func (f *fakeTransport) pushTyping(ev TypingEvent) {
	f.mu.Lock()
	handlers := append([]func(TypingEvent){}, f.typingHandlers...)
	f.mu.Unlock()
	for _, fn := range handlers {
		if fn != nil {
			fn(ev)
		}
	}
}

func (f *fakeTransport) pushPresence(user api.User, online bool) {
	f.mu.Lock()
	handlers := append([]func(api.User, bool){}, f.presenceHandlers...)
	f.mu.Unlock()
	for _, fn := range handlers {
		if fn != nil {
			fn(user, online)
		}
	}
}

func (f *fakeTransport) pushState(s ConnState) {
	f.mu.Lock()
	f.state = s
	handlers := append([]func(ConnState){}, f.stateHandlers...)
	f.mu.Unlock()
	for _, fn := range handlers {
		if fn != nil {
			fn(s)
		}
	}
}
