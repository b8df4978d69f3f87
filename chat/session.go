package chat

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/StayHubLab/stayhub-go/api"
)

// ErrNoConversation is returned by Send when no conversation is active.
var ErrNoConversation = errors.New("chat: no active conversation")

// Session composes the chat components over one shared transport and
// routes push events to them. It has an explicit lifetime: construct it
// after sign-in, Close it on sign-out. The transport and API client are
// injected so tests can substitute fakes.
type Session struct {
	Store    *ConversationStore
	Timeline *Timeline
	Presence *PresenceTracker

	transport Transport
	logger    zerolog.Logger

	mu       sync.Mutex
	activeID string
	unsubs   []func()
}

// NewSession wires a session for the signed-in user.
func NewSession(client *api.Client, transport Transport, self api.User, logger zerolog.Logger) *Session {
	s := &Session{
		Store:     NewConversationStore(client, logger),
		Timeline:  NewTimeline(client, transport, self, logger),
		Presence:  NewPresenceTracker(transport, self),
		transport: transport,
		logger:    logger.With().Str("component", "session").Logger(),
	}

	s.unsubs = append(s.unsubs,
		transport.OnNewMessage(s.handleNewMessage),
		transport.OnTyping(s.handleTyping),
		transport.OnPresence(s.handlePresence),
		transport.OnStateChange(s.handleStateChange),
	)
	return s
}

// Start loads the conversation list. The realtime channel is connected
// separately; a failed connect leaves the session usable in REST-only
// mode.
func (s *Session) Start(ctx context.Context) error {
	return s.Store.Load(ctx)
}

// ActiveConversation returns the ID of the active conversation, if any.
func (s *Session) ActiveConversation() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SelectConversation makes a conversation active: the previous room is
// left, the new one joined, the typing set cleared, and the timeline
// reloaded from REST.
func (s *Session) SelectConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	prev := s.activeID
	s.activeID = conversationID
	s.mu.Unlock()

	if prev != "" && prev != conversationID {
		s.transport.LeaveConversation(prev)
	}
	s.transport.JoinConversation(conversationID)
	s.Presence.SetActive(conversationID)

	return s.Timeline.LoadHistory(ctx, conversationID)
}

// Send sends text to the active conversation.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	conversationID := s.activeID
	s.mu.Unlock()
	if conversationID == "" {
		return ErrNoConversation
	}
	return s.Timeline.SendText(ctx, conversationID, text)
}

// Close tears down subscriptions and disconnects the transport.
func (s *Session) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
	s.transport.Disconnect()
}

// handleNewMessage routes a pushed message: every conversation gets its
// preview updated, only the active one gets a timeline entry.
func (s *Session) handleNewMessage(msg api.Message) {
	s.Store.ApplyIncomingMessage(msg)
	s.Timeline.AppendIncoming(msg)
}

func (s *Session) handleTyping(ev TypingEvent) {
	s.Presence.NoteRemoteTyping(ev.User, ev.ConversationID, ev.Typing)
}

func (s *Session) handlePresence(user api.User, online bool) {
	if online {
		s.Presence.NoteOnline(user)
	} else {
		s.Presence.NoteOffline(user)
	}
}

func (s *Session) handleStateChange(state ConnState) {
	s.logger.Info().Stringer("state", state).Msg("realtime state changed")
	if state == StateDisconnected {
		s.Presence.ResetOnline()
	}
}
