package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/StayHubLab/stayhub-go/api"
)

// ConversationStore is the in-memory collection of conversation
// summaries for the signed-in user. It is the only owner of that state:
// REST loads replace it wholesale, realtime pushes patch the
// denormalized last-message previews.
type ConversationStore struct {
	client *api.Client
	logger zerolog.Logger

	mu            sync.RWMutex
	conversations []api.Conversation
}

// NewConversationStore creates a store backed by the given API client.
func NewConversationStore(client *api.Client, logger zerolog.Logger) *ConversationStore {
	return &ConversationStore{
		client: client,
		logger: logger.With().Str("component", "conversations").Logger(),
	}
}

// Load fetches the conversation list and replaces local state wholesale.
// On failure the previous state is kept untouched and the error is
// returned for the caller to surface.
func (s *ConversationStore) Load(ctx context.Context) error {
	conversations, err := s.client.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	s.mu.Lock()
	s.conversations = conversations
	s.mu.Unlock()

	s.logger.Debug().Int("count", len(conversations)).Msg("conversations loaded")
	return nil
}

// Conversations returns a snapshot of the current list.
func (s *ConversationStore) Conversations() []api.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Conversation, len(s.conversations))
	copy(out, s.conversations)
	return out
}

// Get returns the conversation with the given ID, if known.
func (s *ConversationStore) Get(conversationID string) (api.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.conversations {
		if c.ID == conversationID {
			return c, true
		}
	}
	return api.Conversation{}, false
}

// ApplyIncomingMessage updates the matching conversation's last-message
// preview. A message for an unknown conversation is a no-op; it will be
// picked up by the next Load.
func (s *ConversationStore) ApplyIncomingMessage(msg api.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if s.conversations[i].ID == msg.ConversationID {
			s.conversations[i].LastMessage = &api.LastMessage{
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt,
			}
			return
		}
	}
}

// EnsureWith returns the conversation with the given recipient, creating
// it on the backend if it does not exist yet. Creation is idempotent
// server-side; locally the conversation is merged into the list.
func (s *ConversationStore) EnsureWith(ctx context.Context, recipientID string) (api.Conversation, error) {
	conv, err := s.client.CreateConversation(ctx, recipientID)
	if err != nil {
		return api.Conversation{}, fmt.Errorf("ensure conversation: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ID == conv.ID {
			return c, nil
		}
	}
	s.conversations = append(s.conversations, *conv)
	return *conv, nil
}
