package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/StayHubLab/stayhub-go/api"
	"github.com/StayHubLab/stayhub-go/internal/metrics"
)

// localIDPrefix marks optimistic messages that have not been confirmed
// by the backend. Server IDs never carry this prefix.
const localIDPrefix = "local-"

// NewLocalID returns a temporary ID for an optimistic message. ULIDs
// keep optimistic entries sortable by creation time.
func NewLocalID() string {
	return localIDPrefix + ulid.Make().String()
}

// IsLocalID reports whether an ID belongs to an unconfirmed optimistic
// message.
func IsLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// Timeline is the ordered, deduplicated message sequence of the active
// conversation. History loads replace it wholesale; realtime deltas are
// merged in by ID with ordered insertion by timestamp.
type Timeline struct {
	client    *api.Client
	transport Transport
	self      api.User
	logger    zerolog.Logger

	mu             sync.Mutex
	conversationID string
	messages       []api.Message
}

// NewTimeline creates a timeline for the given local user.
func NewTimeline(client *api.Client, transport Transport, self api.User, logger zerolog.Logger) *Timeline {
	return &Timeline{
		client:    client,
		transport: transport,
		self:      self,
		logger:    logger.With().Str("component", "timeline").Logger(),
	}
}

// ConversationID returns the conversation the timeline is bound to.
func (t *Timeline) ConversationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}

// Messages returns a snapshot of the timeline in display order.
func (t *Timeline) Messages() []api.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]api.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Reset unbinds the timeline and drops its contents.
func (t *Timeline) Reset() {
	t.mu.Lock()
	t.conversationID = ""
	t.messages = nil
	t.mu.Unlock()
}

// LoadHistory binds the timeline to a conversation and replaces its
// contents with the fetched history. If the bound conversation changes
// while the fetch is in flight, the stale response is discarded.
func (t *Timeline) LoadHistory(ctx context.Context, conversationID string) error {
	t.mu.Lock()
	t.conversationID = conversationID
	t.messages = nil
	t.mu.Unlock()

	history, err := t.client.GetMessages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conversationID != conversationID {
		t.logger.Debug().Str("conversation", conversationID).Msg("discarding stale history response")
		return nil
	}
	t.messages = history
	return nil
}

// AppendIncoming merges a pushed or synthesized message into the
// timeline. Messages for other conversations and duplicate IDs are
// ignored. A confirmed echo of a pending optimistic message from the
// local user replaces the optimistic entry in place. Returns true if
// the timeline changed.
func (t *Timeline) AppendIncoming(msg api.Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conversationID == "" || msg.ConversationID != t.conversationID {
		return false
	}
	for _, m := range t.messages {
		if m.ID == msg.ID {
			return false
		}
	}

	if !IsLocalID(msg.ID) && msg.Sender.ID == t.self.ID {
		for i := range t.messages {
			if IsLocalID(t.messages[i].ID) && t.messages[i].Content == msg.Content {
				t.messages[i] = msg
				return true
			}
		}
	}

	// Ordered insertion; pushes normally arrive in order, so scanning
	// from the tail is the common fast path.
	i := len(t.messages)
	for i > 0 && t.messages[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	t.messages = append(t.messages, api.Message{})
	copy(t.messages[i+1:], t.messages[i:])
	t.messages[i] = msg
	return true
}

// SendText sends a trimmed message to a conversation. The realtime
// channel is tried first; if it is down the message is persisted over
// REST and an optimistic entry with a temporary ID is appended. An
// error means nothing was sent and the caller should keep the draft.
func (t *Timeline) SendText(ctx context.Context, conversationID, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	if t.transport.SendMessage(conversationID, text) {
		metrics.MessagesSent.WithLabelValues("realtime").Inc()
		return nil
	}

	if _, err := t.client.CreateMessage(ctx, conversationID, text); err != nil {
		metrics.SendFailures.Inc()
		return fmt.Errorf("send message: %w", err)
	}
	metrics.MessagesSent.WithLabelValues("rest").Inc()

	t.AppendIncoming(api.Message{
		ID:             NewLocalID(),
		ConversationID: conversationID,
		Sender:         t.self,
		Content:        text,
		CreatedAt:      time.Now(),
	})
	return nil
}
