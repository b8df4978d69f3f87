package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// LastMessage is the denormalized preview stored on a conversation.
type LastMessage struct {
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is a durable thread between exactly two participants.
// The backend enforces at most one conversation per participant pair.
type Conversation struct {
	ID           string       `json:"id"`
	Participants []User       `json:"participants"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Other returns the participant that is not selfID. Falls back to the
// first participant when selfID is not part of the conversation.
func (c Conversation) Other(selfID string) User {
	for _, p := range c.Participants {
		if p.ID != selfID {
			return p
		}
	}
	if len(c.Participants) > 0 {
		return c.Participants[0]
	}
	return User{}
}

// Message is a single chat message.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sender         User      `json:"sender"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ListConversations fetches the authenticated user's conversations.
func (c *Client) ListConversations(ctx context.Context) ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// CreateConversation gets or creates the conversation with a recipient.
// The call is idempotent: an existing thread is returned unchanged.
func (c *Client) CreateConversation(ctx context.Context, recipientID string) (*Conversation, error) {
	req := struct {
		RecipientID string `json:"recipientId"`
	}{RecipientID: recipientID}

	var resp Conversation
	if err := c.do(ctx, http.MethodPost, "/chat/conversations", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetMessages fetches the full message history of a conversation,
// sorted ascending by creation time.
func (c *Client) GetMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/chat/messages/"+conversationID, nil, &resp); err != nil {
		return nil, err
	}
	sort.SliceStable(resp.Messages, func(i, j int) bool {
		return resp.Messages[i].CreatedAt.Before(resp.Messages[j].CreatedAt)
	})
	return resp.Messages, nil
}

// CreateMessage persists a message over REST. This is the fallback path
// used when the realtime channel is unavailable.
func (c *Client) CreateMessage(ctx context.Context, conversationID, content string) (*Message, error) {
	req := struct {
		ConversationID string `json:"conversationId"`
		Content        string `json:"content"`
	}{ConversationID: conversationID, Content: content}

	var resp Message
	if err := c.do(ctx, http.MethodPost, "/chat/messages", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
