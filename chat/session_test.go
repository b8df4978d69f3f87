package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/StayHubLab/stayhub-go/api"
)

func newTestSession(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()

	histories := map[string][]api.Message{
		"c1": {mkMsg("m1", "c1", testOther, "hi", testBase)},
		"c2": nil,
	}

	r := chi.NewRouter()
	r.Get("/chat/conversations", func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"conversations": []api.Conversation{
			{ID: "c1", Participants: []api.User{testSelf, testOther}},
			{ID: "c2", Participants: []api.User{testSelf, {ID: "u3", Name: "Cara"}}},
		}})
	})
	r.Get("/chat/messages/{id}", func(w http.ResponseWriter, req *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"messages": histories[chi.URLParam(req, "id")]})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	transport := newFakeTransport()
	sess := NewSession(api.NewClient(srv.URL), transport, testSelf, testLogger())
	t.Cleanup(sess.Close)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := sess.SelectConversation(context.Background(), "c1"); err != nil {
		t.Fatal(err)
	}
	return sess, transport
}

func TestPushForActiveConversation(t *testing.T) {
	sess, transport := newTestSession(t)

	transport.pushMessage(mkMsg("m2", "c1", testOther, "hello", testBase.Add(time.Second)))

	msgs := sess.Timeline.Messages()
	if len(msgs) != 2 || msgs[0].ID != "m1" || msgs[1].ID != "m2" {
		t.Fatalf("expected [m1 m2], got %v", msgs)
	}
	c, _ := sess.Store.Get("c1")
	if c.LastMessage == nil || c.LastMessage.Content != "hello" {
		t.Fatalf("expected preview update, got %+v", c.LastMessage)
	}
}

func TestPushForInactiveConversationUpdatesPreviewOnly(t *testing.T) {
	sess, transport := newTestSession(t)

	transport.pushMessage(mkMsg("m7", "c2", api.User{ID: "u3", Name: "Cara"}, "ping", testBase.Add(time.Second)))

	if got := len(sess.Timeline.Messages()); got != 1 {
		t.Fatalf("inactive conversation must not touch the timeline, got %d entries", got)
	}
	c, _ := sess.Store.Get("c2")
	if c.LastMessage == nil || c.LastMessage.Content != "ping" {
		t.Fatalf("expected c2 preview update, got %+v", c.LastMessage)
	}
}

func TestDuplicatePushReplay(t *testing.T) {
	sess, transport := newTestSession(t)

	m2 := mkMsg("m2", "c1", testOther, "hello", testBase.Add(time.Second))
	transport.pushMessage(m2)
	transport.pushMessage(m2)

	count := 0
	for _, m := range sess.Timeline.Messages() {
		if m.ID == "m2" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one m2, got %d", count)
	}
}

func TestSelectConversationSwitch(t *testing.T) {
	sess, transport := newTestSession(t)

	// Remote user typing in c1, then the user switches away.
	transport.pushTyping(TypingEvent{ConversationID: "c1", User: testOther, Typing: true})
	if got := sess.Presence.Typing(); len(got) != 1 {
		t.Fatalf("expected Bob typing, got %v", got)
	}

	if err := sess.SelectConversation(context.Background(), "c2"); err != nil {
		t.Fatal(err)
	}

	if got := sess.Presence.Typing(); len(got) != 0 {
		t.Fatalf("switch must clear the typing set, got %v", got)
	}
	if got := len(sess.Timeline.Messages()); got != 0 {
		t.Fatalf("expected empty c2 timeline, got %d", got)
	}

	transport.mu.Lock()
	left, joined := transport.left, transport.joined
	transport.mu.Unlock()
	if len(left) == 0 || left[len(left)-1] != "c1" {
		t.Fatalf("expected to leave c1, left=%v", left)
	}
	if joined[len(joined)-1] != "c2" {
		t.Fatalf("expected to join c2, joined=%v", joined)
	}
}

func TestPresenceRoutingAndDisconnectReset(t *testing.T) {
	sess, transport := newTestSession(t)

	transport.pushPresence(testOther, true)
	if !sess.Presence.IsOnline("u2") {
		t.Fatal("expected u2 online after push")
	}

	transport.pushState(StateDisconnected)
	if sess.Presence.IsOnline("u2") {
		t.Fatal("disconnect must reset the online set")
	}
}

func TestSendUsesActiveConversation(t *testing.T) {
	sess, transport := newTestSession(t)

	if err := sess.Send(context.Background(), "on my way"); err != nil {
		t.Fatal(err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.sent) != 1 || transport.sent[0].ConversationID != "c1" {
		t.Fatalf("expected realtime send to c1, got %v", transport.sent)
	}
}

func TestSendWithoutActiveConversation(t *testing.T) {
	transport := newFakeTransport()
	sess := NewSession(api.NewClient("http://unreachable.invalid"), transport, testSelf, testLogger())
	t.Cleanup(sess.Close)

	if err := sess.Send(context.Background(), "hello"); !errors.Is(err, ErrNoConversation) {
		t.Fatalf("expected ErrNoConversation, got %v", err)
	}

	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.sent) != 0 {
		t.Fatalf("nothing may go out without an active conversation, got %v", transport.sent)
	}
}
