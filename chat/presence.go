package chat

import (
	"sort"
	"sync"
	"time"

	"github.com/StayHubLab/stayhub-go/api"
)

// typingQuiet is how long after the last keystroke the typing indicator
// is withdrawn.
const typingQuiet = time.Second

// PresenceTracker tracks which users are online process-wide and who is
// typing in the active conversation. The typing set never survives a
// conversation switch.
type PresenceTracker struct {
	transport Transport
	self      api.User

	mu           sync.Mutex
	quiet        time.Duration
	activeConvID string
	typing       map[string]struct{} // display names, active conversation only
	online       map[string]struct{} // user IDs, global
	typingTimer  *time.Timer
	localTyping  bool
}

// NewPresenceTracker creates a tracker for the given local user.
func NewPresenceTracker(transport Transport, self api.User) *PresenceTracker {
	return &PresenceTracker{
		transport: transport,
		self:      self,
		quiet:     typingQuiet,
		typing:    make(map[string]struct{}),
		online:    make(map[string]struct{}),
	}
}

// SetActive switches the tracked conversation. The typing set is
// cleared unconditionally, even if a remote user was mid-typing, and
// any pending local typing indicator is withdrawn.
func (p *PresenceTracker) SetActive(conversationID string) {
	p.mu.Lock()
	prev := p.activeConvID
	p.activeConvID = conversationID
	p.typing = make(map[string]struct{})
	wasTyping := p.localTyping
	p.localTyping = false
	if p.typingTimer != nil {
		p.typingTimer.Stop()
		p.typingTimer = nil
	}
	p.mu.Unlock()

	if wasTyping && prev != "" {
		p.transport.SetTyping(prev, false)
	}
}

// NoteLocalTyping records a keystroke in the active conversation. The
// first keystroke after an idle period emits typing(true); each further
// keystroke resets the quiet timer; on expiry typing(false) is emitted.
func (p *PresenceTracker) NoteLocalTyping() {
	p.mu.Lock()
	conversationID := p.activeConvID
	if conversationID == "" {
		p.mu.Unlock()
		return
	}

	start := !p.localTyping
	p.localTyping = true
	if p.typingTimer != nil {
		p.typingTimer.Stop()
	}
	p.typingTimer = time.AfterFunc(p.quiet, func() { p.stopLocalTyping(conversationID) })
	p.mu.Unlock()

	if start {
		p.transport.SetTyping(conversationID, true)
	}
}

func (p *PresenceTracker) stopLocalTyping(conversationID string) {
	p.mu.Lock()
	if !p.localTyping || p.activeConvID != conversationID {
		p.mu.Unlock()
		return
	}
	p.localTyping = false
	p.typingTimer = nil
	p.mu.Unlock()

	p.transport.SetTyping(conversationID, false)
}

// NoteRemoteTyping applies a pushed typing change. Events for inactive
// conversations and for the local user are ignored.
func (p *PresenceTracker) NoteRemoteTyping(user api.User, conversationID string, typing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if conversationID != p.activeConvID || user.ID == p.self.ID {
		return
	}
	if typing {
		p.typing[user.Name] = struct{}{}
	} else {
		delete(p.typing, user.Name)
	}
}

// Typing returns the display names currently typing, sorted.
func (p *PresenceTracker) Typing() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.typing))
	for name := range p.typing {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NoteOnline marks a user online, independent of any conversation.
func (p *PresenceTracker) NoteOnline(user api.User) {
	p.mu.Lock()
	p.online[user.ID] = struct{}{}
	p.mu.Unlock()
}

// NoteOffline marks a user offline.
func (p *PresenceTracker) NoteOffline(user api.User) {
	p.mu.Lock()
	delete(p.online, user.ID)
	p.mu.Unlock()
}

// IsOnline reports whether a user is known to be online.
func (p *PresenceTracker) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.online[userID]
	return ok
}

// ResetOnline clears the online set. Called when the realtime channel
// drops: stale presence is worse than none.
func (p *PresenceTracker) ResetOnline() {
	p.mu.Lock()
	p.online = make(map[string]struct{})
	p.mu.Unlock()
}
