// Package memory holds per-session conversation history.
package memory

import (
	"sync"
)

// Role identifies who produced a turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one recorded message of a conversation.
type Turn struct {
	Role string
	Text string
}

// Conversation is the append-only turn log of one session. A per-session
// mutex serializes concurrent requests for the same session; interleaved
// appends from parallel requests would otherwise corrupt the history order.
type Conversation struct {
	mu    sync.Mutex
	turns []Turn
}

// Append records one user/assistant exchange.
func (c *Conversation) Append(question, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, Turn{Role: RoleUser, Text: question})
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Text: answer})
}

// Turns returns a copy of the full history in order.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// SessionStore keys conversations by opaque session token. Sessions live
// for the process lifetime; there is no expiry.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Conversation
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*Conversation)}
}

// Get returns the conversation for the given session token, creating it on
// first use.
func (s *SessionStore) Get(sessionID string) *Conversation {
	s.mu.RLock()
	conv, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return conv
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if conv, ok := s.sessions[sessionID]; ok {
		return conv
	}
	conv = &Conversation{}
	s.sessions[sessionID] = conv
	return conv
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
