package server

import (
	"net/http"
	"sync"

	"github.com/desertthunder/driveclone/internal/shared"
	"golang.org/x/oauth2"
)

const (
	sessionCookie = "driveclone_session"
	stateCookie   = "oauth_state"
)

// Sessions keeps OAuth tokens in memory, keyed by an opaque cookie value.
//
// The server is single-user: every session signs in to the same Google account, shares one Drive client
// token and one job store. A session only gates access to them, so logging out of any session ends all of them.
type Sessions struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

func NewSessions() *Sessions {
	return &Sessions{tokens: make(map[string]*oauth2.Token)}
}

// Create stores token under a new session id.
func (s *Sessions) Create(token *oauth2.Token) string {
	id := shared.GenerateID()
	s.mu.Lock()
	s.tokens[id] = token
	s.mu.Unlock()
	return id
}

func (s *Sessions) Get(id string) (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[id]
	return token, ok
}

func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	delete(s.tokens, id)
	s.mu.Unlock()
}

// Reset drops every session.
func (s *Sessions) Reset() {
	s.mu.Lock()
	clear(s.tokens)
	s.mu.Unlock()
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}

// FromRequest returns the session id and token carried by r's cookie.
func (s *Sessions) FromRequest(r *http.Request) (string, *oauth2.Token, bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return "", nil, false
	}
	token, ok := s.Get(cookie.Value)
	if !ok {
		return "", nil, false
	}
	return cookie.Value, token, true
}
