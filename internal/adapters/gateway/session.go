package gateway

import (
	"sync"

	"github.com/weedrice/whiteboard-cli/internal/domain"
)

// Session is the in-memory half of the login state. It is written only by
// the refresh handler and by explicit login/logout; everything else reads.
type Session struct {
	mu      sync.RWMutex
	current domain.Session
}

func NewSession(accessToken, refreshToken string) *Session {
	return &Session{current: domain.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}}
}

func (s *Session) Snapshot() domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Authenticated()
}

func (s *Session) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.AccessToken = accessToken
	if refreshToken != "" {
		s.current.RefreshToken = refreshToken
	}
}

func (s *Session) SetUser(user *domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.User = user
}

func (s *Session) User() *domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.User
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = domain.Session{}
}
