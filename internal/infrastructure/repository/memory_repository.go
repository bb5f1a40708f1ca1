package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopify-reorder/internal/domain"
	"shopify-reorder/internal/ports"
)

// MemoryRepository keeps sessions and OAuth states in process memory. It is meant
// for single-instance deployments and local development; everything is lost
// on restart.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	states   map[string]domain.OAuthState
	now      func() time.Time
}

var (
	_ ports.SessionStore = (*MemoryRepository)(nil)
	_ ports.StateStore   = (*MemoryRepository)(nil)
)

// NewMemoryRepository creates an empty in-memory store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		sessions: make(map[string]domain.Session),
		states:   make(map[string]domain.OAuthState),
		now:      time.Now,
	}
}

func (s *MemoryRepository) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	cp := *session
	cp.Scopes = append([]string(nil), session.Scopes...)
	s.sessions[session.ID] = cp
	return nil
}

func (s *MemoryRepository) GetSession(_ context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if session.Expired(s.now()) {
		delete(s.sessions, id)
		return nil, nil
	}
	return &session, nil
}

func (s *MemoryRepository) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryRepository) SaveState(_ context.Context, state *domain.OAuthState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	if _, exists := s.states[state.State]; exists {
		return errors.New("oauth state already exists")
	}
	s.states[state.State] = *state
	return nil
}

func (s *MemoryRepository) TakeState(_ context.Context, state string) (*domain.OAuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[state]
	if !ok {
		return nil, nil
	}
	delete(s.states, state)
	if !st.ExpiresAt.IsZero() && s.now().After(st.ExpiresAt) {
		return nil, nil
	}
	return &st, nil
}

// sweepLocked drops expired entries. Caller holds mu.
func (s *MemoryRepository) sweepLocked() {
	now := s.now()
	for id, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, id)
		}
	}
	for key, st := range s.states {
		if !st.ExpiresAt.IsZero() && now.After(st.ExpiresAt) {
			delete(s.states, key)
		}
	}
}
