package memory

import (
	"context"
	"sort"
	"sync"

	"music-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *SessionStore) Get(_ context.Context, sessionID, userID string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok || session.UserID != userID {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

// Advance stores session if nobody advanced it past fromIndex in the meantime.
func (s *SessionStore) Advance(_ context.Context, session domain.Session, fromIndex int) error {
	if err := session.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[session.ID]
	if !ok || current.UserID != session.UserID {
		return domain.ErrSessionNotFound
	}
	if current.CurrentIndex != fromIndex {
		return domain.ErrSessionConflict
	}
	s.sessions[session.ID] = session.Clone()
	return nil
}

func (s *SessionStore) ListCompleted(_ context.Context, userID string, limit int) ([]domain.Session, error) {
	s.mu.RLock()
	out := make([]domain.Session, 0)
	for _, session := range s.sessions {
		if session.UserID == userID && session.Completed {
			out = append(out, session.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
