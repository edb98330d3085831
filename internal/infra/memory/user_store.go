package memory

import (
	"context"
	"sync"
	"time"

	"music-quiz-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
// One mutex serializes every update so each outcome applies atomically.
type UserStore struct {
	mu    sync.RWMutex
	clock func() time.Time
	seq   int64
	users map[string]*domain.UserStats
}

func NewUserStore() *UserStore {
	return &UserStore{
		clock: time.Now,
		users: make(map[string]*domain.UserStats),
	}
}

func (s *UserStore) Ensure(_ context.Context, userID, displayName string) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[userID]; ok {
		if displayName != "" {
			u.DisplayName = displayName
		}
		return u.Clone(), nil
	}
	s.seq++
	u := domain.NewUserStats(userID, displayName, s.seq, s.clock())
	s.users[userID] = &u
	return u.Clone(), nil
}

func (s *UserStore) Get(_ context.Context, userID string) (domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) ApplyOutcome(_ context.Context, userID string, outcome domain.Outcome) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	u.Apply(outcome)
	return u.Clone(), nil
}

func (s *UserStore) UpdateProfile(_ context.Context, userID string, update domain.ProfileUpdate) (domain.UserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	u.ApplyProfile(update)
	return u.Clone(), nil
}

// TopPlayers returns every player; ranking happens in the service.
func (s *UserStore) TopPlayers(_ context.Context, _ int) ([]domain.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserStats, 0, len(s.users))
	for _, u := range s.users {
		if u.TotalGames > 0 {
			out = append(out, u.Clone())
		}
	}
	return out, nil
}
