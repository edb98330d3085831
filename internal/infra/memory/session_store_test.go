package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"music-quiz-service/internal/domain"
)

func newTestSession(t *testing.T, id, userID string, startedAt time.Time) domain.Session {
	t.Helper()
	q := domain.Question{
		Track:         domain.Track{ID: "t1", Name: "Song", Artist: "Band", Genre: "rock"},
		QuestionText:  "Which genre?",
		Options:       []string{"rock", "pop", "jazz"},
		CorrectAnswer: "rock",
		Mode:          domain.ModeGenre,
	}
	s, err := domain.NewSession(id, userID, domain.ModeGenre, "", domain.DifficultyEasy, []domain.Question{q, q}, startedAt)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return s
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	session := newTestSession(t, "s1", "u1", time.Now())

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Get(ctx, "s1", "u2"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found for foreign user, got %v", err)
	}

	got, err := store.Get(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if _, err := got.Apply(0, "rock", true, 10, time.Now()); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := store.Advance(ctx, got, 0); err != nil {
		t.Fatalf("advance: %v", err)
	}

	stored, _ := store.Get(ctx, "s1", "u1")
	if stored.CurrentIndex != 1 || stored.Score != 10 {
		t.Fatalf("expected index 1 and score 10, got %d/%d", stored.CurrentIndex, stored.Score)
	}
}

func TestSessionStoreAdvanceConflict(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	if err := store.Create(ctx, newTestSession(t, "s1", "u1", time.Now())); err != nil {
		t.Fatalf("create: %v", err)
	}

	a, _ := store.Get(ctx, "s1", "u1")
	b, _ := store.Get(ctx, "s1", "u1")
	if _, err := a.Apply(0, "rock", true, 10, time.Now()); err != nil {
		t.Fatalf("apply a: %v", err)
	}
	if _, err := b.Apply(0, "pop", false, 0, time.Now()); err != nil {
		t.Fatalf("apply b: %v", err)
	}

	if err := store.Advance(ctx, a, 0); err != nil {
		t.Fatalf("advance a: %v", err)
	}
	if err := store.Advance(ctx, b, 0); !errors.Is(err, domain.ErrSessionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, _ := store.Get(ctx, "s1", "u1")
	if stored.Score != 10 || len(stored.Answers) != 1 {
		t.Fatalf("losing write must not land, got %+v", stored.Answers)
	}
}

func TestSessionStoreListCompleted(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "open"} {
		s := newTestSession(t, id, "u1", base.Add(time.Duration(i)*time.Hour))
		if id != "open" {
			for q := 0; q < len(s.Questions); q++ {
				if _, err := s.Apply(q, "rock", true, 10, base); err != nil {
					t.Fatalf("apply: %v", err)
				}
			}
		}
		if err := store.Create(ctx, s); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	list, err := store.ListCompleted(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "old" {
		t.Fatalf("expected [new old], got %d sessions", len(list))
	}
}
