package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"music-quiz-service/internal/domain"
)

// SessionStore keeps quiz sessions as JSONB rows in quiz_sessions.
// current_index and completed are mirrored into columns for the optimistic update and history queries.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) Create(ctx context.Context, session domain.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quiz_sessions (id, user_id, current_index, completed, started_at, data)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		session.ID, session.UserID, session.CurrentIndex, session.Completed, session.StartedAt, string(data))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID, userID string) (domain.Session, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM quiz_sessions WHERE id = $1 AND user_id = $2`, sessionID, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return decodeSession(raw)
}

// Advance updates the row only while current_index still equals fromIndex.
func (s *SessionStore) Advance(ctx context.Context, session domain.Session, fromIndex int) error {
	if err := session.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE quiz_sessions SET data = $1::jsonb, current_index = $2, completed = $3
		 WHERE id = $4 AND user_id = $5 AND current_index = $6`,
		string(data), session.CurrentIndex, session.Completed, session.ID, session.UserID, fromIndex)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM quiz_sessions WHERE id = $1 AND user_id = $2)`,
		session.ID, session.UserID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check session: %w", err)
	}
	if !exists {
		return domain.ErrSessionNotFound
	}
	return domain.ErrSessionConflict
}

func (s *SessionStore) ListCompleted(ctx context.Context, userID string, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM quiz_sessions WHERE user_id = $1 AND completed
		 ORDER BY started_at DESC, id DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Session, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		session, err := decodeSession(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func decodeSession(raw []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", domain.ErrMalformedSession, err)
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, err
	}
	return session, nil
}
