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

const userColumns = `id, seq, display_name, total_score, total_games, total_correct, total_questions,
	genre_accuracy, streak, best_streak, difficulty_level, favorite_genres, created_at`

// UserStore keeps user statistics in quiz_users. Updates lock the row with
// SELECT ... FOR UPDATE so concurrent outcomes for one user apply one after another.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Ensure(ctx context.Context, userID, displayName string) (domain.UserStats, error) {
	name := displayName
	if name == "" {
		name = userID
	}
	row := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_users (id, display_name) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET display_name = COALESCE(NULLIF($3, ''), quiz_users.display_name)
		 RETURNING `+userColumns, userID, name, displayName)
	u, err := scanUser(row)
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("ensure user: %w", err)
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM quiz_users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.UserStats{}, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

func (s *UserStore) ApplyOutcome(ctx context.Context, userID string, outcome domain.Outcome) (domain.UserStats, error) {
	return s.update(ctx, userID, func(u *domain.UserStats) { u.Apply(outcome) })
}

func (s *UserStore) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.UserStats, error) {
	return s.update(ctx, userID, func(u *domain.UserStats) { u.ApplyProfile(update) })
}

// TopPlayers relies on the (total_score DESC, seq ASC) order, so the first limit rows are exact.
func (s *UserStore) TopPlayers(ctx context.Context, limit int) ([]domain.UserStats, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM quiz_users WHERE total_games > 0
		 ORDER BY total_score DESC, seq ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	players := make([]domain.UserStats, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, u)
	}
	return players, rows.Err()
}

func (s *UserStore) update(ctx context.Context, userID string, fn func(*domain.UserStats)) (domain.UserStats, error) {
	var out domain.UserStats
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM quiz_users WHERE id = $1 FOR UPDATE`, userID))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("lock user: %w", err)
		}

		fn(&u)

		genres, err := json.Marshal(u.GenreAccuracy)
		if err != nil {
			return fmt.Errorf("encode genre accuracy: %w", err)
		}
		favorites, err := json.Marshal(u.FavoriteGenres)
		if err != nil {
			return fmt.Errorf("encode favorite genres: %w", err)
		}
		_, err = tx.Exec(ctx,
			`UPDATE quiz_users SET total_score = $2, total_games = $3, total_correct = $4, total_questions = $5,
			 genre_accuracy = $6::jsonb, streak = $7, best_streak = $8, difficulty_level = $9, favorite_genres = $10::jsonb
			 WHERE id = $1`,
			u.UserID, u.TotalScore, u.TotalGames, u.TotalCorrect, u.TotalQuestions,
			string(genres), u.Streak, u.BestStreak, string(u.DifficultyLevel), string(favorites))
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.UserStats{}, err
	}
	return out, nil
}

func scanUser(row pgx.Row) (domain.UserStats, error) {
	var (
		u          domain.UserStats
		difficulty string
		genres     []byte
		favorites  []byte
	)
	err := row.Scan(&u.UserID, &u.Seq, &u.DisplayName, &u.TotalScore, &u.TotalGames, &u.TotalCorrect,
		&u.TotalQuestions, &genres, &u.Streak, &u.BestStreak, &difficulty, &favorites, &u.CreatedAt)
	if err != nil {
		return domain.UserStats{}, err
	}
	u.DifficultyLevel = domain.Difficulty(difficulty)
	u.GenreAccuracy = map[string]domain.GenreTally{}
	if err := json.Unmarshal(genres, &u.GenreAccuracy); err != nil {
		return domain.UserStats{}, fmt.Errorf("decode genre accuracy: %w", err)
	}
	u.FavoriteGenres = []string{}
	if err := json.Unmarshal(favorites, &u.FavoriteGenres); err != nil {
		return domain.UserStats{}, fmt.Errorf("decode favorite genres: %w", err)
	}
	return u, nil
}
