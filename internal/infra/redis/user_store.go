package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"music-quiz-service/internal/domain"
)

const (
	leaderboardKey = "quiz:leaderboard"
	userSeqKey     = "quiz:seq:users"
	maxTxRetries   = 20
)

var errTooManyRetries = errors.New("redis: too many optimistic lock retries")

// UserStore keeps user statistics in Redis. Every update runs in a WATCH/MULTI
// transaction on the user key, so concurrent outcomes never overwrite each other.
// quiz:leaderboard is a ZSET of users with at least one finished game, scored by total score.
type UserStore struct {
	client *redis.Client
	clock  func() time.Time
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{client: client, clock: time.Now}
}

func (s *UserStore) Ensure(ctx context.Context, userID, displayName string) (domain.UserStats, error) {
	return s.update(ctx, userID, func(u *domain.UserStats, found bool) error {
		if !found {
			seq, err := s.client.Incr(ctx, userSeqKey).Result()
			if err != nil {
				return fmt.Errorf("allocate user seq: %w", err)
			}
			*u = domain.NewUserStats(userID, displayName, seq, s.clock())
			return nil
		}
		if displayName != "" {
			u.DisplayName = displayName
		}
		return nil
	})
}

func (s *UserStore) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	u, found, err := s.load(ctx, s.client, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	if !found {
		return domain.UserStats{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) ApplyOutcome(ctx context.Context, userID string, outcome domain.Outcome) (domain.UserStats, error) {
	return s.update(ctx, userID, func(u *domain.UserStats, found bool) error {
		if !found {
			return domain.ErrUserNotFound
		}
		u.Apply(outcome)
		return nil
	})
}

func (s *UserStore) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.UserStats, error) {
	return s.update(ctx, userID, func(u *domain.UserStats, found bool) error {
		if !found {
			return domain.ErrUserNotFound
		}
		u.ApplyProfile(update)
		return nil
	})
}

// TopPlayers reads the first limit leaderboard members plus everyone tied with the last of them.
func (s *UserStore) TopPlayers(ctx context.Context, limit int) ([]domain.UserStats, error) {
	if limit <= 0 {
		return []domain.UserStats{}, nil
	}
	top, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	ids := make([]string, 0, len(top))
	seen := make(map[string]struct{}, len(top))
	for _, z := range top {
		id := z.Member.(string)
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if len(top) == limit {
		cutoff := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
		tied, err := s.client.ZRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{Min: cutoff, Max: cutoff}).Result()
		if err != nil {
			return nil, fmt.Errorf("read leaderboard ties: %w", err)
		}
		for _, id := range tied {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return []domain.UserStats{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	players := make([]domain.UserStats, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var u domain.UserStats
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		players = append(players, u)
	}
	return players, nil
}

func (s *UserStore) update(ctx context.Context, userID string, fn func(u *domain.UserStats, found bool) error) (domain.UserStats, error) {
	key := s.key(userID)
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var out domain.UserStats
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			u, found, err := s.load(ctx, tx, userID)
			if err != nil {
				return err
			}
			if err := fn(&u, found); err != nil {
				return err
			}
			data, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("encode user: %w", err)
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				if u.TotalGames > 0 {
					pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(u.TotalScore), Member: userID})
				}
				return nil
			})
			out = u
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.UserStats{}, err
		}
		return out, nil
	}
	return domain.UserStats{}, fmt.Errorf("update user %s: %w", userID, errTooManyRetries)
}

func (s *UserStore) load(ctx context.Context, c getter, userID string) (domain.UserStats, bool, error) {
	raw, err := c.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserStats{}, false, nil
	}
	if err != nil {
		return domain.UserStats{}, false, fmt.Errorf("load user: %w", err)
	}
	var u domain.UserStats
	if err := json.Unmarshal(raw, &u); err != nil {
		return domain.UserStats{}, false, fmt.Errorf("decode user: %w", err)
	}
	return u, true, nil
}

func (s *UserStore) key(userID string) string {
	return "quiz:user:" + userID
}
