package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"music-quiz-service/internal/domain"
)

// TrackSearcher fetches search results from the catalog service (e.g., Spotify).
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error)
}

// CatalogCache caches search results in Redis and falls back to the searcher on cache miss.
// Results are stored as: SET quiz:catalog:{limit}:{query} <json tracks>
type CatalogCache struct {
	client   *redis.Client
	searcher TrackSearcher
	ttl      time.Duration
	sf       singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewCatalogCache(client *redis.Client, searcher TrackSearcher, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		client:   client,
		searcher: searcher,
		ttl:      ttl,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *CatalogCache) SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	key := c.key(query, limit)

	if tracks, ok := c.cached(ctx, key); ok {
		return tracks, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if tracks, ok := c.cached(ctx, key); ok {
			return tracks, nil
		}

		tracks, err := c.searcher.SearchTracks(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(tracks); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return tracks, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Track(nil), result.([]domain.Track)...), nil
}

func (c *CatalogCache) cached(ctx context.Context, key string) ([]domain.Track, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var tracks []domain.Track
	if err := json.Unmarshal(raw, &tracks); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return nil, false
	}
	return tracks, true
}

// Invalidate drops one cached query.
func (c *CatalogCache) Invalidate(ctx context.Context, query string, limit int) error {
	err := c.client.Del(ctx, c.key(query, limit)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

func (c *CatalogCache) key(query string, limit int) string {
	return "quiz:catalog:" + strconv.Itoa(limit) + ":" + query
}

func (c *CatalogCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
