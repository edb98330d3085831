package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"music-quiz-service/internal/domain"
)

// TrackSearcher fetches search results from the catalog service (e.g., Spotify).
type TrackSearcher interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error)
}

// CatalogCache caches search results with TTL to avoid repeated catalog hits.
type CatalogCache struct {
	searcher TrackSearcher
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedTracks
}

type cachedTracks struct {
	tracks    []domain.Track
	expiresAt time.Time
}

func NewCatalogCache(searcher TrackSearcher, ttl time.Duration) *CatalogCache {
	return &CatalogCache{
		searcher: searcher,
		ttl:      ttl,
		clock:    time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:    make(map[string]cachedTracks),
	}
}

// SearchTracks returns a private copy of the cached results; callers may modify it.
func (c *CatalogCache) SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error) {
	key := fmt.Sprintf("%d:%s", limit, query)

	if tracks, ok := c.lookup(key); ok {
		return tracks, nil
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if tracks, ok := c.lookup(key); ok {
			return tracks, nil
		}

		tracks, err := c.searcher.SearchTracks(ctx, query, limit)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.cache[key] = cachedTracks{
			tracks:    append([]domain.Track(nil), tracks...),
			expiresAt: c.clock().Add(c.ttlWithJitterLocked()),
		}
		c.mu.Unlock()
		return tracks, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Track(nil), result.([]domain.Track)...), nil
}

func (c *CatalogCache) lookup(key string) ([]domain.Track, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[key]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return nil, false
	}
	return append([]domain.Track(nil), entry.tracks...), true
}

func (c *CatalogCache) ttlWithJitterLocked() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

// StaticCatalog is a simple searcher backed by an in-memory map (useful for tests/demos).
type StaticCatalog struct {
	results map[string][]domain.Track
}

func NewStaticCatalog(results map[string][]domain.Track) *StaticCatalog {
	return &StaticCatalog{results: results}
}

func (s *StaticCatalog) SearchTracks(_ context.Context, query string, limit int) ([]domain.Track, error) {
	tracks := s.results[query]
	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return append([]domain.Track(nil), tracks...), nil
}
