package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-quiz-service/internal/domain"
)

// queryCatalog answers every query with limit tracks named after it.
type queryCatalog struct {
	mu      sync.Mutex
	queries []string
	fail    map[string]bool
	shared  bool
}

func (c *queryCatalog) SearchTracks(_ context.Context, query string, limit int) ([]domain.Track, error) {
	c.mu.Lock()
	c.queries = append(c.queries, query)
	c.mu.Unlock()
	if c.fail[query] {
		return nil, errors.New("catalog down")
	}
	tracks := make([]domain.Track, 0, limit)
	for i := 0; i < limit; i++ {
		id := fmt.Sprintf("%s-%d", query, i)
		if c.shared {
			id = fmt.Sprintf("shared-%d", i)
		}
		tracks = append(tracks, domain.Track{ID: id, Name: id, Artist: query})
	}
	return tracks, nil
}

type stubPreviews struct{}

func (stubPreviews) LookupPreview(_ context.Context, name, _ string) (string, error) {
	if name == "" {
		return "", errors.New("no name")
	}
	return "https://cdn.example/" + name + ".mp3", nil
}

func quietLogger() logrus.FieldLogger {
	log, _ := test.NewNullLogger()
	return log
}

func TestTrackPoolGenreStrategy(t *testing.T) {
	catalog := &queryCatalog{}
	pool := NewTrackPool(catalog, stubPreviews{}, NewSeededRand(1), quietLogger())

	tracks, err := pool.Build(context.Background(), domain.ModeGenre, "")
	require.NoError(t, err)

	assert.Len(t, catalog.queries, genreGroupSample)
	assert.Len(t, tracks, defaultPoolCap)

	groupOf := map[string]string{}
	for _, g := range genreGroups {
		for _, q := range g.queries {
			groupOf[q] = g.genre
		}
	}
	ids := map[string]bool{}
	for _, tr := range tracks {
		assert.False(t, ids[tr.ID], "duplicate track %s", tr.ID)
		ids[tr.ID] = true
		assert.Equal(t, groupOf[tr.Artist], tr.Genre)
		assert.NotEmpty(t, tr.PreviewURL)
	}
}

func TestTrackPoolTimedCap(t *testing.T) {
	pool := NewTrackPool(&queryCatalog{}, nil, NewSeededRand(2), quietLogger())
	tracks, err := pool.Build(context.Background(), domain.ModeTimed, "")
	require.NoError(t, err)
	assert.Len(t, tracks, timedPoolCap)
}

func TestTrackPoolArtistStrategy(t *testing.T) {
	catalog := &queryCatalog{}
	pool := NewTrackPool(catalog, nil, NewSeededRand(3), quietLogger())

	tracks, err := pool.Build(context.Background(), domain.ModeArtist, "")
	require.NoError(t, err)
	assert.Len(t, catalog.queries, artistSample)
	assert.Len(t, tracks, defaultPoolCap)
	for _, tr := range tracks {
		assert.Equal(t, "mixed", tr.Genre)
		assert.Contains(t, popularArtists, tr.Artist)
	}
	assert.LessOrEqual(t, len(UniqueArtists(tracks)), artistSample)
}

func TestTrackPoolMoodStrategy(t *testing.T) {
	catalog := &queryCatalog{}
	pool := NewTrackPool(catalog, nil, NewSeededRand(4), quietLogger())

	tracks, err := pool.Build(context.Background(), domain.ModeMood, "chill")
	require.NoError(t, err)
	assert.ElementsMatch(t, moodSearchTerms["chill"], catalog.queries)
	for _, tr := range tracks {
		assert.Contains(t, MoodGenres["chill"], tr.Genre)
	}

	catalog = &queryCatalog{}
	pool = NewTrackPool(catalog, nil, NewSeededRand(4), quietLogger())
	tracks, err = pool.Build(context.Background(), domain.ModeMood, "grumpy")
	require.NoError(t, err)
	assert.Equal(t, []string{"popular music"}, catalog.queries)
	for _, tr := range tracks {
		assert.Equal(t, "pop", tr.Genre)
	}
}

func TestTrackPoolSkipsFailingQueries(t *testing.T) {
	fail := map[string]bool{}
	for _, term := range moodSearchTerms["sad"][:3] {
		fail[term] = true
	}
	pool := NewTrackPool(&queryCatalog{fail: fail}, nil, NewSeededRand(5), quietLogger())

	tracks, err := pool.Build(context.Background(), domain.ModeMood, "sad")
	require.NoError(t, err)
	assert.Len(t, tracks, moodQueryLimit)
}

func TestTrackPoolInsufficientTracks(t *testing.T) {
	pool := NewTrackPool(&queryCatalog{shared: true}, nil, NewSeededRand(6), quietLogger())
	_, err := pool.Build(context.Background(), domain.ModeArtist, "")
	assert.ErrorIs(t, err, domain.ErrInsufficientTracks)
}
