package app

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"music-quiz-service/internal/domain"
)

// MinPoolSize is the smallest pool a quiz can be built from.
const MinPoolSize = 4

const (
	defaultPoolCap   = 20
	timedPoolCap     = 25
	genreGroupSample = 6
	genreQueryLimit  = 6
	artistSample     = 8
	artistQueryLimit = 3
	moodQueryLimit   = 8
	searchFanOut     = 4
	previewFanOut    = 6
)

// GenreList is the answer domain for genre questions.
var GenreList = []string{
	"pop", "rock", "hip hop", "electronic", "jazz", "classical", "r&b",
	"country", "latin", "indie", "metal", "blues", "folk", "reggae", "soul",
}

type genreGroup struct {
	genre   string
	queries []string
}

var genreGroups = []genreGroup{
	{"pop", []string{"top pop hits 2024", "pop classics"}},
	{"rock", []string{"rock anthems", "classic rock hits"}},
	{"hip hop", []string{"hip hop hits", "rap classics"}},
	{"electronic", []string{"edm hits", "electronic dance"}},
	{"jazz", []string{"jazz standards", "smooth jazz"}},
	{"classical", []string{"famous classical pieces", "classical music popular"}},
	{"r&b", []string{"r&b hits", "soul r&b"}},
	{"country", []string{"country hits", "country music top"}},
	{"latin", []string{"latin hits reggaeton", "latin pop"}},
	{"indie", []string{"indie rock hits", "alternative indie"}},
	{"metal", []string{"heavy metal hits", "metal rock"}},
	{"blues", []string{"blues music classic", "blues guitar"}},
}

var popularArtists = []string{
	"Taylor Swift", "Drake", "The Weeknd", "Billie Eilish", "Ed Sheeran",
	"Dua Lipa", "Post Malone", "Ariana Grande", "Kendrick Lamar", "Bruno Mars",
	"Adele", "Coldplay", "Eminem", "Rihanna", "Justin Bieber",
	"Lady Gaga", "Beyonce", "Travis Scott", "Bad Bunny", "Harry Styles",
}

// MoodGenres maps a mood to the genres its tracks may be tagged with.
var MoodGenres = map[string][]string{
	"happy":     {"pop", "dance", "funk", "disco"},
	"chill":     {"ambient", "acoustic", "lofi", "indie"},
	"energetic": {"electronic", "hip hop", "rock", "punk"},
	"sad":       {"blues", "indie", "folk", "soul"},
	"focus":     {"classical", "ambient", "jazz", "piano"},
}

var moodSearchTerms = map[string][]string{
	"happy":     {"happy hits", "feel good", "summer vibes", "party anthems"},
	"chill":     {"chill vibes", "acoustic morning", "lo-fi beats", "mellow"},
	"energetic": {"workout energy", "edm bangers", "rock anthems", "hype"},
	"sad":       {"sad songs", "heartbreak", "melancholy", "emotional ballads"},
	"focus":     {"study music", "classical focus", "ambient work", "concentration"},
}

// trackQuery is one catalog search and the genre its results are tagged with.
type trackQuery struct {
	text  string
	limit int
	genre func() string
}

// TrackPool gathers candidate tracks for one quiz from the catalog.
type TrackPool struct {
	catalog  Catalog
	previews PreviewLookup
	rnd      Rand
	log      logrus.FieldLogger
}

// NewTrackPool wires a pool. previews may be nil.
func NewTrackPool(catalog Catalog, previews PreviewLookup, rnd Rand, log logrus.FieldLogger) *TrackPool {
	if rnd == nil {
		rnd = defaultRand()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TrackPool{catalog: catalog, previews: previews, rnd: rnd, log: log}
}

// Build returns a shuffled pool of unique tracks for the given mode.
func (p *TrackPool) Build(ctx context.Context, mode domain.Mode, mood string) ([]domain.Track, error) {
	queries, capacity := p.plan(mode, mood)

	results := make([][]domain.Track, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(searchFanOut)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			tracks, err := p.catalog.SearchTracks(gctx, q.text, q.limit)
			if err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return ctx.Err()
				}
				p.log.WithError(err).WithField("query", q.text).Warn("catalog search failed")
				return nil
			}
			for j := range tracks {
				tracks[j].Genre = q.genre()
			}
			results[i] = tracks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	pool := make([]domain.Track, 0, capacity)
	for _, batch := range results {
		for _, t := range batch {
			if t.ID == "" {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			pool = append(pool, t)
		}
	}

	p.rnd.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > capacity {
		pool = pool[:capacity]
	}
	if len(pool) < MinPoolSize {
		return nil, domain.ErrInsufficientTracks
	}

	p.enrich(ctx, pool)
	return pool, nil
}

func (p *TrackPool) plan(mode domain.Mode, mood string) ([]trackQuery, int) {
	switch {
	case mode == domain.ModeArtist:
		var qs []trackQuery
		for _, artist := range sample(p.rnd, popularArtists, artistSample) {
			qs = append(qs, trackQuery{text: artist, limit: artistQueryLimit, genre: fixed("mixed")})
		}
		return qs, defaultPoolCap
	case mode == domain.ModeMood && mood != "":
		terms, ok := moodSearchTerms[mood]
		genres := MoodGenres[mood]
		if !ok {
			terms = []string{"popular music"}
			genres = []string{"pop"}
		}
		var qs []trackQuery
		for _, term := range terms {
			qs = append(qs, trackQuery{text: term, limit: moodQueryLimit, genre: p.pick(genres)})
		}
		return qs, defaultPoolCap
	default:
		capacity := defaultPoolCap
		if mode == domain.ModeTimed {
			capacity = timedPoolCap
		}
		var qs []trackQuery
		for _, group := range sample(p.rnd, genreGroups, genreGroupSample) {
			text := group.queries[p.rnd.Intn(len(group.queries))]
			qs = append(qs, trackQuery{text: text, limit: genreQueryLimit, genre: fixed(group.genre)})
		}
		return qs, capacity
	}
}

func (p *TrackPool) pick(values []string) func() string {
	return func() string { return values[p.rnd.Intn(len(values))] }
}

func fixed(v string) func() string {
	return func() string { return v }
}

// enrich fills in missing preview URLs. Lookups are best effort.
func (p *TrackPool) enrich(ctx context.Context, pool []domain.Track) {
	if p.previews == nil {
		return
	}
	var g errgroup.Group
	g.SetLimit(previewFanOut)
	for i := range pool {
		if pool[i].PreviewURL != "" {
			continue
		}
		i := i
		g.Go(func() error {
			artist := pool[i].Artist
			if len(pool[i].Artists) > 0 {
				artist = pool[i].Artists[0]
			}
			url, err := p.previews.LookupPreview(ctx, pool[i].Name, artist)
			if err != nil {
				p.log.WithError(err).WithField("track", pool[i].ID).Debug("preview lookup failed")
				return nil
			}
			pool[i].PreviewURL = url
			return nil
		})
	}
	_ = g.Wait()
}

// UniqueArtists returns the distinct artists of a pool in first-seen order.
func UniqueArtists(pool []domain.Track) []string {
	seen := make(map[string]struct{}, len(pool))
	out := make([]string, 0, len(pool))
	for _, t := range pool {
		key := domain.AnswerKey(t.Artist)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t.Artist)
	}
	return out
}
