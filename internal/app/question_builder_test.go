package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-quiz-service/internal/domain"
)

type scriptedContent struct {
	content domain.QuestionContent
	err     error
	delay   time.Duration
}

func (c scriptedContent) GenerateQuestion(ctx context.Context, _ domain.Track, _ domain.Mode, _ []string) (domain.QuestionContent, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return domain.QuestionContent{}, ctx.Err()
		}
	}
	return c.content, c.err
}

func (c scriptedContent) React(context.Context, domain.Track, bool, string, string) (string, error) {
	return "", c.err
}

var testTrack = domain.Track{ID: "t1", Name: "Bohemian Rhapsody", Artist: "Queen", Genre: "rock"}

func TestBuildGenreQuestion(t *testing.T) {
	b := NewQuestionBuilder(nil, NewSeededRand(1), quietLogger(), 0)

	for _, d := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		q := b.Build(context.Background(), testTrack, domain.ModeGenre, d, nil)
		require.NoError(t, q.Validate())
		assert.Len(t, q.Options, d.Options())
		assert.Equal(t, "rock", q.CorrectAnswer)
		assert.Equal(t, FallbackContent(testTrack, domain.ModeGenre).Question, q.QuestionText)
	}
}

func TestBuildArtistQuestionUsesPoolArtists(t *testing.T) {
	b := NewQuestionBuilder(nil, NewSeededRand(2), quietLogger(), 0)
	q := b.Build(context.Background(), testTrack, domain.ModeArtist, domain.DifficultyHard, []string{"Queen", "ABBA"})

	require.NoError(t, q.Validate())
	assert.Equal(t, "Queen", q.CorrectAnswer)
	assert.Contains(t, q.Options, "ABBA")
	assert.Len(t, q.Options, 5)
	assert.Equal(t, `Who performs the song "Bohemian Rhapsody"?`, q.QuestionText)
}

func TestBuildReplacesLeakingContent(t *testing.T) {
	content := scriptedContent{content: domain.QuestionContent{
		Question: "Which ROCK classic is this?",
		Hint:     "Operatic sections throughout.",
		FunFact:  "Recorded in 1975.",
	}}
	b := NewQuestionBuilder(content, NewSeededRand(3), quietLogger(), 0)
	q := b.Build(context.Background(), testTrack, domain.ModeGenre, domain.DifficultyMedium, nil)

	fallback := FallbackContent(testTrack, domain.ModeGenre)
	assert.Equal(t, fallback.Question, q.QuestionText)
	assert.Equal(t, "Operatic sections throughout.", q.Hint)
	assert.Equal(t, "Recorded in 1975.", q.FunFact)
}

func TestBuildReplacesContentNamingOneOfSeveralArtists(t *testing.T) {
	track := domain.Track{ID: "t2", Name: "Mask Off", Artist: "Drake, Future", Artists: []string{"Drake", "Future"}, Genre: "hip-hop"}
	content := scriptedContent{content: domain.QuestionContent{
		Question: "Who is behind this flute-driven hit?",
		Hint:     "Drake appears on it.",
		FunFact:  "It went viral in 2017.",
	}}
	b := NewQuestionBuilder(content, NewSeededRand(8), quietLogger(), 0)
	q := b.Build(context.Background(), track, domain.ModeArtist, domain.DifficultyMedium, []string{"Drake, Future", "ABBA", "Queen", "Muse"})

	assert.Equal(t, "Drake, Future", q.CorrectAnswer)
	assert.Equal(t, "Who is behind this flute-driven hit?", q.QuestionText)
	assert.Equal(t, FallbackContent(track, domain.ModeArtist).Hint, q.Hint)
}

func TestBuildFallsBackOnErrorAndTimeout(t *testing.T) {
	fallback := FallbackContent(testTrack, domain.ModeGenre)

	failing := NewQuestionBuilder(scriptedContent{err: errors.New("quota")}, NewSeededRand(4), quietLogger(), 0)
	q := failing.Build(context.Background(), testTrack, domain.ModeGenre, domain.DifficultyEasy, nil)
	assert.Equal(t, fallback.Hint, q.Hint)

	slow := NewQuestionBuilder(scriptedContent{delay: time.Second}, NewSeededRand(5), quietLogger(), 10*time.Millisecond)
	q = slow.Build(context.Background(), testTrack, domain.ModeGenre, domain.DifficultyEasy, nil)
	assert.Equal(t, fallback.FunFact, q.FunFact)
}

func TestBuildAllKeepsOrder(t *testing.T) {
	b := NewQuestionBuilder(nil, NewSeededRand(6), quietLogger(), 0)
	tracks := []domain.Track{
		{ID: "a", Name: "A", Artist: "X", Genre: "jazz"},
		{ID: "b", Name: "B", Artist: "Y", Genre: "metal"},
		{ID: "c", Name: "C", Artist: "Z", Genre: "soul"},
	}
	qs := b.BuildAll(context.Background(), tracks, domain.ModeTimed, domain.DifficultyEasy, nil)
	require.Len(t, qs, 3)
	for i, q := range qs {
		assert.Equal(t, tracks[i].ID, q.Track.ID)
		assert.Equal(t, tracks[i].Genre, q.CorrectAnswer)
		assert.Equal(t, domain.ModeTimed, q.Mode)
	}
}

func TestFallbackReaction(t *testing.T) {
	assert.Equal(t, `Nailed it! "Bohemian Rhapsody" by Queen - you really know your music!`,
		FallbackReaction(testTrack, true, "rock"))
	assert.Equal(t, `Close! The answer was rock. "Bohemian Rhapsody" by Queen is worth a listen!`,
		FallbackReaction(testTrack, false, "rock"))
}
