package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"music-quiz-service/internal/domain"
)

const (
	defaultContentTimeout = 8 * time.Second
	contentFanOut         = 5
)

// QuestionBuilder turns tracks into multiple-choice questions.
type QuestionBuilder struct {
	content ContentGenerator
	rnd     Rand
	log     logrus.FieldLogger
	timeout time.Duration
}

// NewQuestionBuilder wires a builder. content may be nil, in which case templates are used.
func NewQuestionBuilder(content ContentGenerator, rnd Rand, log logrus.FieldLogger, timeout time.Duration) *QuestionBuilder {
	if rnd == nil {
		rnd = defaultRand()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if timeout <= 0 {
		timeout = defaultContentTimeout
	}
	return &QuestionBuilder{content: content, rnd: rnd, log: log, timeout: timeout}
}

// Build creates one question. artistDomain is only consulted in artist mode.
func (b *QuestionBuilder) Build(ctx context.Context, track domain.Track, mode domain.Mode, difficulty domain.Difficulty, artistDomain []string) domain.Question {
	correct := track.Genre
	answerDomain := GenreList
	if mode.AnswersArtist() {
		correct = track.Artist
		answerDomain = artistDomain
	}

	distractors := PickDistractors(b.rnd, correct, answerDomain, difficulty.Options()-1)
	options := append([]string{correct}, distractors...)
	b.rnd.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })

	secrets := []string{correct}
	if mode.AnswersArtist() {
		secrets = append(secrets, track.Artists...)
	}
	content := b.generate(ctx, track, mode, secrets, distractors)
	return domain.Question{
		Track:         track,
		QuestionText:  content.Question,
		Hint:          content.Hint,
		FunFact:       content.FunFact,
		Options:       options,
		CorrectAnswer: correct,
		Mode:          mode,
	}
}

// BuildAll builds one question per track concurrently, preserving order.
func (b *QuestionBuilder) BuildAll(ctx context.Context, tracks []domain.Track, mode domain.Mode, difficulty domain.Difficulty, artistDomain []string) []domain.Question {
	questions := make([]domain.Question, len(tracks))
	var g errgroup.Group
	g.SetLimit(contentFanOut)
	for i := range tracks {
		i := i
		g.Go(func() error {
			questions[i] = b.Build(ctx, tracks[i], mode, difficulty, artistDomain)
			return nil
		})
	}
	_ = g.Wait()
	return questions
}

// generate asks for question prose and drops any field that names one of secrets.
func (b *QuestionBuilder) generate(ctx context.Context, track domain.Track, mode domain.Mode, secrets []string, distractors []string) domain.QuestionContent {
	fallback := FallbackContent(track, mode)
	if b.content == nil {
		return fallback
	}

	cctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	got, err := b.content.GenerateQuestion(cctx, track, mode, distractors)
	if err != nil {
		b.log.WithError(err).WithField("track", track.ID).Warn("question content unavailable, using template")
		return fallback
	}

	out := got
	if strings.TrimSpace(out.Question) == "" || leaks(out.Question, secrets) {
		out.Question = fallback.Question
	}
	if strings.TrimSpace(out.Hint) == "" || leaks(out.Hint, secrets) {
		out.Hint = fallback.Hint
	}
	if strings.TrimSpace(out.FunFact) == "" {
		out.FunFact = fallback.FunFact
	}
	return out
}

func leaks(text string, secrets []string) bool {
	lower := strings.ToLower(text)
	for _, s := range secrets {
		if key := domain.AnswerKey(s); key != "" && strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

// FallbackContent is the deterministic text used when generation fails.
func FallbackContent(track domain.Track, mode domain.Mode) domain.QuestionContent {
	if mode.AnswersArtist() {
		return domain.QuestionContent{
			Question: fmt.Sprintf("Who performs the song %q?", track.Name),
			Hint:     "This artist is known for their unique style.",
			FunFact:  fmt.Sprintf("%q showcases incredible musical talent!", track.Name),
		}
	}
	return domain.QuestionContent{
		Question: fmt.Sprintf("What genre does %q by %s belong to?", track.Name, track.Artist),
		Hint:     fmt.Sprintf("Think about the musical style of %s.", track.Artist),
		FunFact:  fmt.Sprintf("%q is a great track by %s!", track.Name, track.Artist),
	}
}

// FallbackReaction is the deterministic host reply to an answer.
func FallbackReaction(track domain.Track, correct bool, correctAnswer string) string {
	if correct {
		return fmt.Sprintf("Nailed it! %q by %s - you really know your music!", track.Name, track.Artist)
	}
	return fmt.Sprintf("Close! The answer was %s. %q by %s is worth a listen!", correctAnswer, track.Name, track.Artist)
}
