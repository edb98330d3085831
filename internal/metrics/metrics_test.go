package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"music-quiz-service/internal/domain"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.QuizStarted(domain.ModeGenre, domain.DifficultyEasy)
	m.QuizStarted(domain.ModeGenre, domain.DifficultyEasy)
	m.AnswerGraded(domain.ModeArtist, true)
	m.AnswerGraded(domain.ModeArtist, false)
	m.QuizCompleted(domain.ModeTimed)
	m.AdvanceConflict()
	m.ObserveRequest("/api/quiz/start", 200, 0.02)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.QuizzesStarted.WithLabelValues("genre", "easy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnswersGraded.WithLabelValues("artist", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnswersGraded.WithLabelValues("artist", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuizzesCompleted.WithLabelValues("timed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AdvanceConflicts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestCounter.WithLabelValues("/api/quiz/start", "200")))
}
