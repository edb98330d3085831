package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"music-quiz-service/internal/domain"
)

const namespace = "music_quiz"

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	QuizzesStarted   *prometheus.CounterVec
	AnswersGraded    *prometheus.CounterVec
	QuizzesCompleted *prometheus.CounterVec
	AdvanceConflicts prometheus.Counter
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QuizzesStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quiz",
				Name:      "started_total",
				Help:      "Quizzes started, by mode and difficulty",
			},
			[]string{"mode", "difficulty"},
		),
		AnswersGraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quiz",
				Name:      "answers_total",
				Help:      "Answers graded, by mode and correctness",
			},
			[]string{"mode", "correct"},
		),
		QuizzesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quiz",
				Name:      "completed_total",
				Help:      "Quizzes completed, by mode",
			},
			[]string{"mode"},
		),
		AdvanceConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quiz",
				Name:      "advance_conflicts_total",
				Help:      "Session writes retried after a concurrent answer",
			},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) QuizStarted(mode domain.Mode, difficulty domain.Difficulty) {
	m.QuizzesStarted.WithLabelValues(string(mode), string(difficulty)).Inc()
}

func (m *Metrics) AnswerGraded(mode domain.Mode, correct bool) {
	m.AnswersGraded.WithLabelValues(string(mode), strconv.FormatBool(correct)).Inc()
}

func (m *Metrics) QuizCompleted(mode domain.Mode) {
	m.QuizzesCompleted.WithLabelValues(string(mode)).Inc()
}

func (m *Metrics) AdvanceConflict() {
	m.AdvanceConflicts.Inc()
}

// ObserveRequest records one finished HTTP request.
func (m *Metrics) ObserveRequest(route string, status int, seconds float64) {
	m.RequestCounter.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}
