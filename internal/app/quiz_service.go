package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"music-quiz-service/internal/domain"
)

// SessionRepository abstracts how quiz sessions are stored (in-memory, Redis, Postgres).
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	// Get returns ErrSessionNotFound unless the session exists and belongs to userID.
	Get(ctx context.Context, sessionID, userID string) (domain.Session, error)
	// Advance replaces the stored session only if its current index still equals fromIndex,
	// otherwise it returns ErrSessionConflict.
	Advance(ctx context.Context, session domain.Session, fromIndex int) error
	// ListCompleted returns completed sessions of a user, newest first.
	ListCompleted(ctx context.Context, userID string, limit int) ([]domain.Session, error)
}

// UserRepository stores per-user statistics.
type UserRepository interface {
	// Ensure creates the user when missing and refreshes a non-empty display name.
	Ensure(ctx context.Context, userID, displayName string) (domain.UserStats, error)
	Get(ctx context.Context, userID string) (domain.UserStats, error)
	// ApplyOutcome folds one outcome into the user's totals atomically.
	ApplyOutcome(ctx context.Context, userID string, outcome domain.Outcome) (domain.UserStats, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.UserStats, error)
	// TopPlayers returns every player that can rank within limit, ties at the cut-off included.
	TopPlayers(ctx context.Context, limit int) ([]domain.UserStats, error)
}

// Catalog searches the music catalog.
type Catalog interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]domain.Track, error)
}

// PreviewLookup finds a short audio preview for a track.
type PreviewLookup interface {
	LookupPreview(ctx context.Context, name, artist string) (string, error)
}

// ContentGenerator writes question prose and host reactions.
type ContentGenerator interface {
	GenerateQuestion(ctx context.Context, track domain.Track, mode domain.Mode, distractors []string) (domain.QuestionContent, error)
	React(ctx context.Context, track domain.Track, correct bool, userAnswer, correctAnswer string) (string, error)
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// Metrics records service counters.
type Metrics interface {
	QuizStarted(mode domain.Mode, difficulty domain.Difficulty)
	AnswerGraded(mode domain.Mode, correct bool)
	QuizCompleted(mode domain.Mode)
	AdvanceConflict()
}

// EventQuizCompleted is published once per finished session.
const EventQuizCompleted = "quiz.completed"

// QuizCompletedEvent is the payload of EventQuizCompleted.
type QuizCompletedEvent struct {
	SessionID      string            `json:"sessionId"`
	UserID         string            `json:"userId"`
	Mode           domain.Mode       `json:"mode"`
	Difficulty     domain.Difficulty `json:"difficulty"`
	Score          int               `json:"score"`
	TotalQuestions int               `json:"totalQuestions"`
	CompletedAt    time.Time         `json:"completedAt"`
}

const (
	maxAdvanceAttempts  = 3
	scoreHistoryLimit   = 20
	recentSessionsLimit = 10
	statsSessionsLimit  = 50
	postCommitTimeout   = 5 * time.Second
)

// QuizService contains the core quiz use cases.
type QuizService struct {
	sessions  SessionRepository
	users     UserRepository
	catalog   Catalog
	previews  PreviewLookup
	content   ContentGenerator
	publisher EventPublisher
	metrics   Metrics
	log       logrus.FieldLogger
	rnd       Rand
	now       func() time.Time
	newID     func() string

	contentTimeout time.Duration
	pool           *TrackPool
	builder        *QuestionBuilder
}

// Option customizes a QuizService.
type Option func(*QuizService)

func WithLogger(log logrus.FieldLogger) Option { return func(s *QuizService) { s.log = log } }
func WithMetrics(m Metrics) Option              { return func(s *QuizService) { s.metrics = m } }
func WithPublisher(p EventPublisher) Option     { return func(s *QuizService) { s.publisher = p } }
func WithPreviews(p PreviewLookup) Option       { return func(s *QuizService) { s.previews = p } }
func WithContent(c ContentGenerator) Option     { return func(s *QuizService) { s.content = c } }
func WithRand(r Rand) Option                    { return func(s *QuizService) { s.rnd = r } }
func WithClock(now func() time.Time) Option     { return func(s *QuizService) { s.now = now } }
func WithIDGenerator(f func() string) Option    { return func(s *QuizService) { s.newID = f } }

// WithContentTimeout bounds each content generation call.
func WithContentTimeout(d time.Duration) Option {
	return func(s *QuizService) { s.contentTimeout = d }
}

func NewQuizService(sessions SessionRepository, users UserRepository, catalog Catalog, opts ...Option) *QuizService {
	s := &QuizService{
		sessions:  sessions,
		users:     users,
		catalog:   catalog,
		publisher: nopPublisher{},
		metrics:   nopMetrics{},
		log:       logrus.StandardLogger(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = defaultRand()
	}
	if s.contentTimeout <= 0 {
		s.contentTimeout = defaultContentTimeout
	}
	s.pool = NewTrackPool(catalog, s.previews, s.rnd, s.log)
	s.builder = NewQuestionBuilder(s.content, s.rnd, s.log, s.contentTimeout)
	return s
}

// RegisterUser creates the user with default settings, or refreshes its display name.
func (s *QuizService) RegisterUser(ctx context.Context, userID, displayName string) (domain.UserStats, error) {
	return s.users.Ensure(ctx, userID, displayName)
}

// StartQuiz builds and stores a new session for userID.
func (s *QuizService) StartQuiz(ctx context.Context, userID string, req domain.QuizRequest) (domain.SessionView, error) {
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		return domain.SessionView{}, err
	}
	user, err := s.users.Ensure(ctx, userID, "")
	if err != nil {
		return domain.SessionView{}, fmt.Errorf("load user: %w", err)
	}
	difficulty := user.DifficultyLevel
	if req.Difficulty != "" {
		if difficulty, err = domain.ParseDifficulty(req.Difficulty); err != nil {
			return domain.SessionView{}, err
		}
	} else if _, err := domain.ParseDifficulty(string(difficulty)); err != nil {
		difficulty = domain.DifficultyMedium
	}
	mood := ""
	if mode == domain.ModeMood {
		mood = req.Mood
	}

	pool, err := s.pool.Build(ctx, mode, mood)
	if err != nil {
		return domain.SessionView{}, err
	}
	picks := sample(s.rnd, pool, mode.QuestionCount())
	questions := s.builder.BuildAll(ctx, picks, mode, difficulty, UniqueArtists(pool))

	session, err := domain.NewSession(s.newID(), userID, mode, mood, difficulty, questions, s.now())
	if err != nil {
		return domain.SessionView{}, err
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.SessionView{}, fmt.Errorf("store session: %w", err)
	}

	s.metrics.QuizStarted(mode, difficulty)
	s.log.WithFields(logrus.Fields{
		"session":    session.ID,
		"user":       userID,
		"mode":       mode,
		"difficulty": difficulty,
		"pool":       len(pool),
		"questions":  len(questions),
	}).Info("quiz started")
	return session.View(), nil
}

// SubmitAnswer grades an answer, advances the session and updates the user's totals.
func (s *QuizService) SubmitAnswer(ctx context.Context, sessionID, userID string, submission domain.AnswerSubmission) (domain.AnswerOutcome, error) {
	var (
		session domain.Session
		record  domain.AnswerRecord
		q       domain.Question
	)
	for attempt := 1; ; attempt++ {
		var err error
		session, err = s.sessions.Get(ctx, sessionID, userID)
		if err != nil {
			return domain.AnswerOutcome{}, err
		}
		from := session.CurrentIndex
		if q, err = session.Expect(submission.QuestionIndex); err != nil {
			return domain.AnswerOutcome{}, err
		}
		correct, points := ValidateAnswer(submission.Answer, q.CorrectAnswer, session.Difficulty)
		if record, err = session.Apply(submission.QuestionIndex, submission.Answer, correct, points, s.now()); err != nil {
			return domain.AnswerOutcome{}, err
		}

		err = s.sessions.Advance(ctx, session, from)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrSessionConflict) && attempt < maxAdvanceAttempts {
			s.metrics.AdvanceConflict()
			continue
		}
		return domain.AnswerOutcome{}, err
	}

	s.metrics.AnswerGraded(session.Mode, record.IsCorrect)

	// The answer is committed; stats and the completion event must land even if the caller is gone.
	post, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()
	if _, err := s.users.ApplyOutcome(post, userID, domain.Outcome{
		Genre:         q.Track.Genre,
		Correct:       record.IsCorrect,
		Points:        record.Points,
		CompletedGame: session.Completed,
	}); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"session": sessionID, "user": userID}).Error("failed to update user stats")
	}

	if session.Completed {
		s.completed(post, session)
	}

	return domain.AnswerOutcome{
		QuestionIndex:  record.QuestionIndex,
		IsCorrect:      record.IsCorrect,
		CorrectAnswer:  record.CorrectAnswer,
		Points:         record.Points,
		TotalScore:     session.Score,
		IsLastQuestion: session.Completed,
		BotResponse:    s.react(ctx, q.Track, record),
		FunFact:        q.FunFact,
		Track:          q.Track,
	}, nil
}

func (s *QuizService) completed(ctx context.Context, session domain.Session) {
	s.metrics.QuizCompleted(session.Mode)
	completedAt := s.now()
	if session.CompletedAt != nil {
		completedAt = *session.CompletedAt
	}
	evt := QuizCompletedEvent{
		SessionID:      session.ID,
		UserID:         session.UserID,
		Mode:           session.Mode,
		Difficulty:     session.Difficulty,
		Score:          session.Score,
		TotalQuestions: len(session.Questions),
		CompletedAt:    completedAt,
	}
	if err := s.publisher.Publish(ctx, EventQuizCompleted, evt); err != nil {
		s.log.WithError(err).WithField("session", session.ID).Warn("failed to publish completion event")
	}
	s.log.WithFields(logrus.Fields{"session": session.ID, "user": session.UserID, "score": session.Score}).Info("quiz completed")
}

func (s *QuizService) react(ctx context.Context, track domain.Track, record domain.AnswerRecord) string {
	fallback := FallbackReaction(track, record.IsCorrect, record.CorrectAnswer)
	if s.content == nil {
		return fallback
	}
	cctx, cancel := context.WithTimeout(ctx, s.contentTimeout)
	defer cancel()
	reply, err := s.content.React(cctx, track, record.IsCorrect, record.UserAnswer, record.CorrectAnswer)
	if err != nil || reply == "" {
		if err != nil {
			s.log.WithError(err).Warn("reaction unavailable, using template")
		}
		return fallback
	}
	return reply
}

// GetSession returns the client view of a session owned by userID.
func (s *QuizService) GetSession(ctx context.Context, sessionID, userID string) (domain.SessionView, error) {
	session, err := s.sessions.Get(ctx, sessionID, userID)
	if err != nil {
		return domain.SessionView{}, err
	}
	return session.View(), nil
}

// Leaderboard ranks players who finished at least one game.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) (domain.Leaderboard, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	players, err := s.users.TopPlayers(ctx, limit)
	if err != nil {
		return domain.Leaderboard{}, fmt.Errorf("load players: %w", err)
	}
	return domain.Leaderboard{
		Entries:   RankPlayers(players, limit),
		UpdatedAt: s.now(),
	}, nil
}

// UserStats summarizes a user's totals and recent games.
func (s *QuizService) UserStats(ctx context.Context, userID string) (domain.StatsSummary, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return domain.StatsSummary{}, err
	}
	sessions, err := s.sessions.ListCompleted(ctx, userID, statsSessionsLimit)
	if err != nil {
		return domain.StatsSummary{}, fmt.Errorf("load sessions: %w", err)
	}

	best, worst := bestAndWorstGenre(user.GenreAccuracy)
	summary := domain.StatsSummary{
		TotalGames:      user.TotalGames,
		TotalScore:      user.TotalScore,
		TotalCorrect:    user.TotalCorrect,
		TotalQuestions:  user.TotalQuestions,
		Accuracy:        user.Accuracy(),
		BestGenre:       best,
		WorstGenre:      worst,
		GenreAccuracy:   user.GenreAccuracy,
		Streak:          user.Streak,
		BestStreak:      user.BestStreak,
		DifficultyLevel: user.DifficultyLevel,
		ScoreHistory:    []domain.ScorePoint{},
		RecentSessions:  []domain.SessionSummary{},
	}

	history := sessions
	if len(history) > scoreHistoryLimit {
		history = history[:scoreHistoryLimit]
	}
	for i := len(history) - 1; i >= 0; i-- {
		summary.ScoreHistory = append(summary.ScoreHistory, domain.ScorePoint{
			Date:           history[i].StartedAt,
			Score:          history[i].Score,
			Mode:           history[i].Mode,
			TotalQuestions: len(history[i].Questions),
		})
	}
	for i := 0; i < len(sessions) && i < recentSessionsLimit; i++ {
		summary.RecentSessions = append(summary.RecentSessions, sessions[i].Summary())
	}
	return summary, nil
}

// UpdateProfile changes the user's favorite genres and default difficulty.
func (s *QuizService) UpdateProfile(ctx context.Context, userID string, favoriteGenres []string, difficulty string) (domain.UserStats, error) {
	var update domain.ProfileUpdate
	if favoriteGenres != nil {
		update.FavoriteGenres = &favoriteGenres
	}
	if difficulty != "" {
		d, err := domain.ParseDifficulty(difficulty)
		if err != nil {
			return domain.UserStats{}, err
		}
		update.DifficultyLevel = &d
	}
	return s.users.UpdateProfile(ctx, userID, update)
}

func bestAndWorstGenre(tallies map[string]domain.GenreTally) (string, string) {
	genres := make([]string, 0, len(tallies))
	for g, t := range tallies {
		if t.Total > 0 {
			genres = append(genres, g)
		}
	}
	sort.Strings(genres)

	var best, worst string
	bestAcc, worstAcc := -1.0, 101.0
	for _, g := range genres {
		t := tallies[g]
		acc := float64(t.Correct) / float64(t.Total) * 100
		if acc > bestAcc {
			bestAcc, best = acc, g
		}
		if acc < worstAcc {
			worstAcc, worst = acc, g
		}
	}
	return best, worst
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

type nopMetrics struct{}

func (nopMetrics) QuizStarted(domain.Mode, domain.Difficulty) {}
func (nopMetrics) AnswerGraded(domain.Mode, bool)              {}
func (nopMetrics) QuizCompleted(domain.Mode)                   {}
func (nopMetrics) AdvanceConflict()                            {}
