package domain

import (
	"fmt"
	"strings"
	"time"
)

// NewSession builds an Active session after checking every question.
func NewSession(id, userID string, mode Mode, mood string, difficulty Difficulty, questions []Question, startedAt time.Time) (Session, error) {
	s := Session{
		ID:         id,
		UserID:     userID,
		Mode:       mode,
		Mood:       mood,
		Difficulty: difficulty,
		Questions:  questions,
		Answers:    []AnswerRecord{},
		StartedAt:  startedAt,
		TimeLimit:  int(mode.TimeLimit() / time.Second),
	}
	if err := s.Validate(); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Validate checks the session invariants. Stores call it on every record they load.
func (s *Session) Validate() error {
	if s.ID == "" || s.UserID == "" {
		return fmt.Errorf("%w: missing id or user", ErrMalformedSession)
	}
	if len(s.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrMalformedSession)
	}
	for i, q := range s.Questions {
		if err := q.Validate(); err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrMalformedSession, i, err)
		}
		if len(q.Options) != s.Difficulty.Options() {
			return fmt.Errorf("%w: question %d has %d options, %s needs %d", ErrMalformedSession, i, len(q.Options), s.Difficulty, s.Difficulty.Options())
		}
	}
	if s.CurrentIndex < 0 || s.CurrentIndex > len(s.Questions) {
		return fmt.Errorf("%w: current index %d out of range", ErrMalformedSession, s.CurrentIndex)
	}
	if len(s.Answers) != s.CurrentIndex {
		return fmt.Errorf("%w: %d answers for index %d", ErrMalformedSession, len(s.Answers), s.CurrentIndex)
	}
	if s.Completed != (s.CurrentIndex == len(s.Questions)) {
		return fmt.Errorf("%w: completed flag disagrees with index", ErrMalformedSession)
	}
	score := 0
	for i, a := range s.Answers {
		if a.QuestionIndex != i {
			return fmt.Errorf("%w: answer %d recorded for question %d", ErrMalformedSession, i, a.QuestionIndex)
		}
		score += a.Points
	}
	if score != s.Score {
		return fmt.Errorf("%w: score %d does not match answers (%d)", ErrMalformedSession, s.Score, score)
	}
	return nil
}

// Validate checks that the correct answer appears exactly once and options are unique.
func (q Question) Validate() error {
	seen := make(map[string]struct{}, len(q.Options))
	found := 0
	for _, opt := range q.Options {
		key := AnswerKey(opt)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate option %q", opt)
		}
		seen[key] = struct{}{}
		if key == AnswerKey(q.CorrectAnswer) {
			found++
		}
	}
	if found != 1 {
		return fmt.Errorf("correct answer %q not among options", q.CorrectAnswer)
	}
	return nil
}

// Expect returns the question at index if it is the one waiting for an answer.
func (s *Session) Expect(index int) (Question, error) {
	if s.Completed {
		return Question{}, ErrAlreadyCompleted
	}
	if index < 0 || index >= len(s.Questions) || index != s.CurrentIndex {
		return Question{}, ErrInvalidIndex
	}
	return s.Questions[index], nil
}

// Apply records a graded answer and advances the session.
func (s *Session) Apply(index int, userAnswer string, correct bool, points int, now time.Time) (AnswerRecord, error) {
	q, err := s.Expect(index)
	if err != nil {
		return AnswerRecord{}, err
	}
	record := AnswerRecord{
		QuestionIndex: index,
		UserAnswer:    userAnswer,
		CorrectAnswer: q.CorrectAnswer,
		IsCorrect:     correct,
		Points:        points,
		Timestamp:     now,
	}
	s.Answers = append(s.Answers, record)
	s.CurrentIndex++
	s.Score += points
	if s.CurrentIndex == len(s.Questions) {
		s.Completed = true
		completedAt := now
		s.CompletedAt = &completedAt
	}
	return record, nil
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	out := s
	out.Questions = append([]Question(nil), s.Questions...)
	out.Answers = append(make([]AnswerRecord, 0, len(s.Answers)), s.Answers...)
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// View strips every correct answer and the track fields that reveal it.
func (s Session) View() SessionView {
	questions := make([]QuestionView, 0, len(s.Questions))
	for _, q := range s.Questions {
		questions = append(questions, q.View())
	}
	return SessionView{
		ID:               s.ID,
		Mode:             s.Mode,
		Mood:             s.Mood,
		Difficulty:       s.Difficulty,
		Questions:        questions,
		Answers:          append([]AnswerRecord{}, s.Answers...),
		Score:            s.Score,
		TotalQuestions:   len(s.Questions),
		CurrentIndex:     s.CurrentIndex,
		Completed:        s.Completed,
		StartedAt:        s.StartedAt,
		CompletedAt:      s.CompletedAt,
		TimeLimit:        s.TimeLimit,
		PointsPerCorrect: s.Difficulty.Points(),
	}
}

// View hides the answer of q.
func (q Question) View() QuestionView {
	return QuestionView{
		Track: TrackView{
			Name:        q.Track.Name,
			Album:       q.Track.Album,
			AlbumArt:    q.Track.AlbumArt,
			PreviewURL:  q.Track.PreviewURL,
			ExternalURL: q.Track.ExternalURL,
		},
		Question: q.QuestionText,
		Hint:     q.Hint,
		Options:  append([]string(nil), q.Options...),
		Mode:     q.Mode,
	}
}

// Summary drops the questions of a session.
func (s Session) Summary() SessionSummary {
	return SessionSummary{
		ID:             s.ID,
		Mode:           s.Mode,
		Difficulty:     s.Difficulty,
		Score:          s.Score,
		TotalQuestions: len(s.Questions),
		StartedAt:      s.StartedAt,
	}
}

// AnswerKey is the normalized form used to compare answers and options.
func AnswerKey(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// SameAnswer compares two answers ignoring case and surrounding whitespace.
func SameAnswer(a, b string) bool {
	return AnswerKey(a) == AnswerKey(b)
}
