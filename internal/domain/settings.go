package domain

import "time"

// Mode is the question category of a quiz.
type Mode string

const (
	ModeGenre  Mode = "genre"
	ModeArtist Mode = "artist"
	ModeMood   Mode = "mood"
	ModeTimed  Mode = "timed"
)

// ParseMode validates a raw mode string.
func ParseMode(raw string) (Mode, error) {
	switch m := Mode(raw); m {
	case ModeGenre, ModeArtist, ModeMood, ModeTimed:
		return m, nil
	}
	return "", ErrInvalidMode
}

// AnswersArtist reports whether questions in this mode ask for the performing artist.
func (m Mode) AnswersArtist() bool {
	return m == ModeArtist
}

// QuestionCount is the number of questions a quiz of this mode holds.
func (m Mode) QuestionCount() int {
	if m == ModeTimed {
		return 10
	}
	return 5
}

// TimeLimit is the client-enforced limit for the mode, zero when untimed.
func (m Mode) TimeLimit() time.Duration {
	if m == ModeTimed {
		return 60 * time.Second
	}
	return 0
}

// Difficulty controls option count and points per correct answer.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// DifficultySetting holds the knobs for one difficulty level.
type DifficultySetting struct {
	Options int
	Points  int
}

var difficultySettings = map[Difficulty]DifficultySetting{
	DifficultyEasy:   {Options: 3, Points: 10},
	DifficultyMedium: {Options: 4, Points: 20},
	DifficultyHard:   {Options: 5, Points: 30},
}

// ParseDifficulty validates a raw difficulty string.
func ParseDifficulty(raw string) (Difficulty, error) {
	d := Difficulty(raw)
	if _, ok := difficultySettings[d]; !ok {
		return "", ErrInvalidDifficulty
	}
	return d, nil
}

// Settings returns the option count and points for d; unknown values get medium.
func (d Difficulty) Settings() DifficultySetting {
	if s, ok := difficultySettings[d]; ok {
		return s
	}
	return difficultySettings[DifficultyMedium]
}

// Options is the number of answer options shown per question.
func (d Difficulty) Options() int {
	return d.Settings().Options
}

// Points awarded for a correct answer.
func (d Difficulty) Points() int {
	return d.Settings().Points
}
