package domain

import "time"

// Track is a catalog track as used by the quiz engine.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artist      string   `json:"artist"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	AlbumArt    string   `json:"albumArt,omitempty"`
	Genre       string   `json:"genre"`
	PreviewURL  string   `json:"previewUrl,omitempty"`
	ExternalURL string   `json:"externalUrl,omitempty"`
	Popularity  int      `json:"popularity"`
}

// QuestionContent is the generated prose attached to a question.
type QuestionContent struct {
	Question string `json:"question"`
	Hint     string `json:"hint"`
	FunFact  string `json:"fun_fact"`
}

// Question is an immutable multiple-choice question about one track.
type Question struct {
	Track         Track    `json:"track"`
	QuestionText  string   `json:"questionText"`
	Hint          string   `json:"hint"`
	FunFact       string   `json:"funFact"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Mode          Mode     `json:"mode"`
}

// AnswerRecord is the append-only record of one answered question.
type AnswerRecord struct {
	QuestionIndex int       `json:"questionIndex"`
	UserAnswer    string    `json:"userAnswer"`
	CorrectAnswer string    `json:"correctAnswer"`
	IsCorrect     bool      `json:"isCorrect"`
	Points        int       `json:"points"`
	Timestamp     time.Time `json:"timestamp"`
}

// Session is one user's run through an ordered list of questions.
type Session struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Mode         Mode           `json:"mode"`
	Mood         string         `json:"mood,omitempty"`
	Difficulty   Difficulty     `json:"difficulty"`
	Questions    []Question     `json:"questions"`
	Answers      []AnswerRecord `json:"answers"`
	Score        int            `json:"score"`
	CurrentIndex int            `json:"currentIndex"`
	Completed    bool           `json:"completed"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	TimeLimit    int            `json:"timeLimit,omitempty"` // seconds
}

// TrackView is the part of a track that can be shown before the question is answered.
type TrackView struct {
	Name        string `json:"name"`
	Album       string `json:"album"`
	AlbumArt    string `json:"albumArt,omitempty"`
	PreviewURL  string `json:"previewUrl,omitempty"`
	ExternalURL string `json:"externalUrl,omitempty"`
}

// QuestionView is a question without its answer.
type QuestionView struct {
	Track    TrackView `json:"track"`
	Question string    `json:"question"`
	Hint     string    `json:"hint"`
	Options  []string  `json:"options"`
	Mode     Mode      `json:"mode"`
}

// SessionView is the client-facing projection of a session.
type SessionView struct {
	ID               string         `json:"sessionId"`
	Mode             Mode           `json:"mode"`
	Mood             string         `json:"mood,omitempty"`
	Difficulty       Difficulty     `json:"difficulty"`
	Questions        []QuestionView `json:"questions"`
	Answers          []AnswerRecord `json:"answers"`
	Score            int            `json:"score"`
	TotalQuestions   int            `json:"totalQuestions"`
	CurrentIndex     int            `json:"currentIndex"`
	Completed        bool           `json:"completed"`
	StartedAt        time.Time      `json:"startedAt"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	TimeLimit        int            `json:"timeLimit,omitempty"`
	PointsPerCorrect int            `json:"pointsPerCorrect"`
}

// AnswerOutcome summarizes a processed answer for the client.
type AnswerOutcome struct {
	QuestionIndex  int    `json:"questionIndex"`
	IsCorrect      bool   `json:"isCorrect"`
	CorrectAnswer  string `json:"correctAnswer"`
	Points         int    `json:"points"`
	TotalScore     int    `json:"totalScore"`
	IsLastQuestion bool   `json:"isLastQuestion"`
	BotResponse    string `json:"botResponse"`
	FunFact        string `json:"funFact"`
	Track          Track  `json:"trackInfo"`
}

// GenreTally counts answers for one genre.
type GenreTally struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// UserStats are the running totals of one user.
type UserStats struct {
	UserID          string                `json:"userId"`
	DisplayName     string                `json:"displayName"`
	Seq             int64                 `json:"seq"`
	TotalScore      int                   `json:"totalScore"`
	TotalGames      int                   `json:"totalGames"`
	TotalCorrect    int                   `json:"totalCorrect"`
	TotalQuestions  int                   `json:"totalQuestions"`
	GenreAccuracy   map[string]GenreTally `json:"genreAccuracy"`
	Streak          int                   `json:"streak"`
	BestStreak      int                   `json:"bestStreak"`
	DifficultyLevel Difficulty            `json:"difficultyLevel"`
	FavoriteGenres  []string              `json:"favoriteGenres"`
	CreatedAt       time.Time             `json:"createdAt"`
}

// Outcome is the effect of one answered question on a user's totals.
type Outcome struct {
	Genre         string
	Correct       bool
	Points        int
	CompletedGame bool
}

// ProfileUpdate carries optional profile changes.
type ProfileUpdate struct {
	FavoriteGenres  *[]string
	DifficultyLevel *Difficulty
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"id"`
	DisplayName string  `json:"displayName"`
	TotalScore  int     `json:"totalScore"`
	TotalGames  int     `json:"totalGames"`
	Accuracy    float64 `json:"accuracy"`
	BestStreak  int     `json:"bestStreak"`
}

// Leaderboard is the ranked list of players.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"leaderboard"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// ScorePoint is one completed game in a user's score history.
type ScorePoint struct {
	Date           time.Time `json:"date"`
	Score          int       `json:"score"`
	Mode           Mode      `json:"mode"`
	TotalQuestions int       `json:"totalQuestions"`
}

// SessionSummary is a completed session without its questions.
type SessionSummary struct {
	ID             string     `json:"id"`
	Mode           Mode       `json:"mode"`
	Difficulty     Difficulty `json:"difficulty"`
	Score          int        `json:"score"`
	TotalQuestions int        `json:"totalQuestions"`
	StartedAt      time.Time  `json:"startedAt"`
}

// StatsSummary is the dashboard view of a user's statistics.
type StatsSummary struct {
	TotalGames      int                   `json:"totalGames"`
	TotalScore      int                   `json:"totalScore"`
	TotalCorrect    int                   `json:"totalCorrect"`
	TotalQuestions  int                   `json:"totalQuestions"`
	Accuracy        float64               `json:"accuracy"`
	BestGenre       string                `json:"bestGenre,omitempty"`
	WorstGenre      string                `json:"worstGenre,omitempty"`
	GenreAccuracy   map[string]GenreTally `json:"genreAccuracy"`
	Streak          int                   `json:"streak"`
	BestStreak      int                   `json:"bestStreak"`
	DifficultyLevel Difficulty            `json:"difficultyLevel"`
	ScoreHistory    []ScorePoint          `json:"scoreHistory"`
	RecentSessions  []SessionSummary      `json:"recentSessions"`
}

// QuizRequest describes the quiz a user wants to start.
type QuizRequest struct {
	Mode       string
	Mood       string
	Difficulty string
}

// AnswerSubmission models one answer sent by a client.
type AnswerSubmission struct {
	QuestionIndex int
	Answer        string
}
