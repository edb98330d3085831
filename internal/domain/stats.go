package domain

import (
	"math"
	"time"
)

// UnknownGenre is the bucket for answers whose track carries no genre.
const UnknownGenre = "unknown"

// NewUserStats returns zeroed totals for a new user.
func NewUserStats(userID, displayName string, seq int64, now time.Time) UserStats {
	if displayName == "" {
		displayName = userID
	}
	return UserStats{
		UserID:          userID,
		DisplayName:     displayName,
		Seq:             seq,
		GenreAccuracy:   map[string]GenreTally{},
		DifficultyLevel: DifficultyMedium,
		FavoriteGenres:  []string{},
		CreatedAt:       now,
	}
}

// Apply folds one answered question into the totals.
// Callers must hold whatever per-user exclusion their store provides.
func (u *UserStats) Apply(o Outcome) {
	u.TotalQuestions++
	if o.Correct {
		u.TotalCorrect++
		u.TotalScore += o.Points
	}

	genre := o.Genre
	if genre == "" {
		genre = UnknownGenre
	}
	if u.GenreAccuracy == nil {
		u.GenreAccuracy = map[string]GenreTally{}
	}
	tally := u.GenreAccuracy[genre]
	tally.Total++
	if o.Correct {
		tally.Correct++
	}
	u.GenreAccuracy[genre] = tally

	if o.Correct {
		u.Streak++
		if u.Streak > u.BestStreak {
			u.BestStreak = u.Streak
		}
	} else {
		u.Streak = 0
	}

	if o.CompletedGame {
		u.TotalGames++
	}
}

// ApplyProfile sets the fields present in p.
func (u *UserStats) ApplyProfile(p ProfileUpdate) {
	if p.FavoriteGenres != nil {
		u.FavoriteGenres = append([]string{}, (*p.FavoriteGenres)...)
	}
	if p.DifficultyLevel != nil {
		u.DifficultyLevel = *p.DifficultyLevel
	}
}

// Accuracy is the share of correct answers as a percentage rounded to one decimal.
func (u UserStats) Accuracy() float64 {
	return Percent(u.TotalCorrect, u.TotalQuestions)
}

// Clone returns a copy that shares no maps or slices with u.
func (u UserStats) Clone() UserStats {
	out := u
	out.GenreAccuracy = make(map[string]GenreTally, len(u.GenreAccuracy))
	for k, v := range u.GenreAccuracy {
		out.GenreAccuracy[k] = v
	}
	out.FavoriteGenres = append([]string{}, u.FavoriteGenres...)
	return out
}

// Percent returns part/total*100 rounded to one decimal, or 0 when total is 0.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
