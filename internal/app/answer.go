package app

import "music-quiz-service/internal/domain"

// ValidateAnswer grades a submission: exact match after trimming, ignoring case.
func ValidateAnswer(submitted, correct string, difficulty domain.Difficulty) (bool, int) {
	if domain.SameAnswer(submitted, correct) {
		return true, difficulty.Points()
	}
	return false, 0
}
