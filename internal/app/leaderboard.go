package app

import (
	"sort"

	"music-quiz-service/internal/domain"
)

// DefaultLeaderboardLimit is used when callers ask for a non-positive limit.
const DefaultLeaderboardLimit = 50

// RankPlayers orders players who finished at least one game by total score.
// Equal scores keep arrival order (lower Seq first).
func RankPlayers(players []domain.UserStats, limit int) []domain.LeaderboardEntry {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	ranked := make([]domain.UserStats, 0, len(players))
	for _, p := range players {
		if p.TotalGames > 0 {
			ranked = append(ranked, p)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalScore != ranked[j].TotalScore {
			return ranked[i].TotalScore > ranked[j].TotalScore
		}
		return ranked[i].Seq < ranked[j].Seq
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, p := range ranked {
		name := p.DisplayName
		if name == "" {
			name = "Anonymous"
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: name,
			TotalScore:  p.TotalScore,
			TotalGames:  p.TotalGames,
			Accuracy:    p.Accuracy(),
			BestStreak:  p.BestStreak,
		})
	}
	return entries
}
