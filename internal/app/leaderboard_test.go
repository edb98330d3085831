package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"music-quiz-service/internal/domain"
)

func TestRankPlayersBreaksTiesByArrival(t *testing.T) {
	players := []domain.UserStats{
		{UserID: "late", DisplayName: "Late", Seq: 9, TotalScore: 50, TotalGames: 1, TotalCorrect: 1, TotalQuestions: 3},
		{UserID: "idle", Seq: 1, TotalScore: 0, TotalGames: 0},
		{UserID: "top", DisplayName: "Top", Seq: 5, TotalScore: 90, TotalGames: 2},
		{UserID: "early", DisplayName: "Early", Seq: 2, TotalScore: 50, TotalGames: 3},
	}

	entries := RankPlayers(players, 0)
	require.Len(t, entries, 3)
	assert.Equal(t, "top", entries[0].UserID)
	assert.Equal(t, "early", entries[1].UserID)
	assert.Equal(t, "late", entries[2].UserID)
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.Equal(t, 33.3, entries[2].Accuracy)
	assert.Equal(t, 0.0, entries[0].Accuracy)
}

func TestRankPlayersLimit(t *testing.T) {
	players := make([]domain.UserStats, 0, 60)
	for i := 0; i < 60; i++ {
		players = append(players, domain.UserStats{UserID: string(rune('a' + i%26)), Seq: int64(i), TotalScore: i, TotalGames: 1})
	}
	assert.Len(t, RankPlayers(players, 0), DefaultLeaderboardLimit)
	top := RankPlayers(players, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 59, top[0].TotalScore)
}
