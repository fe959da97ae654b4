package dto

import (
	"time"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// LeaderboardEntryResponse представляет строку снапшота лидерборда
type LeaderboardEntryResponse struct {
	Rank           int       `json:"rank"`
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	Attempts       int       `json:"attempts"`
	TimeSpent      float64   `json:"time_spent"` // в секундах
	LastAttempt    time.Time `json:"last_attempt"`
}

// NewLeaderboardResponse создает список DTO строк лидерборда
func NewLeaderboardResponse(entries []entity.LeaderboardEntry) []*LeaderboardEntryResponse {
	out := make([]*LeaderboardEntryResponse, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		out = append(out, &LeaderboardEntryResponse{
			Rank:           e.Rank,
			UserID:         e.UserID,
			Username:       e.Username,
			Score:          e.Score,
			TotalQuestions: e.TotalQuestions,
			Attempts:       e.Attempts,
			TimeSpent:      e.TimeSpent,
			LastAttempt:    e.LastAttempt,
		})
	}
	return out
}
