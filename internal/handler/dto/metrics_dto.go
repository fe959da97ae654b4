package dto

import (
	"time"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// AttemptResponse представляет попытку прохождения викторины для клиента
type AttemptResponse struct {
	ID             uint             `json:"id"`
	UserID         string           `json:"user_id"`
	Subject        string           `json:"subject"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions"`
	ScorePercent   float64          `json:"score_percent"`
	TimeSpent      float64          `json:"time_spent"` // в секундах
	Mode           string           `json:"mode"`
	Answers        entity.AnswerMap `json:"answers,omitempty"`
	Completed      bool             `json:"completed"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NewAttemptResponse создает DTO попытки.
// includeAnswers управляет выдачей карты ответов (нужна только на ревью).
func NewAttemptResponse(a *entity.Attempt, includeAnswers bool) *AttemptResponse {
	resp := &AttemptResponse{
		ID:             a.ID,
		UserID:         a.UserID,
		Subject:        a.Subject,
		Score:          a.Score,
		TotalQuestions: a.TotalQuestions,
		ScorePercent:   a.ScorePercent(),
		TimeSpent:      a.TimeSpent,
		Mode:           a.Mode,
		Completed:      a.Completed,
		CreatedAt:      a.CreatedAt,
	}
	if includeAnswers {
		resp.Answers = a.Answers
	}
	return resp
}

// NewAttemptListResponse создает список DTO попыток без карт ответов
func NewAttemptListResponse(attempts []entity.Attempt) []*AttemptResponse {
	out := make([]*AttemptResponse, 0, len(attempts))
	for i := range attempts {
		out = append(out, NewAttemptResponse(&attempts[i], false))
	}
	return out
}

// PaginatedAttemptsResponse представляет пагинированную историю попыток
type PaginatedAttemptsResponse struct {
	Attempts []*AttemptResponse `json:"attempts"`
	Total    int64              `json:"total"`
	Limit    int                `json:"limit"`
	Offset   int                `json:"offset"`
}

// UserStatsResponse представляет накопительную статистику по одному предмету.
// Производные поля (средний процент, часы) считаются на выдаче, в базе
// хранятся только счётчики.
type UserStatsResponse struct {
	Subject        string     `json:"subject"`
	TotalQuizzes   int        `json:"total_quizzes"`
	TotalQuestions int        `json:"total_questions"`
	TotalCorrect   int        `json:"total_correct"`
	AverageScore   float64    `json:"average_score"` // процент
	StudyHours     float64    `json:"study_hours"`
	LastQuizDate   *time.Time `json:"last_quiz_date,omitempty"`
	CurrentRank    *int       `json:"current_rank,omitempty"`
	BestRank       *int       `json:"best_rank,omitempty"`
}

// NewUserStatsResponse создает DTO статистики по предмету
func NewUserStatsResponse(s *entity.UserStats) *UserStatsResponse {
	return &UserStatsResponse{
		Subject:        s.Subject,
		TotalQuizzes:   s.TotalQuizzes,
		TotalQuestions: s.TotalQuestions,
		TotalCorrect:   s.TotalCorrect,
		AverageScore:   s.AverageScorePercent(),
		StudyHours:     s.StudyHours(),
		LastQuizDate:   s.LastQuizDate,
		CurrentRank:    s.CurrentRank,
		BestRank:       s.BestRank,
	}
}

// NewUserStatsListResponse создает список DTO статистики
func NewUserStatsListResponse(stats []entity.UserStats) []*UserStatsResponse {
	out := make([]*UserStatsResponse, 0, len(stats))
	for i := range stats {
		out = append(out, NewUserStatsResponse(&stats[i]))
	}
	return out
}
