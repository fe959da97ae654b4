package entity

import (
	"time"
)

// UserStats хранит накопительные счётчики по паре (пользователь, предмет).
// Счётчики обновляются только атомарными инкрементами в той же транзакции,
// что и запись попытки. Поля рангов перезаписывает только задача пересчёта
// лидерборда.
type UserStats struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         string     `gorm:"size:256;not null;uniqueIndex:idx_user_subject;index" json:"user_id"`
	Subject        string     `gorm:"size:100;not null;uniqueIndex:idx_user_subject;index" json:"subject"`
	TotalQuizzes   int        `gorm:"not null;default:0" json:"total_quizzes"`
	TotalQuestions int        `gorm:"not null;default:0" json:"total_questions"`
	TotalCorrect   int        `gorm:"not null;default:0" json:"total_correct"`
	TotalTimeSpent float64    `gorm:"type:decimal(10,2);not null;default:0" json:"total_time_spent"` // в секундах
	LastQuizDate   *time.Time `json:"last_quiz_date,omitempty"`
	CurrentRank    *int       `json:"current_rank,omitempty"`
	BestRank       *int       `json:"best_rank,omitempty"`
	RankUpdatedAt  *time.Time `json:"rank_updated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (UserStats) TableName() string {
	return "user_stats"
}

// AverageScorePercent возвращает средний процент правильных ответов.
// При отсутствии вопросов возвращает 0, а не ошибку деления на ноль.
func (s *UserStats) AverageScorePercent() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.TotalCorrect) * 100.0 / float64(s.TotalQuestions)
}

// StudyHours возвращает суммарное время обучения в часах
func (s *UserStats) StudyHours() float64 {
	return s.TotalTimeSpent / 3600.0
}
