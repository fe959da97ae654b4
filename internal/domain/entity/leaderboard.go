package entity

import (
	"fmt"
	"time"
)

// Period - временное окно рейтинга
type Period string

// Поддерживаемые периоды лидерборда
const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "allTime"
)

// AllPeriods возвращает все отслеживаемые периоды в порядке пересчёта
func AllPeriods() []Period {
	return []Period{PeriodWeekly, PeriodMonthly, PeriodAllTime}
}

// ParsePeriod проверяет и возвращает период из строкового параметра запроса
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return Period(s), nil
	}
	return "", fmt.Errorf("unknown leaderboard period: %q", s)
}

// Window возвращает полуоткрытый интервал [start, end) периода относительно now.
// Попытка с createdAt == start входит в окно, с createdAt == end - нет.
func (p Period) Window(now time.Time) (start, end time.Time) {
	switch p {
	case PeriodWeekly:
		return now.AddDate(0, 0, -7), now
	case PeriodMonthly:
		return now.AddDate(0, 0, -30), now
	default: // allTime
		return time.Unix(0, 0).UTC(), now
	}
}

// LeaderboardEntry - одна строка снапшота рейтинга по (предмет, период).
// Весь набор строк для пары (предмет, период) удаляется и вставляется заново
// при каждом запуске задачи пересчёта; частичных обновлений не бывает.
type LeaderboardEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:256;not null;index" json:"user_id"`
	Username       string    `gorm:"size:100;not null" json:"username"`
	Subject        string    `gorm:"size:100;not null;index:idx_subject_period" json:"subject"`
	Score          int       `gorm:"not null" json:"score"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	TimeSpent      float64   `gorm:"type:decimal(10,2);not null" json:"time_spent"` // в секундах
	Attempts       int       `gorm:"not null;default:0" json:"attempts"`
	LastAttempt    time.Time `gorm:"not null" json:"last_attempt"`
	Period         string    `gorm:"size:20;not null;index:idx_subject_period" json:"period"`
	PeriodStart    time.Time `gorm:"not null" json:"period_start"`
	PeriodEnd      time.Time `gorm:"not null" json:"period_end"`
	Rank           int       `gorm:"not null;index" json:"rank"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
