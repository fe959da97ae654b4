package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// UserAggregate - агрегированные показатели одного пользователя по предмету
// за временное окно. Все числовые поля нормализованы к единому представлению
// на границе запроса (decimal-колонки приводятся к float64).
type UserAggregate struct {
	UserID         string    `gorm:"column:user_id"`
	Score          int       `gorm:"column:score"`
	TotalQuestions int       `gorm:"column:total_questions"`
	TimeSpent      float64   `gorm:"column:time_spent"`
	Attempts       int       `gorm:"column:attempts"`
	LastAttempt    time.Time `gorm:"column:last_attempt"`
}

// PerformerAggregate - строка живого (не снапшотного) рейтинга,
// вычисляемая напрямую по попыткам
type PerformerAggregate struct {
	UserID       string  `gorm:"column:user_id" json:"user_id"`
	Username     string  `gorm:"column:username" json:"username"`
	TotalQuizzes int     `gorm:"column:total_quizzes" json:"total_quizzes"`
	AverageScore float64 `gorm:"column:average_score" json:"average_score"` // процент
	TotalTime    float64 `gorm:"column:total_time" json:"total_time"`       // в часах
}

// SubjectPerformerAggregate - строка живого рейтинга с привязкой к предмету
type SubjectPerformerAggregate struct {
	Subject string `gorm:"column:subject" json:"subject"`
	PerformerAggregate
}

// SubjectActivity - агрегат популярности предмета
type SubjectActivity struct {
	Name         string  `gorm:"column:name" json:"name"`
	Participants int     `gorm:"column:participants" json:"participants"`
	AverageScore float64 `gorm:"column:average_score" json:"average_score"`
}

// SubjectSummary - сводка пользователя по одному предмету (живая агрегация)
type SubjectSummary struct {
	Subject      string    `gorm:"column:subject"`
	QuizzesTaken int       `gorm:"column:quizzes_taken"`
	AverageScore float64   `gorm:"column:average_score"`
	TotalTime    float64   `gorm:"column:total_time"` // в секундах
	LastAttempt  time.Time `gorm:"column:last_attempt"`
}

// AttemptRepository определяет методы для работы с попытками.
// Методы, участвующие в транзакциях сервисов, принимают tx *gorm.DB.
type AttemptRepository interface {
	// FindIncomplete ищет незавершённую попытку пользователя по предмету
	FindIncomplete(tx *gorm.DB, userID, subject string) (*entity.Attempt, error)
	Create(tx *gorm.DB, attempt *entity.Attempt) error
	Update(tx *gorm.DB, attempt *entity.Attempt) error

	GetByID(id uint) (*entity.Attempt, error)
	GetUserAttempts(userID string, limit, offset int) ([]entity.Attempt, int64, error)
	GetRecent(userID string, limit int) ([]entity.Attempt, error)

	// DistinctSubjects возвращает предметы, по которым есть хотя бы одна
	// завершённая попытка в окне [start, end)
	DistinctSubjects(start, end time.Time) ([]string, error)

	// AggregateBySubject агрегирует завершённые попытки по пользователям
	// в окне [start, end), сортировка: sum(score) DESC, user_id ASC
	AggregateBySubject(subject string, start, end time.Time) ([]UserAggregate, error)

	// TopPerformers - живой глобальный топ по среднему проценту правильных ответов
	TopPerformers(limit int) ([]PerformerAggregate, error)
	// TopPerformersBySubject - живой топ по одному предмету
	TopPerformersBySubject(subject string, limit int) ([]PerformerAggregate, error)
	// TopPerformersAllSubjects - живой топ по каждому предмету сразу
	TopPerformersAllSubjects() ([]SubjectPerformerAggregate, error)

	// PopularSubjects - предметы с наибольшим числом уникальных участников
	PopularSubjects(limit int) ([]SubjectActivity, error)
	// CountBySubjectBetween считает завершённые попытки по предмету в окне [start, end)
	CountBySubjectBetween(subject string, start, end time.Time) (int64, error)

	// SubjectSummaries - живая сводка пользователя по каждому предмету
	SubjectSummaries(userID string) ([]SubjectSummary, error)
	CountByUser(userID string) (int64, error)
	CountByUserBetween(userID string, start, end time.Time) (int64, error)
	AverageScorePercent(userID string) (float64, error)
	TimeSpentSince(userID string, since time.Time) (float64, error)
}
