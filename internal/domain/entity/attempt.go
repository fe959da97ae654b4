package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Режимы прохождения квиза
const (
	ModePractice = "practice"
	ModeTimed    = "timed"
)

// AnswerMap - пользовательский тип для работы с JSONB
// Хранит ответы пользователя: индекс вопроса -> выбранный вариант
type AnswerMap map[int]string

// Scan реализует интерфейс sql.Scanner для AnswerMap
// Используется GORM для чтения JSONB данных из базы
func (m *AnswerMap) Scan(value interface{}) error {
	// Обработка NULL значений из базы данных
	if value == nil {
		*m = AnswerMap{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value: expected []byte")
	}

	// Обработка пустого массива байтов
	if len(bytes) == 0 {
		*m = AnswerMap{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// Value реализует интерфейс driver.Valuer для AnswerMap
// Используется GORM для записи AnswerMap в JSONB в базе
func (m AnswerMap) Value() (driver.Value, error) {
	if m == nil || len(m) == 0 {
		return []byte("{}"), nil // Возвращаем пустой JSON объект вместо null
	}
	return json.Marshal(m)
}

// Attempt представляет одну попытку прохождения квиза.
// Строка с Completed=false - незавершённая сессия, она не учитывается
// ни в одном агрегате. Завершение попытки - единственный переход состояния.
type Attempt struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         string    `gorm:"size:256;not null;index" json:"user_id"`
	Subject        string    `gorm:"size:100;not null;index" json:"subject"`
	Score          int       `gorm:"not null;default:0" json:"score"`
	TotalQuestions int       `gorm:"not null" json:"total_questions"`
	TimeSpent      float64   `gorm:"type:decimal(10,2);not null;default:0" json:"time_spent"` // в секундах
	Mode           string    `gorm:"size:20;not null;default:'practice'" json:"mode"`
	Answers        AnswerMap `gorm:"type:jsonb;not null" json:"answers"`
	Completed      bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Attempt) TableName() string {
	return "attempts"
}

// NormalizeSubject приводит предмет к каноническому виду для группировки.
// Предметы сравниваются без учёта регистра во всех агрегатах.
func NormalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// ValidateAttemptInput проверяет инварианты попытки перед сохранением:
// score <= totalQuestions, totalQuestions >= 1, timeSpent >= 0.
func ValidateAttemptInput(score, totalQuestions int, timeSpent float64) error {
	if totalQuestions < 1 {
		return fmt.Errorf("total questions must be at least 1, got %d", totalQuestions)
	}
	if score < 0 || score > totalQuestions {
		return fmt.Errorf("score must be between 0 and %d, got %d", totalQuestions, score)
	}
	if timeSpent < 0 {
		return fmt.Errorf("time spent must be non-negative, got %.2f", timeSpent)
	}
	return nil
}

// MarkCompleted переводит попытку в завершённое состояние.
// Возвращает ошибку, если попытка уже завершена или данные нарушают инварианты.
func (a *Attempt) MarkCompleted(score, totalQuestions int, timeSpent float64, answers AnswerMap) error {
	if a.Completed {
		return errors.New("attempt is already completed")
	}
	if err := ValidateAttemptInput(score, totalQuestions, timeSpent); err != nil {
		return err
	}

	a.Score = score
	a.TotalQuestions = totalQuestions
	a.TimeSpent = timeSpent
	a.Answers = answers
	a.Completed = true
	return nil
}

// ScorePercent возвращает процент правильных ответов попытки
func (a *Attempt) ScorePercent() float64 {
	if a.TotalQuestions == 0 {
		return 0
	}
	return float64(a.Score) * 100.0 / float64(a.TotalQuestions)
}
