package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// UserStatsRepository определяет методы для работы с накопительной
// статистикой пользователей
type UserStatsRepository interface {
	// ApplyAttempt добавляет вклад одной завершённой попытки к счётчикам
	// пары (userID, subject). Upsert с атомарными инкрементами
	// (value = value + delta), без read-modify-write.
	ApplyAttempt(tx *gorm.DB, attempt *entity.Attempt, now time.Time) error

	GetByUser(userID string) ([]entity.UserStats, error)
	GetByUserAndSubject(userID, subject string) (*entity.UserStats, error)

	// UpdateRank перезаписывает currentRank и подтягивает bestRank вниз
	// (LEAST), никогда не ухудшая его. Вызывается только задачей пересчёта.
	UpdateRank(tx *gorm.DB, userID, subject string, rank int, now time.Time) error
}
