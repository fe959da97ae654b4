package repository

import (
	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// LeaderboardRepository определяет методы для работы со снапшотами рейтинга.
// Таблица принадлежит задаче пересчёта: остальные компоненты только читают.
type LeaderboardRepository interface {
	// DeleteBySubjectPeriod удаляет весь снапшот пары (subject, period)
	DeleteBySubjectPeriod(tx *gorm.DB, subject string, period entity.Period) error
	// CreateBatch вставляет свежесформированный снапшот одним запросом
	CreateBatch(tx *gorm.DB, entries []entity.LeaderboardEntry) error

	// GetEntries возвращает строки снапшота периода, отсортированные по очкам.
	// subject == "all" отключает фильтр по предмету, фильтр по периоду остаётся.
	GetEntries(subject string, period entity.Period, limit int) ([]entity.LeaderboardEntry, error)
}
