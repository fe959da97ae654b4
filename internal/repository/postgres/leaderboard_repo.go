package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// LeaderboardRepo реализует repository.LeaderboardRepository
type LeaderboardRepo struct {
	db *gorm.DB
}

// NewLeaderboardRepo создает новый репозиторий снапшотов лидерборда
func NewLeaderboardRepo(db *gorm.DB) *LeaderboardRepo {
	return &LeaderboardRepo{db: db}
}

// DeleteBySubjectPeriod удаляет весь снапшот пары (subject, period).
// Вызывается внутри транзакции пересчёта вместе с CreateBatch, чтобы
// читатели не увидели пустое окно.
func (r *LeaderboardRepo) DeleteBySubjectPeriod(tx *gorm.DB, subject string, period entity.Period) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Where("subject = ? AND period = ?", subject, string(period)).
		Delete(&entity.LeaderboardEntry{}).Error
}

// CreateBatch вставляет свежий снапшот одним запросом
func (r *LeaderboardRepo) CreateBatch(tx *gorm.DB, entries []entity.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if tx == nil {
		tx = r.db
	}
	return tx.Create(&entries).Error
}

// GetEntries возвращает строки снапшота периода, отсортированные по очкам.
// subject == "all" отключает фильтр по предмету.
func (r *LeaderboardRepo) GetEntries(subject string, period entity.Period, limit int) ([]entity.LeaderboardEntry, error) {
	var entries []entity.LeaderboardEntry

	query := r.db.Where("period = ?", string(period))
	if subject != "all" {
		query = query.Where("subject = ?", subject)
	}

	err := query.Order("score DESC, user_id ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
