package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// UserStatsRepo реализует repository.UserStatsRepository
type UserStatsRepo struct {
	db *gorm.DB
}

// NewUserStatsRepo создает новый репозиторий статистики пользователей
func NewUserStatsRepo(db *gorm.DB) *UserStatsRepo {
	return &UserStatsRepo{db: db}
}

// ApplyAttempt добавляет вклад завершённой попытки в накопительные счётчики.
// Upsert по уникальному ключу (user_id, subject); при конфликте счётчики
// увеличиваются атомарно на стороне базы (value = value + delta), поэтому
// конкурентные завершения по одной паре не теряют обновлений.
func (r *UserStatsRepo) ApplyAttempt(tx *gorm.DB, attempt *entity.Attempt, now time.Time) error {
	if tx == nil {
		tx = r.db
	}

	stats := entity.UserStats{
		UserID:         attempt.UserID,
		Subject:        attempt.Subject,
		TotalQuizzes:   1,
		TotalQuestions: attempt.TotalQuestions,
		TotalCorrect:   attempt.Score,
		TotalTimeSpent: attempt.TimeSpent,
		LastQuizDate:   &now,
	}

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "subject"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_quizzes":    gorm.Expr("user_stats.total_quizzes + 1"),
			"total_questions":  gorm.Expr("user_stats.total_questions + ?", attempt.TotalQuestions),
			"total_correct":    gorm.Expr("user_stats.total_correct + ?", attempt.Score),
			"total_time_spent": gorm.Expr("user_stats.total_time_spent + ?", attempt.TimeSpent),
			"last_quiz_date":   now,
			"updated_at":       now,
		}),
	}).Create(&stats).Error
}

// GetByUser возвращает статистику пользователя по всем предметам
func (r *UserStatsRepo) GetByUser(userID string) ([]entity.UserStats, error) {
	var stats []entity.UserStats
	err := r.db.Where("user_id = ?", userID).
		Order("subject").
		Find(&stats).Error
	return stats, err
}

// GetByUserAndSubject возвращает статистику пользователя по одному предмету
func (r *UserStatsRepo) GetByUserAndSubject(userID, subject string) (*entity.UserStats, error) {
	var stats entity.UserStats
	err := r.db.Where("user_id = ? AND subject = ?", userID, subject).
		First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &stats, nil
}

// UpdateRank перезаписывает текущий ранг и подтягивает лучший ранг через LEAST,
// так что bestRank никогда не регрессирует к худшему значению
func (r *UserStatsRepo) UpdateRank(tx *gorm.DB, userID, subject string, rank int, now time.Time) error {
	if tx == nil {
		tx = r.db
	}

	return tx.Model(&entity.UserStats{}).
		Where("user_id = ? AND subject = ?", userID, subject).
		Updates(map[string]interface{}{
			"current_rank":    rank,
			"best_rank":       gorm.Expr("LEAST(COALESCE(best_rank, ?), ?)", rank, rank),
			"rank_updated_at": now,
		}).Error
}
