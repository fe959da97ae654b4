package postgres

import (
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// FindIncomplete ищет незавершённую попытку пользователя по предмету.
// Возвращает apperrors.ErrNotFound, если такой попытки нет.
func (r *AttemptRepo) FindIncomplete(tx *gorm.DB, userID, subject string) (*entity.Attempt, error) {
	if tx == nil {
		tx = r.db
	}

	var attempt entity.Attempt
	err := tx.Where("user_id = ? AND subject = ? AND completed = ?", userID, subject, false).
		Order("created_at DESC").
		First(&attempt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// Create сохраняет новую попытку. Частичный уникальный индекс допускает не
// более одной незавершённой попытки на пару (user_id, subject); нарушение
// транслируется в apperrors.ErrConflict, чтобы вызывающая сторона могла
// переиспользовать существующую строку.
func (r *AttemptRepo) Create(tx *gorm.DB, attempt *entity.Attempt) error {
	if tx == nil {
		tx = r.db
	}
	if err := tx.Create(attempt).Error; err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return err
	}
	return nil
}

// Update обновляет существующую попытку
func (r *AttemptRepo) Update(tx *gorm.DB, attempt *entity.Attempt) error {
	if tx == nil {
		tx = r.db
	}
	return tx.Save(attempt).Error
}

// GetByID возвращает попытку по идентификатору
func (r *AttemptRepo) GetByID(id uint) (*entity.Attempt, error) {
	var attempt entity.Attempt
	err := r.db.First(&attempt, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &attempt, nil
}

// GetUserAttempts возвращает завершённые попытки пользователя с пагинацией
func (r *AttemptRepo) GetUserAttempts(userID string, limit, offset int) ([]entity.Attempt, int64, error) {
	var attempts []entity.Attempt
	var total int64

	// Транзакция для согласованности списка и общего количества
	tx := r.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()
	if tx.Error != nil {
		return nil, 0, tx.Error
	}

	err := tx.Model(&entity.Attempt{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&total).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	err = tx.Where("user_id = ? AND completed = ?", userID, true).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&attempts).Error
	if err != nil {
		tx.Rollback()
		return nil, 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, 0, err
	}
	return attempts, total, nil
}

// GetRecent возвращает последние завершённые попытки пользователя
func (r *AttemptRepo) GetRecent(userID string, limit int) ([]entity.Attempt, error) {
	var attempts []entity.Attempt
	err := r.db.Where("user_id = ? AND completed = ?", userID, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// DistinctSubjects возвращает предметы с хотя бы одной завершённой попыткой
// в полуоткрытом окне [start, end)
func (r *AttemptRepo) DistinctSubjects(start, end time.Time) ([]string, error) {
	var subjects []string
	err := r.db.Model(&entity.Attempt{}).
		Where("completed = ? AND created_at >= ? AND created_at < ?", true, start, end).
		Distinct("subject").
		Order("subject").
		Pluck("subject", &subjects).Error
	return subjects, err
}

// AggregateBySubject агрегирует завершённые попытки по пользователям в окне
// [start, end). Вторичный ключ сортировки user_id делает ранжирование
// детерминированным при равенстве очков.
func (r *AttemptRepo) AggregateBySubject(subject string, start, end time.Time) ([]repository.UserAggregate, error) {
	var rows []repository.UserAggregate
	err := r.db.Model(&entity.Attempt{}).
		Select(`user_id,
			COALESCE(SUM(score), 0) AS score,
			COALESCE(SUM(total_questions), 0) AS total_questions,
			COALESCE(SUM(time_spent), 0)::float8 AS time_spent,
			COUNT(*) AS attempts,
			MAX(created_at) AS last_attempt`).
		Where("subject = ? AND completed = ? AND created_at >= ? AND created_at < ?",
			subject, true, start, end).
		Group("user_id").
		Order("SUM(score) DESC, user_id ASC").
		Scan(&rows).Error
	return rows, err
}

// TopPerformers возвращает живой глобальный топ по среднему проценту
// правильных ответов за всю историю (независимо от периодов)
func (r *AttemptRepo) TopPerformers(limit int) ([]repository.PerformerAggregate, error) {
	var rows []repository.PerformerAggregate
	err := r.db.Model(&entity.Attempt{}).
		Select(`attempts.user_id,
			COALESCE(users.username, 'Unknown User') AS username,
			COUNT(*) AS total_quizzes,
			ROUND(AVG(attempts.score * 100.0 / attempts.total_questions)::numeric, 1)::float8 AS average_score,
			ROUND((SUM(attempts.time_spent) / 3600.0)::numeric, 1)::float8 AS total_time`).
		Joins("LEFT JOIN users ON users.id = attempts.user_id").
		Where("attempts.completed = ?", true).
		Group("attempts.user_id, users.username").
		Order("AVG(attempts.score * 100.0 / attempts.total_questions) DESC, attempts.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// TopPerformersBySubject возвращает живой топ по одному предмету
func (r *AttemptRepo) TopPerformersBySubject(subject string, limit int) ([]repository.PerformerAggregate, error) {
	var rows []repository.PerformerAggregate
	err := r.db.Model(&entity.Attempt{}).
		Select(`attempts.user_id,
			COALESCE(users.username, 'Unknown User') AS username,
			COUNT(*) AS total_quizzes,
			ROUND(AVG(attempts.score * 100.0 / attempts.total_questions)::numeric, 1)::float8 AS average_score,
			ROUND((SUM(attempts.time_spent) / 3600.0)::numeric, 1)::float8 AS total_time`).
		Joins("LEFT JOIN users ON users.id = attempts.user_id").
		Where("LOWER(attempts.subject) = LOWER(?) AND attempts.completed = ?", subject, true).
		Group("attempts.user_id, users.username").
		Order("AVG(attempts.score * 100.0 / attempts.total_questions) DESC, attempts.user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// TopPerformersAllSubjects возвращает живой рейтинг по каждому предмету.
// Ограничение топ-N на предмет применяется на уровне сервиса.
func (r *AttemptRepo) TopPerformersAllSubjects() ([]repository.SubjectPerformerAggregate, error) {
	var rows []repository.SubjectPerformerAggregate
	err := r.db.Model(&entity.Attempt{}).
		Select(`attempts.subject,
			attempts.user_id,
			COALESCE(users.username, 'Unknown User') AS username,
			COUNT(*) AS total_quizzes,
			ROUND(AVG(attempts.score * 100.0 / attempts.total_questions)::numeric, 1)::float8 AS average_score,
			ROUND((SUM(attempts.time_spent) / 3600.0)::numeric, 1)::float8 AS total_time`).
		Joins("LEFT JOIN users ON users.id = attempts.user_id").
		Where("attempts.completed = ?", true).
		Group("attempts.subject, attempts.user_id, users.username").
		Order("attempts.subject ASC, AVG(attempts.score * 100.0 / attempts.total_questions) DESC, attempts.user_id ASC").
		Scan(&rows).Error
	return rows, err
}

// PopularSubjects возвращает предметы с наибольшим числом уникальных участников
func (r *AttemptRepo) PopularSubjects(limit int) ([]repository.SubjectActivity, error) {
	var rows []repository.SubjectActivity
	err := r.db.Model(&entity.Attempt{}).
		Select(`subject AS name,
			COUNT(DISTINCT user_id) AS participants,
			COALESCE(AVG(score * 100.0 / total_questions), 0)::float8 AS average_score`).
		Where("completed = ?", true).
		Group("subject").
		Order("COUNT(DISTINCT user_id) DESC, subject ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// CountBySubjectBetween считает завершённые попытки по предмету в окне [start, end)
func (r *AttemptRepo) CountBySubjectBetween(subject string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Attempt{}).
		Where("subject = ? AND completed = ? AND created_at >= ? AND created_at < ?",
			subject, true, start, end).
		Count(&count).Error
	return count, err
}

// SubjectSummaries возвращает живую сводку пользователя по каждому предмету
func (r *AttemptRepo) SubjectSummaries(userID string) ([]repository.SubjectSummary, error) {
	var rows []repository.SubjectSummary
	err := r.db.Model(&entity.Attempt{}).
		Select(`subject,
			COUNT(*) AS quizzes_taken,
			COALESCE(AVG(score * 100.0 / total_questions), 0)::float8 AS average_score,
			COALESCE(SUM(time_spent), 0)::float8 AS total_time,
			MAX(created_at) AS last_attempt`).
		Where("user_id = ? AND completed = ?", userID, true).
		Group("subject").
		Order("subject").
		Scan(&rows).Error
	return rows, err
}

// CountByUser считает все завершённые попытки пользователя
func (r *AttemptRepo) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Attempt{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	return count, err
}

// CountByUserBetween считает завершённые попытки пользователя в окне [start, end)
func (r *AttemptRepo) CountByUserBetween(userID string, start, end time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&entity.Attempt{}).
		Where("user_id = ? AND completed = ? AND created_at >= ? AND created_at < ?",
			userID, true, start, end).
		Count(&count).Error
	return count, err
}

// AverageScorePercent возвращает средний процент правильных ответов пользователя
// за всю историю. При отсутствии попыток возвращает 0.
func (r *AttemptRepo) AverageScorePercent(userID string) (float64, error) {
	var avg float64
	err := r.db.Model(&entity.Attempt{}).
		Select("COALESCE(AVG(score * 100.0 / total_questions), 0)::float8").
		Where("user_id = ? AND completed = ?", userID, true).
		Scan(&avg).Error
	return avg, err
}

// TimeSpentSince возвращает суммарное время (в секундах), потраченное
// пользователем на квизы начиная с указанного момента
func (r *AttemptRepo) TimeSpentSince(userID string, since time.Time) (float64, error) {
	var total float64
	err := r.db.Model(&entity.Attempt{}).
		Select("COALESCE(SUM(time_spent), 0)::float8").
		Where("user_id = ? AND completed = ? AND created_at >= ?", userID, true, since).
		Scan(&total).Error
	return total, err
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
