package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// MetricsService - путь записи метрик: оборачивает сохранение попытки и
// обновление накопительной статистики в одну атомарную транзакцию.
// Лидерборд здесь не трогается - его пересчитывает фоновая задача
// (принятая согласованность рейтингов - eventual).
type MetricsService struct {
	attemptRepo repository.AttemptRepository
	statsRepo   repository.UserStatsRepository
	tx          TxRunner
}

// NewMetricsService создает новый сервис метрик
func NewMetricsService(
	attemptRepo repository.AttemptRepository,
	statsRepo repository.UserStatsRepository,
	tx TxRunner,
) *MetricsService {
	return &MetricsService{
		attemptRepo: attemptRepo,
		statsRepo:   statsRepo,
		tx:          tx,
	}
}

// StartQuiz создаёт незавершённую попытку для пары (пользователь, предмет)
// или возвращает уже существующую. Незавершённые попытки не учитываются
// ни в одном агрегате.
func (s *MetricsService) StartQuiz(userID, subject, mode string, totalQuestions int) (*entity.Attempt, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	subject = entity.NormalizeSubject(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", apperrors.ErrValidation)
	}
	if mode == "" {
		mode = entity.ModePractice
	}
	if mode != entity.ModePractice && mode != entity.ModeTimed {
		return nil, fmt.Errorf("%w: mode must be 'practice' or 'timed'", apperrors.ErrValidation)
	}
	if totalQuestions < 1 {
		return nil, fmt.Errorf("%w: total questions must be at least 1", apperrors.ErrValidation)
	}

	// Переиспользуем брошенную сессию, если она есть
	existing, err := s.attemptRepo.FindIncomplete(nil, userID, subject)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	attempt := &entity.Attempt{
		UserID:         userID,
		Subject:        subject,
		TotalQuestions: totalQuestions,
		Mode:           mode,
		Answers:        entity.AnswerMap{},
		Completed:      false,
	}

	if err := s.attemptRepo.Create(nil, attempt); err != nil {
		// Конкурентный запрос успел создать незавершённую попытку первым -
		// частичный уникальный индекс гарантирует, что она ровно одна
		if errors.Is(err, apperrors.ErrConflict) {
			return s.attemptRepo.FindIncomplete(nil, userID, subject)
		}
		return nil, err
	}
	return attempt, nil
}

// CompleteQuiz фиксирует завершение квиза: одна транзакция записывает попытку
// и добавляет её вклад в накопительную статистику. Любая ошибка откатывает
// всё целиком - попытка либо записана вместе со статистикой, либо не записана
// вовсе, поэтому ретрай клиента безопасен.
func (s *MetricsService) CompleteQuiz(
	userID, subject string,
	score, totalQuestions int,
	timeSpent float64,
	answers entity.AnswerMap,
) (*entity.Attempt, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	subject = entity.NormalizeSubject(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", apperrors.ErrValidation)
	}
	if err := entity.ValidateAttemptInput(score, totalQuestions, timeSpent); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}
	if answers == nil {
		answers = entity.AnswerMap{}
	}

	now := time.Now()

	var attempt *entity.Attempt
	err := s.tx.RunInTransaction(func(tx *gorm.DB) error {
		// Сначала ищем незавершённую попытку - это покрывает возобновлённые
		// сессии и ретраи после таймаута
		found, err := s.attemptRepo.FindIncomplete(tx, userID, subject)
		switch {
		case err == nil:
			if err := found.MarkCompleted(score, totalQuestions, timeSpent, answers); err != nil {
				return fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
			}
			if err := s.attemptRepo.Update(tx, found); err != nil {
				return err
			}
			attempt = found
		case errors.Is(err, apperrors.ErrNotFound):
			attempt = &entity.Attempt{
				UserID:         userID,
				Subject:        subject,
				Score:          score,
				TotalQuestions: totalQuestions,
				TimeSpent:      timeSpent,
				Mode:           entity.ModePractice,
				Answers:        answers,
				Completed:      true,
			}
			if err := s.attemptRepo.Create(tx, attempt); err != nil {
				return err
			}
		default:
			return err
		}

		// Атомарный upsert счётчиков: инкременты выполняются на стороне базы,
		// конкурентные завершения по одной паре не теряют обновлений
		return s.statsRepo.ApplyAttempt(tx, attempt, now)
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[MetricsService] Попытка #%d записана: user=%s subject=%s score=%d/%d",
		attempt.ID, userID, subject, score, totalQuestions)
	return attempt, nil
}

// GetUserStats возвращает накопительную статистику пользователя.
// Пустой subject - по всем предметам; отсутствие строк - валидный пустой ответ.
func (s *MetricsService) GetUserStats(userID, subject string) ([]entity.UserStats, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	if subject == "" {
		return s.statsRepo.GetByUser(userID)
	}

	stats, err := s.statsRepo.GetByUserAndSubject(userID, entity.NormalizeSubject(subject))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []entity.UserStats{}, nil
		}
		return nil, err
	}
	return []entity.UserStats{*stats}, nil
}

// GetHistory возвращает завершённые попытки пользователя с пагинацией
func (s *MetricsService) GetHistory(userID string, limit, offset int) ([]entity.Attempt, int64, error) {
	if userID == "" {
		return nil, 0, apperrors.ErrUnauthorized
	}
	return s.attemptRepo.GetUserAttempts(userID, limit, offset)
}

// GetRecentActivity возвращает последние завершённые попытки пользователя
func (s *MetricsService) GetRecentActivity(userID string, limit int) ([]entity.Attempt, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	return s.attemptRepo.GetRecent(userID, limit)
}

// GetAttemptForReview возвращает попытку для разбора ответов.
// Чужие попытки недоступны.
func (s *MetricsService) GetAttemptForReview(userID string, attemptID uint) (*entity.Attempt, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	attempt, err := s.attemptRepo.GetByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, apperrors.ErrForbidden
	}
	return attempt, nil
}
