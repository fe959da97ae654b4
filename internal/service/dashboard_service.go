package service

import (
	"math"
	"time"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// DashboardStats - сводные карточки дашборда пользователя
type DashboardStats struct {
	TotalQuizzes    int64   `json:"total_quizzes"`
	QuizzesLastWeek int64   `json:"quizzes_last_week"`
	QuizChange      int     `json:"quiz_change"` // процент к предыдущей неделе
	AverageScore    int     `json:"average_score"`
	StudyTime       float64 `json:"study_time"` // часы за последние сутки
}

// SubjectStat - сводка пользователя по одному предмету
type SubjectStat struct {
	Name         string    `json:"name"`
	QuizzesTaken int       `json:"quizzes_taken"`
	AverageScore float64   `json:"average_score"`
	TotalTime    float64   `json:"total_time"` // часы
	LastAttempt  time.Time `json:"last_attempt"`
}

// PopularSubject - предмет с трендом активности
type PopularSubject struct {
	Name         string `json:"name"`
	Participants int    `json:"participants"`
	AverageScore int    `json:"average_score"`
	Trend        string `json:"trend"` // up, down, stable
}

// DashboardService отвечает за живые read-time агрегации по попыткам:
// сводка дашборда, статистика по предметам, популярные предметы.
// Снапшоты лидерборда здесь не используются.
type DashboardService struct {
	attemptRepo repository.AttemptRepository
}

// NewDashboardService создает новый сервис дашборда
func NewDashboardService(attemptRepo repository.AttemptRepository) *DashboardService {
	return &DashboardService{attemptRepo: attemptRepo}
}

// GetDashboardStats возвращает сводные карточки дашборда.
// Отсутствие попыток даёт нули, а не ошибку.
func (s *DashboardService) GetDashboardStats(userID string) (*DashboardStats, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	now := time.Now()
	lastWeek := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)
	yesterday := now.Add(-24 * time.Hour)

	total, err := s.attemptRepo.CountByUser(userID)
	if err != nil {
		return nil, err
	}

	currentWeek, err := s.attemptRepo.CountByUserBetween(userID, lastWeek, now)
	if err != nil {
		return nil, err
	}

	previousWeek, err := s.attemptRepo.CountByUserBetween(userID, twoWeeksAgo, lastWeek)
	if err != nil {
		return nil, err
	}

	avgScore, err := s.attemptRepo.AverageScorePercent(userID)
	if err != nil {
		return nil, err
	}

	studySeconds, err := s.attemptRepo.TimeSpentSince(userID, yesterday)
	if err != nil {
		return nil, err
	}

	return &DashboardStats{
		TotalQuizzes:    total,
		QuizzesLastWeek: currentWeek,
		QuizChange:      quizChangePercent(currentWeek, previousWeek),
		AverageScore:    int(math.Round(avgScore)),
		StudyTime:       roundToTenth(studySeconds / 3600.0),
	}, nil
}

// quizChangePercent считает процентное изменение числа квизов неделя к неделе.
// При нулевой базе возвращает 0 вместо деления на ноль.
func quizChangePercent(current, previous int64) int {
	if previous <= 0 {
		return 0
	}
	return int(math.Round(float64(current-previous) / float64(previous) * 100))
}

// GetSubjectStats возвращает сводку пользователя по каждому предмету.
// Ключ карты - нормализованное имя предмета.
func (s *DashboardService) GetSubjectStats(userID string) (map[string]SubjectStat, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}

	summaries, err := s.attemptRepo.SubjectSummaries(userID)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]SubjectStat, len(summaries))
	for _, row := range summaries {
		key := entity.NormalizeSubject(row.Subject)
		stats[key] = SubjectStat{
			Name:         row.Subject,
			QuizzesTaken: row.QuizzesTaken,
			AverageScore: roundToTenth(row.AverageScore),
			TotalTime:    roundToTenth(row.TotalTime / 3600.0),
			LastAttempt:  row.LastAttempt,
		}
	}
	return stats, nil
}

// GetPopularSubjects возвращает топ предметов по числу уникальных участников
// с трендом активности (последняя неделя против предыдущей)
func (s *DashboardService) GetPopularSubjects(limit int) ([]PopularSubject, error) {
	if limit < 1 {
		limit = 5
	}

	subjects, err := s.attemptRepo.PopularSubjects(limit)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	lastWeek := now.AddDate(0, 0, -7)
	twoWeeksAgo := now.AddDate(0, 0, -14)

	result := make([]PopularSubject, 0, len(subjects))
	for _, subj := range subjects {
		recent, err := s.attemptRepo.CountBySubjectBetween(subj.Name, lastWeek, now)
		if err != nil {
			return nil, err
		}
		previous, err := s.attemptRepo.CountBySubjectBetween(subj.Name, twoWeeksAgo, lastWeek)
		if err != nil {
			return nil, err
		}

		result = append(result, PopularSubject{
			Name:         subj.Name,
			Participants: subj.Participants,
			AverageScore: int(math.Round(subj.AverageScore)),
			Trend:        activityTrend(recent, previous),
		})
	}
	return result, nil
}

// activityTrend сравнивает активность двух соседних недель
func activityTrend(recent, previous int64) string {
	switch {
	case recent > previous:
		return "up"
	case recent < previous:
		return "down"
	default:
		return "stable"
	}
}

func roundToTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
