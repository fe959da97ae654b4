package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

const (
	// leaderboardCachePrefix - тег кеша чтения; инвалидируется задачей пересчёта
	leaderboardCachePrefix = "leaderboard:"
	// leaderboardCacheTTL - окно допустимой несвежести кеша
	leaderboardCacheTTL = 5 * time.Minute
	// leaderboardReadLimit - жёсткий потолок на размер отдаваемого снапшота
	leaderboardReadLimit = 100
	// topPerformersLimit - размер живых топов (глобального и по предметам)
	topPerformersLimit = 10

	// recomputeLockKey защищает от параллельных запусков пересчёта
	recomputeLockKey = "leaderboard:recompute:lock"
	recomputeLockTTL = 10 * time.Minute

	// unknownUsername подставляется, когда id нет в справочнике пользователей
	unknownUsername = "Unknown User"
)

// LeaderboardService отвечает за периодический пересчёт снапшотов рейтинга
// и за их чтение через кеш. Снапшоты - производные данные: их можно в любой
// момент пересчитать с нуля по попыткам, поэтому задача безопасно
// перезапускается после сбоя.
type LeaderboardService struct {
	attemptRepo     repository.AttemptRepository
	statsRepo       repository.UserStatsRepository
	leaderboardRepo repository.LeaderboardRepository
	userRepo        repository.UserRepository
	cacheRepo       repository.CacheRepository
	tx              TxRunner
}

// NewLeaderboardService создает новый сервис лидерборда
func NewLeaderboardService(
	attemptRepo repository.AttemptRepository,
	statsRepo repository.UserStatsRepository,
	leaderboardRepo repository.LeaderboardRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
	tx TxRunner,
) *LeaderboardService {
	return &LeaderboardService{
		attemptRepo:     attemptRepo,
		statsRepo:       statsRepo,
		leaderboardRepo: leaderboardRepo,
		userRepo:        userRepo,
		cacheRepo:       cacheRepo,
		tx:              tx,
	}
}

// Recompute пересчитывает снапшоты лидерборда для всех периодов и активных
// предметов. Каждая пара (предмет, период) обрабатывается в собственной
// транзакции: сбой одной пары не портит уже закоммиченные снапшоты других.
// После обхода инвалидируется тег кеша чтения.
func (s *LeaderboardService) Recompute(ctx context.Context) error {
	runID := uuid.New().String()[:8]

	// Защита от параллельных запусков (повторный триггер во время работы)
	acquired, err := s.cacheRepo.SetNX(recomputeLockKey, runID, recomputeLockTTL)
	switch {
	case err != nil:
		// Кеш недоступен - продолжаем без блокировки и без снятия: чужую
		// блокировку трогать нельзя, свою мы не ставили
		log.Printf("[LeaderboardService] run=%s: не удалось взять блокировку пересчёта: %v", runID, err)
	case !acquired:
		log.Printf("[LeaderboardService] run=%s: пересчёт уже выполняется, выходим", runID)
		return fmt.Errorf("%w: leaderboard recompute is already running", apperrors.ErrConflict)
	default:
		defer func() {
			// Снимаем только собственную блокировку: если TTL истёк и ключ
			// перехватил другой запуск, оставляем его в покое
			owner, err := s.cacheRepo.Get(recomputeLockKey)
			if err != nil {
				log.Printf("[LeaderboardService] run=%s: не удалось проверить владельца блокировки: %v", runID, err)
				return
			}
			if owner != runID {
				log.Printf("[LeaderboardService] run=%s: блокировка принадлежит запуску %s, не снимаем", runID, owner)
				return
			}
			if err := s.cacheRepo.Delete(recomputeLockKey); err != nil {
				log.Printf("[LeaderboardService] run=%s: не удалось снять блокировку: %v", runID, err)
			}
		}()
	}

	start := time.Now()
	log.Printf("[LeaderboardService] run=%s: старт пересчёта лидерборда", runID)

	// Справочник id -> имя для подстановки username в снапшот
	users, err := s.userRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to load user directory: %w", err)
	}
	userMap := make(map[string]string, len(users))
	for _, u := range users {
		userMap[u.ID] = u.Username
	}

	now := time.Now()
	var unitsDone, unitsFailed int
	var lastErr error

	for _, period := range entity.AllPeriods() {
		windowStart, windowEnd := period.Window(now)

		subjects, err := s.attemptRepo.DistinctSubjects(windowStart, windowEnd)
		if err != nil {
			log.Printf("[LeaderboardService] run=%s period=%s: ошибка выборки предметов: %v", runID, period, err)
			unitsFailed++
			lastErr = err
			continue
		}

		for _, subject := range subjects {
			if err := ctx.Err(); err != nil {
				// Задача идемпотентна: прерванный запуск восстанавливается
				// простым повторным триггером
				return err
			}

			if err := s.recomputeUnit(subject, period, windowStart, windowEnd, now, userMap); err != nil {
				log.Printf("[LeaderboardService] run=%s period=%s subject=%s: ошибка пересчёта: %v",
					runID, period, subject, err)
				unitsFailed++
				lastErr = err
				continue
			}
			unitsDone++
		}
	}

	// Сбрасываем кеш даже при частичных сбоях: успешно закоммиченные
	// снапшоты должны стать видимыми
	if err := s.cacheRepo.DeleteByPattern(leaderboardCachePrefix + "*"); err != nil {
		log.Printf("[LeaderboardService] run=%s: ошибка инвалидации кеша: %v", runID, err)
	}

	log.Printf("[LeaderboardService] run=%s: пересчёт завершён за %s (успешно: %d, с ошибками: %d)",
		runID, time.Since(start).Round(time.Millisecond), unitsDone, unitsFailed)

	if unitsFailed > 0 {
		return fmt.Errorf("leaderboard recompute finished with %d failed units: %w", unitsFailed, lastErr)
	}
	return nil
}

// recomputeUnit пересчитывает снапшот одной пары (предмет, период) в одной
// транзакции delete+insert, поэтому читатели никогда не видят пустое окно
func (s *LeaderboardService) recomputeUnit(
	subject string,
	period entity.Period,
	windowStart, windowEnd, now time.Time,
	userMap map[string]string,
) error {
	rankings, err := s.attemptRepo.AggregateBySubject(subject, windowStart, windowEnd)
	if err != nil {
		return fmt.Errorf("aggregate failed: %w", err)
	}

	entries := buildLeaderboardEntries(subject, period, windowStart, windowEnd, rankings, userMap)

	return s.tx.RunInTransaction(func(tx *gorm.DB) error {
		if err := s.leaderboardRepo.DeleteBySubjectPeriod(tx, subject, period); err != nil {
			return fmt.Errorf("delete snapshot failed: %w", err)
		}
		if err := s.leaderboardRepo.CreateBatch(tx, entries); err != nil {
			return fmt.Errorf("insert snapshot failed: %w", err)
		}

		// Только недельный период обновляет ранги в статистике пользователей:
		// currentRank перезаписывается, bestRank никогда не ухудшается
		if period == entity.PeriodWeekly {
			for _, entry := range entries {
				if err := s.statsRepo.UpdateRank(tx, entry.UserID, subject, entry.Rank, now); err != nil {
					return fmt.Errorf("rank update failed for user %s: %w", entry.UserID, err)
				}
			}
		}
		return nil
	})
}

// buildLeaderboardEntries превращает агрегаты в строки снапшота с плотными
// 1-based рангами. Порядок агрегатов уже детерминирован
// (sum(score) DESC, user_id ASC).
func buildLeaderboardEntries(
	subject string,
	period entity.Period,
	windowStart, windowEnd time.Time,
	rankings []repository.UserAggregate,
	userMap map[string]string,
) []entity.LeaderboardEntry {
	entries := make([]entity.LeaderboardEntry, 0, len(rankings))
	for i, agg := range rankings {
		username, ok := userMap[agg.UserID]
		if !ok || username == "" {
			username = unknownUsername
		}

		entries = append(entries, entity.LeaderboardEntry{
			UserID:         agg.UserID,
			Username:       username,
			Subject:        subject,
			Score:          agg.Score,
			TotalQuestions: agg.TotalQuestions,
			TimeSpent:      agg.TimeSpent,
			Attempts:       agg.Attempts,
			LastAttempt:    agg.LastAttempt,
			Period:         string(period),
			PeriodStart:    windowStart,
			PeriodEnd:      windowEnd,
			Rank:           i + 1,
		})
	}
	return entries
}

// GetLeaderboard возвращает снапшот рейтинга из кеша или базы.
// subject == "all" (или пустой) отключает фильтр по предмету; пустой период
// по умолчанию weekly. Пустой результат - валидный ответ, а не ошибка.
func (s *LeaderboardService) GetLeaderboard(subject, periodStr string) ([]entity.LeaderboardEntry, error) {
	if subject == "" {
		subject = "all"
	} else if subject != "all" {
		subject = entity.NormalizeSubject(subject)
	}
	if periodStr == "" {
		periodStr = string(entity.PeriodWeekly)
	}

	period, err := entity.ParsePeriod(periodStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
	}

	cacheKey := fmt.Sprintf("%s%s:%s", leaderboardCachePrefix, subject, period)

	var cached []entity.LeaderboardEntry
	cacheErr := s.cacheRepo.GetJSON(cacheKey, &cached)
	if cacheErr == nil {
		return cached, nil
	}
	if !errors.Is(cacheErr, apperrors.ErrNotFound) {
		// Недоступный кеш не должен ломать чтение - идём в базу
		log.Printf("[LeaderboardService] ошибка чтения кеша %s: %v", cacheKey, cacheErr)
	}

	entries, err := s.leaderboardRepo.GetEntries(subject, period, leaderboardReadLimit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []entity.LeaderboardEntry{}
	}

	if err := s.cacheRepo.SetJSON(cacheKey, entries, leaderboardCacheTTL); err != nil {
		log.Printf("[LeaderboardService] ошибка записи кеша %s: %v", cacheKey, err)
	}

	return entries, nil
}

// GetGlobalTop возвращает живой топ-10 по среднему проценту правильных
// ответов за всю историю. Считается напрямую по попыткам, минуя снапшоты.
func (s *LeaderboardService) GetGlobalTop() ([]repository.PerformerAggregate, error) {
	rows, err := s.attemptRepo.TopPerformers(topPerformersLimit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []repository.PerformerAggregate{}
	}
	return rows, nil
}

// GetSubjectBreakdown возвращает живые топ-10 по предметам: либо по одному
// предмету, либо по каждому сразу (ключ карты - имя предмета)
func (s *LeaderboardService) GetSubjectBreakdown(subject string) (map[string][]repository.PerformerAggregate, error) {
	if subject != "" {
		// Ключ карты - нормализованное имя, как и в ветке "все предметы"
		subject = entity.NormalizeSubject(subject)
		rows, err := s.attemptRepo.TopPerformersBySubject(subject, topPerformersLimit)
		if err != nil {
			return nil, err
		}
		return map[string][]repository.PerformerAggregate{subject: rows}, nil
	}

	all, err := s.attemptRepo.TopPerformersAllSubjects()
	if err != nil {
		return nil, err
	}

	// Строки отсортированы по предмету и убыванию среднего балла,
	// поэтому достаточно взять первые N по каждому предмету
	breakdown := make(map[string][]repository.PerformerAggregate)
	for _, row := range all {
		bucket := breakdown[row.Subject]
		if len(bucket) >= topPerformersLimit {
			continue
		}
		breakdown[row.Subject] = append(bucket, row.PerformerAggregate)
	}
	return breakdown, nil
}
