package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// Моки репозиториев определены в leaderboard_service_test.go

func newTestMetricsService(attemptRepo *MockAttemptRepository, statsRepo *MockUserStatsRepository) *MetricsService {
	return NewMetricsService(attemptRepo, statsRepo, &stubTxRunner{})
}

// ============================================================================
// StartQuiz
// ============================================================================

func TestStartQuiz_ReusesIncompleteAttempt(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	existing := &entity.Attempt{ID: 7, UserID: "user-1", Subject: "physics", Completed: false}
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").Return(existing, nil)

	svc := newTestMetricsService(mockAttemptRepo, new(MockUserStatsRepository))

	attempt, err := svc.StartQuiz("user-1", "Physics", "practice", 10)

	require.NoError(t, err)
	assert.Equal(t, uint(7), attempt.ID, "Брошенная сессия должна переиспользоваться")
	mockAttemptRepo.AssertNotCalled(t, "Create")
}

func TestStartQuiz_CreatesNewAttempt(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("Create", mock.Anything, mock.AnythingOfType("*entity.Attempt")).Return(nil)

	svc := newTestMetricsService(mockAttemptRepo, new(MockUserStatsRepository))

	attempt, err := svc.StartQuiz("user-1", "  Physics  ", "", 10)

	require.NoError(t, err)
	assert.Equal(t, "physics", attempt.Subject, "Предмет нормализуется при записи")
	assert.Equal(t, entity.ModePractice, attempt.Mode, "Пустой режим превращается в practice")
	assert.False(t, attempt.Completed)
	mockAttemptRepo.AssertExpectations(t)
}

func TestStartQuiz_ConcurrentCreateFallsBackToExisting(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	existing := &entity.Attempt{ID: 3, UserID: "user-1", Subject: "physics"}

	// Первый FindIncomplete не находит, Create упирается в уникальный
	// индекс, повторный FindIncomplete возвращает выигравшую попытку
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").
		Return(nil, apperrors.ErrNotFound).Once()
	mockAttemptRepo.On("Create", mock.Anything, mock.Anything).Return(apperrors.ErrConflict)
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").
		Return(existing, nil).Once()

	svc := newTestMetricsService(mockAttemptRepo, new(MockUserStatsRepository))

	attempt, err := svc.StartQuiz("user-1", "physics", "timed", 10)

	require.NoError(t, err)
	assert.Equal(t, uint(3), attempt.ID)
}

func TestStartQuiz_Validation(t *testing.T) {
	svc := newTestMetricsService(new(MockAttemptRepository), new(MockUserStatsRepository))

	_, err := svc.StartQuiz("", "physics", "practice", 10)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.StartQuiz("user-1", "  ", "practice", 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.StartQuiz("user-1", "physics", "marathon", 10)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.StartQuiz("user-1", "physics", "practice", 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// ============================================================================
// CompleteQuiz
// ============================================================================

func TestCompleteQuiz_Validation(t *testing.T) {
	svc := newTestMetricsService(new(MockAttemptRepository), new(MockUserStatsRepository))

	_, err := svc.CompleteQuiz("", "physics", 5, 10, 60, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.CompleteQuiz("user-1", "", 5, 10, 60, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Счёт больше числа вопросов
	_, err = svc.CompleteQuiz("user-1", "physics", 11, 10, 60, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	// Отрицательное время
	_, err = svc.CompleteQuiz("user-1", "physics", 5, 10, -1, nil)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestCompleteQuiz_ReusesIncompleteAttempt(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockStatsRepo := new(MockUserStatsRepository)

	incomplete := &entity.Attempt{ID: 7, UserID: "user-1", Subject: "physics", TotalQuestions: 10, Completed: false}
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").Return(incomplete, nil)
	mockAttemptRepo.On("Update", mock.Anything, incomplete).Return(nil)
	mockStatsRepo.On("ApplyAttempt", mock.Anything, mock.MatchedBy(func(a *entity.Attempt) bool {
		return a.ID == 7 && a.Completed && a.Score == 8 && a.TotalQuestions == 10
	}), mock.Anything).Return(nil)

	svc := newTestMetricsService(mockAttemptRepo, mockStatsRepo)

	attempt, err := svc.CompleteQuiz("user-1", "Physics", 8, 10, 120, entity.AnswerMap{1: "a"})

	require.NoError(t, err)
	assert.Equal(t, uint(7), attempt.ID, "Открытая попытка завершается, а не дублируется")
	assert.True(t, attempt.Completed)
	assert.Equal(t, 8, attempt.Score)
	mockAttemptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockStatsRepo.AssertExpectations(t)
}

func TestCompleteQuiz_InsertsWhenNoIncomplete(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockStatsRepo := new(MockUserStatsRepository)

	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").Return(nil, apperrors.ErrNotFound)
	mockAttemptRepo.On("Create", mock.Anything, mock.MatchedBy(func(a *entity.Attempt) bool {
		return a.Completed && a.Subject == "physics" && a.Score == 8
	})).Return(nil)
	mockStatsRepo.On("ApplyAttempt", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestMetricsService(mockAttemptRepo, mockStatsRepo)

	attempt, err := svc.CompleteQuiz("user-1", "physics", 8, 10, 120, nil)

	require.NoError(t, err)
	assert.True(t, attempt.Completed, "Попытка без сессии записывается сразу завершённой")
	assert.NotNil(t, attempt.Answers, "nil-ответы превращаются в пустую карту")
	mockAttemptRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCompleteQuiz_StatsFailureRollsBackAndRetrySucceeds(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockStatsRepo := new(MockUserStatsRepository)

	// MarkCompleted мутирует попытку, поэтому каждый вызов получает свежую
	// незавершённую копию - как после отката транзакции
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").
		Return(&entity.Attempt{ID: 7, UserID: "user-1", Subject: "physics", Completed: false}, nil).Once()
	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").
		Return(&entity.Attempt{ID: 7, UserID: "user-1", Subject: "physics", Completed: false}, nil).Once()
	mockAttemptRepo.On("Update", mock.Anything, mock.Anything).Return(nil)
	mockStatsRepo.On("ApplyAttempt", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()
	mockStatsRepo.On("ApplyAttempt", mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	svc := newTestMetricsService(mockAttemptRepo, mockStatsRepo)

	_, err := svc.CompleteQuiz("user-1", "physics", 8, 10, 120, nil)
	require.Error(t, err, "Сбой обновления статистики откатывает всю запись")

	attempt, err := svc.CompleteQuiz("user-1", "physics", 8, 10, 120, nil)
	require.NoError(t, err)
	assert.Equal(t, uint(7), attempt.ID, "Ретрай завершает ту же попытку, а не создаёт вторую")
	mockAttemptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockAttemptRepo.AssertNumberOfCalls(t, "Update", 2)
}

func TestCompleteQuiz_FindFailureAbortsTransaction(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockStatsRepo := new(MockUserStatsRepository)

	mockAttemptRepo.On("FindIncomplete", mock.Anything, "user-1", "physics").Return(nil, assert.AnError)

	svc := newTestMetricsService(mockAttemptRepo, mockStatsRepo)

	attempt, err := svc.CompleteQuiz("user-1", "physics", 8, 10, 120, nil)

	assert.Error(t, err)
	assert.Nil(t, attempt)
	mockAttemptRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockStatsRepo.AssertNotCalled(t, "ApplyAttempt", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteQuiz_TransactionBeginFailure(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	svc := NewMetricsService(mockAttemptRepo, new(MockUserStatsRepository), &stubTxRunner{err: assert.AnError})

	attempt, err := svc.CompleteQuiz("user-1", "physics", 8, 10, 120, nil)

	assert.Error(t, err)
	assert.Nil(t, attempt)
	mockAttemptRepo.AssertNotCalled(t, "FindIncomplete", mock.Anything, mock.Anything, mock.Anything)
}

// ============================================================================
// Чтение
// ============================================================================

func TestGetUserStats_UnknownSubjectReturnsEmpty(t *testing.T) {
	mockStatsRepo := new(MockUserStatsRepository)
	mockStatsRepo.On("GetByUserAndSubject", "user-1", "botany").Return(nil, apperrors.ErrNotFound)

	svc := newTestMetricsService(new(MockAttemptRepository), mockStatsRepo)

	stats, err := svc.GetUserStats("user-1", "Botany")

	require.NoError(t, err, "Отсутствие статистики - валидный пустой ответ")
	assert.NotNil(t, stats)
	assert.Empty(t, stats)
}

func TestGetUserStats_SingleSubject(t *testing.T) {
	mockStatsRepo := new(MockUserStatsRepository)
	row := &entity.UserStats{UserID: "user-1", Subject: "physics", TotalQuizzes: 4}
	mockStatsRepo.On("GetByUserAndSubject", "user-1", "physics").Return(row, nil)

	svc := newTestMetricsService(new(MockAttemptRepository), mockStatsRepo)

	stats, err := svc.GetUserStats("user-1", "physics")

	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 4, stats[0].TotalQuizzes)
}

func TestGetAttemptForReview_ForeignAttemptForbidden(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockAttemptRepo.On("GetByID", uint(5)).Return(&entity.Attempt{ID: 5, UserID: "someone-else"}, nil)

	svc := newTestMetricsService(mockAttemptRepo, new(MockUserStatsRepository))

	attempt, err := svc.GetAttemptForReview("user-1", 5)

	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	assert.Nil(t, attempt)
}

func TestGetAttemptForReview_OwnAttempt(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	own := &entity.Attempt{ID: 5, UserID: "user-1", Answers: entity.AnswerMap{1: "a"}}
	mockAttemptRepo.On("GetByID", uint(5)).Return(own, nil)

	svc := newTestMetricsService(mockAttemptRepo, new(MockUserStatsRepository))

	attempt, err := svc.GetAttemptForReview("user-1", 5)

	require.NoError(t, err)
	assert.Equal(t, "a", attempt.Answers[1])
}
