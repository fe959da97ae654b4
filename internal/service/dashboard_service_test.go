package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ajquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// Моки репозиториев определены в leaderboard_service_test.go

func TestQuizChangePercent(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		previous int64
		want     int
	}{
		{"рост вдвое", 10, 5, 100},
		{"падение вдвое", 5, 10, -50},
		{"без изменений", 7, 7, 0},
		{"нулевая база", 5, 0, 0},
		{"полное затухание", 0, 4, -100},
		{"округление", 1, 3, -67},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quizChangePercent(tt.current, tt.previous))
		})
	}
}

func TestActivityTrend(t *testing.T) {
	assert.Equal(t, "up", activityTrend(10, 5))
	assert.Equal(t, "down", activityTrend(3, 5))
	assert.Equal(t, "stable", activityTrend(5, 5))
	assert.Equal(t, "stable", activityTrend(0, 0))
}

func TestRoundToTenth(t *testing.T) {
	assert.Equal(t, 1.5, roundToTenth(1.49))
	assert.Equal(t, 1.4, roundToTenth(1.44))
	assert.Equal(t, 0.0, roundToTenth(0.04))
}

func TestGetDashboardStats(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockAttemptRepo.On("CountByUser", "user-1").Return(int64(42), nil)
	// Первый вызов - текущая неделя, второй - предыдущая
	mockAttemptRepo.On("CountByUserBetween", "user-1", mock.Anything, mock.Anything).
		Return(int64(6), nil).Once()
	mockAttemptRepo.On("CountByUserBetween", "user-1", mock.Anything, mock.Anything).
		Return(int64(4), nil).Once()
	mockAttemptRepo.On("AverageScorePercent", "user-1").Return(72.4, nil)
	mockAttemptRepo.On("TimeSpentSince", "user-1", mock.Anything).Return(5400.0, nil)

	svc := NewDashboardService(mockAttemptRepo)

	stats, err := svc.GetDashboardStats("user-1")

	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.TotalQuizzes)
	assert.Equal(t, int64(6), stats.QuizzesLastWeek)
	assert.Equal(t, 50, stats.QuizChange, "(6-4)/4*100 = 50")
	assert.Equal(t, 72, stats.AverageScore)
	assert.Equal(t, 1.5, stats.StudyTime, "5400 секунд = 1.5 часа")
}

func TestGetDashboardStats_NoUser(t *testing.T) {
	svc := NewDashboardService(new(MockAttemptRepository))

	stats, err := svc.GetDashboardStats("")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	assert.Nil(t, stats)
}

func TestGetSubjectStats_KeyedByNormalizedName(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockAttemptRepo.On("SubjectSummaries", "user-1").Return([]repository.SubjectSummary{
		{Subject: "physics", QuizzesTaken: 3, AverageScore: 66.67, TotalTime: 7200},
	}, nil)

	svc := NewDashboardService(mockAttemptRepo)

	stats, err := svc.GetSubjectStats("user-1")

	require.NoError(t, err)
	row, ok := stats["physics"]
	require.True(t, ok)
	assert.Equal(t, 3, row.QuizzesTaken)
	assert.Equal(t, 66.7, row.AverageScore)
	assert.Equal(t, 2.0, row.TotalTime, "7200 секунд = 2 часа")
}

func TestGetPopularSubjects_Trends(t *testing.T) {
	mockAttemptRepo := new(MockAttemptRepository)
	mockAttemptRepo.On("PopularSubjects", 2).Return([]repository.SubjectActivity{
		{Name: "chemistry", Participants: 30, AverageScore: 64.5},
		{Name: "biology", Participants: 12, AverageScore: 80.2},
	}, nil)
	// chemistry: рост активности; biology: спад
	mockAttemptRepo.On("CountBySubjectBetween", "chemistry", mock.Anything, mock.Anything).
		Return(int64(9), nil).Once()
	mockAttemptRepo.On("CountBySubjectBetween", "chemistry", mock.Anything, mock.Anything).
		Return(int64(5), nil).Once()
	mockAttemptRepo.On("CountBySubjectBetween", "biology", mock.Anything, mock.Anything).
		Return(int64(2), nil).Once()
	mockAttemptRepo.On("CountBySubjectBetween", "biology", mock.Anything, mock.Anything).
		Return(int64(6), nil).Once()

	svc := NewDashboardService(mockAttemptRepo)

	subjects, err := svc.GetPopularSubjects(2)

	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, "chemistry", subjects[0].Name)
	assert.Equal(t, "up", subjects[0].Trend)
	assert.Equal(t, 65, subjects[0].AverageScore, "64.5 округляется до 65")
	assert.Equal(t, "down", subjects[1].Trend)
	assert.Equal(t, 80, subjects[1].AverageScore)
}
