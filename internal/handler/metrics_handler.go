package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/handler/dto"
	"github.com/yourusername/ajquiz-api/internal/middleware"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
	"github.com/yourusername/ajquiz-api/internal/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// MetricsHandler обрабатывает запросы записи попыток и чтения статистики
type MetricsHandler struct {
	metricsService *service.MetricsService
}

// NewMetricsHandler создает новый обработчик метрик
func NewMetricsHandler(metricsService *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metricsService: metricsService}
}

// StartQuizRequest представляет запрос на открытие попытки
type StartQuizRequest struct {
	Subject        string `json:"subject" binding:"required,max=100"`
	Mode           string `json:"mode" binding:"omitempty,max=20"`
	TotalQuestions int    `json:"total_questions" binding:"required,min=1,max=500"`
}

// StartQuiz открывает незавершённую попытку
// POST /api/quiz/start
func (h *MetricsHandler) StartQuiz(c *gin.Context) {
	var req StartQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.metricsService.StartQuiz(middleware.UserID(c), req.Subject, req.Mode, req.TotalQuestions)
	if err != nil {
		h.handleMetricsError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    dto.NewAttemptResponse(attempt, false),
	})
}

// CompleteQuizRequest представляет запрос на запись завершённой попытки
type CompleteQuizRequest struct {
	Subject        string           `json:"subject" binding:"required,max=100"`
	Score          int              `json:"score"`
	TotalQuestions int              `json:"total_questions" binding:"required,min=1,max=500"`
	TimeSpent      float64          `json:"time_spent"` // в секундах
	Answers        entity.AnswerMap `json:"answers"`
}

// CompleteQuiz записывает завершённую попытку и обновляет счётчики
// POST /api/quiz/complete
func (h *MetricsHandler) CompleteQuiz(c *gin.Context) {
	var req CompleteQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	attempt, err := h.metricsService.CompleteQuiz(
		middleware.UserID(c),
		req.Subject,
		req.Score,
		req.TotalQuestions,
		req.TimeSpent,
		req.Answers,
	)
	if err != nil {
		h.handleMetricsError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    dto.NewAttemptResponse(attempt, false),
	})
}

// GetUserStats возвращает накопительную статистику пользователя
// GET /api/metrics/stats?subject=physics
func (h *MetricsHandler) GetUserStats(c *gin.Context) {
	stats, err := h.metricsService.GetUserStats(middleware.UserID(c), c.Query("subject"))
	if err != nil {
		h.handleMetricsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dto.NewUserStatsListResponse(stats),
	})
}

// GetHistory возвращает пагинированную историю попыток пользователя
// GET /api/quiz/history?limit=20&offset=0
func (h *MetricsHandler) GetHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	attempts, total, err := h.metricsService.GetHistory(middleware.UserID(c), limit, offset)
	if err != nil {
		h.handleMetricsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": dto.PaginatedAttemptsResponse{
			Attempts: dto.NewAttemptListResponse(attempts),
			Total:    total,
			Limit:    limit,
			Offset:   offset,
		},
	})
}

// GetRecentActivity возвращает последние завершённые попытки пользователя
// GET /api/quiz/activity?limit=10
func (h *MetricsHandler) GetRecentActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > maxHistoryLimit {
		limit = 10
	}

	attempts, err := h.metricsService.GetRecentActivity(middleware.UserID(c), limit)
	if err != nil {
		h.handleMetricsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dto.NewAttemptListResponse(attempts),
	})
}

// GetAttemptReview возвращает одну попытку вместе с картой ответов.
// Чужая попытка - 403.
// GET /api/quiz/attempts/:id
func (h *MetricsHandler) GetAttemptReview(c *gin.Context) {
	attemptID := c.MustGet("attemptID").(uint)

	attempt, err := h.metricsService.GetAttemptForReview(middleware.UserID(c), attemptID)
	if err != nil {
		h.handleMetricsError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dto.NewAttemptResponse(attempt, true),
	})
}

// handleMetricsError обрабатывает ошибки сервиса метрик стандартизированным способом
func (h *MetricsHandler) handleMetricsError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in MetricsHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
