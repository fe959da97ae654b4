package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ajquiz-api/internal/middleware"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
	"github.com/yourusername/ajquiz-api/internal/service"
)

// DashboardHandler обрабатывает запросы дашборда пользователя
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler создает новый обработчик дашборда
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// GetStats возвращает сводные карточки дашборда
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(c *gin.Context) {
	stats, err := h.dashboardService.GetDashboardStats(middleware.UserID(c))
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetSubjectStats возвращает сводку пользователя по каждому предмету
// GET /api/dashboard/subjects
func (h *DashboardHandler) GetSubjectStats(c *gin.Context) {
	stats, err := h.dashboardService.GetSubjectStats(middleware.UserID(c))
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
	})
}

// GetPopularSubjects возвращает предметы по убыванию активности с трендами
// GET /api/dashboard/popular?limit=10
func (h *DashboardHandler) GetPopularSubjects(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	subjects, err := h.dashboardService.GetPopularSubjects(limit)
	if err != nil {
		h.handleDashboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    subjects,
	})
}

// handleDashboardError обрабатывает ошибки сервиса дашборда стандартизированным способом
func (h *DashboardHandler) handleDashboardError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in DashboardHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
