package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
	"github.com/yourusername/ajquiz-api/internal/service"
)

// LeaderboardHandler обрабатывает запросы чтения лидерборда и триггер пересчёта
type LeaderboardHandler struct {
	leaderboardService *service.LeaderboardService
}

// NewLeaderboardHandler создает новый обработчик лидерборда
func NewLeaderboardHandler(leaderboardService *service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboardService: leaderboardService}
}

// GetLeaderboard возвращает снапшот лидерборда по предмету и периоду
// GET /api/leaderboard?subject=all&period=weekly
func (h *LeaderboardHandler) GetLeaderboard(c *gin.Context) {
	subject := c.DefaultQuery("subject", "all")
	period := c.DefaultQuery("period", "weekly")

	entries, err := h.leaderboardService.GetLeaderboard(subject, period)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    dto.NewLeaderboardResponse(entries),
		"period":  period,
		"subject": subject,
	})
}

// GetGlobalTop возвращает живой топ-10 по среднему проценту за всю историю
// GET /api/leaderboard/global
func (h *LeaderboardHandler) GetGlobalTop(c *gin.Context) {
	rows, err := h.leaderboardService.GetGlobalTop()
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rows,
	})
}

// GetSubjectBreakdown возвращает живые топы по предметам
// GET /api/leaderboard/subjects?subject=chemistry
func (h *LeaderboardHandler) GetSubjectBreakdown(c *gin.Context) {
	breakdown, err := h.leaderboardService.GetSubjectBreakdown(c.Query("subject"))
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    breakdown,
	})
}

// TriggerRecompute запускает полный пересчёт снапшотов лидерборда.
// Доступ закрыт cron-секретом на уровне middleware; повторный запуск
// при уже идущем пересчёте возвращает 409.
// POST /api/cron/leaderboard
func (h *LeaderboardHandler) TriggerRecompute(c *gin.Context) {
	started := time.Now()

	if err := h.leaderboardService.Recompute(c.Request.Context()); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Recompute is already running"})
			return
		}
		log.Printf("[LeaderboardHandler] Пересчёт завершился с ошибкой: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Leaderboard recompute failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"duration_ms": time.Since(started).Milliseconds(),
	})
}

// ExportLeaderboard экспортирует снапшот лидерборда в CSV или Excel формате
// GET /api/leaderboard/export?subject=all&period=weekly&format=csv|xlsx
func (h *LeaderboardHandler) ExportLeaderboard(c *gin.Context) {
	subject := c.DefaultQuery("subject", "all")
	period := c.DefaultQuery("period", "weekly")
	format := c.DefaultQuery("format", "csv")

	entries, err := h.leaderboardService.GetLeaderboard(subject, period)
	if err != nil {
		h.handleLeaderboardError(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard_%s_%s_%s", subject, period, time.Now().Format("2006-01-02"))

	switch format {
	case "xlsx":
		h.exportXLSX(c, entries, filename)
	default:
		h.exportCSV(c, entries, filename)
	}
}

// exportCSV экспортирует лидерборд в CSV с правильным экранированием спецсимволов
func (h *LeaderboardHandler) exportCSV(c *gin.Context, entries []entity.LeaderboardEntry, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	// Используем encoding/csv для правильного экранирования запятых/кавычек
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Заголовки
	writer.Write([]string{"Место", "Пользователь", "Очки", "Всего вопросов", "Попыток", "Время (сек)", "Последняя попытка"})

	// Данные
	for _, e := range entries {
		writer.Write([]string{
			strconv.Itoa(e.Rank),
			sanitizeForExcel(e.Username),
			strconv.Itoa(e.Score),
			strconv.Itoa(e.TotalQuestions),
			strconv.Itoa(e.Attempts),
			strconv.FormatFloat(e.TimeSpent, 'f', 2, 64),
			e.LastAttempt.Format(time.RFC3339),
		})
	}
}

// exportXLSX экспортирует лидерборд в Excel с использованием StreamWriter
func (h *LeaderboardHandler) exportXLSX(c *gin.Context, entries []entity.LeaderboardEntry, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Лидерборд"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[LeaderboardHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	// Заголовки
	headers := []interface{}{"Место", "Пользователь", "Очки", "Всего вопросов", "Попыток", "Время (сек)", "Последняя попытка"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи заголовков: %v", err)
	}

	// Данные
	for i, e := range entries {
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		row := []interface{}{
			e.Rank,
			sanitizeForExcel(e.Username),
			e.Score,
			e.TotalQuestions,
			e.Attempts,
			e.TimeSpent,
			e.LastAttempt.Format(time.RFC3339),
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[LeaderboardHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка при Flush: %v", err)
	}

	// Записываем в response
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[LeaderboardHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleLeaderboardError обрабатывает ошибки сервиса лидерборда стандартизированным способом
func (h *LeaderboardHandler) handleLeaderboardError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in LeaderboardHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
