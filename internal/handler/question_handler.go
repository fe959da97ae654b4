package handler

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ajquiz-api/internal/service"
)

const maxQuestionBatch = 40

// QuestionHandler проксирует запросы к внешнему банку вопросов.
// Токен доступа банка живёт только на сервере и клиенту не выдаётся.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler создает новый обработчик банка вопросов
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// GetSubjects возвращает список поддерживаемых предметов
// GET /api/questions/subjects
func (h *QuestionHandler) GetSubjects(c *gin.Context) {
	subjects, err := h.questionService.GetSubjects(c.Request.Context())
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    subjects,
	})
}

// GetQuestions возвращает вопросы по предмету
// GET /api/questions?subject=chemistry&type=utme&year=2019
func (h *QuestionHandler) GetQuestions(c *gin.Context) {
	subject := c.Query("subject")
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}

	year, _ := strconv.Atoi(c.Query("year"))

	questions, err := h.questionService.GetQuestions(c.Request.Context(), subject, c.Query("type"), year)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    questions,
	})
}

// GetQuestionBatch возвращает пакет вопросов фиксированного размера
// GET /api/questions/batch?subject=chemistry&year=2019&count=20
func (h *QuestionHandler) GetQuestionBatch(c *gin.Context) {
	subject := c.Query("subject")
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject is required"})
		return
	}

	count, _ := strconv.Atoi(c.DefaultQuery("count", "20"))
	if count <= 0 || count > maxQuestionBatch {
		count = 20
	}

	batch, err := h.questionService.GetQuestionBatch(c.Request.Context(), subject, c.Query("year"), count)
	if err != nil {
		h.handleQuestionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    batch,
	})
}

// ReportQuestionRequest представляет жалобу на вопрос
type ReportQuestionRequest struct {
	Subject    string `json:"subject" binding:"required,max=100"`
	QuestionID int    `json:"question_id" binding:"required,min=1"`
	Message    string `json:"message" binding:"required,max=1000"`
}

// ReportQuestion пересылает жалобу на некорректный вопрос в банк вопросов
// POST /api/questions/report
func (h *QuestionHandler) ReportQuestion(c *gin.Context) {
	var req ReportQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.questionService.ReportQuestion(c.Request.Context(), req.Subject, req.QuestionID, req.Message); err != nil {
		h.handleQuestionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// handleQuestionError обрабатывает ошибки клиента банка вопросов.
// Сбои внешнего сервиса отдаются как 502, чтобы клиент мог повторить запрос.
func (h *QuestionHandler) handleQuestionError(c *gin.Context, err error) {
	log.Printf("[QuestionHandler] Ошибка банка вопросов: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "Question bank is unavailable"})
}
