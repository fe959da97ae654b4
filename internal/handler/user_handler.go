package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ajquiz-api/internal/middleware"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
	"github.com/yourusername/ajquiz-api/internal/service"
)

// UserHandler обрабатывает запросы, связанные с пользователями
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// SyncUserRequest представляет запрос на синхронизацию профиля.
// Идентификатор берётся из токена, телом передаётся только отображаемое имя.
type SyncUserRequest struct {
	Username string `json:"username" binding:"omitempty,max=100"`
}

// SyncUser создает или обновляет локальную запись пользователя по данным
// провайдера аутентификации. Вызывается клиентом после входа.
// POST /api/users/sync
func (h *UserHandler) SyncUser(c *gin.Context) {
	var req SyncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	username := req.Username
	if username == "" {
		// Имя из claims токена как запасной вариант
		name, _ := c.Get("username")
		username, _ = name.(string)
	}

	user, err := h.userService.SyncUser(middleware.UserID(c), username)
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// GetMe возвращает локальную запись текущего пользователя
// GET /api/users/me
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.userService.GetUser(middleware.UserID(c))
	if err != nil {
		h.handleUserError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    user,
	})
}

// handleUserError обрабатывает ошибки сервиса пользователей стандартизированным способом
func (h *UserHandler) handleUserError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in UserHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
