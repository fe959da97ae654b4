package service

import (
	"fmt"
	"strings"

	"github.com/yourusername/ajquiz-api/internal/domain/entity"
	"github.com/yourusername/ajquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/ajquiz-api/internal/pkg/errors"
)

// UserService синхронизирует профили из внешнего провайдера аутентификации.
// Аутентификацией сервис не занимается - только идемпотентным upsert.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// SyncUser создаёт или обновляет пользователя по данным провайдера.
// Повторный вызов с теми же данными безопасен.
func (s *UserService) SyncUser(userID, username string) (*entity.User, error) {
	if userID == "" {
		return nil, apperrors.ErrUnauthorized
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", apperrors.ErrValidation)
	}

	user := &entity.User{
		ID:       userID,
		Username: username,
	}
	if err := s.userRepo.Upsert(user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetUser возвращает пользователя по идентификатору
func (s *UserService) GetUser(userID string) (*entity.User, error) {
	return s.userRepo.GetByID(userID)
}
