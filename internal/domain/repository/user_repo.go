package repository

import (
	"github.com/yourusername/ajquiz-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	// Upsert создаёт пользователя или обновляет имя существующего (идемпотентно)
	Upsert(user *entity.User) error
	GetByID(id string) (*entity.User, error)
	// GetAll возвращает всех пользователей для построения справочника id -> имя
	GetAll() ([]entity.User, error)
}
