package entity

import (
	"time"
)

// User представляет пользователя в системе.
// Идентификатор приходит от внешнего провайдера аутентификации;
// запись создаётся/обновляется идемпотентно при первом появлении
// и никогда не удаляется приложением.
type User struct {
	ID        string    `gorm:"primaryKey;size:256" json:"id"`
	Username  string    `gorm:"size:100;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}
