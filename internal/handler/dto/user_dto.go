package dto

import (
	"time"

	"github.com/yourusername/classquiz-api/internal/domain/entity"
)

// UserResponse представляет пользователя в формате для ответа клиенту
type UserResponse struct {
	ID        string    `json:"id"`         // UUID пользователя
	Name      string    `json:"name"`       // Отображаемое имя
	Email     string    `json:"email"`      // Email (нормализованный)
	Role      string    `json:"role"`       // "teacher" или "student"
	CreatedAt time.Time `json:"created_at"` // Дата регистрации
}

// AuthResponse структура для ответа с пользовательскими данными и токеном
type AuthResponse struct {
	User      *UserResponse `json:"user"`
	Token     string        `json:"token"`
	TokenType string        `json:"tokenType"`
	ExpiresIn int           `json:"expiresIn"` // Время жизни токена в секундах
}

// NewUserResponse создает DTO для пользователя
func NewUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}
