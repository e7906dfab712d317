package repository

import (
	"github.com/yourusername/classquiz-api/internal/domain/entity"
)

// AttemptRepository определяет методы для работы с попытками прохождения
type AttemptRepository interface {
	Save(attempt *entity.QuizAttempt) error
	// GetByQuizID возвращает попытки для викторины вместе с данными ученика,
	// от новых к старым
	GetByQuizID(quizID string) ([]entity.QuizAttempt, error)
	// GetAll возвращает все попытки с данными ученика и викторины (панель учителя)
	GetAll() ([]entity.QuizAttempt, error)
	GetByUserID(userID string) ([]entity.QuizAttempt, error)
}
