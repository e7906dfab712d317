package repository

import (
	"github.com/yourusername/classquiz-api/internal/domain/entity"
)

// QuizRepository определяет методы для работы с викторинами
type QuizRepository interface {
	Create(quiz *entity.Quiz) error
	GetByID(id string) (*entity.Quiz, error)
	// GetActive возвращает текущую активную викторину (если есть)
	GetActive() (*entity.Quiz, error)
	// ListAuthored возвращает все викторины, созданные учителями,
	// от новых к старым (викторины без создателя не включаются)
	ListAuthored() ([]entity.Quiz, error)
	// ListByCreator возвращает викторины конкретного учителя
	ListByCreator(creatorID string) ([]entity.Quiz, error)
	Update(quiz *entity.Quiz) error
	// ActivateExclusive атомарно переводит викторину в статус active
	// и закрывает все остальные (правило единственной активной викторины)
	ActivateExclusive(quizID string) error
	// Close переводит викторину в статус closed
	Close(quizID string) error
	Delete(id string) error
	// DeleteOrphaned удаляет викторины без создателя, возвращает количество удаленных
	DeleteOrphaned() (int64, error)
}
