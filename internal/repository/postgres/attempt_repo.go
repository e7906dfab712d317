package postgres

import (
	"gorm.io/gorm"

	"github.com/yourusername/classquiz-api/internal/domain/entity"
)

// AttemptRepo реализует repository.AttemptRepository
type AttemptRepo struct {
	db *gorm.DB
}

// NewAttemptRepo создает новый репозиторий попыток
func NewAttemptRepo(db *gorm.DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Save сохраняет попытку прохождения викторины
func (r *AttemptRepo) Save(attempt *entity.QuizAttempt) error {
	return r.db.Create(attempt).Error
}

// GetByQuizID возвращает попытки для викторины вместе с данными ученика, от новых к старым
func (r *AttemptRepo) GetByQuizID(quizID string) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.Preload("User").
		Where("quiz_id = ?", quizID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// GetAll возвращает все попытки с данными ученика и викторины
func (r *AttemptRepo) GetAll() ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.Preload("User").Preload("Quiz").
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// GetByUserID возвращает попытки конкретного ученика, от новых к старым
func (r *AttemptRepo) GetByUserID(userID string) ([]entity.QuizAttempt, error) {
	var attempts []entity.QuizAttempt
	err := r.db.Preload("Quiz").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}
