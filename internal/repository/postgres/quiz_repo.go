package postgres

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/yourusername/classquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/classquiz-api/internal/pkg/errors"
)

// QuizRepo реализует repository.QuizRepository
type QuizRepo struct {
	db *gorm.DB
}

// NewQuizRepo создает новый репозиторий викторин
func NewQuizRepo(db *gorm.DB) *QuizRepo {
	return &QuizRepo{db: db}
}

// Create создает новую викторину
func (r *QuizRepo) Create(quiz *entity.Quiz) error {
	return r.db.Create(quiz).Error
}

// GetByID возвращает викторину по ID
func (r *QuizRepo) GetByID(id string) (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("id = ?", id).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// GetActive возвращает активную викторину
func (r *QuizRepo) GetActive() (*entity.Quiz, error) {
	var quiz entity.Quiz
	err := r.db.Where("status = ?", entity.QuizStatusActive).First(&quiz).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &quiz, nil
}

// ListAuthored возвращает все викторины с существующим создателем, от новых к старым
func (r *QuizRepo) ListAuthored() ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Preload("Creator").
		Where("created_by IS NOT NULL AND created_by <> ''").
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// ListByCreator возвращает викторины конкретного учителя, от новых к старым
func (r *QuizRepo) ListByCreator(creatorID string) ([]entity.Quiz, error) {
	var quizzes []entity.Quiz
	err := r.db.Where("created_by = ?", creatorID).
		Order("created_at DESC").
		Find(&quizzes).Error
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

// Update обновляет информацию о викторине
func (r *QuizRepo) Update(quiz *entity.Quiz) error {
	return r.db.Save(quiz).Error
}

// ActivateExclusive атомарно переводит викторину в active и закрывает остальные.
// Правило единственной активной викторины держится на транзакции плюс
// partial unique index idx_quizzes_single_active.
// - 23505 (unique violation) → "другая викторина уже active"
// - RowsAffected == 0 → викторина не найдена
func (r *QuizRepo) ActivateExclusive(quizID string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		// Сначала закрываем все прочие активные викторины
		if err := tx.Model(&entity.Quiz{}).
			Where("status = ? AND id <> ?", entity.QuizStatusActive, quizID).
			Updates(map[string]interface{}{"status": entity.QuizStatusClosed, "is_active": false}).
			Error; err != nil {
			return fmt.Errorf("close previous active quizzes: %w", err)
		}

		result := tx.Model(&entity.Quiz{}).
			Where("id = ?", quizID).
			Updates(map[string]interface{}{"status": entity.QuizStatusActive, "is_active": true})

		if result.Error != nil {
			if isUniqueViolation(result.Error) {
				return fmt.Errorf("%w: another quiz is already active", apperrors.ErrConflict)
			}
			return fmt.Errorf("activate quiz %s failed: %w", quizID, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

// Close переводит викторину в статус closed
func (r *QuizRepo) Close(quizID string) error {
	result := r.db.Model(&entity.Quiz{}).
		Where("id = ?", quizID).
		Updates(map[string]interface{}{"status": entity.QuizStatusClosed, "is_active": false})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Delete удаляет викторину
func (r *QuizRepo) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&entity.Quiz{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteOrphaned удаляет викторины, чей создатель больше не существует
func (r *QuizRepo) DeleteOrphaned() (int64, error) {
	result := r.db.Where(
		"created_by IS NULL OR created_by NOT IN (?)",
		r.db.Model(&entity.User{}).Select("id"),
	).Delete(&entity.Quiz{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
