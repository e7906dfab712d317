package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Константы статусов викторины
const (
	QuizStatusDraft  = "draft"
	QuizStatusActive = "active"
	QuizStatusClosed = "closed"
)

// Уровни сложности
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question представляет один вопрос викторины.
// Вопросы хранятся встроенными в документ викторины (JSONB-колонка),
// поэтому у них нет собственной таблицы и собственного ID.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
}

// QuestionList -- JSONB-обертка для списка вопросов
type QuestionList []Question

// Value сериализует список вопросов для записи в JSONB-колонку
func (q QuestionList) Value() (driver.Value, error) {
	if q == nil {
		return "[]", nil
	}
	data, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan десериализует JSONB-колонку в список вопросов
func (q *QuestionList) Scan(value interface{}) error {
	if value == nil {
		*q = QuestionList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for QuestionList: %T", value)
	}

	return json.Unmarshal(data, q)
}

// Quiz представляет викторину, созданную учителем
type Quiz struct {
	ID          string       `gorm:"type:uuid;primaryKey" json:"id"`
	Title       string       `gorm:"size:200;not null" json:"title"`
	Topic       string       `gorm:"size:100;not null" json:"topic"`
	Subject     string       `gorm:"size:100;not null;default:'general'" json:"subject"`
	Difficulty  string       `gorm:"size:20;not null;default:'easy'" json:"difficulty"`
	IsActive    bool         `gorm:"not null;default:false;index" json:"is_active"`
	Status      string       `gorm:"size:20;not null;default:'draft';index" json:"status"`
	CreatedBy   string       `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator     *User        `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	Questions   QuestionList `gorm:"type:jsonb;not null;default:'[]'" json:"questions"`
	CreatedByAI bool         `gorm:"not null;default:false" json:"created_by_ai"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Quiz) TableName() string {
	return "quizzes"
}

// BeforeCreate генерирует UUID перед вставкой
func (q *Quiz) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// IsDraft проверяет, является ли викторина черновиком
func (q *Quiz) IsDraft() bool {
	return q.Status == QuizStatusDraft
}

// IsClosed проверяет, завершена ли викторина
func (q *Quiz) IsClosed() bool {
	return q.Status == QuizStatusClosed
}

// GradeAnswer проверяет ответ на вопрос с индексом idx.
// Сравнение выполняется после обрезки пробелов с обеих сторон,
// как и в веб-клиенте: регистр значим.
func (q *Quiz) GradeAnswer(idx int, submitted string) bool {
	if idx < 0 || idx >= len(q.Questions) {
		return false
	}
	if strings.TrimSpace(submitted) == "" {
		return false
	}
	return strings.TrimSpace(submitted) == strings.TrimSpace(q.Questions[idx].CorrectAnswer)
}
