package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttemptAnswer представляет один выбранный учеником вариант ответа
type AttemptAnswer struct {
	QuestionIndex  int    `json:"questionIndex"`
	SelectedOption string `json:"selectedOption"`
}

// AttemptAnswerList -- JSONB-обертка для ответов попытки
type AttemptAnswerList []AttemptAnswer

// Value сериализует ответы для записи в JSONB-колонку
func (a AttemptAnswerList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan десериализует JSONB-колонку в ответы попытки
func (a *AttemptAnswerList) Scan(value interface{}) error {
	if value == nil {
		*a = AttemptAnswerList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for AttemptAnswerList: %T", value)
	}

	return json.Unmarshal(data, a)
}

// Пороговые значения для простого правила обнаружения списывания:
// три копирования или три переключения вкладок помечают попытку.
const (
	CheatingCopyThreshold      = 3
	CheatingTabSwitchThreshold = 3
)

// QuizAttempt представляет завершенную попытку прохождения викторины.
// CheatingPercentage -- вероятность списывания (0-100) от внешнего
// ML-классификатора; правило CheatingDetected() работает независимо от него.
type QuizAttempt struct {
	ID                 string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID             string            `gorm:"type:uuid;not null;index" json:"user_id"`
	User               *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	QuizID             string            `gorm:"type:uuid;not null;index" json:"quiz_id"`
	Quiz               *Quiz             `gorm:"foreignKey:QuizID" json:"quiz,omitempty"`
	Answers            AttemptAnswerList `gorm:"type:jsonb;not null;default:'[]'" json:"answers"`
	CorrectCount       int               `gorm:"not null" json:"correct_count"`
	WrongCount         int               `gorm:"not null" json:"wrong_count"`
	CopyCount          int               `gorm:"not null;default:0" json:"copy_count"`
	TabSwitchCount     int               `gorm:"not null;default:0" json:"tab_switch_count"`
	TimeTaken          int               `gorm:"not null" json:"time_taken"` // секунды
	CheatingPercentage float64           `gorm:"not null;default:0" json:"cheating_percentage"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// BeforeCreate генерирует UUID перед вставкой
func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// CheatingDetected применяет простое эвристическое правило обнаружения списывания
func (a *QuizAttempt) CheatingDetected() bool {
	return a.CopyCount >= CheatingCopyThreshold || a.TabSwitchCount >= CheatingTabSwitchThreshold
}
