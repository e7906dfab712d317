package roommanager

import (
	"fmt"
	"time"
)

// Room представляет живую сессию одной викторины
type Room struct {
	// QuizID идентификатор викторины (ключ комнаты)
	QuizID string

	// Title отображаемое название викторины, задается при создании
	Title string

	// Participants карта userID -> участник
	Participants map[string]*Participant

	// CompletedScores результаты завершивших участников в порядке поступления
	CompletedScores []ScoreEntry

	// StartTime момент создания комнаты (первый join)
	StartTime time.Time
}

// ParticipantCount возвращает текущее количество участников комнаты
func (r *Room) ParticipantCount() int {
	return len(r.Participants)
}

// CompletedCount возвращает количество завершенных попыток
func (r *Room) CompletedCount() int {
	return len(r.CompletedScores)
}

// Participant представляет живое присутствие одного ученика в комнате
type Participant struct {
	// UserID идентификатор ученика, уникален в пределах комнаты
	UserID string

	// UserName отображаемое имя ученика (может быть пустым)
	UserName string

	// ConnectionID идентификатор текущего живого соединения.
	// У участника ровно одно активное соединение, переподключение заменяет его.
	ConnectionID string

	// JoinedAt момент присоединения
	JoinedAt time.Time

	// Answers последний выбранный вариант по индексу вопроса.
	// Повторная отправка по тому же индексу перезаписывает значение.
	Answers map[int]string

	// Поля завершения, устанавливаются один раз при completeQuiz
	Completed   bool
	Score       int
	Percentage  float64
	CompletedAt time.Time
}

// ScoreEntry данные завершенной попытки для ранжирования.
// Добавляется при completeQuiz и после этого не изменяется.
type ScoreEntry struct {
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completedAt"`
}

// DisplayName возвращает отображаемое имя участника с фолбэком на усеченный userID
func DisplayName(userName, userID string) string {
	if userName != "" {
		return userName
	}
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("User %s", short)
}
