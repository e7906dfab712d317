package service

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yourusername/classquiz-api/internal/service/roommanager"
	ws "github.com/yourusername/classquiz-api/internal/websocket"
)

// QuizBroadcaster рассылает события всем соединениям, подписанным на викторину
type QuizBroadcaster interface {
	BroadcastEventToQuiz(quizID string, eventType string, data interface{}) error
}

// UserJoinedPayload данные события userJoined
type UserJoinedPayload struct {
	UserID           string `json:"userId"`
	ParticipantCount int    `json:"participantCount"`
	Message          string `json:"message"`
}

// UserLeftPayload данные события userLeft
type UserLeftPayload struct {
	UserID           string `json:"userId"`
	ParticipantCount int    `json:"participantCount"`
	Message          string `json:"message"`
}

// QuizUpdatePayload сигнал активности комнаты, содержимое ответа не включается
type QuizUpdatePayload struct {
	QuizID             string    `json:"quizId"`
	ActiveParticipants int       `json:"activeParticipants"`
	Timestamp          time.Time `json:"timestamp"`
}

// LeaderboardUpdatePayload данные события leaderboardUpdate
type LeaderboardUpdatePayload struct {
	QuizID            string                    `json:"quizId"`
	Scores            []roommanager.RankedEntry `json:"scores"`
	TotalParticipants int                       `json:"totalParticipants"`
	CompletedCount    int                       `json:"completedCount"`
}

// RoomManager транслирует входящие события живых сессий в мутации реестра
// комнат и исходящие рассылки.
//
// Все мутации реестра и индекса присутствия сериализуются одним мьютексом:
// последовательность "изменить комнату, разослать счетчик" выполняется
// атомарно, чтобы рассылка не показала устаревшее число участников.
// Сама рассылка неблокирующая, поэтому держать мьютекс на время отправки
// безопасно.
type RoomManager struct {
	mu       sync.Mutex
	registry *roommanager.Registry

	// Индекс присутствия: connectionID -> quizID
	presence map[string]string

	broadcaster QuizBroadcaster
}

// NewRoomManager создает новый менеджер комнат живых сессий
func NewRoomManager(broadcaster QuizBroadcaster) *RoomManager {
	return &RoomManager{
		registry:    roommanager.NewRegistry(),
		presence:    make(map[string]string),
		broadcaster: broadcaster,
	}
}

// HandleJoin обрабатывает присоединение ученика к комнате викторины.
// Повторное присоединение того же userID (например, после перезагрузки
// страницы) не создает второго участника: существующая запись сохраняет
// ответы и результат, а ConnectionID заменяется новым соединением.
func (rm *RoomManager) HandleJoin(connectionID, userID, userName, quizID, quizTitle string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.presence[connectionID] = quizID

	room := rm.registry.GetOrCreateRoom(quizID, quizTitle)

	participant, ok := room.Participants[userID]
	if ok {
		// Переподключение: новое соединение вытесняет старое
		participant.ConnectionID = connectionID
		if userName != "" {
			participant.UserName = userName
		}
	} else {
		room.Participants[userID] = &roommanager.Participant{
			UserID:       userID,
			UserName:     userName,
			ConnectionID: connectionID,
			JoinedAt:     time.Now(),
			Answers:      make(map[int]string),
		}
	}

	log.Printf("[RoomManager] User %s joined quiz %s, room now has %d participants",
		userID, quizID, room.ParticipantCount())

	rm.broadcast(quizID, ws.USER_JOINED, UserJoinedPayload{
		UserID:           userID,
		ParticipantCount: room.ParticipantCount(),
		Message:          fmt.Sprintf("%s joined the quiz", shortID(userID)),
	})
}

// HandleAnswer сохраняет последний выбранный вариант по индексу вопроса.
// Комната или участник могут отсутствовать (гонка с отключением),
// тогда событие молча отбрасывается.
func (rm *RoomManager) HandleAnswer(userID, quizID string, questionIndex int, selectedOption string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.registry.GetRoom(quizID)
	if !ok {
		return
	}
	participant, ok := room.Participants[userID]
	if !ok {
		return
	}

	participant.Answers[questionIndex] = selectedOption

	log.Printf("[RoomManager] User %s submitted answer for question %d in quiz %s",
		userID, questionIndex+1, quizID)

	rm.broadcast(quizID, ws.QUIZ_UPDATE, QuizUpdatePayload{
		QuizID:             quizID,
		ActiveParticipants: room.ParticipantCount(),
		Timestamp:          time.Now(),
	})
}

// HandleComplete фиксирует завершение попытки и рассылает обновленную
// таблицу лидеров. Повторное завершение того же ученика добавляет
// вторую запись результата, дедупликации нет.
func (rm *RoomManager) HandleComplete(userID, userName, quizID string, score, total int, percentage float64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.registry.GetRoom(quizID)
	if !ok {
		return
	}
	participant, ok := room.Participants[userID]
	if !ok {
		return
	}

	now := time.Now()
	participant.Completed = true
	participant.Score = score
	participant.Percentage = percentage
	participant.CompletedAt = now
	if userName == "" {
		userName = participant.UserName
	}

	room.CompletedScores = append(room.CompletedScores, roommanager.ScoreEntry{
		UserID:      userID,
		UserName:    userName,
		Score:       score,
		Total:       total,
		Percentage:  percentage,
		CompletedAt: now,
	})

	log.Printf("[RoomManager] User %s completed quiz %s with score %d/%d",
		userID, quizID, score, total)

	rm.broadcast(quizID, ws.LEADERBOARD_UPDATE, LeaderboardUpdatePayload{
		QuizID:            quizID,
		Scores:            roommanager.Rank(room),
		TotalParticipants: room.ParticipantCount(),
		CompletedCount:    room.CompletedCount(),
	})
}

// HandleDisconnect обрабатывает разрыв соединения. Участник удаляется
// только если его текущий ConnectionID совпадает с отключившимся:
// отключение вытесненного соединения лишь чистит индекс присутствия.
func (rm *RoomManager) HandleDisconnect(connectionID string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	quizID, ok := rm.presence[connectionID]
	if !ok {
		return
	}
	delete(rm.presence, connectionID)

	userID, removed := rm.registry.RemoveByConnection(quizID, connectionID)
	if !removed {
		return
	}

	participantCount := 0
	if room, ok := rm.registry.GetRoom(quizID); ok {
		participantCount = room.ParticipantCount()
	} else {
		log.Printf("[RoomManager] Quiz room %s cleaned up", quizID)
	}

	log.Printf("[RoomManager] User %s left quiz %s, room now has %d participants",
		userID, quizID, participantCount)

	rm.broadcast(quizID, ws.USER_LEFT, UserLeftPayload{
		UserID:           userID,
		ParticipantCount: participantCount,
		Message:          fmt.Sprintf("%s left the quiz", shortID(userID)),
	})
}

// ParticipantCount возвращает число участников комнаты (0 если комнаты нет)
func (rm *RoomManager) ParticipantCount(quizID string) int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	room, ok := rm.registry.GetRoom(quizID)
	if !ok {
		return 0
	}
	return room.ParticipantCount()
}

// RoomCount возвращает число активных комнат
func (rm *RoomManager) RoomCount() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.registry.RoomCount()
}

// broadcast выполняет неблокирующую рассылку события комнате.
// Ошибки рассылки только логируются, обработка событий не прерывается.
func (rm *RoomManager) broadcast(quizID, eventType string, data interface{}) {
	if rm.broadcaster == nil {
		return
	}
	if err := rm.broadcaster.BroadcastEventToQuiz(quizID, eventType, data); err != nil {
		log.Printf("[RoomManager] Failed to broadcast %s to quiz %s: %v", eventType, quizID, err)
	}
}

// shortID возвращает усеченный идентификатор для человекочитаемых сообщений
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
