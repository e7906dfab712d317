package service

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ws "github.com/yourusername/classquiz-api/internal/websocket"
)

// recordedEvent одно перехваченное событие рассылки
type recordedEvent struct {
	QuizID string
	Type   string
	Data   interface{}
}

// fakeBroadcaster перехватывает рассылки вместо отправки по сети
type fakeBroadcaster struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (b *fakeBroadcaster) BroadcastEventToQuiz(quizID string, eventType string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, recordedEvent{QuizID: quizID, Type: eventType, Data: data})
	return nil
}

func (b *fakeBroadcaster) eventsOfType(eventType string) []recordedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var filtered []recordedEvent
	for _, e := range b.events {
		if e.Type == eventType {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

func (b *fakeBroadcaster) lastEvent() (recordedEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) == 0 {
		return recordedEvent{}, false
	}
	return b.events[len(b.events)-1], true
}

func newTestRoomManager() (*RoomManager, *fakeBroadcaster) {
	broadcaster := &fakeBroadcaster{}
	return NewRoomManager(broadcaster), broadcaster
}

func TestRoomManager_Join_BroadcastsIncreasingCounts(t *testing.T) {
	// Arrange
	rm, broadcaster := newTestRoomManager()

	// Act: N разных учеников заходят в одну викторину
	for i := 1; i <= 5; i++ {
		rm.HandleJoin(
			fmt.Sprintf("conn-%d", i),
			fmt.Sprintf("user-%d", i),
			"",
			"quiz-1", "Алгебра",
		)
	}

	// Assert
	assert.Equal(t, 5, rm.ParticipantCount("quiz-1"))

	joins := broadcaster.eventsOfType(ws.USER_JOINED)
	require.Len(t, joins, 5)
	for i, event := range joins {
		payload := event.Data.(UserJoinedPayload)
		assert.Equal(t, i+1, payload.ParticipantCount, "Рассылка должна нести счетчик на момент входа")
		assert.Equal(t, fmt.Sprintf("user-%d", i+1), payload.UserID)
	}
}

func TestRoomManager_Rejoin_PreservesAnswers(t *testing.T) {
	// Arrange
	rm, _ := newTestRoomManager()
	rm.HandleJoin("conn-old", "user-1", "Anna", "quiz-1", "Алгебра")
	rm.HandleAnswer("user-1", "quiz-1", 0, "B")
	rm.HandleAnswer("user-1", "quiz-1", 3, "D")

	// Act: перезагрузка страницы, тот же ученик с новым соединением
	rm.HandleJoin("conn-new", "user-1", "Anna", "quiz-1", "Алгебра")

	// Assert: участник один, ответы сохранены
	assert.Equal(t, 1, rm.ParticipantCount("quiz-1"))

	room, ok := rm.registry.GetRoom("quiz-1")
	require.True(t, ok)
	participant := room.Participants["user-1"]
	require.NotNil(t, participant)
	assert.Equal(t, "conn-new", participant.ConnectionID, "Новое соединение вытесняет старое")
	assert.Equal(t, "B", participant.Answers[0])
	assert.Equal(t, "D", participant.Answers[3])
}

func TestRoomManager_StaleDisconnect_DoesNotRemoveParticipant(t *testing.T) {
	// Arrange: участник переподключился, старое соединение еще не закрыто
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-old", "user-1", "", "quiz-1", "Алгебра")
	rm.HandleJoin("conn-new", "user-1", "", "quiz-1", "Алгебра")

	// Act: запоздалое отключение вытесненного соединения
	rm.HandleDisconnect("conn-old")

	// Assert: участник не удален, userLeft не рассылается
	assert.Equal(t, 1, rm.ParticipantCount("quiz-1"))
	assert.Empty(t, broadcaster.eventsOfType(ws.USER_LEFT))

	// Отключение актуального соединения удаляет участника
	rm.HandleDisconnect("conn-new")
	assert.Equal(t, 0, rm.ParticipantCount("quiz-1"))
}

func TestRoomManager_Disconnect_RemovesParticipantAndBroadcasts(t *testing.T) {
	// Arrange
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")
	rm.HandleJoin("conn-2", "user-2", "", "quiz-1", "Алгебра")

	// Act
	rm.HandleDisconnect("conn-1")

	// Assert
	assert.Equal(t, 1, rm.ParticipantCount("quiz-1"))

	lefts := broadcaster.eventsOfType(ws.USER_LEFT)
	require.Len(t, lefts, 1)
	payload := lefts[0].Data.(UserLeftPayload)
	assert.Equal(t, "user-1", payload.UserID)
	assert.Equal(t, 1, payload.ParticipantCount)
}

func TestRoomManager_LastDisconnect_DeletesRoom(t *testing.T) {
	// Arrange
	rm, _ := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")
	require.Equal(t, 1, rm.RoomCount())

	// Act
	rm.HandleDisconnect("conn-1")

	// Assert: опустевшая комната удалена
	assert.Equal(t, 0, rm.RoomCount())
	_, ok := rm.registry.GetRoom("quiz-1")
	assert.False(t, ok)
}

func TestRoomManager_UnknownDisconnect_NoOp(t *testing.T) {
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")

	rm.HandleDisconnect("conn-unknown")

	assert.Equal(t, 1, rm.ParticipantCount("quiz-1"))
	assert.Empty(t, broadcaster.eventsOfType(ws.USER_LEFT))
}

func TestRoomManager_SubmitAnswer_OverwritesSameIndex(t *testing.T) {
	// Arrange
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")

	// Act: повторная отправка по тому же индексу
	rm.HandleAnswer("user-1", "quiz-1", 2, "A")
	rm.HandleAnswer("user-1", "quiz-1", 2, "C")

	// Assert: хранится только последнее значение
	room, ok := rm.registry.GetRoom("quiz-1")
	require.True(t, ok)
	assert.Equal(t, "C", room.Participants["user-1"].Answers[2])

	updates := broadcaster.eventsOfType(ws.QUIZ_UPDATE)
	require.Len(t, updates, 2)
	payload := updates[0].Data.(QuizUpdatePayload)
	assert.Equal(t, "quiz-1", payload.QuizID)
	assert.Equal(t, 1, payload.ActiveParticipants)
}

func TestRoomManager_SubmitAnswer_UnknownQuizOrUser_SilentlyDropped(t *testing.T) {
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")
	broadcaster.events = nil

	// Неизвестная викторина и неизвестный участник не вызывают ни мутаций, ни рассылок
	rm.HandleAnswer("user-1", "missing-quiz", 0, "A")
	rm.HandleAnswer("stranger", "quiz-1", 0, "A")

	assert.Empty(t, broadcaster.events)
	room, _ := rm.registry.GetRoom("quiz-1")
	assert.Empty(t, room.Participants["user-1"].Answers)
}

func TestRoomManager_Complete_BroadcastsRankedLeaderboard(t *testing.T) {
	// Arrange
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-a", "A", "Anna", "quiz-1", "Алгебра")
	rm.HandleJoin("conn-b", "B", "Boris", "quiz-1", "Алгебра")
	rm.HandleJoin("conn-c", "C", "Clara", "quiz-1", "Алгебра")

	// Act: A и C завершают с одинаковым результатом, B с лучшим
	rm.HandleComplete("A", "Anna", "quiz-1", 8, 10, 80)
	rm.HandleComplete("B", "Boris", "quiz-1", 9, 10, 90)
	rm.HandleComplete("C", "Clara", "quiz-1", 8, 10, 80)

	// Assert: последняя рассылка содержит полную таблицу
	event, ok := broadcaster.lastEvent()
	require.True(t, ok)
	require.Equal(t, ws.LEADERBOARD_UPDATE, event.Type)

	payload := event.Data.(LeaderboardUpdatePayload)
	assert.Equal(t, 3, payload.TotalParticipants)
	assert.Equal(t, 3, payload.CompletedCount)

	require.Len(t, payload.Scores, 3)
	assert.Equal(t, "B", payload.Scores[0].UserID, "Лучший результат должен быть первым")
	assert.Equal(t, 1, payload.Scores[0].Rank)
	assert.Equal(t, "A", payload.Scores[1].UserID, "Ничья A и C решается порядком завершения")
	assert.Equal(t, 2, payload.Scores[1].Rank)
	assert.Equal(t, "C", payload.Scores[2].UserID)
	assert.Equal(t, 3, payload.Scores[2].Rank)
}

func TestRoomManager_DoubleComplete_AppendsBothEntries(t *testing.T) {
	// Arrange
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")

	// Act: повторное завершение не дедуплицируется
	rm.HandleComplete("user-1", "", "quiz-1", 5, 10, 50)
	rm.HandleComplete("user-1", "", "quiz-1", 7, 10, 70)

	// Assert
	event, ok := broadcaster.lastEvent()
	require.True(t, ok)
	payload := event.Data.(LeaderboardUpdatePayload)
	assert.Equal(t, 2, payload.CompletedCount, "Обе записи результата сохраняются")
	require.Len(t, payload.Scores, 2)
	assert.Equal(t, 7, payload.Scores[0].Score)
	assert.Equal(t, 5, payload.Scores[1].Score)
}

func TestRoomManager_EndToEndScenario(t *testing.T) {
	// Arrange: сценарий комнаты Q1 целиком
	rm, broadcaster := newTestRoomManager()

	// Act
	rm.HandleJoin("conn-1", "U1", "", "Q1", "Algebra")
	rm.HandleJoin("conn-2", "U2", "", "Q1", "Algebra")
	rm.HandleComplete("U1", "", "Q1", 9, 10, 90)
	rm.HandleComplete("U2", "", "Q1", 7, 10, 70)

	// Assert
	event, ok := broadcaster.lastEvent()
	require.True(t, ok)
	require.Equal(t, ws.LEADERBOARD_UPDATE, event.Type)

	payload := event.Data.(LeaderboardUpdatePayload)
	assert.Equal(t, "Q1", payload.QuizID)
	assert.Equal(t, 2, payload.TotalParticipants)
	assert.Equal(t, 2, payload.CompletedCount)

	require.Len(t, payload.Scores, 2)
	assert.Equal(t, 1, payload.Scores[0].Rank)
	assert.Equal(t, "U1", payload.Scores[0].UserID)
	assert.Equal(t, 9, payload.Scores[0].Score)
	assert.Equal(t, 2, payload.Scores[1].Rank)
	assert.Equal(t, "U2", payload.Scores[1].UserID)
	assert.Equal(t, 7, payload.Scores[1].Score)

	// UserName фолбэк - усеченный userID
	assert.Equal(t, "User U1", payload.Scores[0].UserName)
}

func TestRoomManager_Complete_UnknownParticipant_SilentlyDropped(t *testing.T) {
	rm, broadcaster := newTestRoomManager()
	rm.HandleJoin("conn-1", "user-1", "", "quiz-1", "Алгебра")
	broadcaster.events = nil

	rm.HandleComplete("stranger", "", "quiz-1", 10, 10, 100)

	assert.Empty(t, broadcaster.events, "Завершение от неизвестного участника молча отбрасывается")
}
