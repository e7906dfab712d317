package websocket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(clientBuffer int) *Hub {
	cfg := DefaultHubConfig()
	cfg.ClientSendBuffer = clientBuffer
	return NewHub(cfg)
}

// registerTestClient создает клиента без живого соединения и регистрирует его
func registerTestClient(h *Hub, userID, name string) *Client {
	client := NewClient(h, nil, userID, name)
	h.handleRegister(client)
	return client
}

// receivedMessage возвращает сообщение из буфера клиента, если оно там есть
func receivedMessage(c *Client) ([]byte, bool) {
	select {
	case msg := <-c.send:
		return msg, true
	default:
		return nil, false
	}
}

func TestHub_BroadcastToQuiz_OnlySubscribedClients(t *testing.T) {
	// Arrange: два клиента в разных викторинах и один без подписки
	h := newTestHub(4)
	inRoom := registerTestClient(h, "U1", "Анна")
	otherRoom := registerTestClient(h, "U2", "Борис")
	unsubscribed := registerTestClient(h, "U3", "Вера")

	h.SubscribeToQuiz(inRoom, "quiz-1")
	h.SubscribeToQuiz(otherRoom, "quiz-2")

	// Act
	h.BroadcastToQuiz("quiz-1", []byte(`{"type":"userJoined"}`))

	// Assert: сообщение получил только подписчик quiz-1
	msg, ok := receivedMessage(inRoom)
	require.True(t, ok, "Подписчик викторины должен получить сообщение")
	assert.Contains(t, string(msg), "userJoined")

	_, ok = receivedMessage(otherRoom)
	assert.False(t, ok, "Подписчик другой викторины не должен получить сообщение")
	_, ok = receivedMessage(unsubscribed)
	assert.False(t, ok, "Клиент без подписки не должен получить сообщение")
}

func TestHub_SubscribeToQuiz_ResubscribeMovesClient(t *testing.T) {
	// Arrange: клиент подписан на quiz-1
	h := newTestHub(4)
	client := registerTestClient(h, "U1", "Анна")
	h.SubscribeToQuiz(client, "quiz-1")

	// Act: повторная подписка переносит клиента в quiz-2
	h.SubscribeToQuiz(client, "quiz-2")

	// Assert: рассылка в старую викторину не доходит, в новую доходит
	h.BroadcastToQuiz("quiz-1", []byte(`{"type":"quizUpdate"}`))
	_, ok := receivedMessage(client)
	assert.False(t, ok, "Клиент не должен получать сообщения старой викторины")

	h.BroadcastToQuiz("quiz-2", []byte(`{"type":"quizUpdate"}`))
	_, ok = receivedMessage(client)
	assert.True(t, ok, "Клиент должен получать сообщения новой викторины")

	// Пустой индекс старой викторины удален
	h.mu.RLock()
	_, exists := h.quizSubscriptions["quiz-1"]
	h.mu.RUnlock()
	assert.False(t, exists, "Пустая подписка должна быть удалена")
}

func TestHub_Deliver_BufferOverflowDisconnectsClient(t *testing.T) {
	// Arrange: буфер на одно сообщение, слушатель отключений
	h := newTestHub(1)
	disconnected := make(chan string, 1)
	h.SetDisconnectListener(func(connectionID string) {
		disconnected <- connectionID
	})

	client := registerTestClient(h, "U1", "Анна")
	h.SubscribeToQuiz(client, "quiz-1")
	require.Equal(t, 1, h.ClientCount())

	// Act: второе сообщение переполняет буфер
	h.BroadcastToQuiz("quiz-1", []byte(`{"type":"quizUpdate"}`))
	h.BroadcastToQuiz("quiz-1", []byte(`{"type":"quizUpdate"}`))

	// Assert: клиент отключается, а не остается зарегистрированным
	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 10*time.Millisecond, "Переполнение буфера должно отключить клиента")

	select {
	case connID := <-disconnected:
		assert.Equal(t, client.ConnectionID, connID, "Слушатель должен получить ConnectionID отключенного клиента")
	case <-time.After(time.Second):
		t.Fatal("Слушатель отключений не был вызван")
	}

	assert.True(t, client.IsSendClosed(), "Канал отправки должен быть закрыт")

	// Подписка переполнившегося клиента снята
	h.mu.RLock()
	_, exists := h.quizSubscriptions["quiz-1"]
	h.mu.RUnlock()
	assert.False(t, exists)
}

func TestHub_Deliver_OverflowDisconnectsOnlyLaggedClient(t *testing.T) {
	// Arrange: отстающий и здоровый клиенты в одной викторине
	h := newTestHub(1)
	lagged := registerTestClient(h, "U1", "Анна")
	healthy := registerTestClient(h, "U2", "Борис")
	h.SubscribeToQuiz(lagged, "quiz-1")
	h.SubscribeToQuiz(healthy, "quiz-1")

	// Заполняем буфер отстающего клиента
	lagged.send <- []byte(`{"type":"quizUpdate"}`)

	// Act
	h.BroadcastToQuiz("quiz-1", []byte(`{"type":"leaderboardUpdate"}`))

	// Assert: отключен только отстающий
	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	msg, ok := receivedMessage(healthy)
	require.True(t, ok, "Здоровый клиент должен получить сообщение")
	assert.Contains(t, string(msg), "leaderboardUpdate")
	assert.False(t, healthy.IsSendClosed())
}

func TestHub_SendToUser_AllConnectionsOfUser(t *testing.T) {
	// Arrange: два соединения одного пользователя и чужое соединение
	h := newTestHub(4)
	first := registerTestClient(h, "U1", "Анна")
	second := registerTestClient(h, "U1", "Анна")
	other := registerTestClient(h, "U2", "Борис")

	// Act
	delivered := h.SendToUser("U1", []byte(`{"type":"server:error"}`))

	// Assert
	require.True(t, delivered)
	_, ok := receivedMessage(first)
	assert.True(t, ok, "Первое соединение пользователя должно получить сообщение")
	_, ok = receivedMessage(second)
	assert.True(t, ok, "Второе соединение пользователя должно получить сообщение")
	_, ok = receivedMessage(other)
	assert.False(t, ok, "Чужое соединение не должно получить сообщение")
}

func TestHub_SendToUser_UnknownUser(t *testing.T) {
	h := newTestHub(4)

	delivered := h.SendToUser("missing", []byte(`{}`))

	assert.False(t, delivered, "Отправка неизвестному пользователю должна вернуть false")
}

func TestHub_Unregister_CleansSubscriptions(t *testing.T) {
	// Arrange
	h := newTestHub(4)
	client := registerTestClient(h, "U1", "Анна")
	h.SubscribeToQuiz(client, "quiz-1")

	// Act
	h.handleUnregister(client)

	// Assert
	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, client.IsSendClosed())

	h.mu.RLock()
	_, subExists := h.quizSubscriptions["quiz-1"]
	_, userExists := h.userMap["U1"]
	h.mu.RUnlock()
	assert.False(t, subExists, "Подписка должна быть удалена при отмене регистрации")
	assert.False(t, userExists, "Запись в userMap должна быть удалена")

	// Повторная отмена регистрации безопасна
	h.handleUnregister(client)
	assert.Equal(t, 0, h.ClientCount())
}

func TestHub_RunLoop_GlobalBroadcast(t *testing.T) {
	// Arrange: хаб с работающим циклом обработки
	h := newTestHub(4)
	go h.Run()
	defer h.Shutdown()

	client := NewClient(h, nil, "U1", "Анна")
	h.register <- client

	require.Eventually(t, func() bool {
		return h.ClientCount() == 1
	}, time.Second, 10*time.Millisecond)

	// Act: глобальная рассылка идет через канал broadcast
	h.Broadcast([]byte(`{"type":"quizStarted"}`))

	// Assert
	require.Eventually(t, func() bool {
		msg, ok := receivedMessage(client)
		return ok && string(msg) == `{"type":"quizStarted"}`
	}, time.Second, 10*time.Millisecond, "Клиент должен получить глобальное сообщение")
}
