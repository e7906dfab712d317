package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// HubConfig содержит настройки хаба
type HubConfig struct {
	ClientSendBuffer int
	BroadcastBuffer  int
	RegisterBuffer   int
	UnregisterBuffer int
}

// DefaultHubConfig возвращает конфигурацию хаба по умолчанию
func DefaultHubConfig() HubConfig {
	return HubConfig{
		ClientSendBuffer: defaultClientBufferSize,
		BroadcastBuffer:  128,
		RegisterBuffer:   32,
		UnregisterBuffer: 32,
	}
}

// Hub управляет всеми WebSocket клиентами и рассылкой сообщений.
// Все мутации карт клиентов сериализуются через цикл Run.
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Карта UserID -> набор соединений этого пользователя
	userMap map[string]map[*Client]struct{}

	// Индекс подписок на викторины: quizID -> набор клиентов
	quizSubscriptions map[string]map[*Client]struct{}

	// Обратный индекс: клиент -> quizID его текущей подписки
	clientQuiz map[*Client]string

	// Мьютекс для карт (читатели: Broadcast*, SendToUser; писатели: Run, Subscribe*)
	mu sync.RWMutex

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	clientBufferSize int

	// disconnectListener вызывается после отмены регистрации клиента.
	// Вызов происходит вне блокировки хаба.
	disconnectListener func(connectionID string)

	// Метрики
	messagesSent  int64
	totalRegister int64
	metricsMu     sync.Mutex
}

// NewHub создает новый хаб
func NewHub(config HubConfig) *Hub {
	if config.ClientSendBuffer <= 0 {
		config.ClientSendBuffer = defaultClientBufferSize
	}
	if config.BroadcastBuffer <= 0 {
		config.BroadcastBuffer = 128
	}
	if config.RegisterBuffer <= 0 {
		config.RegisterBuffer = 32
	}
	if config.UnregisterBuffer <= 0 {
		config.UnregisterBuffer = 32
	}

	return &Hub{
		clients:           make(map[*Client]bool),
		userMap:           make(map[string]map[*Client]struct{}),
		quizSubscriptions: make(map[string]map[*Client]struct{}),
		clientQuiz:        make(map[*Client]string),
		broadcast:         make(chan []byte, config.BroadcastBuffer),
		register:          make(chan *Client, config.RegisterBuffer),
		unregister:        make(chan *Client, config.UnregisterBuffer),
		done:              make(chan struct{}),
		clientBufferSize:  config.ClientSendBuffer,
	}
}

// SetDisconnectListener устанавливает обработчик отключения клиента.
// Должен вызываться до запуска Run.
func (h *Hub) SetDisconnectListener(listener func(connectionID string)) {
	h.disconnectListener = listener
}

// Run запускает цикл обработки событий хаба
func (h *Hub) Run() {
	log.Println("[Hub] Цикл обработки событий запущен")
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case message := <-h.broadcast:
			h.handleBroadcast(message)
		case <-h.done:
			log.Println("[Hub] Получен сигнал завершения работы, останавливаемся")
			h.closeAllClients()
			return
		}
	}
}

// Shutdown останавливает цикл обработки и закрывает все соединения
func (h *Hub) Shutdown() {
	close(h.done)
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	conns, ok := h.userMap[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.userMap[client.UserID] = conns
	}
	conns[client] = struct{}{}
	client.lastActivity = time.Now()
	h.mu.Unlock()

	h.metricsMu.Lock()
	h.totalRegister++
	h.metricsMu.Unlock()

	log.Printf("[Hub] Client %s registered (Conn: %s)", client.UserID, client.ConnectionID)
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	_, registered := h.clients[client]
	if registered {
		delete(h.clients, client)
		if conns, ok := h.userMap[client.UserID]; ok {
			delete(conns, client)
			if len(conns) == 0 {
				delete(h.userMap, client.UserID)
			}
		}
		h.removeQuizSubscriptionLocked(client)
	}
	h.mu.Unlock()

	if !registered {
		return
	}

	client.CloseSend()
	log.Printf("[Hub] Client %s unregistered (Conn: %s)", client.UserID, client.ConnectionID)

	// Уведомляем слушателя отключений вне блокировки хаба
	if h.disconnectListener != nil {
		h.disconnectListener(client.ConnectionID)
	}
}

func (h *Hub) handleBroadcast(message []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, message)
	}
}

// deliver пытается положить сообщение в буфер клиента без блокировки.
// Переполненный буфер означает мертвое или безнадежно отставшее соединение,
// такой клиент отключается.
func (h *Hub) deliver(client *Client, message []byte) {
	if client.IsSendClosed() {
		return
	}
	select {
	case client.send <- message:
		h.metricsMu.Lock()
		h.messagesSent++
		h.metricsMu.Unlock()
	default:
		log.Printf("[Hub] Send buffer full for client %s (Conn: %s), disconnecting (message type %s)",
			client.UserID, client.ConnectionID, messageTypeFromBytes(message))
		if client.conn != nil {
			client.conn.Close()
		}
		// Отмена регистрации асинхронно: deliver вызывается и из цикла Run,
		// и из горутин рассылки, которые могут держать чужие блокировки
		go h.handleUnregister(client)
	}
}

// SubscribeToQuiz подписывает клиента на сообщения викторины.
// Повторная подписка переносит клиента в новую викторину.
func (h *Hub) SubscribeToQuiz(client *Client, quizID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeQuizSubscriptionLocked(client)

	subs, ok := h.quizSubscriptions[quizID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.quizSubscriptions[quizID] = subs
	}
	subs[client] = struct{}{}
	h.clientQuiz[client] = quizID

	log.Printf("[Hub] Client %s subscribed to quiz %s", client.UserID, quizID)
}

// UnsubscribeFromQuiz отписывает клиента от его текущей викторины
func (h *Hub) UnsubscribeFromQuiz(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeQuizSubscriptionLocked(client)
}

// removeQuizSubscriptionLocked удаляет подписку клиента. Вызывается под h.mu.
func (h *Hub) removeQuizSubscriptionLocked(client *Client) {
	quizID, ok := h.clientQuiz[client]
	if !ok {
		return
	}
	delete(h.clientQuiz, client)
	if subs, ok := h.quizSubscriptions[quizID]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.quizSubscriptions, quizID)
		}
	}
}

// BroadcastToQuiz отправляет байтовое сообщение клиентам, подписанным на викторину
func (h *Hub) BroadcastToQuiz(quizID string, message []byte) {
	h.mu.RLock()
	subs := h.quizSubscriptions[quizID]
	targets := make([]*Client, 0, len(subs))
	for client := range subs {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		h.deliver(client, message)
	}
}

// Broadcast отправляет байтовое сообщение всем клиентам через цикл Run
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("[Hub] Broadcast buffer full, dropping message type %s", messageTypeFromBytes(message))
	}
}

// BroadcastJSON отправляет структуру JSON всем клиентам
func (h *Hub) BroadcastJSON(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal broadcast message: %w", err)
	}
	h.Broadcast(data)
	return nil
}

// SendToUser отправляет байтовое сообщение всем соединениям пользователя
func (h *Hub) SendToUser(userID string, message []byte) bool {
	h.mu.RLock()
	conns := h.userMap[userID]
	targets := make([]*Client, 0, len(conns))
	for client := range conns {
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return false
	}
	for _, client := range targets {
		h.deliver(client, message)
	}
	return true
}

// SendJSONToUser отправляет структуру JSON конкретному пользователю
func (h *Hub) SendJSONToUser(userID string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message for user %s: %w", userID, err)
	}
	if !h.SendToUser(userID, data) {
		return fmt.Errorf("user %s is not connected", userID)
	}
	return nil
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	h.metricsMu.Lock()
	sent := h.messagesSent
	registered := h.totalRegister
	h.metricsMu.Unlock()

	h.mu.RLock()
	clientCount := len(h.clients)
	quizCount := len(h.quizSubscriptions)
	h.mu.RUnlock()

	return map[string]interface{}{
		"client_count":       clientCount,
		"quiz_subscriptions": quizCount,
		"messages_sent":      sent,
		"total_registered":   registered,
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clients = make(map[*Client]bool)
	h.userMap = make(map[string]map[*Client]struct{})
	h.quizSubscriptions = make(map[string]map[*Client]struct{})
	h.clientQuiz = make(map[*Client]string)
	h.mu.Unlock()

	for _, client := range clients {
		client.CloseSend()
		client.conn.Close()
	}
	log.Printf("[Hub] Закрыто %d клиентских соединений", len(clients))
}
