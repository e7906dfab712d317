package websocket

// MetricsProvider определяет метод для получения метрик хаба.
type MetricsProvider interface {
	GetMetrics() map[string]interface{}
	ClientCount() int
}

// HubInterface объединяет возможности для Manager.
// Это каноническое определение интерфейса хаба.
type HubInterface interface {
	// BroadcastJSON отправляет структуру JSON всем клиентам
	BroadcastJSON(v interface{}) error

	// BroadcastToQuiz отправляет байтовое сообщение клиентам, подписанным на викторину
	BroadcastToQuiz(quizID string, message []byte)

	// SendJSONToUser отправляет структуру JSON конкретному пользователю
	SendJSONToUser(userID string, v interface{}) error

	// SendToUser отправляет байтовое сообщение конкретному пользователю
	SendToUser(userID string, message []byte) bool

	// SubscribeToQuiz подписывает клиента на сообщения викторины
	SubscribeToQuiz(client *Client, quizID string)

	// UnsubscribeFromQuiz отписывает клиента от его текущей викторины
	UnsubscribeFromQuiz(client *Client)

	// GetMetrics возвращает метрики хаба
	GetMetrics() map[string]interface{}

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
