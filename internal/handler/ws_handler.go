package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/yourusername/classquiz-api/internal/service"
	"github.com/yourusername/classquiz-api/internal/websocket"
	"github.com/yourusername/classquiz-api/pkg/auth"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsHub       *websocket.Hub
	wsManager   *websocket.Manager
	roomManager *service.RoomManager
	jwtService  *auth.JWTService
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	wsHub *websocket.Hub,
	wsManager *websocket.Manager,
	roomManager *service.RoomManager,
	jwtService *auth.JWTService,
) *WSHandler {
	handler := &WSHandler{
		wsHub:       wsHub,
		wsManager:   wsManager,
		roomManager: roomManager,
		jwtService:  jwtService,
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()

	return handler
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		// Если Origin пустой - это не браузерный клиент (curl, тесты и т.д.)
		// Разрешаем такие подключения
		if origin == "" {
			return true
		}

		// Список разрешенных origin (синхронизирован с CORS в main.go)
		allowedOrigins := []string{
			"http://localhost:5173",
			"http://localhost:3000",
			"http://localhost:8000",
		}

		for _, allowed := range allowedOrigins {
			if origin == allowed {
				return true
			}
		}

		log.Printf("WebSocket: rejected unauthorized origin: %s", origin)
		return false
	},
	EnableCompression: true,
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Аутентификация выполняется по JWT в query-параметре token, потому что
// браузерный WebSocket API не позволяет выставлять заголовки.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing authentication token parameter"})
		return
	}

	claims, err := h.jwtService.ParseToken(token)
	if err != nil {
		log.Printf("WebSocket: Invalid or expired token - %v", err)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Error upgrading connection: %v", err)
		return
	}

	log.Printf("WebSocket: Connection upgraded for UserID: %s", claims.UserID)

	client := websocket.NewClient(h.wsHub, conn, claims.UserID, claims.Name)

	client.StartPumps(h.wsManager.HandleMessage)
}

// registerMessageHandlers регистрирует обработчики для различных типов сообщений
func (h *WSHandler) registerMessageHandlers() {
	// Ученик входит в комнату викторины
	h.wsManager.RegisterHandler(websocket.JOIN_QUIZ, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			QuizID    string `json:"quizId"`
			QuizTitle string `json:"quizTitle"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("[WSHandler] Ошибка парсинга joinQuiz: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse joinQuiz event")
			return fmt.Errorf("failed to parse joinQuiz event: %w", err)
		}
		if event.QuizID == "" {
			h.wsManager.SendErrorToClient(client, "invalid_format", "quizId is required")
			return nil
		}

		// Подписываем до входа в комнату, чтобы сам вошедший
		// получил свое же событие userJoined
		h.wsManager.SubscribeClientToQuiz(client, event.QuizID)
		h.roomManager.HandleJoin(client.ConnectionID, client.UserID, client.Name, event.QuizID, event.QuizTitle)
		return nil
	})

	// Ученик отвечает на вопрос
	h.wsManager.RegisterHandler(websocket.SUBMIT_ANSWER, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			QuizID         string `json:"quizId"`
			QuestionIndex  int    `json:"questionIndex"`
			SelectedOption string `json:"selectedOption"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("[WSHandler] Ошибка парсинга submitAnswer: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse submitAnswer event")
			return fmt.Errorf("failed to parse submitAnswer event: %w", err)
		}

		h.roomManager.HandleAnswer(client.UserID, event.QuizID, event.QuestionIndex, event.SelectedOption)
		return nil
	})

	// Ученик завершает викторину
	h.wsManager.RegisterHandler(websocket.COMPLETE_QUIZ, func(data json.RawMessage, client *websocket.Client) error {
		var event struct {
			QuizID     string  `json:"quizId"`
			Score      int     `json:"score"`
			Total      int     `json:"total"`
			Percentage float64 `json:"percentage"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			log.Printf("[WSHandler] Ошибка парсинга completeQuiz: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse completeQuiz event")
			return fmt.Errorf("failed to parse completeQuiz event: %w", err)
		}

		h.roomManager.HandleComplete(client.UserID, client.Name, event.QuizID, event.Score, event.Total, event.Percentage)
		return nil
	})
}
