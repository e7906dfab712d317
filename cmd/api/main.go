package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/classquiz-api/internal/config"
	"github.com/yourusername/classquiz-api/internal/handler"
	"github.com/yourusername/classquiz-api/internal/middleware"
	pgRepo "github.com/yourusername/classquiz-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/classquiz-api/internal/repository/redis"
	"github.com/yourusername/classquiz-api/internal/service"
	ws "github.com/yourusername/classquiz-api/internal/websocket"
	"github.com/yourusername/classquiz-api/pkg/auth"
	"github.com/yourusername/classquiz-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	quizRepo := pgRepo.NewQuizRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Инициализируем JWT сервис
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// Инициализация WebSocket Hub
	hubConfig := ws.DefaultHubConfig()
	if cfg.WebSocket.Buffers.ClientSendBuffer > 0 {
		hubConfig.ClientSendBuffer = cfg.WebSocket.Buffers.ClientSendBuffer
	}
	if cfg.WebSocket.Buffers.BroadcastBuffer > 0 {
		hubConfig.BroadcastBuffer = cfg.WebSocket.Buffers.BroadcastBuffer
	}
	if cfg.WebSocket.Buffers.RegisterBuffer > 0 {
		hubConfig.RegisterBuffer = cfg.WebSocket.Buffers.RegisterBuffer
	}
	if cfg.WebSocket.Buffers.UnregisterBuffer > 0 {
		hubConfig.UnregisterBuffer = cfg.WebSocket.Buffers.UnregisterBuffer
	}

	wsHub := ws.NewHub(hubConfig)
	wsManager := ws.NewManager(wsHub)

	// Комнаты викторин: рассылка идет через wsManager в комнату
	roomManager := service.NewRoomManager(wsManager)

	// Отключение клиента транслируется в выход из комнаты.
	// Слушатель ставится до запуска цикла хаба.
	wsHub.SetDisconnectListener(roomManager.HandleDisconnect)
	go wsHub.Run()

	// Инициализируем сервисы
	authService, err := service.NewAuthService(userRepo, jwtService)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}

	quizService, err := service.NewQuizService(quizRepo, cacheRepo, wsManager)
	if err != nil {
		log.Printf("Failed to initialize QuizService: %v", err)
		os.Exit(1)
	}

	integrityService := service.NewIntegrityService(cfg.Integrity)
	log.Printf("Integrity classifier: %s", integrityService)

	attemptService, err := service.NewAttemptService(attemptRepo, quizRepo, quizService, integrityService)
	if err != nil {
		log.Printf("Failed to initialize AttemptService: %v", err)
		os.Exit(1)
	}

	// Инициализируем обработчики
	authHandler := handler.NewAuthHandler(authService, cfg.JWT.ExpirationHrs)
	quizHandler := handler.NewQuizHandler(quizService)
	attemptHandler := handler.NewAttemptHandler(attemptService, quizService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, roomManager, jwtService)

	// Инициализируем middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)

	isProduction := gin.Mode() == gin.ReleaseMode

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8000", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API маршруты
	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
		}

		quizzes := api.Group("/quizzes")
		quizzes.Use(authMiddleware.RequireAuth())
		{
			quizzes.GET("", quizHandler.ListQuizzes)
			quizzes.POST("/join", quizHandler.GetActiveQuiz)
			quizzes.POST("/:id/submit", quizHandler.SubmitGrade)
			quizzes.GET("/:id", quizHandler.GetQuiz)

			// Операции учителя
			teacherQuizzes := quizzes.Group("")
			teacherQuizzes.Use(authMiddleware.RequireTeacher())
			{
				teacherQuizzes.POST("", quizHandler.CreateQuiz)
				teacherQuizzes.GET("/my-quizzes", quizHandler.ListMyQuizzes)
				teacherQuizzes.PATCH("/:id/start", quizHandler.StartQuiz)
				teacherQuizzes.PATCH("/:id/end", quizHandler.EndQuiz)
				teacherQuizzes.DELETE("/:id", quizHandler.DeleteQuiz)
				teacherQuizzes.POST("/cleanup", quizHandler.CleanupOrphanedQuizzes)
			}
		}

		attempts := api.Group("/quiz-attempts")
		attempts.Use(authMiddleware.RequireAuth())
		{
			attempts.POST("/submit", attemptHandler.Submit)
			attempts.GET("/my", attemptHandler.ListMine)

			teacherAttempts := attempts.Group("")
			teacherAttempts.Use(authMiddleware.RequireTeacher())
			{
				teacherAttempts.GET("", attemptHandler.ListAll)
				teacherAttempts.GET("/quiz/:quizId", attemptHandler.ListByQuiz)
				teacherAttempts.GET("/quiz/:quizId/export", attemptHandler.ExportByQuiz)
			}
		}
	}

	// Health check
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"clients": wsHub.ClientCount(),
			"rooms":   roomManager.RoomCount(),
		})
	})

	// WebSocket маршрут
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ожидаем сигнал остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем хаб: закрываются все WebSocket клиенты
	wsHub.Shutdown()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
