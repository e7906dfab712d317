package service

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/yourusername/classquiz-api/internal/domain/entity"
	"github.com/yourusername/classquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/classquiz-api/internal/pkg/errors"
	ws "github.com/yourusername/classquiz-api/internal/websocket"
)

// Ключ кеша активной викторины
const activeQuizCacheKey = "quiz:active"

// Время жизни кеша активной викторины
const activeQuizCacheTTL = 1 * time.Minute

// EventBroadcaster рассылает событие всем подключенным WebSocket клиентам
type EventBroadcaster interface {
	BroadcastEvent(eventType string, data interface{}) error
}

// QuizService предоставляет методы для работы с викторинами
type QuizService struct {
	quizRepo    repository.QuizRepository
	cacheRepo   repository.CacheRepository
	broadcaster EventBroadcaster
}

// CreateQuizInput содержит данные для создания викторины
type CreateQuizInput struct {
	Title       string
	Topic       string
	Subject     string
	Difficulty  string
	Questions   []entity.Question
	CreatedByAI bool
}

// GradeResult результат проверки попытки
type GradeResult struct {
	Score        int
	Total        int
	CorrectCount int
	WrongCount   int
	Percentage   float64
	Passed       bool
}

// NewQuizService создает новый сервис викторин и возвращает ошибку при проблемах
func NewQuizService(
	quizRepo repository.QuizRepository,
	cacheRepo repository.CacheRepository,
	broadcaster EventBroadcaster,
) (*QuizService, error) {
	if quizRepo == nil {
		return nil, fmt.Errorf("QuizRepository is required for QuizService")
	}
	// cacheRepo и broadcaster могут быть nil в тестах
	return &QuizService{
		quizRepo:    quizRepo,
		cacheRepo:   cacheRepo,
		broadcaster: broadcaster,
	}, nil
}

// CreateQuiz создает новую викторину в статусе draft
func (s *QuizService) CreateQuiz(creatorID string, input CreateQuizInput) (*entity.Quiz, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperrors.ErrValidation)
	}
	if len(input.Questions) == 0 {
		return nil, fmt.Errorf("%w: at least one question is required", apperrors.ErrValidation)
	}
	for i, q := range input.Questions {
		if strings.TrimSpace(q.Question) == "" || len(q.Options) == 0 || strings.TrimSpace(q.CorrectAnswer) == "" {
			return nil, fmt.Errorf("%w: question %d is incomplete", apperrors.ErrValidation, i+1)
		}
	}

	difficulty := input.Difficulty
	if difficulty == "" {
		difficulty = entity.DifficultyMedium
	}

	quiz := &entity.Quiz{
		Title:       strings.TrimSpace(input.Title),
		Topic:       input.Topic,
		Subject:     input.Subject,
		Difficulty:  difficulty,
		Status:      entity.QuizStatusDraft,
		CreatedBy:   creatorID,
		Questions:   input.Questions,
		CreatedByAI: input.CreatedByAI,
	}

	if err := s.quizRepo.Create(quiz); err != nil {
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	log.Printf("[QuizService] Создана викторина %s (%q) пользователем %s", quiz.ID, quiz.Title, creatorID)
	return quiz, nil
}

// GetQuiz возвращает викторину по ID
func (s *QuizService) GetQuiz(quizID string) (*entity.Quiz, error) {
	return s.quizRepo.GetByID(quizID)
}

// ListQuizzes возвращает все викторины с существующим создателем
func (s *QuizService) ListQuizzes() ([]entity.Quiz, error) {
	return s.quizRepo.ListAuthored()
}

// ListMyQuizzes возвращает викторины конкретного учителя
func (s *QuizService) ListMyQuizzes(creatorID string) ([]entity.Quiz, error) {
	return s.quizRepo.ListByCreator(creatorID)
}

// DeleteQuiz удаляет викторину. Разрешено только ее создателю.
func (s *QuizService) DeleteQuiz(quizID, requesterID string) error {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return err
	}
	if quiz.CreatedBy != requesterID {
		return fmt.Errorf("%w: only the quiz creator may delete it", apperrors.ErrForbidden)
	}
	if err := s.quizRepo.Delete(quizID); err != nil {
		return err
	}
	s.invalidateActiveQuizCache()
	return nil
}

// GetActiveQuiz возвращает текущую активную викторину.
// Результат кешируется на короткое время, т.к. ученики опрашивают его при входе.
func (s *QuizService) GetActiveQuiz() (*entity.Quiz, error) {
	if s.cacheRepo != nil {
		var cached entity.Quiz
		if err := s.cacheRepo.GetJSON(activeQuizCacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	quiz, err := s.quizRepo.GetActive()
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrQuizNotActive
		}
		return nil, err
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(activeQuizCacheKey, quiz, activeQuizCacheTTL); err != nil {
			log.Printf("[QuizService] Не удалось закешировать активную викторину: %v", err)
		}
	}
	return quiz, nil
}

// StartQuiz переводит викторину в статус active, закрывая все остальные
// (правило единственной активной викторины), и оповещает всех клиентов.
func (s *QuizService) StartQuiz(quizID, requesterID string) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != requesterID {
		return nil, fmt.Errorf("%w: only the quiz creator may start it", apperrors.ErrForbidden)
	}

	if err := s.quizRepo.ActivateExclusive(quizID); err != nil {
		return nil, err
	}
	quiz.Status = entity.QuizStatusActive
	quiz.IsActive = true

	s.invalidateActiveQuizCache()

	log.Printf("[QuizService] Викторина %s (%q) запущена", quiz.ID, quiz.Title)

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastEvent(ws.QUIZ_STARTED, map[string]interface{}{
			"quizId": quiz.ID,
			"title":  quiz.Title,
		}); err != nil {
			log.Printf("[QuizService] Не удалось разослать quizStarted: %v", err)
		}
	}
	return quiz, nil
}

// EndQuiz переводит викторину в статус closed и оповещает всех клиентов
func (s *QuizService) EndQuiz(quizID, requesterID string) (*entity.Quiz, error) {
	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, err
	}
	if quiz.CreatedBy != requesterID {
		return nil, fmt.Errorf("%w: only the quiz creator may end it", apperrors.ErrForbidden)
	}

	if err := s.quizRepo.Close(quizID); err != nil {
		return nil, err
	}
	quiz.Status = entity.QuizStatusClosed
	quiz.IsActive = false

	s.invalidateActiveQuizCache()

	log.Printf("[QuizService] Викторина %s (%q) завершена", quiz.ID, quiz.Title)

	if s.broadcaster != nil {
		if err := s.broadcaster.BroadcastEvent(ws.QUIZ_ENDED, map[string]interface{}{
			"quizId": quiz.ID,
			"title":  quiz.Title,
		}); err != nil {
			log.Printf("[QuizService] Не удалось разослать quizEnded: %v", err)
		}
	}
	return quiz, nil
}

// CleanupOrphanedQuizzes удаляет викторины без существующего создателя
func (s *QuizService) CleanupOrphanedQuizzes() (int64, error) {
	deleted, err := s.quizRepo.DeleteOrphaned()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.invalidateActiveQuizCache()
		log.Printf("[QuizService] Удалено осиротевших викторин: %d", deleted)
	}
	return deleted, nil
}

// Grade проверяет ответы против вопросов викторины.
// Чистая функция: ответ по каждому вопросу сравнивается с правильным
// после обрезки пробелов, процент округляется до двух знаков.
func (s *QuizService) Grade(quiz *entity.Quiz, answers map[int]string) GradeResult {
	total := len(quiz.Questions)
	correct := 0
	for idx := range quiz.Questions {
		if quiz.GradeAnswer(idx, answers[idx]) {
			correct++
		}
	}

	percentage := 0.0
	if total > 0 {
		percentage = math.Round(float64(correct)/float64(total)*100*100) / 100
	}

	return GradeResult{
		Score:        correct,
		Total:        total,
		CorrectCount: correct,
		WrongCount:   total - correct,
		Percentage:   percentage,
		Passed:       percentage >= 50,
	}
}

func (s *QuizService) invalidateActiveQuizCache() {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(activeQuizCacheKey); err != nil {
		log.Printf("[QuizService] Не удалось сбросить кеш активной викторины: %v", err)
	}
}
