package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/classquiz-api/internal/domain/entity"
	"github.com/yourusername/classquiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/classquiz-api/internal/pkg/errors"
	"github.com/yourusername/classquiz-api/internal/service"
)

// QuizHandler обрабатывает запросы, связанные с викторинами
type QuizHandler struct {
	quizService *service.QuizService
}

// NewQuizHandler создает новый обработчик викторин
func NewQuizHandler(quizService *service.QuizService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
	}
}

// QuestionRequest представляет один вопрос в запросе на создание викторины
type QuestionRequest struct {
	Question      string   `json:"question" binding:"required,min=3,max=500"`
	Options       []string `json:"options" binding:"required,min=2,max=6,dive,required"`
	CorrectAnswer string   `json:"correctAnswer" binding:"required"`
}

// CreateQuizRequest представляет запрос на создание викторины
type CreateQuizRequest struct {
	Title       string            `json:"title" binding:"required,min=3,max=200"`
	Topic       string            `json:"topic" binding:"required,min=2,max=100"`
	Subject     string            `json:"subject" binding:"omitempty,max=100"`
	Difficulty  string            `json:"difficulty" binding:"omitempty,oneof=easy medium hard"`
	Questions   []QuestionRequest `json:"questions" binding:"required,min=1,dive"`
	CreatedByAI bool              `json:"created_by_ai"`
}

// CreateQuiz обрабатывает запрос на создание викторины
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("user_id").(string)

	questions := make([]entity.Question, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = entity.Question{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
		}
	}

	quiz, err := h.quizService.CreateQuiz(userID, service.CreateQuizInput{
		Title:       req.Title,
		Topic:       req.Topic,
		Subject:     req.Subject,
		Difficulty:  req.Difficulty,
		Questions:   questions,
		CreatedByAI: req.CreatedByAI,
	})
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewQuizResponse(quiz, true, true))
}

// ListQuizzes возвращает список всех викторин
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	quizzes, err := h.quizService.ListQuizzes()
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// ListMyQuizzes возвращает викторины, созданные текущим учителем
func (h *QuizHandler) ListMyQuizzes(c *gin.Context) {
	userID := c.MustGet("user_id").(string)

	quizzes, err := h.quizService.ListMyQuizzes(userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListQuizResponse(quizzes))
}

// GetQuiz возвращает информацию о викторине.
// Правильные ответы включаются только для учителей.
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	quizID := c.Param("id")

	quiz, err := h.quizService.GetQuiz(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	role, _ := c.Get("role")
	includeAnswers := role == entity.RoleTeacher

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true, includeAnswers))
}

// GetActiveQuiz возвращает активную викторину для подключения ученика.
// Правильные ответы всегда скрыты.
func (h *QuizHandler) GetActiveQuiz(c *gin.Context) {
	quiz, err := h.quizService.GetActiveQuiz()
	if err != nil {
		if errors.Is(err, apperrors.ErrQuizNotActive) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No active quiz at the moment"})
			return
		}
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewQuizResponse(quiz, true, false))
}

// GradeAnswerRequest представляет один ответ в запросе на проверку
type GradeAnswerRequest struct {
	QuestionIndex  int    `json:"questionIndex" binding:"min=0"`
	SelectedOption string `json:"selectedOption"`
}

// SubmitGradeRequest представляет запрос на проверку ответов без сохранения попытки
type SubmitGradeRequest struct {
	Answers []GradeAnswerRequest `json:"answers" binding:"required,dive"`
}

// SubmitGrade проверяет ответы ученика и возвращает результат, не сохраняя попытку.
// Используется для мгновенной обратной связи во время активной викторины.
func (h *QuizHandler) SubmitGrade(c *gin.Context) {
	var req SubmitGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quizID := c.Param("id")

	quiz, err := h.quizService.GetQuiz(quizID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}
	if !quiz.IsActive {
		h.handleQuizError(c, apperrors.ErrQuizNotActive)
		return
	}

	// Последний ответ на вопрос выигрывает
	answers := make(map[int]string, len(req.Answers))
	for _, a := range req.Answers {
		answers[a.QuestionIndex] = a.SelectedOption
	}

	grade := h.quizService.Grade(quiz, answers)

	c.JSON(http.StatusOK, gin.H{
		"score":         grade.Score,
		"total":         grade.Total,
		"correct_count": grade.CorrectCount,
		"wrong_count":   grade.WrongCount,
		"percentage":    grade.Percentage,
		"passed":        grade.Passed,
	})
}

// StartQuiz активирует викторину. Любая другая активная викторина закрывается.
func (h *QuizHandler) StartQuiz(c *gin.Context) {
	quizID := c.Param("id")
	userID := c.MustGet("user_id").(string)

	quiz, err := h.quizService.StartQuiz(quizID, userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quiz started",
		"quiz":    dto.NewQuizResponse(quiz, false, false),
	})
}

// EndQuiz завершает активную викторину
func (h *QuizHandler) EndQuiz(c *gin.Context) {
	quizID := c.Param("id")
	userID := c.MustGet("user_id").(string)

	quiz, err := h.quizService.EndQuiz(quizID, userID)
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Quiz ended",
		"quiz":    dto.NewQuizResponse(quiz, false, false),
	})
}

// DeleteQuiz удаляет викторину. Разрешено только создателю.
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	quizID := c.Param("id")
	userID := c.MustGet("user_id").(string)

	if err := h.quizService.DeleteQuiz(quizID, userID); err != nil {
		h.handleQuizError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Quiz deleted"})
}

// CleanupOrphanedQuizzes удаляет викторины без существующего создателя
func (h *QuizHandler) CleanupOrphanedQuizzes(c *gin.Context) {
	deleted, err := h.quizService.CleanupOrphanedQuizzes()
	if err != nil {
		h.handleQuizError(c, err)
		return
	}

	log.Printf("[QuizHandler] Очистка завершена, удалено викторин: %d", deleted)
	c.JSON(http.StatusOK, gin.H{
		"message":       "Cleanup completed",
		"deleted_count": deleted,
	})
}

// handleQuizError преобразует ошибки сервиса в HTTP-ответы
func (h *QuizHandler) handleQuizError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrQuizNotActive) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in QuizHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
