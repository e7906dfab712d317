package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
	"github.com/yourusername/classquiz-api/internal/domain/entity"
	"github.com/yourusername/classquiz-api/internal/handler/dto"
	apperrors "github.com/yourusername/classquiz-api/internal/pkg/errors"
	"github.com/yourusername/classquiz-api/internal/service"
)

// AttemptHandler обрабатывает запросы, связанные с попытками прохождения викторин
type AttemptHandler struct {
	attemptService *service.AttemptService
	quizService    *service.QuizService
}

// NewAttemptHandler создает новый обработчик попыток
func NewAttemptHandler(attemptService *service.AttemptService, quizService *service.QuizService) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		quizService:    quizService,
	}
}

// AttemptAnswerRequest представляет один ответ в запросе на отправку попытки
type AttemptAnswerRequest struct {
	QuestionIndex  int    `json:"questionIndex" binding:"min=0"`
	SelectedOption string `json:"selectedOption"`
}

// SubmitAttemptRequest представляет запрос на отправку попытки
type SubmitAttemptRequest struct {
	QuizID         string                 `json:"quizId" binding:"required,uuid"`
	Answers        []AttemptAnswerRequest `json:"answers" binding:"required,dive"`
	CopyCount      int                    `json:"copyCount" binding:"min=0"`
	TabSwitchCount int                    `json:"tabSwitchCount" binding:"min=0"`
	TimeTaken      int                    `json:"timeTaken" binding:"min=0"`
}

// Submit обрабатывает отправку завершенной попытки учеником
func (h *AttemptHandler) Submit(c *gin.Context) {
	var req SubmitAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.MustGet("user_id").(string)

	answers := make([]entity.AttemptAnswer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = entity.AttemptAnswer{
			QuestionIndex:  a.QuestionIndex,
			SelectedOption: a.SelectedOption,
		}
	}

	result, err := h.attemptService.Submit(c.Request.Context(), service.SubmitAttemptInput{
		UserID:         userID,
		QuizID:         req.QuizID,
		Answers:        answers,
		CopyCount:      req.CopyCount,
		TabSwitchCount: req.TabSwitchCount,
		TimeTaken:      req.TimeTaken,
	})
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":             result.Message,
		"attempt":             dto.NewAttemptResponse(result.Attempt),
		"correct_count":       result.CorrectCount,
		"wrong_count":         result.WrongCount,
		"cheating_detected":   result.CheatingDetected,
		"cheating_percentage": result.CheatingPercentage,
	})
}

// ListAll возвращает все попытки (панель учителя)
func (h *AttemptHandler) ListAll(c *gin.Context) {
	attempts, err := h.attemptService.ListAll()
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListAttemptResponse(attempts))
}

// ListByQuiz возвращает попытки по конкретной викторине
func (h *AttemptHandler) ListByQuiz(c *gin.Context) {
	quizID := c.Param("quizId")

	attempts, err := h.attemptService.ListByQuiz(quizID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListAttemptResponse(attempts))
}

// ListMine возвращает попытки текущего ученика
func (h *AttemptHandler) ListMine(c *gin.Context) {
	userID := c.MustGet("user_id").(string)

	attempts, err := h.attemptService.ListByUser(userID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewListAttemptResponse(attempts))
}

// ExportByQuiz экспортирует попытки по викторине в Excel-файл
func (h *AttemptHandler) ExportByQuiz(c *gin.Context) {
	quizID := c.Param("quizId")

	quiz, err := h.quizService.GetQuiz(quizID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	attempts, err := h.attemptService.ListByQuiz(quizID)
	if err != nil {
		h.handleAttemptError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_attempts_%s",
		strings.ReplaceAll(quiz.Title, " ", "_"),
		time.Now().Format("2006-01-02"))

	h.exportXLSX(c, attempts, filename)
}

// exportXLSX экспортирует попытки в Excel с использованием StreamWriter
func (h *AttemptHandler) exportXLSX(c *gin.Context, attempts []entity.QuizAttempt, filename string) {
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Результаты"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AttemptHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	// Заголовки
	headers := []interface{}{"№", "Ученик", "Правильных", "Неправильных", "Всего вопросов", "Время (с)", "Копирований", "Переключений вкладок", "Списывание", "Вероятность списывания (%)"}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AttemptHandler] Ошибка записи заголовков: %v", err)
	}

	// Данные
	for i := range attempts {
		a := &attempts[i]
		rowNum := i + 2 // Начинаем с 2 строки (1 - заголовки)
		cell := fmt.Sprintf("A%d", rowNum)

		userName := a.UserID
		if a.User != nil && a.User.Name != "" {
			userName = a.User.Name
		}

		cheating := "Нет"
		if a.CheatingDetected() {
			cheating = "Да"
		}

		row := []interface{}{
			i + 1,
			sanitizeForExcel(userName),
			a.CorrectCount,
			a.WrongCount,
			a.CorrectCount + a.WrongCount,
			a.TimeTaken,
			a.CopyCount,
			a.TabSwitchCount,
			cheating,
			a.CheatingPercentage,
		}
		if err := sw.SetRow(cell, row); err != nil {
			log.Printf("[AttemptHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AttemptHandler] Ошибка при Flush: %v", err)
	}

	// Записываем в response
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AttemptHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleAttemptError преобразует ошибки сервиса в HTTP-ответы
func (h *AttemptHandler) handleAttemptError(c *gin.Context, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrQuizNotActive) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in AttemptHandler: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
