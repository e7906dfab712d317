package service

import (
	"context"
	"fmt"
	"log"

	"github.com/yourusername/classquiz-api/internal/domain/entity"
	"github.com/yourusername/classquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/classquiz-api/internal/pkg/errors"
)

// AttemptService принимает и хранит попытки прохождения викторин
type AttemptService struct {
	attemptRepo repository.AttemptRepository
	quizRepo    repository.QuizRepository
	quizService *QuizService
	integrity   *IntegrityService
}

// SubmitAttemptInput содержит данные попытки от ученика
type SubmitAttemptInput struct {
	UserID         string
	QuizID         string
	Answers        []entity.AttemptAnswer
	CopyCount      int
	TabSwitchCount int
	TimeTaken      int
}

// SubmitAttemptResult результат приема попытки
type SubmitAttemptResult struct {
	Attempt            *entity.QuizAttempt
	CorrectCount       int
	WrongCount         int
	CheatingDetected   bool
	CheatingPercentage float64
	Message            string
}

// NewAttemptService создает новый сервис попыток и возвращает ошибку при проблемах
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	quizRepo repository.QuizRepository,
	quizService *QuizService,
	integrity *IntegrityService,
) (*AttemptService, error) {
	if attemptRepo == nil {
		return nil, fmt.Errorf("AttemptRepository is required for AttemptService")
	}
	if quizRepo == nil {
		return nil, fmt.Errorf("QuizRepository is required for AttemptService")
	}
	if quizService == nil {
		return nil, fmt.Errorf("QuizService is required for AttemptService")
	}
	// integrity может быть nil: проверка честности тогда отключена
	return &AttemptService{
		attemptRepo: attemptRepo,
		quizRepo:    quizRepo,
		quizService: quizService,
		integrity:   integrity,
	}, nil
}

// Submit проверяет попытку, прогоняет ее через классификатор честности
// и сохраняет результат
func (s *AttemptService) Submit(ctx context.Context, input SubmitAttemptInput) (*SubmitAttemptResult, error) {
	quiz, err := s.quizRepo.GetByID(input.QuizID)
	if err != nil {
		return nil, err
	}
	if !quiz.IsActive {
		return nil, apperrors.ErrQuizNotActive
	}

	// Ответы по индексу вопроса, последний ответ на вопрос выигрывает
	answerMap := make(map[int]string, len(input.Answers))
	for _, a := range input.Answers {
		answerMap[a.QuestionIndex] = a.SelectedOption
	}

	grade := s.quizService.Grade(quiz, answerMap)

	cheatingPercentage := 0.0
	if s.integrity != nil {
		cheatingPercentage = s.integrity.CheatingPercentage(
			ctx, input.CopyCount, input.TabSwitchCount, input.TimeTaken, grade.Score)
	}

	attempt := &entity.QuizAttempt{
		UserID:             input.UserID,
		QuizID:             input.QuizID,
		Answers:            input.Answers,
		CorrectCount:       grade.CorrectCount,
		WrongCount:         grade.WrongCount,
		CopyCount:          input.CopyCount,
		TabSwitchCount:     input.TabSwitchCount,
		TimeTaken:          input.TimeTaken,
		CheatingPercentage: cheatingPercentage,
	}

	if err := s.attemptRepo.Save(attempt); err != nil {
		return nil, fmt.Errorf("failed to save quiz attempt: %w", err)
	}

	cheatingDetected := attempt.CheatingDetected()
	message := "Quiz submitted successfully"
	if cheatingDetected {
		message = fmt.Sprintf("Cheating detected (Copy: %d, Tab Switch: %d)",
			input.CopyCount, input.TabSwitchCount)
	}

	log.Printf("[AttemptService] Принята попытка пользователя %s по викторине %s: %d/%d, cheating=%t",
		input.UserID, input.QuizID, grade.CorrectCount, grade.Total, cheatingDetected)

	return &SubmitAttemptResult{
		Attempt:            attempt,
		CorrectCount:       grade.CorrectCount,
		WrongCount:         grade.WrongCount,
		CheatingDetected:   cheatingDetected,
		CheatingPercentage: cheatingPercentage,
		Message:            message,
	}, nil
}

// ListAll возвращает все попытки (панель учителя)
func (s *AttemptService) ListAll() ([]entity.QuizAttempt, error) {
	return s.attemptRepo.GetAll()
}

// ListByQuiz возвращает попытки по конкретной викторине
func (s *AttemptService) ListByQuiz(quizID string) ([]entity.QuizAttempt, error) {
	return s.attemptRepo.GetByQuizID(quizID)
}

// ListByUser возвращает попытки конкретного ученика
func (s *AttemptService) ListByUser(userID string) ([]entity.QuizAttempt, error) {
	return s.attemptRepo.GetByUserID(userID)
}
