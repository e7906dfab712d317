package dto

import (
	"time"

	"github.com/yourusername/classquiz-api/internal/domain/entity"
)

// QuestionResponse представляет вопрос в формате для ответа клиенту
type QuestionResponse struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"` // Скрывается для учеников
}

// QuizResponse представляет викторину в формате для ответа клиенту
type QuizResponse struct {
	ID            string             `json:"id"`
	Title         string             `json:"title"`
	Topic         string             `json:"topic"`
	Subject       string             `json:"subject"`
	Difficulty    string             `json:"difficulty"`
	Status        string             `json:"status"`
	IsActive      bool               `json:"is_active"`
	CreatedBy     string             `json:"created_by"`
	CreatorName   string             `json:"creator_name,omitempty"`
	QuestionCount int                `json:"question_count"`
	Questions     []QuestionResponse `json:"questions,omitempty"`
	CreatedByAI   bool               `json:"created_by_ai"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// AttemptResponse представляет попытку прохождения в формате для ответа клиенту
type AttemptResponse struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	UserName           string    `json:"user_name,omitempty"`
	QuizID             string    `json:"quiz_id"`
	QuizTitle          string    `json:"quiz_title,omitempty"`
	CorrectCount       int       `json:"correct_count"`
	WrongCount         int       `json:"wrong_count"`
	TotalQuestions     int       `json:"total_questions"`
	CopyCount          int       `json:"copy_count"`
	TabSwitchCount     int       `json:"tab_switch_count"`
	TimeTaken          int       `json:"time_taken"`
	CheatingDetected   bool      `json:"cheating_detected"`
	CheatingPercentage float64   `json:"cheating_percentage"`
	CreatedAt          time.Time `json:"created_at"`
}

// NewQuestionResponse создает DTO для вопроса.
// Логика скрытия CorrectAnswer остается в вызывающем коде (хэндлере).
func NewQuestionResponse(q *entity.Question, includeAnswer bool) QuestionResponse {
	resp := QuestionResponse{
		Question: q.Question,
		Options:  q.Options,
	}
	if includeAnswer {
		resp.CorrectAnswer = q.CorrectAnswer
	}
	return resp
}

// NewQuizResponse создает DTO для викторины
func NewQuizResponse(quiz *entity.Quiz, includeQuestions, includeAnswers bool) *QuizResponse {
	if quiz == nil {
		return nil
	}

	var questionsDTO []QuestionResponse
	if includeQuestions {
		questionsDTO = make([]QuestionResponse, len(quiz.Questions))
		for i := range quiz.Questions {
			questionsDTO[i] = NewQuestionResponse(&quiz.Questions[i], includeAnswers)
		}
	}

	creatorName := ""
	if quiz.Creator != nil {
		creatorName = quiz.Creator.Name
	}

	return &QuizResponse{
		ID:            quiz.ID,
		Title:         quiz.Title,
		Topic:         quiz.Topic,
		Subject:       quiz.Subject,
		Difficulty:    quiz.Difficulty,
		Status:        quiz.Status,
		IsActive:      quiz.IsActive,
		CreatedBy:     quiz.CreatedBy,
		CreatorName:   creatorName,
		QuestionCount: len(quiz.Questions),
		Questions:     questionsDTO,
		CreatedByAI:   quiz.CreatedByAI,
		CreatedAt:     quiz.CreatedAt,
		UpdatedAt:     quiz.UpdatedAt,
	}
}

// NewListQuizResponse создает слайс DTO для списка викторин.
// Вопросы в список не включаются.
func NewListQuizResponse(quizzes []entity.Quiz) []*QuizResponse {
	list := make([]*QuizResponse, len(quizzes))
	for i := range quizzes {
		list[i] = NewQuizResponse(&quizzes[i], false, false)
	}
	return list
}

// NewAttemptResponse создает DTO для попытки
func NewAttemptResponse(attempt *entity.QuizAttempt) *AttemptResponse {
	if attempt == nil {
		return nil
	}

	userName := ""
	if attempt.User != nil {
		userName = attempt.User.Name
	}
	quizTitle := ""
	totalQuestions := attempt.CorrectCount + attempt.WrongCount
	if attempt.Quiz != nil {
		quizTitle = attempt.Quiz.Title
		totalQuestions = len(attempt.Quiz.Questions)
	}

	return &AttemptResponse{
		ID:                 attempt.ID,
		UserID:             attempt.UserID,
		UserName:           userName,
		QuizID:             attempt.QuizID,
		QuizTitle:          quizTitle,
		CorrectCount:       attempt.CorrectCount,
		WrongCount:         attempt.WrongCount,
		TotalQuestions:     totalQuestions,
		CopyCount:          attempt.CopyCount,
		TabSwitchCount:     attempt.TabSwitchCount,
		TimeTaken:          attempt.TimeTaken,
		CheatingDetected:   attempt.CheatingDetected(),
		CheatingPercentage: attempt.CheatingPercentage,
		CreatedAt:          attempt.CreatedAt,
	}
}

// NewListAttemptResponse создает слайс DTO для списка попыток
func NewListAttemptResponse(attempts []entity.QuizAttempt) []*AttemptResponse {
	list := make([]*AttemptResponse, len(attempts))
	for i := range attempts {
		list[i] = NewAttemptResponse(&attempts[i])
	}
	return list
}
