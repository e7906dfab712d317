package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuiz_GradeAnswer_CorrectAnswer(t *testing.T) {
	// Arrange
	quiz := &Quiz{
		Title: "Основы Go",
		Topic: "programming",
		Questions: QuestionList{
			{Question: "Кто создал Go?", Options: []string{"Google", "Microsoft", "Apple"}, CorrectAnswer: "Google"},
		},
	}

	// Act & Assert
	assert.True(t, quiz.GradeAnswer(0, "Google"), "GradeAnswer должен вернуть true для правильного ответа")
}

func TestQuiz_GradeAnswer_TrimsWhitespace(t *testing.T) {
	// Arrange: правильный ответ с пробелами по краям
	quiz := &Quiz{
		Questions: QuestionList{
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: " 4 "},
		},
	}

	// Act & Assert: сравнение после обрезки пробелов
	assert.True(t, quiz.GradeAnswer(0, "4"), "Пробелы по краям не должны влиять на проверку")
	assert.True(t, quiz.GradeAnswer(0, "  4  "), "Пробелы по краям не должны влиять на проверку")
}

func TestQuiz_GradeAnswer_IncorrectOrEmpty(t *testing.T) {
	quiz := &Quiz{
		Questions: QuestionList{
			{Question: "2+2?", Options: []string{"3", "4"}, CorrectAnswer: "4"},
		},
	}

	assert.False(t, quiz.GradeAnswer(0, "3"), "Неправильный ответ должен вернуть false")
	assert.False(t, quiz.GradeAnswer(0, ""), "Пустой ответ должен вернуть false")
	assert.False(t, quiz.GradeAnswer(0, "   "), "Ответ из одних пробелов должен вернуть false")
	assert.False(t, quiz.GradeAnswer(-1, "4"), "Отрицательный индекс должен вернуть false")
	assert.False(t, quiz.GradeAnswer(1, "4"), "Индекс вне диапазона должен вернуть false")
}

func TestQuiz_StatusHelpers(t *testing.T) {
	quiz := &Quiz{Status: QuizStatusDraft}
	assert.True(t, quiz.IsDraft())
	assert.False(t, quiz.IsClosed())

	quiz.Status = QuizStatusClosed
	assert.False(t, quiz.IsDraft())
	assert.True(t, quiz.IsClosed())
}

func TestQuestionList_ValueAndScan(t *testing.T) {
	// Arrange
	questions := QuestionList{
		{Question: "Столица Франции?", Options: []string{"Париж", "Лион"}, CorrectAnswer: "Париж"},
	}

	// Act: сериализация в JSONB-представление и обратно
	raw, err := questions.Value()
	require.NoError(t, err)

	var decoded QuestionList
	require.NoError(t, decoded.Scan([]byte(raw.(string))))

	// Assert
	require.Len(t, decoded, 1)
	assert.Equal(t, "Столица Франции?", decoded[0].Question)
	assert.Equal(t, "Париж", decoded[0].CorrectAnswer)
}

func TestQuestionList_ScanNil(t *testing.T) {
	var decoded QuestionList
	require.NoError(t, decoded.Scan(nil))
	assert.Empty(t, decoded)
}

func TestQuizAttempt_CheatingDetected(t *testing.T) {
	// Правило: copyCount >= 3 ИЛИ tabSwitchCount >= 3
	assert.False(t, (&QuizAttempt{CopyCount: 2, TabSwitchCount: 2}).CheatingDetected())
	assert.True(t, (&QuizAttempt{CopyCount: 3, TabSwitchCount: 0}).CheatingDetected())
	assert.True(t, (&QuizAttempt{CopyCount: 0, TabSwitchCount: 3}).CheatingDetected())
	assert.True(t, (&QuizAttempt{CopyCount: 5, TabSwitchCount: 5}).CheatingDetected())
}
