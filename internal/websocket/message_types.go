package websocket

// Типы сообщений от клиента (ученика)
const (
	// JOIN_QUIZ запрос на присоединение к комнате викторины
	JOIN_QUIZ = "joinQuiz"

	// SUBMIT_ANSWER сообщает об ответе ученика на вопрос
	SUBMIT_ANSWER = "submitAnswer"

	// COMPLETE_QUIZ сообщает о завершении прохождения викторины учеником
	COMPLETE_QUIZ = "completeQuiz"
)

// Типы сообщений от сервера
const (
	// USER_JOINED сообщает участникам комнаты о новом ученике
	USER_JOINED = "userJoined"

	// USER_LEFT сообщает участникам комнаты об отключении ученика
	USER_LEFT = "userLeft"

	// QUIZ_UPDATE сигнал активности комнаты после приема ответа
	QUIZ_UPDATE = "quizUpdate"

	// LEADERBOARD_UPDATE рассылает обновленную таблицу лидеров после завершения
	LEADERBOARD_UPDATE = "leaderboardUpdate"

	// QUIZ_STARTED сообщает всем подключенным клиентам о запуске викторины
	QUIZ_STARTED = "quizStarted"

	// QUIZ_ENDED сообщает всем подключенным клиентам о закрытии викторины
	QUIZ_ENDED = "quizEnded"
)
