package roommanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addParticipant(room *Room, userID, connectionID string) *Participant {
	p := &Participant{
		UserID:       userID,
		ConnectionID: connectionID,
		JoinedAt:     time.Now(),
		Answers:      make(map[int]string),
	}
	room.Participants[userID] = p
	return p
}

func TestRegistry_GetOrCreateRoom(t *testing.T) {
	// Arrange
	reg := NewRegistry()

	// Act
	room := reg.GetOrCreateRoom("quiz-1", "Алгебра")

	// Assert
	require.NotNil(t, room)
	assert.Equal(t, "quiz-1", room.QuizID)
	assert.Equal(t, "Алгебра", room.Title)
	assert.Empty(t, room.Participants, "Новая комната должна быть без участников")
	assert.Empty(t, room.CompletedScores, "Новая комната должна быть без результатов")
	assert.False(t, room.StartTime.IsZero(), "StartTime должен быть установлен при создании")
}

func TestRegistry_GetOrCreateRoom_ReturnsExisting(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	first := reg.GetOrCreateRoom("quiz-1", "Алгебра")
	addParticipant(first, "user-1", "conn-1")

	// Act: повторный вызов с другим названием не пересоздает комнату
	second := reg.GetOrCreateRoom("quiz-1", "Другое название")

	// Assert
	assert.Same(t, first, second, "Должна вернуться та же комната")
	assert.Equal(t, "Алгебра", second.Title, "Название не должно перезаписываться")
	assert.Equal(t, 1, second.ParticipantCount())
}

func TestRegistry_GetRoom_Absent(t *testing.T) {
	reg := NewRegistry()

	room, ok := reg.GetRoom("missing")

	assert.False(t, ok)
	assert.Nil(t, room)
}

func TestRegistry_RemoveParticipant(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	room := reg.GetOrCreateRoom("quiz-1", "Алгебра")
	addParticipant(room, "user-1", "conn-1")
	addParticipant(room, "user-2", "conn-2")

	// Act
	removed := reg.RemoveParticipant("quiz-1", "user-1")

	// Assert
	assert.True(t, removed)
	assert.Equal(t, 1, room.ParticipantCount())

	// Комната с оставшимся участником не удаляется
	_, ok := reg.GetRoom("quiz-1")
	assert.True(t, ok)
}

func TestRegistry_RemoveParticipant_Idempotent(t *testing.T) {
	reg := NewRegistry()
	room := reg.GetOrCreateRoom("quiz-1", "Алгебра")
	addParticipant(room, "user-1", "conn-1")

	assert.False(t, reg.RemoveParticipant("quiz-1", "unknown"), "Удаление неизвестного участника - no-op")
	assert.False(t, reg.RemoveParticipant("missing", "user-1"), "Удаление из несуществующей комнаты - no-op")
	assert.Equal(t, 1, room.ParticipantCount())
}

func TestRegistry_RemoveLastParticipant_DeletesRoom(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	room := reg.GetOrCreateRoom("quiz-1", "Алгебра")
	addParticipant(room, "user-1", "conn-1")

	// Act
	removed := reg.RemoveParticipant("quiz-1", "user-1")

	// Assert: опустевшая комната удаляется из реестра
	assert.True(t, removed)
	_, ok := reg.GetRoom("quiz-1")
	assert.False(t, ok, "Пустая комната должна быть удалена")
	assert.Equal(t, 0, reg.RoomCount())
}

func TestRegistry_RemoveByConnection(t *testing.T) {
	// Arrange
	reg := NewRegistry()
	room := reg.GetOrCreateRoom("quiz-1", "Алгебра")
	addParticipant(room, "user-1", "conn-1")
	addParticipant(room, "user-2", "conn-2")

	// Act
	userID, removed := reg.RemoveByConnection("quiz-1", "conn-2")

	// Assert
	assert.True(t, removed)
	assert.Equal(t, "user-2", userID)
	assert.Equal(t, 1, room.ParticipantCount())
}

func TestRegistry_RemoveByConnection_StaleConnection(t *testing.T) {
	// Arrange: участник переподключился, его ConnectionID заменен
	reg := NewRegistry()
	room := reg.GetOrCreateRoom("quiz-1", "Алгебра")
	p := addParticipant(room, "user-1", "conn-old")
	p.ConnectionID = "conn-new"

	// Act: отключение старого соединения не должно удалить участника
	userID, removed := reg.RemoveByConnection("quiz-1", "conn-old")

	// Assert
	assert.False(t, removed, "Устаревшее соединение не совпадает ни с одним участником")
	assert.Empty(t, userID)
	assert.Equal(t, 1, room.ParticipantCount())
}
