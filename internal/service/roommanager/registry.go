package roommanager

import (
	"time"
)

// Registry владеет картой комнат живых сессий.
// Registry не синхронизируется сам: все мутации должны проходить
// через один поток исполнения (см. RoomManager).
type Registry struct {
	rooms map[string]*Room
}

// NewRegistry создает новый реестр комнат
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// GetOrCreateRoom возвращает комнату викторины, создавая ее при необходимости
func (reg *Registry) GetOrCreateRoom(quizID, title string) *Room {
	if room, ok := reg.rooms[quizID]; ok {
		return room
	}
	room := &Room{
		QuizID:       quizID,
		Title:        title,
		Participants: make(map[string]*Participant),
		StartTime:    time.Now(),
	}
	reg.rooms[quizID] = room
	return room
}

// GetRoom возвращает комнату викторины, если она существует
func (reg *Registry) GetRoom(quizID string) (*Room, bool) {
	room, ok := reg.rooms[quizID]
	return room, ok
}

// RoomCount возвращает количество активных комнат
func (reg *Registry) RoomCount() int {
	return len(reg.rooms)
}

// RemoveParticipant удаляет участника из комнаты.
// Опустевшая комната удаляется из реестра целиком.
// Возвращает true, если участник действительно был удален.
func (reg *Registry) RemoveParticipant(quizID, userID string) bool {
	room, ok := reg.rooms[quizID]
	if !ok {
		return false
	}
	if _, ok := room.Participants[userID]; !ok {
		return false
	}
	delete(room.Participants, userID)
	if len(room.Participants) == 0 {
		delete(reg.rooms, quizID)
	}
	return true
}

// RemoveByConnection удаляет участника, чье соединение совпадает с connectionID.
// Участник, переподключившийся с новым соединением, под старый connectionID
// уже не попадает и не удаляется.
// Возвращает userID удаленного участника и признак удаления.
func (reg *Registry) RemoveByConnection(quizID, connectionID string) (string, bool) {
	room, ok := reg.rooms[quizID]
	if !ok {
		return "", false
	}
	for userID, participant := range room.Participants {
		if participant.ConnectionID == connectionID {
			delete(room.Participants, userID)
			if len(room.Participants) == 0 {
				delete(reg.rooms, quizID)
			}
			return userID, true
		}
	}
	return "", false
}
