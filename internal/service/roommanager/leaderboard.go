package roommanager

import (
	"sort"
	"time"
)

// RankedEntry одна строка таблицы лидеров
type RankedEntry struct {
	Rank        int       `json:"rank"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	Percentage  float64   `json:"percentage"`
	CompletedAt time.Time `json:"completedAt"`
}

// Rank строит ранжированную таблицу лидеров по завершенным попыткам комнаты.
// Сортировка: по убыванию score, при равенстве по убыванию percentage.
// Стабильная сортировка сохраняет порядок поступления для полных ничьих.
// Исходный срез комнаты не изменяется.
func Rank(room *Room) []RankedEntry {
	entries := make([]ScoreEntry, len(room.CompletedScores))
	copy(entries, room.CompletedScores)

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Percentage > entries[j].Percentage
	})

	ranked := make([]RankedEntry, len(entries))
	for i, entry := range entries {
		ranked[i] = RankedEntry{
			Rank:        i + 1,
			UserID:      entry.UserID,
			UserName:    DisplayName(entry.UserName, entry.UserID),
			Score:       entry.Score,
			Total:       entry.Total,
			Percentage:  entry.Percentage,
			CompletedAt: entry.CompletedAt,
		}
	}
	return ranked
}
