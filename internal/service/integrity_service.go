package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"

	"github.com/yourusername/classquiz-api/internal/config"
)

// IntegrityService обращается к внешнему HTTP-классификатору,
// оценивающему вероятность списывания по поведенческим сигналам попытки.
type IntegrityService struct {
	url        string
	httpClient *http.Client
}

// integrityRequest тело запроса к классификатору
type integrityRequest struct {
	CopyCount      int `json:"copy_count"`
	TabSwitchCount int `json:"tab_switch_count"`
	TimeTaken      int `json:"time_taken"`
	Score          int `json:"score"`
}

// integrityResponse ответ классификатора: вероятность списывания 0..1
type integrityResponse struct {
	Probability float64 `json:"probability"`
}

// NewIntegrityService создает новый сервис проверки честности.
// Пустой URL допустим: сервис тогда всегда возвращает 0.
func NewIntegrityService(cfg config.IntegrityConfig) *IntegrityService {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &IntegrityService{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CheatingPercentage возвращает оценку вероятности списывания в процентах (0..100).
// Любая ошибка классификатора деградирует до 0 с записью в лог:
// доступность приема попыток важнее оценки честности.
func (s *IntegrityService) CheatingPercentage(ctx context.Context, copyCount, tabSwitchCount, timeTaken, score int) float64 {
	if s.url == "" {
		return 0
	}

	payload, err := json.Marshal(integrityRequest{
		CopyCount:      copyCount,
		TabSwitchCount: tabSwitchCount,
		TimeTaken:      timeTaken,
		Score:          score,
	})
	if err != nil {
		log.Printf("[IntegrityService] Не удалось сериализовать запрос: %v", err)
		return 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		log.Printf("[IntegrityService] Не удалось создать запрос: %v", err)
		return 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Printf("[IntegrityService] Классификатор недоступен: %v", err)
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[IntegrityService] Классификатор вернул статус %d", resp.StatusCode)
		return 0
	}

	var result integrityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		log.Printf("[IntegrityService] Не удалось разобрать ответ классификатора: %v", err)
		return 0
	}

	if result.Probability < 0 || result.Probability > 1 {
		log.Printf("[IntegrityService] Вероятность вне диапазона: %f", result.Probability)
		return 0
	}

	// Вероятность 0..1 переводится в проценты с двумя знаками
	return math.Round(result.Probability*100*100) / 100
}

// String описывает конфигурацию сервиса для диагностики
func (s *IntegrityService) String() string {
	if s.url == "" {
		return "IntegrityService(disabled)"
	}
	return fmt.Sprintf("IntegrityService(%s)", s.url)
}
