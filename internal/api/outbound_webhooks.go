package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/annel0/mmo-worldgen/internal/eventbus"
	"github.com/annel0/mmo-worldgen/internal/logging"
)

// OutboundWebhook представляет исходящий webhook
type OutboundWebhook struct {
	ID           uint64     `json:"id"`
	Name         string     `json:"name" binding:"required"`
	URL          string     `json:"url" binding:"required,url"`
	Secret       string     `json:"secret,omitempty"`
	Events       []string   `json:"events" binding:"required"` // События, на которые подписан ("*": все)
	Active       bool       `json:"active"`
	Timeout      int        `json:"timeout"` // Таймаут в секундах
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at"`
	LastUsed     *time.Time `json:"last_used,omitempty"`
	FailureCount int        `json:"failure_count"`
}

// OutboundWebhookEvent тело запроса к webhook'у
type OutboundWebhookEvent struct {
	EventType string          `json:"event_type"`
	EventID   string          `json:"event_id"`
	Timestamp int64           `json:"timestamp"`
	ServerID  string          `json:"server_id"`
	Source    string          `json:"source"`
	Data      json.RawMessage `json:"data"`
}

// OutboundWebhookManager пересылает события шины на зарегистрированные URL
type OutboundWebhookManager struct {
	webhooks   map[uint64]*OutboundWebhook
	eventQueue chan OutboundWebhookEvent
	mu         sync.RWMutex
	nextID     uint64
	httpClient *http.Client
	serverID   string
	retryDelay time.Duration

	sub       eventbus.Subscription
	wg        sync.WaitGroup
	closeMu   sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewOutboundWebhookManager создает новый менеджер исходящих webhook'ов
func NewOutboundWebhookManager(serverID string) *OutboundWebhookManager {
	manager := &OutboundWebhookManager{
		webhooks:   make(map[uint64]*OutboundWebhook),
		eventQueue: make(chan OutboundWebhookEvent, 1000),
		nextID:     1,
		serverID:   serverID,
		retryDelay: time.Second,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	manager.wg.Add(1)
	go manager.eventWorker()

	return manager
}

// Attach подписывает менеджер на все события шины
func (owm *OutboundWebhookManager) Attach(bus eventbus.EventBus) error {
	sub, err := bus.Subscribe(context.Background(), eventbus.Filter{}, func(ctx context.Context, ev *eventbus.Envelope) {
		owm.SendEvent(ev)
	})
	if err != nil {
		return err
	}
	owm.sub = sub
	return nil
}

// Close отписывается от шины и дожидается отправки очереди
func (owm *OutboundWebhookManager) Close() {
	owm.closeOnce.Do(func() {
		if owm.sub != nil {
			owm.sub.Unsubscribe()
		}
		owm.closeMu.Lock()
		owm.closed = true
		close(owm.eventQueue)
		owm.closeMu.Unlock()
		owm.wg.Wait()
	})
}

// AddWebhook добавляет новый webhook
func (owm *OutboundWebhookManager) AddWebhook(webhook OutboundWebhook) *OutboundWebhook {
	owm.mu.Lock()
	defer owm.mu.Unlock()

	webhook.ID = owm.nextID
	owm.nextID++
	webhook.CreatedAt = time.Now()
	webhook.Active = true

	if webhook.Timeout == 0 {
		webhook.Timeout = 30
	}
	if webhook.RetryCount == 0 {
		webhook.RetryCount = 3
	}

	owm.webhooks[webhook.ID] = &webhook
	copied := webhook
	return &copied
}

// GetWebhooks возвращает копии webhook'ов, отсортированные по ID
func (owm *OutboundWebhookManager) GetWebhooks() []OutboundWebhook {
	owm.mu.RLock()
	defer owm.mu.RUnlock()

	webhooks := make([]OutboundWebhook, 0, len(owm.webhooks))
	for _, webhook := range owm.webhooks {
		webhooks = append(webhooks, *webhook)
	}
	sort.Slice(webhooks, func(i, j int) bool { return webhooks[i].ID < webhooks[j].ID })
	return webhooks
}

// DeleteWebhook удаляет webhook
func (owm *OutboundWebhookManager) DeleteWebhook(id uint64) bool {
	owm.mu.Lock()
	defer owm.mu.Unlock()

	if _, exists := owm.webhooks[id]; !exists {
		return false
	}
	delete(owm.webhooks, id)
	return true
}

// SendEvent ставит событие шины в очередь отправки
func (owm *OutboundWebhookManager) SendEvent(ev *eventbus.Envelope) {
	event := OutboundWebhookEvent{
		EventType: ev.EventType,
		EventID:   ev.ID,
		Timestamp: ev.Timestamp.Unix(),
		ServerID:  owm.serverID,
		Source:    ev.Source,
		Data:      json.RawMessage(ev.Payload),
	}

	owm.closeMu.RLock()
	defer owm.closeMu.RUnlock()
	if owm.closed {
		return
	}

	select {
	case owm.eventQueue <- event:
	default:
		logging.Warn("⚠️ Очередь webhook'ов переполнена, событие %s пропущено", ev.EventType)
	}
}

func (owm *OutboundWebhookManager) eventWorker() {
	defer owm.wg.Done()
	for event := range owm.eventQueue {
		owm.processEvent(event)
	}
}

func (owm *OutboundWebhookManager) processEvent(event OutboundWebhookEvent) {
	owm.mu.RLock()
	var targets []OutboundWebhook
	for _, webhook := range owm.webhooks {
		if webhook.Active && isSubscribedToEvent(webhook, event.EventType) {
			targets = append(targets, *webhook)
		}
	}
	owm.mu.RUnlock()

	var wg sync.WaitGroup
	for _, webhook := range targets {
		wg.Add(1)
		go func(w OutboundWebhook) {
			defer wg.Done()
			owm.sendToWebhook(w, event)
		}(webhook)
	}
	wg.Wait()
}

func isSubscribedToEvent(webhook *OutboundWebhook, eventType string) bool {
	for _, subscribedEvent := range webhook.Events {
		if subscribedEvent == eventType || subscribedEvent == "*" {
			return true
		}
	}
	return false
}

// sendToWebhook отправляет событие с повторами и обновляет статистику webhook'а
func (owm *OutboundWebhookManager) sendToWebhook(webhook OutboundWebhook, event OutboundWebhookEvent) {
	jsonData, err := json.Marshal(event)
	if err != nil {
		logging.Error("❌ Ошибка маршалинга события для webhook %s: %v", webhook.Name, err)
		return
	}

	success := false
	for attempt := 0; attempt <= webhook.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * owm.retryDelay)
		}
		status, err := owm.post(webhook, event, jsonData)
		if err != nil {
			logging.Warn("⚠️ Попытка %d/%d для webhook %s: %v", attempt+1, webhook.RetryCount+1, webhook.Name, err)
			continue
		}
		if status >= 200 && status < 300 {
			success = true
			logging.Debug("✅ Событие %s отправлено в webhook %s", event.EventType, webhook.Name)
			break
		}
		logging.Warn("⚠️ Webhook %s вернул статус %d на попытке %d", webhook.Name, status, attempt+1)
	}

	owm.mu.Lock()
	if stored, ok := owm.webhooks[webhook.ID]; ok {
		now := time.Now()
		stored.LastUsed = &now
		if !success {
			stored.FailureCount++
		}
	}
	owm.mu.Unlock()
}

func (owm *OutboundWebhookManager) post(webhook OutboundWebhook, event OutboundWebhookEvent, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(webhook.Timeout)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MMO-Worldgen/1.0")
	req.Header.Set("X-Event-Type", event.EventType)
	req.Header.Set("X-Server-ID", event.ServerID)
	if webhook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", generateSignature(body, webhook.Secret))
	}

	resp, err := owm.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// generateSignature генерирует HMAC подпись
func generateSignature(data []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature проверяет заголовок X-Webhook-Signature на стороне получателя
func VerifySignature(body []byte, secret, signature string) bool {
	expected := generateSignature(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// EventTypes возвращает типы событий, доступные для подписки
func EventTypes() []string {
	return []string{
		eventbus.EventWorldTemplateGenerated,
		eventbus.EventWorldTemplateRegenerated,
		eventbus.EventWorldTemplateDeleted,
	}
}
