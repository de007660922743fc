package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/mmo-worldgen/internal/logging"
	"github.com/nats-io/nats.go"
)

// NATSInvalidator реализует CacheInvalidator используя NATS Pub/Sub.
// Узлы сервиса шаблонов держат локальные кеши; после Regenerate/Delete
// на одном узле остальные должны забыть старую запись.
type NATSInvalidator struct {
	conn    *nats.Conn
	config  *InvalidatorConfig
	subject string
	nodeID  string

	subMu        sync.Mutex
	subscription *nats.Subscription
	handler      InvalidationHandler

	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	keysMutex sync.RWMutex
	// Дедупликация
	recentKeys map[string]time.Time

	publishedCount int64
	receivedCount  int64
	errorsCount    int64
}

// InvalidatorConfig содержит конфигурацию для NATS invalidator.
type InvalidatorConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`

	MaxReconnects int           `yaml:"max_reconnects"`
	ReconnectWait time.Duration `yaml:"reconnect_wait"`

	DedupeWindow   time.Duration `yaml:"dedupe_window"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// InvalidationMessage представляет сообщение об инвалидации кеша.
type InvalidationMessage struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	NodeID    string    `json:"node_id"`
	Reason    string    `json:"reason,omitempty"`
}

func (c *InvalidatorConfig) applyDefaults() {
	if c.Subject == "" {
		c.Subject = "worldgen.cache.invalidate"
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = 10
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = 2 * time.Second
	}
	if c.DedupeWindow == 0 {
		c.DedupeWindow = 5 * time.Second
	}
	if c.PublishTimeout == 0 {
		c.PublishTimeout = 5 * time.Second
	}
}

// NewNATSInvalidator подключается к NATS и создаёт invalidator.
func NewNATSInvalidator(config *InvalidatorConfig, nodeID string) (*NATSInvalidator, error) {
	config.applyDefaults()

	opts := []nats.Option{
		nats.Name("worldgen-cache-" + nodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logging.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logging.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logging.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	inv := newInvalidator(conn, config, nodeID)
	inv.startDedupeCleanup()

	logging.Info("📡 NATS invalidator initialized: %s (subject: %s)", config.NATSURL, config.Subject)
	return inv, nil
}

func newInvalidator(conn *nats.Conn, config *InvalidatorConfig, nodeID string) *NATSInvalidator {
	config.applyDefaults()
	return &NATSInvalidator{
		conn:       conn,
		config:     config,
		subject:    config.Subject,
		nodeID:     nodeID,
		stopCh:     make(chan struct{}),
		recentKeys: make(map[string]time.Time),
	}
}

// PublishInvalidation отправляет уведомление об инвалидации ключа.
func (n *NATSInvalidator) PublishInvalidation(ctx context.Context, key string) error {
	if n.isDuplicate(key) {
		logging.Debug("Skipping duplicate invalidation for key: %s", key)
		return nil
	}

	data, err := json.Marshal(&InvalidationMessage{
		Key:       key,
		Timestamp: time.Now().UTC(),
		NodeID:    n.nodeID,
		Reason:    "template_changed",
	})
	if err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("failed to marshal invalidation message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.config.PublishTimeout)
	defer cancel()

	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	// Flush гарантирует, что сообщение ушло до возврата (Regenerate ждёт рассылки)
	if err := n.conn.FlushWithContext(ctx); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return fmt.Errorf("failed to flush invalidation: %w", err)
	}

	n.recordKey(key)
	atomic.AddInt64(&n.publishedCount, 1)
	logging.Debug("Published invalidation for key: %s", key)
	return nil
}

// SubscribeInvalidations подписывается на уведомления об инвалидации.
func (n *NATSInvalidator) SubscribeInvalidations(ctx context.Context, handler InvalidationHandler) error {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	if n.subscription != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}
	n.handler = handler

	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		n.handleInvalidation(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidations: %w", err)
	}
	n.subscription = sub

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		select {
		case <-ctx.Done():
		case <-n.stopCh:
		}
		n.unsubscribe()
	}()

	logging.Info("Subscribed to cache invalidations on subject: %s", n.subject)
	return nil
}

// Close закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	n.stopOnce.Do(func() { close(n.stopCh) })
	n.wg.Wait()
	n.unsubscribe()

	if n.conn != nil {
		n.conn.Close()
	}
	logging.Info("NATS invalidator closed")
	return nil
}

// GetMetrics возвращает счётчики invalidator.
func (n *NATSInvalidator) GetMetrics() map[string]interface{} {
	m := map[string]interface{}{
		"published_count": atomic.LoadInt64(&n.publishedCount),
		"received_count":  atomic.LoadInt64(&n.receivedCount),
		"errors_count":    atomic.LoadInt64(&n.errorsCount),
	}
	if n.conn != nil {
		m["connected"] = n.conn.IsConnected()
	}
	return m
}

// handleInvalidation разбирает входящее сообщение и вызывает обработчик.
func (n *NATSInvalidator) handleInvalidation(data []byte) {
	atomic.AddInt64(&n.receivedCount, 1)

	var msg InvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		logging.Error("Failed to unmarshal invalidation message: %v", err)
		return
	}

	// собственные сообщения уже применены локально
	if msg.NodeID == n.nodeID {
		return
	}
	if n.isDuplicate(msg.Key) {
		logging.Debug("Ignoring duplicate invalidation for key: %s", msg.Key)
		return
	}
	n.recordKey(msg.Key)

	n.subMu.Lock()
	handler := n.handler
	n.subMu.Unlock()
	if handler == nil {
		return
	}
	if err := handler(msg.Key); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		logging.Error("Invalidation handler failed for key %s: %v", msg.Key, err)
	}
}

func (n *NATSInvalidator) unsubscribe() {
	n.subMu.Lock()
	defer n.subMu.Unlock()

	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		logging.Error("Failed to unsubscribe from invalidations: %v", err)
	}
	n.subscription = nil
}

func (n *NATSInvalidator) isDuplicate(key string) bool {
	n.keysMutex.RLock()
	defer n.keysMutex.RUnlock()

	lastSeen, exists := n.recentKeys[key]
	return exists && time.Since(lastSeen) < n.config.DedupeWindow
}

func (n *NATSInvalidator) recordKey(key string) {
	n.keysMutex.Lock()
	n.recentKeys[key] = time.Now()
	n.keysMutex.Unlock()
}

// startDedupeCleanup периодически чистит окно дедупликации.
func (n *NATSInvalidator) startDedupeCleanup() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ticker := time.NewTicker(n.config.DedupeWindow)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				n.cleanupDedupe()
			case <-n.stopCh:
				return
			}
		}
	}()
}

func (n *NATSInvalidator) cleanupDedupe() {
	n.keysMutex.Lock()
	defer n.keysMutex.Unlock()

	now := time.Now()
	for key, ts := range n.recentKeys {
		if now.Sub(ts) > n.config.DedupeWindow {
			delete(n.recentKeys, key)
		}
	}
}
