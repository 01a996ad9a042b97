package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
)

// NATSInvalidator реализует Invalidator через NATS Pub/Sub.
// Обеспечивает распределённую инвалидацию миров между узлами, обслуживающими снимки.
//
// Особенности:
// - Автоматическое переподключение при сбоях
// - Дедупликация сообщений по (мир, версия)
// - Graceful shutdown
type NATSInvalidator struct {
	conn    *nats.Conn
	config  *InvalidatorConfig
	subject string
	nodeID  string
	logger  *logging.Logger

	subMu        sync.Mutex
	subscription *nats.Subscription
	handler      Handler

	stopCh chan struct{}
	wg     sync.WaitGroup

	recent *recentSet

	// Метрики (используем atomic для thread safety)
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

	DedupeWindow time.Duration `yaml:"dedupe_window"`

	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

func (c *InvalidatorConfig) applyDefaults() {
	if c.Subject == "" {
		c.Subject = DefaultSubject
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
	if c.HandlerTimeout == 0 {
		c.HandlerTimeout = 5 * time.Second
	}
}

// NewNATSInvalidator подключается к NATS и запускает очистку дедупликации.
// nodeID отличает собственные сообщения узла от чужих.
func NewNATSInvalidator(config *InvalidatorConfig, nodeID string) (*NATSInvalidator, error) {
	if config == nil {
		config = &InvalidatorConfig{}
	}
	config.applyDefaults()
	logger := logging.GetComponentLogger("cache")

	opts := []nats.Option{
		nats.Name("world-invalidator-" + nodeID),
		nats.MaxReconnects(config.MaxReconnects),
		nats.ReconnectWait(config.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(config.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	invalidator := &NATSInvalidator{
		conn:    conn,
		config:  config,
		subject: config.Subject,
		nodeID:  nodeID,
		logger:  logger,
		stopCh:  make(chan struct{}),
		recent:  newRecentSet(config.DedupeWindow),
	}
	invalidator.startDedupeCleanup()

	logger.Info("NATS invalidator initialized: %s (subject: %s)", config.NATSURL, config.Subject)
	return invalidator, nil
}

// EncodeMessage сериализует уведомление в JSON
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage разбирает уведомление и проверяет обязательные поля
func DecodeMessage(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal invalidation message: %w", err)
	}
	if msg.WorldID == "" {
		return Message{}, fmt.Errorf("invalidation message without worldId")
	}
	return msg, nil
}

// Publish отправляет уведомление о новой версии мира.
func (n *NATSInvalidator) Publish(ctx context.Context, worldID string, version int64) error {
	msg := Message{
		WorldID:   worldID,
		Version:   version,
		NodeID:    n.nodeID,
		Timestamp: time.Now(),
	}
	if n.recent.observe(msg.key()) {
		n.logger.Debug("Skipping duplicate invalidation for %s", msg.key())
		return nil
	}

	data, err := EncodeMessage(msg)
	if err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		return err
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		n.logger.Error("Failed to publish invalidation for %s: %v", msg.key(), err)
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}

	atomic.AddInt64(&n.publishedCount, 1)
	n.logger.Debug("Published invalidation for %s", msg.key())
	return nil
}

// Subscribe подписывается на уведомления. Подписка снимается при отмене ctx или Close.
func (n *NATSInvalidator) Subscribe(ctx context.Context, handler Handler) error {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subscription != nil {
		return fmt.Errorf("already subscribed to invalidations")
	}

	n.handler = handler
	sub, err := n.conn.Subscribe(n.subject, n.handleMessage)
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

	n.logger.Info("Subscribed to world invalidations on subject: %s", n.subject)
	return nil
}

// Close снимает подписку и закрывает соединение с NATS.
func (n *NATSInvalidator) Close() error {
	close(n.stopCh)
	n.wg.Wait()
	n.unsubscribe()
	n.conn.Close()
	return nil
}

// Stats возвращает счетчики invalidator.
func (n *NATSInvalidator) Stats() Stats {
	return Stats{
		Published: atomic.LoadInt64(&n.publishedCount),
		Received:  atomic.LoadInt64(&n.receivedCount),
		Errors:    atomic.LoadInt64(&n.errorsCount),
	}
}

func (n *NATSInvalidator) handleMessage(m *nats.Msg) {
	atomic.AddInt64(&n.receivedCount, 1)
	if err := n.deliver(m.Data); err != nil {
		atomic.AddInt64(&n.errorsCount, 1)
		n.logger.Error("Invalidation handling failed: %v", err)
	}
}

// deliver разбирает сообщение и вызывает обработчик, пропуская свои и повторные
func (n *NATSInvalidator) deliver(data []byte) error {
	msg, err := DecodeMessage(data)
	if err != nil {
		return err
	}
	if msg.NodeID == n.nodeID {
		return nil
	}
	if n.recent.observe(msg.key()) {
		n.logger.Debug("Ignoring duplicate invalidation for %s", msg.key())
		return nil
	}

	n.subMu.Lock()
	handler := n.handler
	n.subMu.Unlock()
	if handler == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.config.HandlerTimeout)
	defer cancel()
	if err := handler(ctx, msg); err != nil {
		return fmt.Errorf("world %s: %w", msg.WorldID, err)
	}
	n.logger.Info("World %s invalidated (version %d, from %s)", msg.WorldID, msg.Version, msg.NodeID)
	return nil
}

func (n *NATSInvalidator) unsubscribe() {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subscription == nil {
		return
	}
	if err := n.subscription.Unsubscribe(); err != nil {
		n.logger.Error("Failed to unsubscribe from invalidations: %v", err)
	}
	n.subscription = nil
}

func (n *NATSInvalidator) startDedupeCleanup() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ticker := time.NewTicker(n.config.DedupeWindow)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				remaining := n.recent.cleanup()
				n.logger.Trace("Dedupe cleanup completed, %d keys remaining", remaining)
			case <-n.stopCh:
				return
			}
		}
	}()
}
