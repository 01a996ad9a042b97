package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

func formatVersion(v int64) string {
	return strconv.FormatInt(v, 10)
}

// LocalInvalidator доставляет уведомления обработчикам внутри процесса.
// Используется в однопроцессном режиме и в тестах.
type LocalInvalidator struct {
	mu       sync.RWMutex
	handlers []Handler
	recent   *recentSet

	published int64
	received  int64
	errors    int64
}

// NewLocalInvalidator создает инвалидатор с окном дедупликации window
func NewLocalInvalidator(window time.Duration) *LocalInvalidator {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &LocalInvalidator{recent: newRecentSet(window)}
}

// Publish синхронно вызывает все обработчики
func (l *LocalInvalidator) Publish(ctx context.Context, worldID string, version int64) error {
	msg := Message{WorldID: worldID, Version: version, Timestamp: time.Now()}
	if l.recent.observe(msg.key()) {
		return nil
	}
	atomic.AddInt64(&l.published, 1)

	l.mu.RLock()
	handlers := append([]Handler(nil), l.handlers...)
	l.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		atomic.AddInt64(&l.received, 1)
		if err := h(ctx, msg); err != nil {
			atomic.AddInt64(&l.errors, 1)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Subscribe добавляет обработчик
func (l *LocalInvalidator) Subscribe(ctx context.Context, h Handler) error {
	l.mu.Lock()
	l.handlers = append(l.handlers, h)
	l.mu.Unlock()
	return nil
}

// Close ничего не освобождает
func (l *LocalInvalidator) Close() error { return nil }

// Stats возвращает счетчики
func (l *LocalInvalidator) Stats() Stats {
	return Stats{
		Published: atomic.LoadInt64(&l.published),
		Received:  atomic.LoadInt64(&l.received),
		Errors:    atomic.LoadInt64(&l.errors),
	}
}
