package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultSubject - subject NATS для уведомлений о смене версии мира
const DefaultSubject = "world.invalidate"

// Message - уведомление о том, что конфигурация мира изменилась.
// Получатели сбрасывают реестр мира и кеш масок перемещения.
type Message struct {
	WorldID   string    `json:"worldId"`
	Version   int64     `json:"version"`
	NodeID    string    `json:"nodeId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (m Message) key() string {
	return m.WorldID + "@" + formatVersion(m.Version)
}

// Handler обрабатывает уведомление об инвалидации
type Handler func(ctx context.Context, msg Message) error

// Invalidator рассылает и принимает уведомления об инвалидации миров.
type Invalidator interface {
	// Publish сообщает остальным узлам о новой версии мира
	Publish(ctx context.Context, worldID string, version int64) error
	// Subscribe регистрирует обработчик; собственные сообщения узла не доставляются
	Subscribe(ctx context.Context, h Handler) error
	Close() error
}

// WorldResetter - то, что умеет сбросить состояние мира (snapshot.Service)
type WorldResetter interface {
	Invalidate(ctx context.Context, worldID string) error
}

// ResetHandler возвращает обработчик, сбрасывающий мир в сервисе снимков
func ResetHandler(r WorldResetter) Handler {
	return func(ctx context.Context, msg Message) error {
		return r.Invalidate(ctx, msg.WorldID)
	}
}

// Stats - счетчики инвалидатора
type Stats struct {
	Published int64
	Received  int64
	Errors    int64
}

// recentSet хранит недавно виденные ключи для дедупликации
type recentSet struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func newRecentSet(window time.Duration) *recentSet {
	return &recentSet{window: window, seen: make(map[string]time.Time), now: time.Now}
}

// observe записывает ключ и сообщает, был ли он уже виден в пределах окна
func (s *recentSet) observe(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if last, ok := s.seen[key]; ok && now.Sub(last) < s.window {
		return true
	}
	s.seen[key] = now
	return false
}

// cleanup удаляет устаревшие ключи, возвращает число оставшихся
func (s *recentSet) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, ts := range s.seen {
		if now.Sub(ts) > s.window {
			delete(s.seen, key)
		}
	}
	return len(s.seen)
}
