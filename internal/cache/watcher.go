package cache

import (
	"context"
	"sync"
	"time"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
)

// VersionSource сообщает текущую версию мира (worldsrc.Source)
type VersionSource interface {
	LastModified(ctx context.Context, worldID string) (int64, error)
}

// Watcher периодически сверяет версии миров с источником и рассылает
// инвалидацию, когда версия изменилась.
type Watcher struct {
	source      VersionSource
	invalidator Invalidator
	worlds      func() []string
	logger      *logging.Logger

	mu   sync.Mutex
	seen map[string]int64
}

// NewWatcher создает наблюдатель. worlds возвращает миры, за которыми нужно следить.
func NewWatcher(source VersionSource, invalidator Invalidator, worlds func() []string) *Watcher {
	return &Watcher{
		source:      source,
		invalidator: invalidator,
		worlds:      worlds,
		logger:      logging.GetComponentLogger("cache"),
		seen:        make(map[string]int64),
	}
}

// Check сверяет версии один раз и возвращает миры, для которых ушла инвалидация.
// Первое наблюдение мира только запоминает версию.
func (w *Watcher) Check(ctx context.Context) []string {
	var changed []string
	for _, id := range w.worlds() {
		version, err := w.source.LastModified(ctx, id)
		if err != nil {
			w.logger.Warn("Версия мира %s недоступна: %v", id, err)
			continue
		}

		w.mu.Lock()
		prev, known := w.seen[id]
		w.seen[id] = version
		w.mu.Unlock()

		if !known || prev == version {
			continue
		}
		if err := w.invalidator.Publish(ctx, id, version); err != nil {
			w.logger.Error("Инвалидация мира %s v%d: %v", id, version, err)
			continue
		}
		w.logger.Info("🔄 Мир %s: версия %d -> %d", id, prev, version)
		changed = append(changed, id)
	}
	return changed
}

// Run вызывает Check с заданным интервалом до отмены ctx
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Check(ctx)
		}
	}
}
