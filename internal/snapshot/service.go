// Package snapshot отвечает на запросы "где сейчас существа мира" без постоянно
// работающего игрового цикла: реестр мира догоняется детерминированными шагами
// до запрошенного момента.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/metrics"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/observability"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

// ErrWorldNotFound - запрошенный мир неизвестен источнику конфигурации
var ErrWorldNotFound = errors.New("мир не найден")

// RegistryStore хранит состояние реестров миров между запросами.
// Отсутствие состояния сообщается ошибкой storage.ErrStateNotFound.
type RegistryStore interface {
	LoadState(ctx context.Context, worldID string) (*population.RegistryState, error)
	SaveState(ctx context.Context, st *population.RegistryState) error
	DeleteState(ctx context.Context, worldID string) error
}

// Options - необязательные зависимости сервиса
type Options struct {
	Store   RegistryStore
	Masks   *grid.MaskCache
	Metrics *metrics.SnapshotMetrics
	Logger  *logging.Logger
}

// Service - авторитетный симулятор снапшотов.
// Запросы к разным мирам выполняются параллельно, к одному миру сериализуются,
// одновременные запросы с одинаковым now объединяются.
type Service struct {
	source  worldsrc.Source
	store   RegistryStore
	masks   *grid.MaskCache
	metrics *metrics.SnapshotMetrics
	logger  *logging.Logger

	flight singleflight.Group

	mu     sync.Mutex
	worlds map[string]*worldEntry
}

type worldEntry struct {
	mu       sync.Mutex
	registry *population.Registry
}

// NewService создает сервис поверх источника конфигурации миров
func NewService(source worldsrc.Source, opts Options) *Service {
	if opts.Store == nil {
		opts.Store = storage.NewMemoryRegistryStore()
	}
	if opts.Masks == nil {
		opts.Masks = grid.NewMaskCache()
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetSnapshotLogger()
	}

	return &Service{
		source:  source,
		store:   opts.Store,
		masks:   opts.Masks,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		worlds:  make(map[string]*worldEntry),
	}
}

func (s *Service) entry(worldID string) *worldEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.worlds[worldID]
	if !ok {
		e = &worldEntry{}
		s.worlds[worldID] = e
	}
	return e
}

// GetSnapshot возвращает положение всех существ мира в момент now (мс).
// Повторный вызов с тем же now возвращает тот же результат.
func (s *Service) GetSnapshot(ctx context.Context, worldID string, now int64) ([]population.Snapshot, error) {
	ctx, span := observability.Tracer().Start(ctx, "snapshot.GetSnapshot",
		trace.WithAttributes(
			attribute.String("world.id", worldID),
			attribute.Int64("snapshot.now", now),
		))
	defer span.End()

	started := time.Now()
	defer s.metrics.ObserveQuery(worldID, started)

	key := fmt.Sprintf("%s@%d", worldID, now)
	// Общий расчет не зависит от отмены контекста первого из слитых вызовов
	shared := context.WithoutCancel(ctx)
	v, err, merged := s.flight.Do(key, func() (interface{}, error) {
		return s.snapshot(shared, worldID, now)
	})
	if merged {
		s.metrics.ObserveMerged()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	snaps := v.([]population.Snapshot)
	out := make([]population.Snapshot, len(snaps))
	copy(out, snaps)
	span.SetAttributes(attribute.Int("snapshot.instances", len(out)))
	return out, nil
}

func (s *Service) snapshot(ctx context.Context, worldID string, now int64) ([]population.Snapshot, error) {
	version, err := s.source.LastModified(ctx, worldID)
	if errors.Is(err, worldsrc.ErrWorldNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, worldID)
	}
	if err != nil {
		s.metrics.ObserveError("source")
		return nil, fmt.Errorf("версия мира %s: %w", worldID, err)
	}

	e := s.entry(worldID)
	e.mu.Lock()
	defer e.mu.Unlock()

	reg, err := s.resolve(ctx, e, worldID, version, now)
	if err != nil {
		return nil, err
	}

	plan := reg.Advance(now)
	s.metrics.ObserveCatchUp(worldID, plan.Steps, plan.Skipped)
	if plan.Skipped > 0 {
		s.logger.Debug("Мир %s: пропущено %d мс без симуляции", worldID, plan.Skipped)
	}

	if err := s.store.SaveState(ctx, reg.State()); err != nil {
		s.metrics.ObserveError("store")
		return nil, fmt.Errorf("сохранение состояния мира %s: %w", worldID, err)
	}
	return reg.Snapshot(), nil
}

// resolve возвращает реестр текущей версии мира: живой, восстановленный из
// хранилища или собранный заново из конфигурации.
func (s *Service) resolve(ctx context.Context, e *worldEntry, worldID string, version, now int64) (*population.Registry, error) {
	st, err := s.store.LoadState(ctx, worldID)
	if err != nil && !errors.Is(err, storage.ErrStateNotFound) {
		s.metrics.ObserveError("store")
		return nil, fmt.Errorf("загрузка состояния мира %s: %w", worldID, err)
	}
	stored := err == nil && st.Version == version

	reg := e.registry
	if reg != nil && reg.Version == version && stored {
		// Состояние могли продвинуть другие процессы
		if st.LastTick != reg.LastTick {
			if err := reg.Restore(st); err != nil {
				return nil, err
			}
		}
		return reg, nil
	}

	reason := "first"
	switch {
	case reg != nil && reg.Version != version:
		reason = "version"
	case reg != nil:
		reason = "invalidated"
	case stored:
		reason = "restored"
	}

	reg, err = s.build(ctx, worldID, version)
	if err != nil {
		return nil, err
	}
	if stored && st.Version == reg.Version {
		if err := reg.Restore(st); err != nil {
			return nil, err
		}
	} else {
		reg.Initialize(now)
	}

	e.registry = reg
	s.metrics.ObserveRebuild(worldID, reason)
	s.logger.Info("🧭 Реестр мира %s собран (версия %d, причина: %s, экземпляров: %d)",
		worldID, reg.Version, reason, len(reg.Instances))
	return reg, nil
}

func (s *Service) build(ctx context.Context, worldID string, version int64) (*population.Registry, error) {
	cfg, err := s.source.Load(ctx, worldID)
	if errors.Is(err, worldsrc.ErrWorldNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, worldID)
	}
	if err != nil {
		s.metrics.ObserveError("source")
		return nil, fmt.Errorf("загрузка мира %s: %w", worldID, err)
	}
	if cfg.Version == 0 {
		cfg.Version = version
	}

	s.masks.Invalidate(worldID)
	reg, err := population.NewRegistry(cfg, s.masks)
	if err != nil {
		s.metrics.ObserveError("config")
		return nil, fmt.Errorf("реестр мира %s: %w", worldID, err)
	}
	for _, skipped := range reg.Skipped() {
		s.logger.Warn("⚠️ Группа пропущена: %v", skipped)
	}
	return reg, nil
}

// Invalidate сбрасывает реестр мира, его сохраненное состояние и маски.
// Следующий запрос соберет реестр заново.
func (s *Service) Invalidate(ctx context.Context, worldID string) error {
	e := s.entry(worldID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.registry = nil
	s.masks.Invalidate(worldID)
	if err := s.store.DeleteState(ctx, worldID); err != nil {
		return fmt.Errorf("удаление состояния мира %s: %w", worldID, err)
	}
	s.logger.Info("♻️ Мир %s инвалидирован", worldID)
	return nil
}

// Worlds возвращает идентификаторы миров с живыми реестрами
func (s *Service) Worlds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.worlds))
	for id, e := range s.worlds {
		e.mu.Lock()
		live := e.registry != nil
		e.mu.Unlock()
		if live {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
