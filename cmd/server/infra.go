package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/cache"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/config"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/eventbus"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/snapshot"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

// infrastructure - внешние зависимости процесса, выбранные конфигурацией
type infrastructure struct {
	source        worldsrc.Source
	yamlSource    *worldsrc.YAMLDirSource
	mongoSource   *worldsrc.MongoSource
	redis         *redis.Client
	registryStore snapshot.RegistryStore
	invalidator   cache.Invalidator
	bus           eventbus.EventBus
	demoWorld     string

	closers []func() error
}

func newInfrastructure(ctx context.Context, cfg *config.Config) (*infrastructure, error) {
	in := &infrastructure{}

	// Источник миров
	switch cfg.Worlds.Source {
	case "mongo":
		src, err := worldsrc.NewMongoSource(worldsrc.MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
		})
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к MongoDB: %w", err)
		}
		in.source, in.mongoSource = src, src
		in.closers = append(in.closers, src.Close)
		logging.Info("🍃 Миры загружаются из MongoDB %s/%s", cfg.Mongo.Database, cfg.Mongo.Collection)
	default:
		if err := os.MkdirAll(cfg.Worlds.Dir, 0755); err != nil {
			return nil, fmt.Errorf("ошибка создания каталога миров: %w", err)
		}
		src, err := worldsrc.NewYAMLDirSource(cfg.Worlds.Dir)
		if err != nil {
			return nil, fmt.Errorf("ошибка каталога миров: %w", err)
		}
		in.source, in.yamlSource = src, src
		logging.Info("📂 Миры загружаются из каталога %s", cfg.Worlds.Dir)
	}

	// Redis нужен хранилищу реестров, позициям и присутствию
	if cfg.Redis.Enabled || cfg.RegistryStore.Kind == "redis" {
		client, err := storage.NewRedisClient(ctx, redisConfig(cfg))
		if err != nil {
			in.Close()
			return nil, err
		}
		in.redis = client
		in.closers = append(in.closers, client.Close)
		logging.Info("🟥 Redis подключен: %s", cfg.Redis.Addr)
	}

	// Хранилище состояния реестров
	if cfg.RegistryStore.Kind == "redis" {
		store, err := storage.NewRedisRegistryStore(in.redis, cfg.Redis.KeyPrefix, cfg.RegistryStore.TTL())
		if err != nil {
			in.Close()
			return nil, err
		}
		in.registryStore = store
		in.closers = append(in.closers, store.Close)
	} else {
		in.registryStore = storage.NewMemoryRegistryStore()
	}

	// Инвалидация между узлами
	if cfg.Invalidation.Kind == "nats" {
		inv, err := cache.NewNATSInvalidator(&cache.InvalidatorConfig{
			NATSURL:      cfg.Invalidation.NATSURL,
			Subject:      cfg.Invalidation.Subject,
			DedupeWindow: cfg.Invalidation.DedupeWindow(),
		}, cfg.Server.NodeID)
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("ошибка подключения инвалидации к NATS: %w", err)
		}
		in.invalidator = inv
	} else {
		in.invalidator = cache.NewLocalInvalidator(cfg.Invalidation.DedupeWindow())
	}
	in.closers = append(in.closers, in.invalidator.Close)

	// Шина доменных событий
	if cfg.EventBus.Kind == "jetstream" {
		bus, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, cfg.EventBus.RetentionDuration())
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("ошибка подключения к JetStream: %w", err)
		}
		in.bus = bus
	} else {
		in.bus = eventbus.NewMemoryBus(cfg.EventBus.Buffer)
	}
	in.closers = append(in.closers, in.bus.Close)

	return in, nil
}

func redisConfig(cfg *config.Config) *storage.RedisConfig {
	return &storage.RedisConfig{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		KeyPrefix:    cfg.Redis.KeyPrefix,
		TTL:          cfg.Redis.TTL(),
		BatchSize:    cfg.Redis.BatchSize,
		BatchFlushMs: cfg.Redis.BatchFlushMs,
	}
}

// Close закрывает зависимости в обратном порядке
func (in *infrastructure) Close() {
	for i := len(in.closers) - 1; i >= 0; i-- {
		if err := in.closers[i](); err != nil {
			logging.Warn("⚠️ Ошибка закрытия ресурса: %v", err)
		}
	}
	in.closers = nil
}

// prepareDemoWorld генерирует демо-мир и кладет его в настроенный источник
func prepareDemoWorld(ctx context.Context, cfg *config.Config, in *infrastructure, seed int64) (string, error) {
	doc, err := generateDemoDocument(seed, time.Now().UnixMilli())
	if err != nil {
		return "", err
	}

	if in.mongoSource != nil {
		if err := in.mongoSource.Put(ctx, doc); err != nil {
			return "", err
		}
		logging.Info("🗺️ Демо-мир %s сохранен в MongoDB", doc.ID)
		return doc.ID, nil
	}

	path, err := worldsrc.WriteDocument(cfg.Worlds.Dir, doc)
	if err != nil {
		return "", err
	}
	logging.Info("🗺️ Демо-мир %s записан в %s", doc.ID, path)
	return doc.ID, nil
}
