package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/observability"
)

// Config корневая структура конфигурации приложения.
// Пустые значения заполняются из Default(), затем из переменных окружения.
type Config struct {
	Server        ServerConfig         `yaml:"server"`
	EventBus      EventBusConfig       `yaml:"eventbus"`
	Invalidation  InvalidationConfig   `yaml:"invalidation"`
	Redis         RedisConfig          `yaml:"redis"`
	Maria         MariaConfig          `yaml:"maria"`
	Mongo         MongoConfig          `yaml:"mongo"`
	Badger        BadgerConfig         `yaml:"badger"`
	Worlds        WorldsConfig         `yaml:"worlds"`
	RegistryStore RegistryStoreConfig  `yaml:"registry_store"`
	Simulation    SimulationConfig     `yaml:"simulation"`
	Telemetry     observability.Config `yaml:"telemetry"`
}

type ServerConfig struct {
	NodeID   string `yaml:"node_id"`
	RESTPort int    `yaml:"rest_port"`
	GinMode  string `yaml:"gin_mode"`
}

// EventBusConfig - шина доменных событий: memory или jetstream
type EventBusConfig struct {
	Kind      string `yaml:"kind"`
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

// InvalidationConfig - рассылка смены версии мира: local или nats
type InvalidationConfig struct {
	Kind          string `yaml:"kind"`
	NATSURL       string `yaml:"nats_url"`
	Subject       string `yaml:"subject"`
	DedupeSeconds int    `yaml:"dedupe_window_seconds"`
}

type RedisConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	KeyPrefix    string `yaml:"key_prefix"`
	TTLHours     int    `yaml:"ttl_hours"`
	BatchSize    int    `yaml:"batch_size"`
	BatchFlushMs int    `yaml:"batch_flush_ms"`
}

type MariaConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

// BadgerConfig - локальный журнал инвентаря; пустой path = инвентарь в памяти
type BadgerConfig struct {
	Path string `yaml:"path"`
}

// WorldsConfig - источник конфигурации миров: yaml или mongo
type WorldsConfig struct {
	Source string `yaml:"source"`
	Dir    string `yaml:"dir"`
}

// RegistryStoreConfig - хранилище состояния реестров: memory или redis
type RegistryStoreConfig struct {
	Kind       string `yaml:"kind"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

type SimulationConfig struct {
	SaveEveryMs     int64 `yaml:"save_every_ms"`
	PresenceEveryMs int64 `yaml:"presence_every_ms"`
	FrameMs         int64 `yaml:"frame_ms"`
}

// Default возвращает конфигурацию, работающую без внешних сервисов
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			NodeID:  "node-1",
			GinMode: "release",
		},
		EventBus: EventBusConfig{
			Kind:      "memory",
			URL:       "nats://127.0.0.1:4222",
			Stream:    "EVENTS",
			Retention: 24,
			Buffer:    1024,
		},
		Invalidation: InvalidationConfig{
			Kind:          "local",
			NATSURL:       "nats://127.0.0.1:4222",
			Subject:       "world.invalidate",
			DedupeSeconds: 5,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			KeyPrefix:    "anima:",
			TTLHours:     24,
			BatchSize:    100,
			BatchFlushMs: 100,
		},
		Mongo: MongoConfig{
			URI:        "mongodb://localhost:27017",
			Database:   "anima",
			Collection: "worlds",
		},
		Worlds: WorldsConfig{
			Source: "yaml",
			Dir:    "worlds",
		},
		RegistryStore: RegistryStoreConfig{
			Kind:       "memory",
			TTLMinutes: 60,
		},
		Simulation: SimulationConfig{
			SaveEveryMs:     5000,
			PresenceEveryMs: 1500,
			FrameMs:         16,
		},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "GAME_REST_PORT", 8088)
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// RetentionDuration возвращает срок хранения событий в JetStream
func (e EventBusConfig) RetentionDuration() time.Duration {
	return time.Duration(e.Retention) * time.Hour
}

// DedupeWindow возвращает окно дедупликации уведомлений
func (i InvalidationConfig) DedupeWindow() time.Duration {
	return time.Duration(i.DedupeSeconds) * time.Second
}

// TTL возвращает время жизни позиций в Redis
func (r RedisConfig) TTL() time.Duration {
	return time.Duration(r.TTLHours) * time.Hour
}

// TTL возвращает время жизни состояния реестра
func (r RegistryStoreConfig) TTL() time.Duration {
	return time.Duration(r.TTLMinutes) * time.Minute
}

// Validate проверяет значения-перечисления
func (c *Config) Validate() error {
	switch c.EventBus.Kind {
	case "memory", "jetstream":
	default:
		return fmt.Errorf("eventbus.kind: неизвестное значение %q", c.EventBus.Kind)
	}
	switch c.Invalidation.Kind {
	case "local", "nats":
	default:
		return fmt.Errorf("invalidation.kind: неизвестное значение %q", c.Invalidation.Kind)
	}
	switch c.Worlds.Source {
	case "yaml", "mongo":
	default:
		return fmt.Errorf("worlds.source: неизвестное значение %q", c.Worlds.Source)
	}
	switch c.RegistryStore.Kind {
	case "memory":
	case "redis":
		if !c.Redis.Enabled {
			return fmt.Errorf("registry_store.kind=redis требует redis.enabled")
		}
	default:
		return fmt.Errorf("registry_store.kind: неизвестное значение %q", c.RegistryStore.Kind)
	}
	if c.Simulation.FrameMs <= 0 {
		return fmt.Errorf("simulation.frame_ms должен быть положительным")
	}
	return nil
}

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", пытается прочитать из ENV GAME_CONFIG, иначе возвращает Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("ошибка разбора %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
