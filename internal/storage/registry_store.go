package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/klauspost/compress/zstd"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
)

// ErrStateNotFound - состояние реестра мира отсутствует в хранилище
var ErrStateNotFound = errors.New("состояние реестра не найдено")

// MemoryRegistryStore хранит копии состояний реестров в памяти процесса
type MemoryRegistryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

// NewMemoryRegistryStore создает пустое хранилище
func NewMemoryRegistryStore() *MemoryRegistryStore {
	return &MemoryRegistryStore{states: make(map[string][]byte)}
}

// LoadState возвращает сохраненное состояние мира или ErrStateNotFound
func (s *MemoryRegistryStore) LoadState(ctx context.Context, worldID string) (*population.RegistryState, error) {
	s.mu.RLock()
	data, ok := s.states[worldID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}

	var st population.RegistryState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("повреждено состояние мира %s: %w", worldID, err)
	}
	return &st, nil
}

// SaveState сохраняет копию состояния
func (s *MemoryRegistryStore) SaveState(ctx context.Context, st *population.RegistryState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("ошибка сериализации состояния мира %s: %w", st.WorldID, err)
	}

	s.mu.Lock()
	s.states[st.WorldID] = data
	s.mu.Unlock()
	return nil
}

// DeleteState удаляет состояние мира
func (s *MemoryRegistryStore) DeleteState(ctx context.Context, worldID string) error {
	s.mu.Lock()
	delete(s.states, worldID)
	s.mu.Unlock()
	return nil
}

// RedisRegistryStore хранит состояния реестров в Redis как сжатый zstd JSON.
// Позволяет нескольким процессам сервера отдавать один и тот же мир.
type RedisRegistryStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	encoder   *zstd.Encoder
	decoder   *zstd.Decoder
}

// NewRedisRegistryStore создает хранилище поверх готового клиента.
// ttl = 0 означает хранение без срока.
func NewRedisRegistryStore(client *redis.Client, keyPrefix string, ttl time.Duration) (*RedisRegistryStore, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &RedisRegistryStore{
		client:    client,
		keyPrefix: keyPrefix + "registry:",
		ttl:       ttl,
		encoder:   encoder,
		decoder:   decoder,
	}, nil
}

// EncodeState сериализует состояние в JSON и сжимает zstd
func EncodeState(enc *zstd.Encoder, st *population.RegistryState) ([]byte, error) {
	raw, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/3)), nil
}

// DecodeState распаковывает и разбирает состояние
func DecodeState(dec *zstd.Decoder, data []byte) (*population.RegistryState, error) {
	raw, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, err
	}
	var st population.RegistryState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// LoadState читает состояние мира из Redis
func (s *RedisRegistryStore) LoadState(ctx context.Context, worldID string) (*population.RegistryState, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+worldID).Bytes()
	if err == redis.Nil {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registry state %s: %w", worldID, err)
	}

	st, err := DecodeState(s.decoder, data)
	if err != nil {
		return nil, fmt.Errorf("повреждено состояние мира %s: %w", worldID, err)
	}
	return st, nil
}

// SaveState записывает состояние мира в Redis
func (s *RedisRegistryStore) SaveState(ctx context.Context, st *population.RegistryState) error {
	data, err := EncodeState(s.encoder, st)
	if err != nil {
		return fmt.Errorf("ошибка сериализации состояния мира %s: %w", st.WorldID, err)
	}
	if err := s.client.Set(ctx, s.keyPrefix+st.WorldID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save registry state %s: %w", st.WorldID, err)
	}
	return nil
}

// DeleteState удаляет состояние мира из Redis
func (s *RedisRegistryStore) DeleteState(ctx context.Context, worldID string) error {
	if err := s.client.Del(ctx, s.keyPrefix+worldID).Err(); err != nil {
		return fmt.Errorf("failed to delete registry state %s: %w", worldID, err)
	}
	return nil
}

// Close освобождает ресурсы кодеков. Клиент Redis закрывает владелец.
func (s *RedisRegistryStore) Close() error {
	s.encoder.Close()
	s.decoder.Close()
	return nil
}
