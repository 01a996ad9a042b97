package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
)

// RedisPositionRepo хранит позиции участников в Redis.
// Save складывает запись в буфер, фоновая горутина сбрасывает его пайплайном.
type RedisPositionRepo struct {
	client      *redis.Client
	keyPrefix   string
	ttl         time.Duration
	batchSize   int
	batchMu     sync.Mutex
	batchBuffer map[uint64]Position
	batchTicker *time.Ticker
	shutdown    chan struct{}
	wg          sync.WaitGroup
	logger      *logging.Logger
}

// NewRedisPositionRepo создаёт Redis репозиторий позиций поверх готового клиента
func NewRedisPositionRepo(client *redis.Client, config *RedisConfig) *RedisPositionRepo {
	if config == nil {
		config = DefaultRedisConfig()
	}
	flush := config.BatchFlushMs
	if flush <= 0 {
		flush = 100
	}

	repo := &RedisPositionRepo{
		client:      client,
		keyPrefix:   config.KeyPrefix + "pos:",
		ttl:         config.TTL,
		batchSize:   config.BatchSize,
		batchBuffer: make(map[uint64]Position),
		batchTicker: time.NewTicker(time.Duration(flush) * time.Millisecond),
		shutdown:    make(chan struct{}),
		logger:      logging.GetStorageLogger(),
	}

	repo.wg.Add(1)
	go repo.batchFlusher()

	return repo
}

func (r *RedisPositionRepo) key(userID uint64) string {
	return r.keyPrefix + strconv.FormatUint(userID, 10)
}

// Save добавляет позицию в батч. Полный батч сбрасывается немедленно.
func (r *RedisPositionRepo) Save(ctx context.Context, userID uint64, pos Position) error {
	if err := validatePosition(userID, pos); err != nil {
		return err
	}

	r.batchMu.Lock()
	r.batchBuffer[userID] = pos

	if len(r.batchBuffer) >= r.batchSize {
		batch := r.batchBuffer
		r.batchBuffer = make(map[uint64]Position)
		r.batchMu.Unlock()
		return r.flushBatch(ctx, batch)
	}

	r.batchMu.Unlock()
	return nil
}

// Load возвращает позицию. Несброшенный буфер имеет приоритет над Redis.
func (r *RedisPositionRepo) Load(ctx context.Context, userID uint64) (Position, bool, error) {
	if userID == 0 {
		return Position{}, false, fmt.Errorf("недействительный userID: %d", userID)
	}

	r.batchMu.Lock()
	pending, ok := r.batchBuffer[userID]
	r.batchMu.Unlock()
	if ok {
		return pending, true, nil
	}

	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("failed to get position: %w", err)
	}

	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return Position{}, false, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return pos, true, nil
}

// Delete удаляет позицию из буфера и из Redis
func (r *RedisPositionRepo) Delete(ctx context.Context, userID uint64) error {
	if userID == 0 {
		return fmt.Errorf("недействительный userID: %d", userID)
	}

	r.batchMu.Lock()
	delete(r.batchBuffer, userID)
	r.batchMu.Unlock()

	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

// BatchSave записывает позиции одним пайплайном в обход буфера
func (r *RedisPositionRepo) BatchSave(ctx context.Context, positions map[uint64]Position) error {
	for userID, pos := range positions {
		if err := validatePosition(userID, pos); err != nil {
			return fmt.Errorf("batch: %w", err)
		}
	}
	return r.flushBatch(ctx, positions)
}

// Close останавливает фоновый сброс и дописывает остаток буфера. Клиент Redis закрывает владелец.
func (r *RedisPositionRepo) Close() error {
	close(r.shutdown)
	r.batchTicker.Stop()
	r.wg.Wait()

	r.batchMu.Lock()
	batch := r.batchBuffer
	r.batchBuffer = make(map[uint64]Position)
	r.batchMu.Unlock()

	if err := r.flushBatch(context.Background(), batch); err != nil {
		r.logger.Warn("Не удалось сбросить остаток позиций: %v", err)
		return err
	}
	return nil
}

func (r *RedisPositionRepo) batchFlusher() {
	defer r.wg.Done()

	for {
		select {
		case <-r.shutdown:
			return
		case <-r.batchTicker.C:
			r.batchMu.Lock()
			if len(r.batchBuffer) == 0 {
				r.batchMu.Unlock()
				continue
			}
			batch := r.batchBuffer
			r.batchBuffer = make(map[uint64]Position)
			r.batchMu.Unlock()

			if err := r.flushBatch(context.Background(), batch); err != nil {
				r.logger.Error("❌ Failed to flush position batch: %v", err)
			}
		}
	}
}

func (r *RedisPositionRepo) flushBatch(ctx context.Context, batch map[uint64]Position) error {
	if len(batch) == 0 {
		return nil
	}

	pipe := r.client.Pipeline()
	for userID, pos := range batch {
		data, err := json.Marshal(pos)
		if err != nil {
			r.logger.Warn("⚠️ Failed to marshal position for %d: %v", userID, err)
			continue
		}
		pipe.Set(ctx, r.key(userID), data, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	return nil
}
