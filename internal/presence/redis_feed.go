package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
)

// RedisFeed хранит присутствие мира в хеше Redis: поле = UserID, значение = JSON Peer.
// У хеша скользящий TTL, чтобы пустые миры не копили мусор.
type RedisFeed struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisFeed создает ленту присутствия мира worldID
func NewRedisFeed(client *redis.Client, keyPrefix, worldID string, ttl time.Duration) *RedisFeed {
	if ttl <= 0 {
		ttl = time.Duration(StaleMs*3) * time.Millisecond
	}
	return &RedisFeed{
		client: client,
		key:    keyPrefix + "presence:" + worldID,
		ttl:    ttl,
		logger: logging.GetComponentLogger("presence"),
	}
}

// Publish записывает собственное присутствие участника
func (f *RedisFeed) Publish(ctx context.Context, p Peer) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal peer: %w", err)
	}

	pipe := f.client.TxPipeline()
	pipe.HSet(ctx, f.key, strconv.FormatUint(p.UserID, 10), data)
	pipe.Expire(ctx, f.key, f.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish presence: %w", err)
	}
	return nil
}

// Remove удаляет участника из ленты
func (f *RedisFeed) Remove(ctx context.Context, userID uint64) error {
	return f.client.HDel(ctx, f.key, strconv.FormatUint(userID, 10)).Err()
}

// Poll читает всех участников мира. Битые записи пропускаются.
func (f *RedisFeed) Poll(ctx context.Context) ([]Peer, error) {
	raw, err := f.client.HGetAll(ctx, f.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to poll presence: %w", err)
	}

	out := make([]Peer, 0, len(raw))
	for field, value := range raw {
		var p Peer
		if err := json.Unmarshal([]byte(value), &p); err != nil {
			f.logger.Warn("Пропущена битая запись присутствия %s: %v", field, err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
