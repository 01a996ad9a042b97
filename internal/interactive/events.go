package interactive

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/eventbus"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// Типы доменных событий интерактивной симуляции
const (
	EventCreatureDamaged    = "creature-damaged"
	EventCreatureDied       = "creature-died"
	EventLootSpawned        = "loot-spawned"
	EventLootCollected      = "loot-collected"
	EventParticipantDamaged = "participant-damaged"
)

// Event - доменное событие одного шага симуляции
type Event struct {
	Type       string   `json:"type"`
	At         int64    `json:"at"`
	WorldID    string   `json:"worldId"`
	CreatureID string   `json:"creatureId,omitempty"`
	UserID     uint64   `json:"userId,omitempty"`
	DropID     string   `json:"dropId,omitempty"`
	ItemID     string   `json:"itemId,omitempty"`
	Quantity   int      `json:"quantity,omitempty"`
	Damage     int      `json:"damage,omitempty"`
	Critical   bool     `json:"critical,omitempty"`
	HP         int      `json:"hp,omitempty"`
	Tile       vec.Vec2 `json:"tile"`
}

// NoticeLevel - важность сообщения для игрока
type NoticeLevel string

const (
	NoticeInfo NoticeLevel = "info"
	NoticeWarn NoticeLevel = "warn"
)

// NoticeTTLMs - сколько сообщение остается в View
const NoticeTTLMs int64 = 4000

// Notice - нефатальное сообщение для игрока (сбой сохранения, откат подбора)
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
	At      int64       `json:"at"`
}

// EventSink получает события каждого шага. Вызывается из Step и не должен блокировать.
type EventSink interface {
	Emit(events []Event)
}

// BusSink публикует события симуляции в шину событий.
// Emit только ставит конверты в очередь, публикует их отдельная горутина.
type BusSink struct {
	bus     eventbus.EventBus
	source  string
	timeout time.Duration
	logger  *logging.Logger

	mu      sync.RWMutex
	closed  bool
	queue   chan *eventbus.Envelope
	done    chan struct{}
	dropped atomic.Uint64
}

// BusSinkQueueSize - сколько конвертов ждут публикации, прежде чем Emit начнет их отбрасывать
const BusSinkQueueSize = 256

// NewBusSink создает публикатор событий мира worldID и запускает его горутину
func NewBusSink(bus eventbus.EventBus, worldID string) *BusSink {
	b := &BusSink{
		bus:     bus,
		source:  worldID,
		timeout: 200 * time.Millisecond,
		logger:  logging.GetInteractiveLogger(),
		queue:   make(chan *eventbus.Envelope, BusSinkQueueSize),
		done:    make(chan struct{}),
	}
	go b.run()
	return b
}

// priority - смерть и добыча важнее урона при переполнении шины
func priority(eventType string) int {
	switch eventType {
	case EventCreatureDied, EventLootSpawned, EventLootCollected:
		return 6
	default:
		return 2
	}
}

// Emit упаковывает события в конверты и ставит их в очередь без ожидания.
// При полной очереди или после Close событие отбрасывается.
func (b *BusSink) Emit(events []Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ev := range events {
		env, err := eventbus.NewEnvelope(b.source, ev.Type, ev)
		if err != nil {
			b.logger.Warn("Не удалось упаковать событие %s: %v", ev.Type, err)
			continue
		}
		env.Priority = priority(ev.Type)

		if b.closed {
			b.dropped.Add(1)
			continue
		}
		select {
		case b.queue <- env:
		default:
			if b.dropped.Add(1)%BusSinkQueueSize == 1 {
				b.logger.Warn("Очередь событий переполнена, событие %s отброшено", ev.Type)
			}
		}
	}
}

// Dropped возвращает число отброшенных событий
func (b *BusSink) Dropped() uint64 {
	return b.dropped.Load()
}

// Close останавливает прием событий и ждет публикации уже поставленных в очередь
func (b *BusSink) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.queue)
	b.mu.Unlock()
	<-b.done
}

func (b *BusSink) run() {
	defer close(b.done)
	for env := range b.queue {
		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		err := b.bus.Publish(ctx, env)
		cancel()
		if err != nil {
			b.logger.Warn("Не удалось опубликовать событие %s: %v", env.EventType, err)
		}
	}
}
