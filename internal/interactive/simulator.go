package interactive

import (
	"context"
	"fmt"
	"time"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/combat"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/metrics"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/pathfind"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/presence"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

const (
	// DefaultSaveEveryMs - период сохранения позиции участника
	DefaultSaveEveryMs int64 = 5000
	// DefaultPresenceEveryMs - период опроса присутствия
	DefaultPresenceEveryMs int64 = 1500

	callTimeout   = 5 * time.Second
	resultsBuffer = 64
)

// Options - коллабораторы и настройки интерактивной симуляции.
// Любой коллаборатор может быть nil.
type Options struct {
	Random    clock.Random // nil = настоящая случайность
	Masks     *grid.MaskCache
	Inventory Inventory
	Positions PositionSaver
	Presence  presence.Feed
	Sink      EventSink
	Metrics   *metrics.InteractiveMetrics
	Logger    *logging.Logger

	SaveEveryMs     int64
	PresenceEveryMs int64
}

// Simulator - интерактивная симуляция одного участника в мире.
// Step вызывается из одного цикла; команды и View - из того же цикла.
// Внешние вызовы выполняются в горутинах и возвращают результат через канал.
type Simulator struct {
	worldID  string
	registry *population.Registry
	rnd      clock.Random
	opts     Options
	logger   *logging.Logger

	participant *Participant
	drops       []*dropEntry
	peers       []presence.Peer
	notices     []Notice

	now            int64
	started        bool
	lastSaveAt     int64
	lastPresenceAt int64
	saving         bool
	polling        bool

	results chan asyncResult
	ctx     context.Context
	cancel  context.CancelFunc
}

type dropEntry struct {
	combat.GroundDrop
	collecting bool
}

// New строит симуляцию из конфигурации мира. Группы с ошибками пропускаются и логируются.
func New(cfg *population.WorldConfig, pc ParticipantConfig, opts Options) (*Simulator, error) {
	registry, err := population.NewRegistry(cfg, opts.Masks)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.GetInteractiveLogger()
	}
	for _, skipped := range registry.Skipped() {
		logger.Warn("Группа пропущена: %v", skipped)
	}

	rnd := opts.Random
	if rnd == nil {
		rnd = clock.NewTrueRandom()
	}
	if opts.SaveEveryMs <= 0 {
		opts.SaveEveryMs = DefaultSaveEveryMs
	}
	if opts.PresenceEveryMs <= 0 {
		opts.PresenceEveryMs = DefaultPresenceEveryMs
	}

	p := newParticipant(pc)
	g := registry.Grid
	if g.Blocked(p.Tile.X, p.Tile.Y) {
		tile, ok := pathfind.Nearest(g.Cols, g.Rows, p.Tile, func(x, y int) bool { return !g.Blocked(x, y) })
		if !ok {
			return nil, fmt.Errorf("мир %s: нет свободного тайла для участника", cfg.ID)
		}
		p.Tile, p.Dest = tile, tile
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Simulator{
		worldID:     cfg.ID,
		registry:    registry,
		rnd:         rnd,
		opts:        opts,
		logger:      logger,
		participant: p,
		results:     make(chan asyncResult, resultsBuffer),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Close отменяет незавершенные внешние вызовы
func (s *Simulator) Close() {
	s.cancel()
}

// Registry возвращает реестр существ симуляции
func (s *Simulator) Registry() *population.Registry {
	return s.registry
}

// Participant возвращает участника
func (s *Simulator) Participant() *Participant {
	return s.participant
}

// MoveTo отправляет участника к тайлу. Текущая цель и подбор сбрасываются.
func (s *Simulator) MoveTo(tile vec.Vec2) bool {
	s.ClearTarget()
	s.participant.PickupID = ""
	return s.routeParticipant(tile, false)
}

// Attack назначает существо целью участника и включает взаимную агрессию.
// Предыдущее существо отпускается: агрессия держится максимум на одном существе.
func (s *Simulator) Attack(creatureID string) error {
	inst, ok := s.registry.Instance(creatureID)
	if !ok {
		return fmt.Errorf("существо %s не найдено", creatureID)
	}
	if !inst.State.Alive() {
		return fmt.Errorf("существо %s недоступно для атаки", creatureID)
	}

	p := s.participant
	if p.TargetID != "" && p.TargetID != creatureID {
		s.release(p.TargetID)
	}
	p.TargetID = creatureID
	p.PickupID = ""
	p.Path = nil
	inst.AggroUntil = s.now + combat.AggroDurationMs
	return nil
}

// Pickup отправляет участника к предмету на земле
func (s *Simulator) Pickup(dropID string) error {
	drop := s.drop(dropID)
	if drop == nil || drop.collecting {
		return fmt.Errorf("предмет %s не найден", dropID)
	}
	s.ClearTarget()
	s.participant.PickupID = dropID
	if s.participant.Tile == drop.Tile {
		s.participant.Path = nil
		return nil
	}
	if !s.routeParticipant(drop.Tile, false) {
		s.participant.PickupID = ""
		return fmt.Errorf("до предмета %s не дойти", dropID)
	}
	return nil
}

// ClearTarget сбрасывает цель и путь участника
func (s *Simulator) ClearTarget() {
	p := s.participant
	if p.TargetID != "" {
		s.release(p.TargetID)
		p.TargetID = ""
	}
	p.Path = nil
}

// release снимает агрессию с существа
func (s *Simulator) release(creatureID string) {
	inst, ok := s.registry.Instance(creatureID)
	if !ok {
		return
	}
	inst.AggroUntil = 0
	if inst.State == population.StateChase || inst.State == population.StateFlee {
		inst.State = population.StateIdle
		inst.Path = nil
	}
}

func (s *Simulator) drop(id string) *dropEntry {
	for _, d := range s.drops {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// participantBlocked - коллизии мира и тайлы, занятые существами
func (s *Simulator) participantBlocked() pathfind.BlockedFunc {
	g := s.registry.Grid
	// Свои зарезервированные тайлы участнику не мешают
	reserved := s.registry.Reserved
	s.registry.Reserved = nil
	occupied := s.registry.OccupiedSet(nil)
	s.registry.Reserved = reserved
	return func(x, y int) bool {
		if g.Blocked(x, y) {
			return true
		}
		_, busy := occupied[vec.Vec2{X: x, Y: y}]
		return busy
	}
}

// routeParticipant прокладывает путь участника. adjacent = остановиться рядом с goal.
func (s *Simulator) routeParticipant(goal vec.Vec2, adjacent bool) bool {
	p := s.participant
	g := s.registry.Grid
	path := pathfind.FindPath(g.Cols, g.Rows, p.Dest, goal, s.participantBlocked(), pathfind.Options{
		AllowCornerCut:   true,
		GoalMayBeBlocked: adjacent,
	})
	if adjacent && len(path) > 0 {
		path = path[:len(path)-1]
	}
	p.Path = path
	return len(path) > 0 || (adjacent && p.Dest.IsAdjacent(goal))
}

// notify добавляет сообщение для игрока
func (s *Simulator) notify(level NoticeLevel, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	s.notices = append(s.notices, Notice{Level: level, Message: msg, At: s.now})
	if level == NoticeWarn {
		s.logger.Warn("%s", msg)
	}
}
