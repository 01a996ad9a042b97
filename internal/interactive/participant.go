package interactive

import (
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/combat"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// ParticipantConfig - стартовые характеристики активного участника
type ParticipantConfig struct {
	UserID         uint64
	DisplayName    string
	Start          vec.Vec2
	MaxHP          int
	HP             int // 0 = MaxHP
	Attack         int
	Defense        int
	CritChance     float64 // Проценты
	AttackSpeedSec float64
	MovementSpeed  float64
	Scale          float64
}

// Participant - участник, которым управляет игрок.
// Tile меняется только по прибытии на Dest.
type Participant struct {
	UserID      uint64
	DisplayName string

	Tile          vec.Vec2
	Dest          vec.Vec2
	Facing        int
	Path          []vec.Vec2
	MoveStartedAt int64
	ArriveAt      int64

	HP           int
	MaxHP        int
	LastAttackAt int64

	// TargetID - существо, которое участник атакует
	TargetID string
	// PickupID - предмет, за которым участник идет
	PickupID string

	stats          combat.Stats
	attackSpeedSec float64
	speed          float64
	scale          float64
}

func newParticipant(cfg ParticipantConfig) *Participant {
	maxHP := cfg.MaxHP
	if maxHP <= 0 {
		maxHP = 100
	}
	hp := cfg.HP
	if hp <= 0 || hp > maxHP {
		hp = maxHP
	}
	speed := cfg.MovementSpeed
	if speed <= 0 {
		speed = 1
	}
	scale := cfg.Scale
	if scale <= 0 {
		scale = 1
	}

	return &Participant{
		UserID:         cfg.UserID,
		DisplayName:    cfg.DisplayName,
		Tile:           cfg.Start,
		Dest:           cfg.Start,
		Facing:         1,
		HP:             hp,
		MaxHP:          maxHP,
		stats:          combat.Stats{Attack: cfg.Attack, Defense: cfg.Defense, CritChance: cfg.CritChance},
		attackSpeedSec: cfg.AttackSpeedSec,
		speed:          speed,
		scale:          scale,
	}
}

// InTransit сообщает, что участник переходит на соседний тайл
func (p *Participant) InTransit() bool {
	return p.Dest != p.Tile
}

// Stats возвращает боевые характеристики участника
func (p *Participant) Stats() combat.Stats {
	return p.stats
}

// AttackIntervalMs возвращает интервал атаки участника
func (p *Participant) AttackIntervalMs() int64 {
	return combat.ParticipantIntervalMs(p.attackSpeedSec)
}

// RenderAt возвращает интерполированную позицию участника
func (p *Participant) RenderAt(now int64) vec.Vec2Float {
	if !p.InTransit() || p.ArriveAt <= p.MoveStartedAt {
		return vec.FromVec2(p.Tile)
	}
	t := float64(now-p.MoveStartedAt) / float64(p.ArriveAt-p.MoveStartedAt)
	return vec.Lerp(p.Tile, p.Dest, t)
}

// reserved возвращает тайлы, которые участник занимает
func (p *Participant) reserved() []vec.Vec2 {
	if p.InTransit() {
		return []vec.Vec2{p.Tile, p.Dest}
	}
	return []vec.Vec2{p.Tile}
}
