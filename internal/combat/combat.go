package combat

import (
	"math"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

const (
	// AggroDurationMs - сколько держится взаимная агрессия без обновления
	AggroDurationMs int64 = 600000
	// ParticipantMinIntervalMs - минимальный интервал атаки участника
	ParticipantMinIntervalMs int64 = 160
	// CreatureMinIntervalMs - минимальный интервал атаки существа
	CreatureMinIntervalMs int64 = 240
	// FleeHPRatio - доля здоровья, при которой существо убегает
	FleeHPRatio = 0.15
	// CombatSpeedMultiplier - множитель скорости в бою и при бегстве
	CombatSpeedMultiplier = 1.3
	// OrbitChance - вероятность обхода цели, пока атака на перезарядке
	OrbitChance = 0.35

	damageSpreadMin = 0.84
	damageSpreadMax = 1.16
	defenseFactor   = 0.45
	critMultiplier  = 1.5

	fleeRetryMinMs = 65.0
	fleeRetryMaxMs = 180.0
)

// Stats - боевые характеристики стороны
type Stats struct {
	Attack     int
	Defense    int
	CritChance float64 // Проценты
}

// Hit - результат одного удара
type Hit struct {
	Damage   int
	Critical bool
}

// Damage рассчитывает урон удара attacker по defender.
// Обычный удар не меньше 1, критический не меньше 2.
func Damage(attacker, defender Stats, rnd clock.Random) Hit {
	spread := clock.Uniform(rnd, damageSpreadMin, damageSpreadMax)
	base := int(math.Round(float64(attacker.Attack)*spread - float64(defender.Defense)*defenseFactor))
	if base < 1 {
		base = 1
	}

	critical := rnd.Float64()*100 < attacker.CritChance
	if !critical {
		return Hit{Damage: base}
	}

	final := int(math.Round(float64(base) * critMultiplier))
	if final < 2 {
		final = 2
	}
	return Hit{Damage: final, Critical: true}
}

// IntervalMs возвращает интервал атаки не меньше minMs
func IntervalMs(ms, minMs int64) int64 {
	if ms < minMs {
		return minMs
	}
	return ms
}

// ParticipantIntervalMs переводит скорость атаки участника (в секундах) в интервал
func ParticipantIntervalMs(attackSpeedSeconds float64) int64 {
	return IntervalMs(int64(math.Round(attackSpeedSeconds*1000)), ParticipantMinIntervalMs)
}

// CreatureIntervalMs возвращает интервал атаки существа
func CreatureIntervalMs(attackIntervalMs int64) int64 {
	return IntervalMs(attackIntervalMs, CreatureMinIntervalMs)
}

// Ready сообщает, что интервал с последней атаки истек
func Ready(now, lastAttackAt, intervalMs int64) bool {
	return lastAttackAt == 0 || now-lastAttackAt >= intervalMs
}

// InRange сообщает, что стороны стоят на соседних тайлах
func InRange(a, b vec.Vec2) bool {
	return a.IsAdjacent(b)
}

// ApplyToCreature вычитает урон из здоровья существа, не опускаясь ниже 0
func ApplyToCreature(hp, damage int) int {
	hp -= damage
	if hp < 0 {
		return 0
	}
	return hp
}

// ApplyToParticipant вычитает урон из здоровья участника. Участник не умирает: минимум 1.
func ApplyToParticipant(hp, damage int) int {
	hp -= damage
	if hp < 1 {
		return 1
	}
	return hp
}

// ShouldFlee сообщает, что существу пора убегать
func ShouldFlee(hp, maxHP int) bool {
	if maxHP <= 0 || hp <= 0 {
		return false
	}
	return float64(hp)/float64(maxHP) <= FleeHPRatio
}

// FleeRetryDelay - задержка повторной попытки бегства, когда бежать некуда
func FleeRetryDelay(rnd clock.Random) int64 {
	return int64(math.Round(clock.Uniform(rnd, fleeRetryMinMs, fleeRetryMaxMs)))
}
