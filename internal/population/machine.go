package population

import (
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/pathfind"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// Общие переходы конечного автомата существа. Используются и авторитетным
// тиком реестра, и интерактивным симулятором с собственным генератором.

// TrySpawn пытается поставить экземпляр на свободный тайл группы.
// Если свободных тайлов нет, таймер респавна взводится заново.
func (r *Registry) TrySpawn(inst *Instance, now int64, rnd clock.Random) bool {
	group := r.GroupOf(inst)
	if group == nil {
		return false
	}

	occupied := r.OccupiedSet(inst)
	candidates := make([]vec.Vec2, 0)
	for _, t := range group.candidateTiles() {
		if _, busy := occupied[t]; busy {
			continue
		}
		if !group.Usable(t) {
			continue
		}
		candidates = append(candidates, t)
	}

	if len(candidates) == 0 {
		inst.RespawnAt = now + group.RespawnMs
		return false
	}

	tile := candidates[clock.Pick(rnd, len(candidates))]
	inst.State = StateIdle
	inst.Tile = tile
	inst.Dest = tile
	inst.Path = nil
	inst.MaxHP = group.Archetype.MaxHP
	inst.HP = inst.MaxHP
	inst.AggroUntil = 0
	inst.LastAttackAt = 0
	inst.DiedAt = 0
	inst.NextDecisionAt = now + DecisionDelay(group.Archetype.MovementSpeed, rnd)
	inst.UpdatedAt = now
	return true
}

// Despawn убирает экземпляр из мира и взводит таймер респавна
func (r *Registry) Despawn(inst *Instance, now int64) {
	inst.State = StateDespawned
	inst.Path = nil
	inst.Dest = inst.Tile
	inst.HP = 0
	inst.UpdatedAt = now
	if group := r.GroupOf(inst); group != nil {
		inst.RespawnAt = now + group.RespawnMs
	}
}

// BeginStep начинает переход на соседний тайл next
func (r *Registry) BeginStep(inst *Instance, next vec.Vec2, now int64, speed float64) {
	inst.Facing = vec.FacingTowards(inst.Tile, next, inst.Facing)
	inst.Dest = next
	inst.MoveStartedAt = now
	inst.ArriveAt = now + StepDurationMs(speed, inst.Tile, next)
	inst.UpdatedAt = now
}

// CompleteStep фиксирует прибытие на целевой тайл
func (r *Registry) CompleteStep(inst *Instance, now int64) {
	inst.Tile = inst.Dest
	inst.UpdatedAt = now
}

// Kill переводит экземпляр в состояние умирания. Таймер респавна
// отсчитывается от момента смерти.
func (r *Registry) Kill(inst *Instance, now int64) {
	inst.State = StateDying
	inst.HP = 0
	inst.Path = nil
	inst.Dest = inst.Tile
	inst.AggroUntil = 0
	inst.DiedAt = now
	inst.UpdatedAt = now
	if group := r.GroupOf(inst); group != nil {
		inst.RespawnAt = now + group.RespawnMs
	}
}

// FinishDying деспавнит экземпляр после анимации смерти. RespawnAt не меняется.
func (r *Registry) FinishDying(inst *Instance, now int64) bool {
	if inst.State != StateDying || now < inst.DiedAt+DeathDurationMs {
		return false
	}
	inst.State = StateDespawned
	inst.UpdatedAt = now
	return true
}

// RespawnDue сообщает, что деспавненный экземпляр пора возвращать в мир
func RespawnDue(inst *Instance, now int64) bool {
	if inst.State != StateDespawned {
		return false
	}
	due := inst.RespawnAt
	if inst.DiedAt > 0 && inst.DiedAt+DeathDurationMs > due {
		due = inst.DiedAt + DeathDurationMs
	}
	return now >= due
}

// Heal возвращает стоящий экземпляр на ближайший допустимый тайл, если его
// текущий тайл стал недоступен группе. Без допустимых тайлов экземпляр деспавнится.
func (r *Registry) Heal(inst *Instance, now int64) {
	if !inst.State.Alive() || inst.InTransit() {
		return
	}
	group := r.GroupOf(inst)
	if group == nil || group.Usable(inst.Tile) {
		return
	}

	occupied := r.OccupiedSet(inst)
	usable := func(x, y int) bool {
		t := vec.Vec2{X: x, Y: y}
		if _, busy := occupied[t]; busy {
			return false
		}
		return group.Usable(t)
	}

	tile, ok := pathfind.Nearest(r.Grid.Cols, r.Grid.Rows, inst.Tile, usable)
	if !ok {
		r.Despawn(inst, now)
		return
	}
	inst.Tile = tile
	inst.Dest = tile
	inst.Path = nil
	inst.UpdatedAt = now
}

// PatrolCandidates возвращает соседние тайлы, куда экземпляр может шагнуть:
// внутри маски группы, свободные, без среза угла между двумя препятствиями.
func (r *Registry) PatrolCandidates(inst *Instance) []vec.Vec2 {
	group := r.GroupOf(inst)
	if group == nil {
		return nil
	}
	occupied := r.OccupiedSet(inst)
	blocked := func(x, y int) bool {
		return !group.MovementMask.Usable(x, y)
	}

	out := make([]vec.Vec2, 0, len(vec.Neighbors8))
	for _, d := range vec.Neighbors8 {
		next := inst.Tile.Add(d)
		if blocked(next.X, next.Y) {
			continue
		}
		if _, busy := occupied[next]; busy {
			continue
		}
		if d.IsDiagonal() && !pathfind.CanStepDiagonal(inst.Tile, d, blocked, false) {
			continue
		}
		out = append(out, next)
	}
	return out
}
