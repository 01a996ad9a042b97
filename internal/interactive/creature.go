package interactive

import (
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/combat"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/pathfind"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

func creatureStats(a *population.Archetype) combat.Stats {
	return combat.Stats{Attack: a.Attack, Defense: a.Defense, CritChance: a.CritChance}
}

// creatureBlocked - маска перемещения группы плюс тайлы других существ и участника
func (s *Simulator) creatureBlocked(inst *population.Instance, group *population.Group) pathfind.BlockedFunc {
	occupied := s.registry.OccupiedSet(inst)
	return func(x, y int) bool {
		if !group.MovementMask.Usable(x, y) {
			return true
		}
		_, busy := occupied[vec.Vec2{X: x, Y: y}]
		return busy
	}
}

// stepCreature - один шаг конечного автомата существа:
// Idle/Patrol <-> Chase <-> Flee -> Dying -> Despawned -> Idle
func (s *Simulator) stepCreature(inst *population.Instance, now int64, events []Event) []Event {
	r := s.registry
	group := r.GroupOf(inst)
	if group == nil {
		return events
	}
	arch := group.Archetype

	switch inst.State {
	case population.StateDying:
		r.FinishDying(inst, now)
		return events
	case population.StateDespawned:
		if population.RespawnDue(inst, now) {
			r.TrySpawn(inst, now, s.rnd)
		}
		return events
	}

	if inst.AggroUntil != 0 && now >= inst.AggroUntil {
		if s.participant.TargetID == inst.ID {
			s.ClearTarget()
		} else {
			s.release(inst.ID)
		}
	}

	if inst.InTransit() {
		if now < inst.ArriveAt {
			return events
		}
		r.CompleteStep(inst, now)
		if inst.State == population.StateMoving && len(inst.Path) == 0 {
			inst.State = population.StateIdle
			inst.NextDecisionAt = now + population.DecisionDelay(arch.MovementSpeed, s.rnd)
		}
	}

	r.Heal(inst, now)
	if !inst.State.Alive() {
		return events
	}

	if inst.AggroUntil > now {
		return s.engageCreature(inst, group, now, events)
	}

	if inst.State == population.StateChase || inst.State == population.StateFlee {
		inst.State = population.StateIdle
		inst.Path = nil
	}
	s.patrol(inst, group, now)
	return events
}

// patrol ведет существо по пути к случайному тайлу зоны перемещения
func (s *Simulator) patrol(inst *population.Instance, group *population.Group, now int64) {
	speed := group.Archetype.MovementSpeed
	if inst.InTransit() {
		return
	}
	if len(inst.Path) > 0 {
		s.advance(inst, group, speed, now)
		return
	}
	if now < inst.NextDecisionAt {
		return
	}

	tiles := group.MovementTiles
	if len(tiles) == 0 {
		tiles = group.SpawnTiles
	}
	if len(tiles) == 0 {
		inst.NextDecisionAt = now + population.RetryDelay(s.rnd)
		return
	}
	goal := tiles[clock.Pick(s.rnd, len(tiles))]

	g := s.registry.Grid
	path := pathfind.FindPath(g.Cols, g.Rows, inst.Tile, goal, s.creatureBlocked(inst, group), pathfind.Options{})
	if len(path) == 0 {
		inst.NextDecisionAt = now + population.RetryDelay(s.rnd)
		return
	}
	inst.Path = path
	inst.State = population.StateMoving
	s.advance(inst, group, speed, now)
}

// advance начинает переход на следующий тайл пути. Перекрытый путь сбрасывается.
func (s *Simulator) advance(inst *population.Instance, group *population.Group, speed float64, now int64) {
	next := inst.Path[0]
	if s.creatureBlocked(inst, group)(next.X, next.Y) {
		inst.Path = nil
		if inst.State == population.StateMoving {
			inst.State = population.StateIdle
		}
		inst.NextDecisionAt = now + population.RetryDelay(s.rnd)
		return
	}
	inst.Path = inst.Path[1:]
	s.registry.BeginStep(inst, next, now, speed)
}

// engageCreature - поведение существа под агрессией: бегство, атака, обход или преследование
func (s *Simulator) engageCreature(inst *population.Instance, group *population.Group, now int64, events []Event) []Event {
	p := s.participant
	arch := group.Archetype
	speed := arch.MovementSpeed * combat.CombatSpeedMultiplier
	g := s.registry.Grid

	if combat.ShouldFlee(inst.HP, inst.MaxHP) {
		if inst.State != population.StateFlee {
			inst.State = population.StateFlee
			inst.Path = nil
			inst.NextDecisionAt = now
		}
		if inst.InTransit() {
			return events
		}
		if len(inst.Path) > 0 {
			s.advance(inst, group, speed, now)
			return events
		}
		if now < inst.NextDecisionAt {
			return events
		}

		blocked := s.creatureBlocked(inst, group)
		if target, ok := combat.FleeTarget(g.Cols, g.Rows, inst.Tile, p.Tile, blocked); ok {
			if path := pathfind.FindPath(g.Cols, g.Rows, inst.Tile, target, blocked, pathfind.Options{}); len(path) > 0 {
				inst.Path = path
				s.advance(inst, group, speed, now)
				return events
			}
		}
		inst.NextDecisionAt = now + combat.FleeRetryDelay(s.rnd)
		return events
	}

	if inst.State != population.StateChase {
		inst.State = population.StateChase
		inst.Path = nil
		inst.NextDecisionAt = now
	}
	if inst.InTransit() {
		return events
	}

	if combat.InRange(inst.Tile, p.Tile) {
		inst.Path = nil
		if combat.Ready(now, inst.LastAttackAt, combat.CreatureIntervalMs(arch.AttackIntervalMs)) {
			return s.creatureAttack(inst, arch, now, events)
		}
		if now >= inst.NextDecisionAt {
			if tile, ok := combat.Orbit(inst.Tile, p.Tile, s.creatureBlocked(inst, group), s.rnd); ok {
				s.registry.BeginStep(inst, tile, now, speed)
			}
			inst.NextDecisionAt = now + population.DecisionDelay(speed, s.rnd)
		}
		return events
	}

	if len(inst.Path) == 0 || !inst.Path[len(inst.Path)-1].IsAdjacent(p.Tile) {
		if now < inst.NextDecisionAt {
			return events
		}
		path := pathfind.FindPath(g.Cols, g.Rows, inst.Tile, p.Tile, s.creatureBlocked(inst, group), pathfind.Options{
			AllowCornerCut:   true,
			GoalMayBeBlocked: true,
		})
		if len(path) > 0 {
			path = path[:len(path)-1]
		}
		if len(path) == 0 {
			inst.NextDecisionAt = now + population.RetryDelay(s.rnd)
			return events
		}
		inst.Path = path
	}
	s.advance(inst, group, speed, now)
	return events
}

func (s *Simulator) creatureAttack(inst *population.Instance, arch *population.Archetype, now int64, events []Event) []Event {
	p := s.participant
	hit := combat.Damage(creatureStats(arch), p.Stats(), s.rnd)
	inst.LastAttackAt = now
	inst.Facing = vec.FacingTowards(inst.Tile, p.Tile, inst.Facing)
	inst.UpdatedAt = now
	p.HP = combat.ApplyToParticipant(p.HP, hit.Damage)

	return append(events, Event{
		Type:       EventParticipantDamaged,
		At:         now,
		WorldID:    s.worldID,
		CreatureID: inst.ID,
		UserID:     p.UserID,
		Damage:     hit.Damage,
		Critical:   hit.Critical,
		HP:         p.HP,
		Tile:       p.Tile,
	})
}
