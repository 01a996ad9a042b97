package population

import "github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"

// Advance догоняет реестр до момента now фиксированными шагами.
// Промежуток длиннее окна догоняния пропускается, а не проигрывается.
func (r *Registry) Advance(now int64) clock.CatchUp {
	plan := clock.PlanCatchUp(r.LastTick, now)
	for i := 1; i <= plan.Steps; i++ {
		r.Tick(plan.Tick(i))
	}
	r.LastTick = plan.LastTick
	return plan
}

// Tick выполняет один авторитетный шаг патрулирования в момент now.
// Экземпляры обрабатываются в порядке создания, случайность берется из r.Rand.
func (r *Registry) Tick(now int64) {
	for _, inst := range r.Instances {
		r.tickInstance(inst, now)
	}
}

func (r *Registry) tickInstance(inst *Instance, now int64) {
	group := r.GroupOf(inst)
	if group == nil {
		return
	}

	switch inst.State {
	case StateDespawned:
		if RespawnDue(inst, now) {
			r.TrySpawn(inst, now, r.Rand)
		}

	case StateDying:
		r.FinishDying(inst, now)

	case StateMoving:
		if now < inst.ArriveAt {
			return
		}
		r.CompleteStep(inst, now)
		inst.State = StateIdle
		inst.NextDecisionAt = now + DecisionDelay(group.Archetype.MovementSpeed, r.Rand)

	default:
		// Idle, а также Chase/Flee, которые в авторитетном режиме не возникают
		if inst.State != StateIdle {
			inst.State = StateIdle
			inst.Dest = inst.Tile
			inst.Path = nil
		}
		r.Heal(inst, now)
		if !inst.State.Alive() || now < inst.NextDecisionAt {
			return
		}

		candidates := r.PatrolCandidates(inst)
		if len(candidates) == 0 {
			inst.NextDecisionAt = now + RetryDelay(r.Rand)
			return
		}
		next := candidates[clock.Pick(r.Rand, len(candidates))]
		r.BeginStep(inst, next, now, group.Archetype.MovementSpeed)
		inst.State = StateMoving
	}
}

// Initialize заселяет свежий реестр в момент now и делает его точкой отсчета
func (r *Registry) Initialize(now int64) {
	r.Tick(now)
	r.LastTick = now
}
