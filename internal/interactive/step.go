package interactive

import (
	"context"
	"time"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/combat"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/presence"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// Step продвигает симуляцию до момента now и возвращает события шага.
// Шаг не блокируется: результаты внешних вызовов применяются на следующих шагах.
// Время не идет назад: меньший now трактуется как предыдущий.
func (s *Simulator) Step(now int64) []Event {
	started := time.Now()
	if now < s.now {
		now = s.now
	}
	s.now = now
	if !s.started {
		s.started = true
		s.lastSaveAt = now
		s.lastPresenceAt = now - s.opts.PresenceEveryMs
	}

	events := s.drainResults(nil)

	s.registry.Reserved = s.participant.reserved()
	events = s.stepParticipant(now, events)

	s.registry.Reserved = s.participant.reserved()
	for _, inst := range s.registry.Instances {
		events = s.stepCreature(inst, now, events)
	}

	s.expireDrops(now)
	s.peers = presence.FilterFresh(s.peers, s.participant.UserID, now)
	s.pruneNotices(now)
	s.schedule(now)

	s.observe(started, events)
	if s.opts.Sink != nil && len(events) > 0 {
		s.opts.Sink.Emit(events)
	}
	return events
}

// Pending возвращает число внешних вызовов, результат которых еще не применен
func (s *Simulator) Pending() int {
	n := 0
	if s.saving {
		n++
	}
	if s.polling {
		n++
	}
	for _, d := range s.drops {
		if d.collecting {
			n++
		}
	}
	return n
}

func (s *Simulator) stepParticipant(now int64, events []Event) []Event {
	p := s.participant
	if p.InTransit() && now >= p.ArriveAt {
		p.Tile = p.Dest
	}

	if p.TargetID != "" {
		events = s.engage(now, events)
	}
	if p.PickupID != "" {
		events = s.tryPickup(now, events)
	}

	if p.InTransit() || len(p.Path) == 0 {
		return events
	}
	next := p.Path[0]
	if s.participantBlocked()(next.X, next.Y) {
		// Путь перекрыт существом: цель перестроит маршрут на следующем шаге
		p.Path = nil
		return events
	}
	p.Path = p.Path[1:]
	p.Facing = vec.FacingTowards(p.Tile, next, p.Facing)
	p.Dest = next
	p.MoveStartedAt = now
	p.ArriveAt = now + population.StepDurationMs(p.speed, p.Tile, next)
	return events
}

// engage ведет участника к цели и атакует, когда цель рядом
func (s *Simulator) engage(now int64, events []Event) []Event {
	p := s.participant
	inst, ok := s.registry.Instance(p.TargetID)
	if !ok || !inst.State.Alive() || inst.AggroUntil <= now {
		s.ClearTarget()
		return events
	}
	if p.InTransit() {
		return events
	}

	if combat.InRange(p.Tile, inst.Tile) {
		p.Path = nil
		if combat.Ready(now, p.LastAttackAt, p.AttackIntervalMs()) {
			events = s.participantAttack(inst, now, events)
		}
		return events
	}

	if len(p.Path) == 0 || !p.Path[len(p.Path)-1].IsAdjacent(inst.Tile) {
		if !s.routeParticipant(inst.Tile, true) {
			s.logger.Debug("Цель %s недостижима, преследование прекращено", inst.ID)
			s.ClearTarget()
		}
	}
	return events
}

func (s *Simulator) participantAttack(inst *population.Instance, now int64, events []Event) []Event {
	p := s.participant
	group := s.registry.GroupOf(inst)
	if group == nil {
		return events
	}

	hit := combat.Damage(p.Stats(), creatureStats(group.Archetype), s.rnd)
	p.LastAttackAt = now
	p.Facing = vec.FacingTowards(p.Tile, inst.Tile, p.Facing)
	inst.HP = combat.ApplyToCreature(inst.HP, hit.Damage)
	inst.UpdatedAt = now

	events = append(events, Event{
		Type:       EventCreatureDamaged,
		At:         now,
		WorldID:    s.worldID,
		CreatureID: inst.ID,
		UserID:     p.UserID,
		Damage:     hit.Damage,
		Critical:   hit.Critical,
		HP:         inst.HP,
		Tile:       inst.Tile,
	})
	if inst.HP == 0 {
		events = s.killCreature(inst, group.Archetype, now, events)
	}
	return events
}

// killCreature переводит существо в Dying и разыгрывает добычу на тайле смерти
func (s *Simulator) killCreature(inst *population.Instance, arch *population.Archetype, now int64, events []Event) []Event {
	tile := inst.Tile
	s.registry.Kill(inst, now)
	if s.participant.TargetID == inst.ID {
		s.participant.TargetID = ""
		s.participant.Path = nil
	}

	events = append(events, Event{
		Type:       EventCreatureDied,
		At:         now,
		WorldID:    s.worldID,
		CreatureID: inst.ID,
		UserID:     s.participant.UserID,
		Tile:       tile,
	})

	for _, drop := range combat.SpawnDrops(arch.Loot, tile, now, s.rnd) {
		s.drops = append(s.drops, &dropEntry{GroundDrop: drop})
		events = append(events, Event{
			Type:       EventLootSpawned,
			At:         now,
			WorldID:    s.worldID,
			CreatureID: inst.ID,
			DropID:     drop.ID,
			ItemID:     drop.ItemID,
			Quantity:   drop.Quantity,
			Tile:       tile,
		})
	}
	return events
}

// tryPickup подбирает предмет, когда участник стоит на его тайле.
// Предмет убирается сразу, инвентарь вызывается асинхронно; при сбое предмет возвращается.
func (s *Simulator) tryPickup(now int64, events []Event) []Event {
	p := s.participant
	drop := s.drop(p.PickupID)
	if drop == nil || drop.collecting {
		p.PickupID = ""
		return events
	}
	if p.InTransit() {
		return events
	}
	if p.Tile != drop.Tile {
		if len(p.Path) == 0 && !s.routeParticipant(drop.Tile, false) {
			p.PickupID = ""
		}
		return events
	}

	p.PickupID = ""
	drop.collecting = true

	inv := s.opts.Inventory
	if inv == nil {
		return s.apply(asyncResult{kind: resultCollect, dropID: drop.ID}, events)
	}
	itemID, quantity, dropID := drop.ItemID, drop.Quantity, drop.ID
	s.call("inventory.collect", func(ctx context.Context) asyncResult {
		return asyncResult{kind: resultCollect, dropID: dropID, err: inv.Collect(ctx, itemID, quantity)}
	})
	return events
}

// call выполняет внешний вызов в горутине и отправляет результат в канал
func (s *Simulator) call(op string, fn func(ctx context.Context) asyncResult) {
	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, callTimeout)
		defer cancel()

		res := fn(ctx)
		s.opts.Metrics.ObserveCall(op, res.err)
		select {
		case s.results <- res:
		case <-s.ctx.Done():
		}
	}()
}

func (s *Simulator) drainResults(events []Event) []Event {
	for {
		select {
		case res := <-s.results:
			events = s.apply(res, events)
		default:
			return events
		}
	}
}

// apply применяет результат внешнего вызова: фиксирует или откатывает оптимистичное состояние
func (s *Simulator) apply(res asyncResult, events []Event) []Event {
	switch res.kind {
	case resultCollect:
		drop := s.drop(res.dropID)
		if drop == nil {
			return events
		}
		if res.err != nil {
			drop.collecting = false
			s.notify(NoticeWarn, "Не удалось подобрать %s: %v", drop.ItemID, res.err)
			return events
		}
		s.removeDrop(drop.ID)
		events = append(events, Event{
			Type:     EventLootCollected,
			At:       s.now,
			WorldID:  s.worldID,
			UserID:   s.participant.UserID,
			DropID:   drop.ID,
			ItemID:   drop.ItemID,
			Quantity: drop.Quantity,
			Tile:     drop.Tile,
		})
	case resultSave:
		s.saving = false
		if res.err != nil {
			s.notify(NoticeWarn, "Позиция не сохранена: %v", res.err)
		}
	case resultPresence:
		s.polling = false
		if res.err != nil {
			s.logger.Warn("Опрос присутствия не удался: %v", res.err)
			return events
		}
		s.peers = presence.FilterFresh(res.peers, s.participant.UserID, s.now)
	}
	return events
}

func (s *Simulator) removeDrop(id string) {
	for i, d := range s.drops {
		if d.ID == id {
			s.drops = append(s.drops[:i], s.drops[i+1:]...)
			return
		}
	}
}

// expireDrops удаляет просроченные предметы, кроме тех, что сейчас подбираются
func (s *Simulator) expireDrops(now int64) {
	kept := s.drops[:0]
	for _, d := range s.drops {
		if d.collecting || !d.Expired(now) {
			kept = append(kept, d)
		}
	}
	for i := len(kept); i < len(s.drops); i++ {
		s.drops[i] = nil
	}
	s.drops = kept
}

func (s *Simulator) pruneNotices(now int64) {
	kept := s.notices[:0]
	for _, n := range s.notices {
		if now-n.At < NoticeTTLMs {
			kept = append(kept, n)
		}
	}
	s.notices = kept
}

// schedule запускает периодическое сохранение позиции и опрос присутствия
func (s *Simulator) schedule(now int64) {
	p := s.participant

	if saver := s.opts.Positions; saver != nil && !s.saving && now-s.lastSaveAt >= s.opts.SaveEveryMs {
		s.lastSaveAt = now
		s.saving = true
		userID := p.UserID
		pos := storage.Position{TileX: p.Tile.X, TileY: p.Tile.Y, Scale: p.scale}
		s.call("position.save", func(ctx context.Context) asyncResult {
			return asyncResult{kind: resultSave, err: saver.Save(ctx, userID, pos)}
		})
	}

	if feed := s.opts.Presence; feed != nil && !s.polling && now-s.lastPresenceAt >= s.opts.PresenceEveryMs {
		s.lastPresenceAt = now
		s.polling = true
		self := presence.Peer{
			UserID:      p.UserID,
			TileX:       p.Tile.X,
			TileY:       p.Tile.Y,
			Facing:      p.Facing,
			DisplayName: p.DisplayName,
			LastUpdate:  now,
		}
		s.call("presence.poll", func(ctx context.Context) asyncResult {
			if pub, ok := feed.(presence.Publisher); ok {
				if err := pub.Publish(ctx, self); err != nil {
					return asyncResult{kind: resultPresence, err: err}
				}
			}
			peers, err := feed.Poll(ctx)
			return asyncResult{kind: resultPresence, peers: peers, err: err}
		})
	}
}

func (s *Simulator) observe(started time.Time, events []Event) {
	m := s.opts.Metrics
	if m == nil {
		return
	}
	for _, ev := range events {
		m.ObserveEvent(ev.Type)
	}
	counts := map[string]int{
		population.StateDespawned.String(): 0,
		population.StateIdle.String():      0,
		population.StateMoving.String():    0,
		population.StateChase.String():     0,
		population.StateFlee.String():      0,
		population.StateDying.String():     0,
	}
	for _, inst := range s.registry.Instances {
		counts[inst.State.String()]++
	}
	m.SetCreatures(counts)
	m.ObserveStep(started)
}
