package population

import (
	"fmt"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// Registry - популяция существ одного мира конкретной версии.
// Реестр не потокобезопасен: владелец обязан сериализовать доступ.
type Registry struct {
	WorldID string
	Version int64
	Grid    *grid.Grid

	Groups    []*Group
	Instances []*Instance
	LastTick  int64

	// Rand - детерминированный генератор реестра, посеянный от (мир, версия)
	Rand *clock.RNG

	// Reserved - тайлы вне реестра, которые существа не должны занимать (участник)
	Reserved []vec.Vec2

	groupsByID map[string]*Group
	byID       map[string]*Instance
	skipped    []error
}

// NewRegistry строит реестр из конфигурации мира. Группы с ошибками конфигурации
// пропускаются и доступны через Skipped. Все экземпляры создаются в состоянии Despawned
// с нулевым таймером респавна, поэтому первый тик заселяет мир.
func NewRegistry(cfg *WorldConfig, masks *grid.MaskCache) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("пустая конфигурация мира")
	}
	g, err := grid.New(cfg.Cols, cfg.Rows, cfg.TileSize, cfg.Collision)
	if err != nil {
		return nil, fmt.Errorf("мир %s: %w", cfg.ID, err)
	}

	r := &Registry{
		WorldID:    cfg.ID,
		Version:    cfg.Version,
		Grid:       g,
		Rand:       clock.NewWorldRNG(cfg.ID, cfg.Version),
		groupsByID: make(map[string]*Group),
		byID:       make(map[string]*Instance),
	}

	for _, gc := range cfg.Groups {
		if _, dup := r.groupsByID[gc.ID]; dup {
			r.skipped = append(r.skipped, &ConfigError{WorldID: cfg.ID, GroupID: gc.ID, Reason: "повторный идентификатор группы"})
			continue
		}
		group, err := buildGroup(cfg.ID, cfg.Version, g, gc, cfg.Archetypes, masks)
		if err != nil {
			r.skipped = append(r.skipped, err)
			continue
		}
		r.Groups = append(r.Groups, group)
		r.groupsByID[group.ID] = group

		for ordinal := 0; ordinal < group.SpawnCount; ordinal++ {
			inst := &Instance{
				ID:      InstanceID(group.ID, ordinal),
				GroupID: group.ID,
				Ordinal: ordinal,
				State:   StateDespawned,
				Facing:  1,
				MaxHP:   group.Archetype.MaxHP,
			}
			r.Instances = append(r.Instances, inst)
			r.byID[inst.ID] = inst
		}
	}

	return r, nil
}

// Skipped возвращает ошибки конфигурации пропущенных групп
func (r *Registry) Skipped() []error {
	return r.skipped
}

// Group возвращает группу по идентификатору
func (r *Registry) Group(id string) (*Group, bool) {
	g, ok := r.groupsByID[id]
	return g, ok
}

// GroupOf возвращает группу экземпляра
func (r *Registry) GroupOf(inst *Instance) *Group {
	return r.groupsByID[inst.GroupID]
}

// Instance возвращает экземпляр по идентификатору
func (r *Registry) Instance(id string) (*Instance, bool) {
	inst, ok := r.byID[id]
	return inst, ok
}

// OccupiedBy возвращает экземпляр, занимающий тайл, кроме except
func (r *Registry) OccupiedBy(t vec.Vec2, except *Instance) *Instance {
	for _, other := range r.Instances {
		if other == except {
			continue
		}
		if other.Occupies(t) {
			return other
		}
	}
	return nil
}

// Occupied сообщает, что тайл занят другим экземпляром
func (r *Registry) Occupied(t vec.Vec2, except *Instance) bool {
	return r.OccupiedBy(t, except) != nil
}

// OccupiedSet возвращает множество тайлов, занятых экземплярами кроме except
func (r *Registry) OccupiedSet(except *Instance) map[vec.Vec2]struct{} {
	set := make(map[vec.Vec2]struct{}, len(r.Instances)*2)
	for _, other := range r.Instances {
		if other == except || !other.State.Spawned() {
			continue
		}
		set[other.Tile] = struct{}{}
		set[other.Dest] = struct{}{}
	}
	for _, t := range r.Reserved {
		set[t] = struct{}{}
	}
	return set
}

// Snapshot возвращает публичный вид всех экземпляров в порядке создания
func (r *Registry) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(r.Instances))
	for _, inst := range r.Instances {
		out = append(out, inst.Snapshot())
	}
	return out
}
