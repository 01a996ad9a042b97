package population

import (
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// Group - проверенная группа существ мира с производными тайлами и маской перемещения
type Group struct {
	ID            string
	Archetype     *Archetype
	SpawnCount    int
	RespawnMs     int64
	SpawnTiles    []vec.Vec2
	MovementTiles []vec.Vec2
	MovementMask  grid.Mask // true = тайл группе недоступен
}

// Usable сообщает, что тайл доступен группе для стояния и перемещения
func (g *Group) Usable(t vec.Vec2) bool {
	return g.MovementMask.Usable(t.X, t.Y)
}

// candidateTiles возвращает тайлы спавна, а при их отсутствии - тайлы перемещения
func (g *Group) candidateTiles() []vec.Vec2 {
	if len(g.SpawnTiles) > 0 {
		return g.SpawnTiles
	}
	return g.MovementTiles
}

// buildGroup проверяет конфигурацию группы и строит ее производные данные.
// Маска перемещения берется из кеша по ключу (мир, версия, группа).
func buildGroup(worldID string, version int64, g *grid.Grid, cfg GroupConfig, archetypes map[string]*Archetype, masks *grid.MaskCache) (*Group, error) {
	fail := func(reason string) error {
		return &ConfigError{WorldID: worldID, GroupID: cfg.ID, Reason: reason}
	}

	if cfg.ID == "" {
		return nil, fail("пустой идентификатор группы")
	}
	archetype, ok := archetypes[cfg.ArchetypeID]
	if !ok || archetype == nil {
		return nil, fail("неизвестный архетип " + cfg.ArchetypeID)
	}
	if archetype.MaxHP <= 0 {
		return nil, fail("архетип без очков здоровья")
	}
	if cfg.SpawnCount <= 0 {
		return nil, fail("spawnCount должен быть положительным")
	}
	if err := g.ValidateMask(cfg.SpawnArea); err != nil {
		return nil, fail("зона спавна: " + err.Error())
	}
	if err := g.ValidateMask(cfg.MovementArea); err != nil {
		return nil, fail("зона перемещения: " + err.Error())
	}

	movementArea := cfg.MovementArea
	if movementArea == nil || movementArea.Empty() {
		movementArea = cfg.SpawnArea
	}

	build := func() grid.Mask { return g.MovementMask(movementArea) }
	var mask grid.Mask
	if masks != nil {
		mask = masks.Get(worldID, version, cfg.ID, build)
	} else {
		mask = build()
	}

	movementTiles := g.TilesOf(movementArea)
	spawnTiles := make([]vec.Vec2, 0)
	for _, t := range g.TilesOf(cfg.SpawnArea) {
		if mask.Usable(t.X, t.Y) {
			spawnTiles = append(spawnTiles, t)
		}
	}
	if len(spawnTiles) == 0 && len(movementTiles) == 0 {
		return nil, fail("нет ни одного доступного тайла")
	}

	respawn := cfg.RespawnMs
	if respawn < MinRespawnMs {
		respawn = MinRespawnMs
	}

	return &Group{
		ID:            cfg.ID,
		Archetype:     archetype,
		SpawnCount:    cfg.SpawnCount,
		RespawnMs:     respawn,
		SpawnTiles:    spawnTiles,
		MovementTiles: movementTiles,
		MovementMask:  mask,
	}, nil
}
