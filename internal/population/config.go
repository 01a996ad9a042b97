package population

import (
	"fmt"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
)

// LootEntry - строка таблицы добычи архетипа
type LootEntry struct {
	ItemID     string  `json:"itemId"`
	Quantity   int     `json:"quantity"`
	DropChance float64 `json:"dropChance"` // Проценты, 0..100
}

// Archetype - боевые характеристики вида существ
type Archetype struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Attack           int         `json:"attack"`
	Defense          int         `json:"defense"`
	MaxHP            int         `json:"maxHp"`
	CritChance       float64     `json:"critChance"` // Проценты, 0..100
	AttackIntervalMs int64       `json:"attackIntervalMs"`
	MovementSpeed    float64     `json:"movementSpeed"`
	Loot             []LootEntry `json:"loot"`
}

// GroupConfig - правило спавна группы существ в том виде, в каком его отдает источник конфигурации
type GroupConfig struct {
	ID           string
	ArchetypeID  string
	SpawnArea    grid.Mask
	MovementArea grid.Mask // Пустая зона перемещения заменяется зоной спавна
	SpawnCount   int
	RespawnMs    int64
}

// WorldConfig - полная конфигурация мира от внешнего источника.
// Version - метка последнего изменения мира (last-modified, мс), она же входит в сид RNG.
type WorldConfig struct {
	ID         string
	Version    int64
	Cols       int
	Rows       int
	TileSize   int
	Collision  [][]bool
	Archetypes map[string]*Archetype
	Groups     []GroupConfig
}

// ConfigError - ошибка конфигурации группы. Группа пропускается, реестр продолжает работу.
type ConfigError struct {
	WorldID string
	GroupID string
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("мир %s, группа %s: %s", e.WorldID, e.GroupID, e.Reason)
}
