package worldsrc

import (
	"fmt"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
)

// Символы текстовой разметки сетки
const (
	blockedRune = '#'
	markedRune  = 'x'
)

// WorldDocument - описание мира в YAML-файле или документе MongoDB
type WorldDocument struct {
	ID         string              `yaml:"id" bson:"_id" json:"id"`
	Version    int64               `yaml:"version,omitempty" bson:"updatedAt" json:"version"`
	Cols       int                 `yaml:"cols" bson:"cols" json:"cols"`
	Rows       int                 `yaml:"rows" bson:"rows" json:"rows"`
	TileSize   int                 `yaml:"tileSize,omitempty" bson:"tileSize" json:"tileSize"`
	Collision  []string            `yaml:"collision,omitempty" bson:"collision" json:"collision"`
	Archetypes []ArchetypeDocument `yaml:"archetypes" bson:"archetypes" json:"archetypes"`
	Groups     []GroupDocument     `yaml:"groups" bson:"groups" json:"groups"`
}

// ArchetypeDocument - описание архетипа
type ArchetypeDocument struct {
	ID               string         `yaml:"id" bson:"id" json:"id"`
	Name             string         `yaml:"name" bson:"name" json:"name"`
	Attack           int            `yaml:"attack" bson:"attack" json:"attack"`
	Defense          int            `yaml:"defense" bson:"defense" json:"defense"`
	MaxHP            int            `yaml:"maxHp" bson:"maxHp" json:"maxHp"`
	CritChance       float64        `yaml:"critChance" bson:"critChance" json:"critChance"`
	AttackIntervalMs int64          `yaml:"attackIntervalMs" bson:"attackIntervalMs" json:"attackIntervalMs"`
	MovementSpeed    float64        `yaml:"movementSpeed" bson:"movementSpeed" json:"movementSpeed"`
	Loot             []LootDocument `yaml:"loot,omitempty" bson:"loot" json:"loot"`
}

// LootDocument - строка таблицы добычи
type LootDocument struct {
	ItemID     string  `yaml:"itemId" bson:"itemId" json:"itemId"`
	Quantity   int     `yaml:"quantity" bson:"quantity" json:"quantity"`
	DropChance float64 `yaml:"dropChance" bson:"dropChance" json:"dropChance"`
}

// GroupDocument - описание группы существ
type GroupDocument struct {
	ID           string       `yaml:"id" bson:"id" json:"id"`
	Archetype    string       `yaml:"archetype" bson:"archetype" json:"archetype"`
	SpawnArea    AreaDocument `yaml:"spawnArea" bson:"spawnArea" json:"spawnArea"`
	MovementArea AreaDocument `yaml:"movementArea,omitempty" bson:"movementArea" json:"movementArea"`
	SpawnCount   int          `yaml:"spawnCount" bson:"spawnCount" json:"spawnCount"`
	RespawnMs    int64        `yaml:"respawnMs" bson:"respawnMs" json:"respawnMs"`
}

// AreaDocument - зона мира: текстовая маска ('x' = клетка входит в зону) и/или прямоугольники
type AreaDocument struct {
	Rows  []string       `yaml:"rows,omitempty" bson:"rows" json:"rows,omitempty"`
	Rects []RectDocument `yaml:"rects,omitempty" bson:"rects" json:"rects,omitempty"`
}

// RectDocument - прямоугольник в тайлах
type RectDocument struct {
	X int `yaml:"x" bson:"x" json:"x"`
	Y int `yaml:"y" bson:"y" json:"y"`
	W int `yaml:"w" bson:"w" json:"w"`
	H int `yaml:"h" bson:"h" json:"h"`
}

// Empty сообщает, что зона не задана
func (a AreaDocument) Empty() bool {
	return len(a.Rows) == 0 && len(a.Rects) == 0
}

// Mask строит маску зоны. Незаданная зона дает nil.
// Текстовая маска с неверными размерами возвращается как есть: ее отбракует реестр.
func (a AreaDocument) Mask(cols, rows int) grid.Mask {
	if a.Empty() {
		return nil
	}

	var m grid.Mask
	if len(a.Rows) > 0 {
		m = parseRows(a.Rows, markedRune)
	} else {
		m = grid.NewMask(cols, rows)
	}

	for _, r := range a.Rects {
		for y := r.Y; y < r.Y+r.H; y++ {
			for x := r.X; x < r.X+r.W; x++ {
				if y >= 0 && y < len(m) && x >= 0 && x < len(m[y]) {
					m[y][x] = true
				}
			}
		}
	}
	return m
}

func parseRows(rows []string, mark rune) grid.Mask {
	m := make(grid.Mask, len(rows))
	for y, line := range rows {
		runes := []rune(line)
		m[y] = make([]bool, len(runes))
		for x, r := range runes {
			m[y][x] = r == mark
		}
	}
	return m
}

// ToConfig превращает документ в конфигурацию мира.
// Ошибкой считается только непригодная сетка: проблемы групп собирает реестр.
func (d *WorldDocument) ToConfig() (*population.WorldConfig, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("документ мира без идентификатора")
	}
	if d.Cols <= 0 || d.Rows <= 0 {
		return nil, fmt.Errorf("мир %s: недопустимые размеры %dx%d", d.ID, d.Cols, d.Rows)
	}

	var collision [][]bool
	if len(d.Collision) > 0 {
		collision = parseRows(d.Collision, blockedRune)
	}

	archetypes := make(map[string]*population.Archetype, len(d.Archetypes))
	for _, a := range d.Archetypes {
		loot := make([]population.LootEntry, 0, len(a.Loot))
		for _, l := range a.Loot {
			loot = append(loot, population.LootEntry{ItemID: l.ItemID, Quantity: l.Quantity, DropChance: l.DropChance})
		}
		archetypes[a.ID] = &population.Archetype{
			ID:               a.ID,
			Name:             a.Name,
			Attack:           a.Attack,
			Defense:          a.Defense,
			MaxHP:            a.MaxHP,
			CritChance:       a.CritChance,
			AttackIntervalMs: a.AttackIntervalMs,
			MovementSpeed:    a.MovementSpeed,
			Loot:             loot,
		}
	}

	groups := make([]population.GroupConfig, 0, len(d.Groups))
	for _, g := range d.Groups {
		groups = append(groups, population.GroupConfig{
			ID:           g.ID,
			ArchetypeID:  g.Archetype,
			SpawnArea:    g.SpawnArea.Mask(d.Cols, d.Rows),
			MovementArea: g.MovementArea.Mask(d.Cols, d.Rows),
			SpawnCount:   g.SpawnCount,
			RespawnMs:    g.RespawnMs,
		})
	}

	return &population.WorldConfig{
		ID:         d.ID,
		Version:    d.Version,
		Cols:       d.Cols,
		Rows:       d.Rows,
		TileSize:   d.TileSize,
		Collision:  collision,
		Archetypes: archetypes,
		Groups:     groups,
	}, nil
}
