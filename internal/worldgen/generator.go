// Package worldgen генерирует демонстрационные миры: коллизии по шуму Перлина
// и прямоугольные зоны групп существ.
package worldgen

import (
	"fmt"
	"strings"

	"github.com/aquilax/go-perlin"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

// Пороги высоты (шум в диапазоне 0..1)
const (
	WaterMax      = 0.30 // Ниже - вода, непроходимо
	MountainStart = 0.72 // Выше - скалы, непроходимо
)

// Параметры шума
const (
	alpha    = 2.0 // Сглаживание шума
	beta     = 2.0 // Частота шума
	octaves  = 3   // Количество октав
	clearing = 1   // Радиус гарантированной поляны вокруг центра зоны группы
)

// Generator - детерминированный генератор демо-мира
type Generator struct {
	Seed       int64
	Cols       int
	Rows       int
	NoiseScale float64 // Масштаб шума высоты

	noise *perlin.Perlin
}

// NewGenerator создаёт генератор мира cols x rows
func NewGenerator(seed int64, cols, rows int) *Generator {
	return &Generator{
		Seed:       seed,
		Cols:       cols,
		Rows:       rows,
		NoiseScale: 0.12,
		noise:      perlin.NewPerlin(alpha, beta, octaves, seed),
	}
}

// Height возвращает высоту тайла (0..1)
func (g *Generator) Height(x, y int) float64 {
	n := g.noise.Noise2D(float64(x)*g.NoiseScale, float64(y)*g.NoiseScale)
	h := (n + 1.0) / 2.0
	switch {
	case h < 0:
		return 0
	case h > 1:
		return 1
	}
	return h
}

// Blocked сообщает, что тайл непроходим по высоте
func (g *Generator) Blocked(x, y int) bool {
	h := g.Height(x, y)
	return h < WaterMax || h > MountainStart
}

// Generate строит документ мира. Зоны групп делят карту на полосы,
// центр каждой зоны расчищается, чтобы группе было где появиться.
func (g *Generator) Generate(worldID string, version int64) (*worldsrc.WorldDocument, error) {
	if g.Cols < 12 || g.Rows < 8 {
		return nil, fmt.Errorf("демо-мир слишком мал: %dx%d", g.Cols, g.Rows)
	}

	archetypes := DefaultArchetypes()
	zones := g.zones(len(archetypes))

	blocked := make([][]bool, g.Rows)
	for y := range blocked {
		blocked[y] = make([]bool, g.Cols)
		for x := range blocked[y] {
			blocked[y][x] = g.Blocked(x, y)
		}
	}
	for _, z := range zones {
		cx, cy := z.X+z.W/2, z.Y+z.H/2
		for y := cy - clearing; y <= cy+clearing; y++ {
			for x := cx - clearing; x <= cx+clearing; x++ {
				blocked[y][x] = false
			}
		}
	}

	collision := make([]string, g.Rows)
	for y, row := range blocked {
		var sb strings.Builder
		for _, b := range row {
			if b {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		collision[y] = sb.String()
	}

	groups := make([]worldsrc.GroupDocument, 0, len(archetypes))
	for i, a := range archetypes {
		z := zones[i]
		// Зона спавна - внутренняя часть полосы, перемещение - вся полоса
		spawn := worldsrc.RectDocument{X: z.X + 1, Y: z.Y + 1, W: z.W - 2, H: z.H - 2}
		groups = append(groups, worldsrc.GroupDocument{
			ID:           a.ID + "s",
			Archetype:    a.ID,
			SpawnArea:    worldsrc.AreaDocument{Rects: []worldsrc.RectDocument{spawn}},
			MovementArea: worldsrc.AreaDocument{Rects: []worldsrc.RectDocument{z}},
			SpawnCount:   spawnCount(z),
			RespawnMs:    5000 + int64(i)*2500,
		})
	}

	return &worldsrc.WorldDocument{
		ID:         worldID,
		Version:    version,
		Cols:       g.Cols,
		Rows:       g.Rows,
		TileSize:   32,
		Collision:  collision,
		Archetypes: archetypes,
		Groups:     groups,
	}, nil
}

// zones делит карту на n вертикальных полос
func (g *Generator) zones(n int) []worldsrc.RectDocument {
	width := g.Cols / n
	out := make([]worldsrc.RectDocument, n)
	for i := range out {
		w := width
		if i == n-1 {
			w = g.Cols - width*i
		}
		out[i] = worldsrc.RectDocument{X: width * i, Y: 0, W: w, H: g.Rows}
	}
	return out
}

func spawnCount(z worldsrc.RectDocument) int {
	n := z.W * z.H / 40
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}

// DefaultArchetypes - набор архетипов демо-мира
func DefaultArchetypes() []worldsrc.ArchetypeDocument {
	return []worldsrc.ArchetypeDocument{
		{
			ID: "slime", Name: "Слизень",
			Attack: 4, Defense: 1, MaxHP: 30, CritChance: 2,
			AttackIntervalMs: 1500, MovementSpeed: 0.8,
			Loot: []worldsrc.LootDocument{{ItemID: "gel", Quantity: 1, DropChance: 80}},
		},
		{
			ID: "boar", Name: "Кабан",
			Attack: 9, Defense: 4, MaxHP: 70, CritChance: 5,
			AttackIntervalMs: 1800, MovementSpeed: 1.2,
			Loot: []worldsrc.LootDocument{
				{ItemID: "hide", Quantity: 1, DropChance: 60},
				{ItemID: "meat", Quantity: 2, DropChance: 40},
			},
		},
		{
			ID: "wolf", Name: "Волк",
			Attack: 14, Defense: 3, MaxHP: 55, CritChance: 10,
			AttackIntervalMs: 1200, MovementSpeed: 1.6,
			Loot: []worldsrc.LootDocument{{ItemID: "fang", Quantity: 1, DropChance: 35}},
		},
	}
}
