package combat

import (
	"github.com/google/uuid"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

const (
	// DropTTLMs - время жизни предмета на земле
	DropTTLMs int64 = 10000
	// DropJitter - максимальное смещение предмета от центра тайла, в тайлах
	DropJitter = 0.25
)

// GroundDrop - предмет, лежащий на земле после смерти существа
type GroundDrop struct {
	ID        string   `json:"id"`
	ItemID    string   `json:"itemId"`
	Quantity  int      `json:"quantity"`
	Tile      vec.Vec2 `json:"tile"`
	OffsetX   float64  `json:"offsetX"`
	OffsetY   float64  `json:"offsetY"`
	SpawnedAt int64    `json:"spawnedAt"`
	ExpiresAt int64    `json:"expiresAt"`
}

// Expired сообщает, что время жизни предмета истекло
func (d *GroundDrop) Expired(now int64) bool {
	return now >= d.ExpiresAt
}

// RollLoot бросает кубик для каждой строки таблицы добычи независимо
func RollLoot(entries []population.LootEntry, rnd clock.Random) []population.LootEntry {
	won := make([]population.LootEntry, 0, len(entries))
	for _, e := range entries {
		if e.Quantity <= 0 || e.ItemID == "" {
			continue
		}
		if rnd.Float64()*100 < e.DropChance {
			won = append(won, e)
		}
	}
	return won
}

// SpawnDrops превращает выпавшую добычу в предметы на тайле tile
func SpawnDrops(entries []population.LootEntry, tile vec.Vec2, now int64, rnd clock.Random) []GroundDrop {
	won := RollLoot(entries, rnd)
	drops := make([]GroundDrop, 0, len(won))
	for _, e := range won {
		drops = append(drops, GroundDrop{
			ID:        uuid.New().String(),
			ItemID:    e.ItemID,
			Quantity:  e.Quantity,
			Tile:      tile,
			OffsetX:   clock.Uniform(rnd, -DropJitter, DropJitter),
			OffsetY:   clock.Uniform(rnd, -DropJitter, DropJitter),
			SpawnedAt: now,
			ExpiresAt: now + DropTTLMs,
		})
	}
	return drops
}
