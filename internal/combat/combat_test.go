package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

func TestDamage(t *testing.T) {
	tests := []struct {
		name     string
		attacker Stats
		defender Stats
		rolls    []float64
		want     Hit
	}{
		{"средний разброс", Stats{Attack: 20}, Stats{Defense: 9}, []float64{0.5, 0.99}, Hit{Damage: 16}},
		{"защита сильнее атаки", Stats{Attack: 2}, Stats{Defense: 100}, []float64{0.5, 0.99}, Hit{Damage: 1}},
		{"крит от минимума", Stats{Attack: 2, CritChance: 100}, Stats{Defense: 100}, []float64{0.5, 0}, Hit{Damage: 2, Critical: true}},
		{"крит умножает", Stats{Attack: 20, CritChance: 50}, Stats{Defense: 9}, []float64{0.5, 0.2}, Hit{Damage: 24, Critical: true}},
		{"нулевой шанс крита", Stats{Attack: 20, CritChance: 0}, Stats{}, []float64{0.5, 0}, Hit{Damage: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Damage(tt.attacker, tt.defender, &clock.Sequence{Values: tt.rolls})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDamageFloorsProperty(t *testing.T) {
	rng := clock.NewRNG(42)
	for i := 0; i < 5000; i++ {
		attacker := Stats{Attack: int(rng.Next() % 50), CritChance: float64(rng.Next() % 101)}
		defender := Stats{Defense: int(rng.Next() % 200)}
		hit := Damage(attacker, defender, rng)
		if hit.Critical {
			require.GreaterOrEqual(t, hit.Damage, 2)
		} else {
			require.GreaterOrEqual(t, hit.Damage, 1)
		}
	}
}

func TestIntervals(t *testing.T) {
	assert.Equal(t, int64(160), ParticipantIntervalMs(0.05))
	assert.Equal(t, int64(800), ParticipantIntervalMs(0.8))
	assert.Equal(t, int64(240), CreatureIntervalMs(0))
	assert.Equal(t, int64(1200), CreatureIntervalMs(1200))

	assert.True(t, Ready(500, 0, 240))
	assert.False(t, Ready(1200, 1000, 240))
	assert.True(t, Ready(1240, 1000, 240))
}

func TestHPFloors(t *testing.T) {
	assert.Equal(t, 0, ApplyToCreature(5, 50))
	assert.Equal(t, 3, ApplyToCreature(5, 2))
	assert.Equal(t, 1, ApplyToParticipant(5, 50))
	assert.Equal(t, 1, ApplyToParticipant(1, 1))
	assert.Equal(t, 7, ApplyToParticipant(10, 3))
}

func TestShouldFlee(t *testing.T) {
	assert.True(t, ShouldFlee(15, 100))
	assert.False(t, ShouldFlee(16, 100))
	assert.False(t, ShouldFlee(0, 100), "мертвые не бегут")
}

func openField(cols, rows int) func(x, y int) bool {
	return func(x, y int) bool {
		return x < 0 || y < 0 || x >= cols || y >= rows
	}
}

func TestFleeTargetStrictlyFarther(t *testing.T) {
	from := vec.Vec2{X: 5, Y: 5}
	threat := vec.Vec2{X: 4, Y: 5}

	target, ok := FleeTarget(10, 10, from, threat, openField(10, 10))
	require.True(t, ok)
	assert.Greater(t, target.DistanceTo(threat), from.DistanceTo(threat))
	assert.Equal(t, 9, target.X, "бежать нужно в дальний от угрозы угол")
	assert.Contains(t, []int{0, 9}, target.Y)
}

func TestFleeTargetBoxedIn(t *testing.T) {
	// Существо в тупике: все тайлы кроме своего закрыты
	from := vec.Vec2{X: 2, Y: 2}
	threat := vec.Vec2{X: 1, Y: 2}
	blocked := func(x, y int) bool {
		return !(x == 2 && y == 2) && !(x == 1 && y == 2)
	}

	target, ok := FleeTarget(5, 5, from, threat, blocked)
	assert.False(t, ok)
	assert.Equal(t, from, target)
}

func TestFleeRetryDelay(t *testing.T) {
	assert.Equal(t, int64(65), FleeRetryDelay(&clock.Sequence{Values: []float64{0}}))
	d := FleeRetryDelay(&clock.Sequence{Values: []float64{0.9999}})
	assert.LessOrEqual(t, d, int64(180))
}

func TestOrbitTiles(t *testing.T) {
	creature := vec.Vec2{X: 5, Y: 5}
	participant := vec.Vec2{X: 6, Y: 5}

	tiles := OrbitTiles(creature, participant, openField(10, 10))
	assert.ElementsMatch(t, []vec.Vec2{{X: 5, Y: 4}, {X: 5, Y: 6}, {X: 6, Y: 4}, {X: 6, Y: 6}}, tiles)
	for _, tile := range tiles {
		assert.True(t, tile.IsAdjacent(creature))
		assert.True(t, tile.IsAdjacent(participant))
	}
}

func TestOrbitChance(t *testing.T) {
	creature := vec.Vec2{X: 5, Y: 5}
	participant := vec.Vec2{X: 6, Y: 5}

	_, ok := Orbit(creature, participant, openField(10, 10), &clock.Sequence{Values: []float64{0.5}})
	assert.False(t, ok)

	tile, ok := Orbit(creature, participant, openField(10, 10), &clock.Sequence{Values: []float64{0.1, 0}})
	assert.True(t, ok)
	assert.True(t, tile.IsAdjacent(participant))
}

func TestRollLootCertainAndImpossible(t *testing.T) {
	entries := []population.LootEntry{
		{ItemID: "gel", Quantity: 1, DropChance: 100},
		{ItemID: "crown", Quantity: 1, DropChance: 0},
	}
	rng := clock.NewRNG(7)

	for i := 0; i < 1000; i++ {
		won := RollLoot(entries, rng)
		require.Len(t, won, 1)
		require.Equal(t, "gel", won[0].ItemID)
	}
}

func TestSpawnDrops(t *testing.T) {
	entries := []population.LootEntry{
		{ItemID: "gel", Quantity: 2, DropChance: 100},
		{ItemID: "fang", Quantity: 1, DropChance: 100},
	}
	tile := vec.Vec2{X: 3, Y: 4}
	drops := SpawnDrops(entries, tile, 1000, clock.NewRNG(1))

	require.Len(t, drops, 2)
	assert.NotEqual(t, drops[0].ID, drops[1].ID)
	for _, d := range drops {
		assert.Equal(t, tile, d.Tile)
		assert.Equal(t, int64(11000), d.ExpiresAt)
		assert.InDelta(t, 0, d.OffsetX, DropJitter)
		assert.InDelta(t, 0, d.OffsetY, DropJitter)
		assert.False(t, d.Expired(10999))
		assert.True(t, d.Expired(11000))
	}
}
