package combat

import (
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/pathfind"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// FleeTarget выбирает достижимый тайл, максимально удаленный от угрозы.
// Тайл должен быть строго дальше текущего, иначе существо зажато и остается на месте.
func FleeTarget(cols, rows int, from, threat vec.Vec2, blocked pathfind.BlockedFunc) (vec.Vec2, bool) {
	current := from.DistanceTo(threat)
	best := from
	bestDist := current

	for _, t := range pathfind.Reachable(cols, rows, from, blocked, false) {
		d := t.DistanceTo(threat)
		if d > bestDist {
			best = t
			bestDist = d
		}
	}
	if bestDist <= current {
		return from, false
	}
	return best, true
}

// OrbitTiles возвращает свободные тайлы, соседние и с существом, и с участником
func OrbitTiles(creature, participant vec.Vec2, blocked pathfind.BlockedFunc) []vec.Vec2 {
	out := make([]vec.Vec2, 0, 4)
	for _, d := range vec.Neighbors8 {
		t := creature.Add(d)
		if t == participant || !t.IsAdjacent(participant) {
			continue
		}
		if blocked(t.X, t.Y) {
			continue
		}
		if d.IsDiagonal() && !pathfind.CanStepDiagonal(creature, d, blocked, false) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Orbit с вероятностью OrbitChance выбирает тайл обхода вокруг участника
func Orbit(creature, participant vec.Vec2, blocked pathfind.BlockedFunc, rnd clock.Random) (vec.Vec2, bool) {
	if rnd.Float64() >= OrbitChance {
		return creature, false
	}
	tiles := OrbitTiles(creature, participant, blocked)
	if len(tiles) == 0 {
		return creature, false
	}
	return tiles[clock.Pick(rnd, len(tiles))], true
}
