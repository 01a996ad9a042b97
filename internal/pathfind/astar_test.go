package pathfind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// blockedFromRows строит BlockedFunc из строкового рисунка: '#' - стена
func blockedFromRows(rows []string) (int, int, BlockedFunc) {
	h := len(rows)
	w := len(rows[0])
	return w, h, func(x, y int) bool {
		if x < 0 || y < 0 || x >= w || y >= h {
			return true
		}
		return rows[y][x] == '#'
	}
}

func TestFindPath_Straight(t *testing.T) {
	cols, rows, blocked := blockedFromRows([]string{
		"....",
		"....",
	})

	path := FindPath(cols, rows, vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 3, Y: 0}, blocked, Options{})
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}}, path)
}

func TestFindPath_AroundWall(t *testing.T) {
	cols, rows, blocked := blockedFromRows([]string{
		"..#..",
		"..#..",
		".....",
	})

	start := vec.Vec2{X: 0, Y: 0}
	goal := vec.Vec2{X: 4, Y: 0}
	path := FindPath(cols, rows, start, goal, blocked, Options{})
	require.NotEmpty(t, path)
	assert.Equal(t, goal, path[len(path)-1])

	prev := start
	for _, step := range path {
		assert.True(t, prev.IsAdjacent(step), "шаг %+v -> %+v", prev, step)
		assert.False(t, blocked(step.X, step.Y))
		prev = step
	}
}

func TestFindPath_Unreachable(t *testing.T) {
	cols, rows, blocked := blockedFromRows([]string{
		".#.",
		"##.",
		"...",
	})

	assert.Empty(t, FindPath(cols, rows, vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 2, Y: 2}, blocked, Options{}))
	assert.Empty(t, FindPath(cols, rows, vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 1, Y: 0}, blocked, Options{}), "цель в стене")
	assert.Empty(t, FindPath(cols, rows, vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 2, Y: 2}, blocked, Options{}), "старт совпадает с целью")
	assert.Empty(t, FindPath(cols, rows, vec.Vec2{X: 2, Y: 2}, vec.Vec2{X: 9, Y: 9}, blocked, Options{}), "цель за границей")
}

func TestFindPath_CornerCut(t *testing.T) {
	cols, rows, blocked := blockedFromRows([]string{
		".#",
		"#.",
	})
	start := vec.Vec2{X: 0, Y: 0}
	goal := vec.Vec2{X: 1, Y: 1}

	assert.Empty(t, FindPath(cols, rows, start, goal, blocked, Options{AllowCornerCut: false}),
		"диагональ между двумя стенами запрещена")
	assert.Equal(t, []vec.Vec2{goal}, FindPath(cols, rows, start, goal, blocked, Options{AllowCornerCut: true}))
}

func TestFindPath_DiagonalWithOneOpenSide(t *testing.T) {
	cols, rows, blocked := blockedFromRows([]string{
		".#",
		"..",
	})

	path := FindPath(cols, rows, vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 1, Y: 1}, blocked, Options{})
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 1}}, path, "одной открытой стороны достаточно")
}

func TestFindPath_GoalMayBeBlocked(t *testing.T) {
	occupied := vec.Vec2{X: 2, Y: 0}
	blocked := func(x, y int) bool {
		return x < 0 || y < 0 || x >= 3 || y >= 1 || (vec.Vec2{X: x, Y: y}) == occupied
	}

	assert.Empty(t, FindPath(3, 1, vec.Vec2{X: 0, Y: 0}, occupied, blocked, Options{}))
	path := FindPath(3, 1, vec.Vec2{X: 0, Y: 0}, occupied, blocked, Options{GoalMayBeBlocked: true})
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 0}, occupied}, path)
}

// Ни один шаг пути без срезания углов не проходит по диагонали между двумя стенами
func TestFindPath_NoCornerCuttingProperty(t *testing.T) {
	rng := clock.NewRNG(2024)
	const cols, rows = 12, 12

	for trial := 0; trial < 300; trial++ {
		walls := make([]bool, cols*rows)
		for i := range walls {
			walls[i] = rng.Float64() < 0.3
		}
		blocked := func(x, y int) bool {
			if x < 0 || y < 0 || x >= cols || y >= rows {
				return true
			}
			return walls[y*cols+x]
		}

		start := vec.Vec2{X: clock.Pick(rng, cols), Y: clock.Pick(rng, rows)}
		goal := vec.Vec2{X: clock.Pick(rng, cols), Y: clock.Pick(rng, rows)}
		walls[start.Y*cols+start.X] = false

		path := FindPath(cols, rows, start, goal, blocked, Options{})
		prev := start
		for _, step := range path {
			delta := step.Sub(prev)
			require.True(t, prev.IsAdjacent(step))
			require.False(t, blocked(step.X, step.Y))
			if delta.IsDiagonal() {
				bothBlocked := blocked(prev.X+delta.X, prev.Y) && blocked(prev.X, prev.Y+delta.Y)
				require.False(t, bothBlocked, "срезан угол в попытке %d: %+v -> %+v", trial, prev, step)
			}
			prev = step
		}
	}
}

func TestNearest(t *testing.T) {
	usable := func(x, y int) bool { return x == 3 && y == 2 }
	tile, ok := Nearest(5, 5, vec.Vec2{X: 0, Y: 0}, usable)
	require.True(t, ok)
	assert.Equal(t, vec.Vec2{X: 3, Y: 2}, tile)

	_, ok = Nearest(5, 5, vec.Vec2{X: 0, Y: 0}, func(int, int) bool { return false })
	assert.False(t, ok)
}

func TestReachable(t *testing.T) {
	cols, rows, blocked := blockedFromRows([]string{
		"..#.",
		"..#.",
		"###.",
	})

	tiles := Reachable(cols, rows, vec.Vec2{X: 0, Y: 0}, blocked, false)
	assert.ElementsMatch(t, []vec.Vec2{{X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, tiles)
}
