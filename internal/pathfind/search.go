package pathfind

import "github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"

// Nearest ищет ближайший (в шагах BFS) тайл, для которого usable возвращает true.
// Поиск идет по всей сетке, препятствия не мешают распространению.
func Nearest(cols, rows int, start vec.Vec2, usable func(x, y int) bool) (vec.Vec2, bool) {
	if !inBounds(cols, rows, start) {
		return vec.Vec2{}, false
	}

	visited := make([]bool, cols*rows)
	queue := []vec.Vec2{start}
	visited[start.Y*cols+start.X] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if usable(current.X, current.Y) {
			return current, true
		}
		for _, delta := range vec.Neighbors8 {
			next := current.Add(delta)
			if !inBounds(cols, rows, next) {
				continue
			}
			idx := next.Y*cols + next.X
			if visited[idx] {
				continue
			}
			visited[idx] = true
			queue = append(queue, next)
		}
	}
	return vec.Vec2{}, false
}

// Reachable возвращает все тайлы, достижимые из start по тем же правилам шага, что и FindPath.
// Стартовый тайл в результат не входит.
func Reachable(cols, rows int, start vec.Vec2, blocked BlockedFunc, allowCornerCut bool) []vec.Vec2 {
	if !inBounds(cols, rows, start) {
		return nil
	}

	visited := make([]bool, cols*rows)
	visited[start.Y*cols+start.X] = true
	queue := []vec.Vec2{start}
	result := make([]vec.Vec2, 0)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, delta := range vec.Neighbors8 {
			next := current.Add(delta)
			if !inBounds(cols, rows, next) || blocked(next.X, next.Y) {
				continue
			}
			if !CanStepDiagonal(current, delta, blocked, allowCornerCut) {
				continue
			}
			idx := next.Y*cols + next.X
			if visited[idx] {
				continue
			}
			visited[idx] = true
			result = append(result, next)
			queue = append(queue, next)
		}
	}
	return result
}
