package pathfind

import (
	"container/heap"
	"math"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// BlockedFunc сообщает, что тайл непроходим (маска перемещения + занятость)
type BlockedFunc func(x, y int) bool

// Options - параметры поиска пути
type Options struct {
	// AllowCornerCut разрешает любой диагональный шаг. Без него диагональ
	// запрещена, когда оба ортогональных соседа непроходимы.
	AllowCornerCut bool
	// GoalMayBeBlocked позволяет войти в целевой тайл, даже если он помечен занятым
	GoalMayBeBlocked bool
	// MaxNodes ограничивает число раскрытых узлов (0 = cols*rows)
	MaxNodes int
}

type pathNode struct {
	point  vec.Vec2
	g      float64
	f      float64
	index  int
	parent *pathNode
}

type pathQueue []*pathNode

func (pq pathQueue) Len() int { return len(pq) }

func (pq pathQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq pathQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pathQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pathNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *pathQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

func heuristic(a, b vec.Vec2) float64 {
	return a.DistanceTo(b)
}

func inBounds(cols, rows int, p vec.Vec2) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < cols && p.Y < rows
}

// CanStepDiagonal проверяет правило срезания углов для шага delta из current
func CanStepDiagonal(current, delta vec.Vec2, blocked BlockedFunc, allowCornerCut bool) bool {
	if !delta.IsDiagonal() || allowCornerCut {
		return true
	}
	horizBlocked := blocked(current.X+delta.X, current.Y)
	vertBlocked := blocked(current.X, current.Y+delta.Y)
	return !(horizBlocked && vertBlocked)
}

// FindPath ищет путь A* по сетке cols x rows из start в goal.
// Возвращает последовательность тайлов без стартового; пустой срез означает
// "туда не пройти" (или start == goal), это не ошибка.
func FindPath(cols, rows int, start, goal vec.Vec2, blocked BlockedFunc, opts Options) []vec.Vec2 {
	if !inBounds(cols, rows, start) || !inBounds(cols, rows, goal) || start == goal {
		return nil
	}
	if blocked(goal.X, goal.Y) && !opts.GoalMayBeBlocked {
		return nil
	}

	maxNodes := opts.MaxNodes
	if maxNodes <= 0 {
		maxNodes = cols * rows
	}

	index := func(p vec.Vec2) int { return p.Y*cols + p.X }

	open := &pathQueue{}
	heap.Init(open)
	heap.Push(open, &pathNode{point: start, g: 0, f: heuristic(start, goal)})
	gScore := map[int]float64{index(start): 0}
	closed := make(map[int]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*pathNode)
		currIdx := index(current.point)
		if _, seen := closed[currIdx]; seen {
			continue
		}
		closed[currIdx] = struct{}{}
		if current.point == goal {
			return reconstructPath(current)
		}
		if len(closed) > maxNodes {
			return nil
		}

		for _, delta := range vec.Neighbors8 {
			next := current.point.Add(delta)
			if !inBounds(cols, rows, next) {
				continue
			}
			if blocked(next.X, next.Y) && !(next == goal && opts.GoalMayBeBlocked) {
				continue
			}
			if !CanStepDiagonal(current.point, delta, blocked, opts.AllowCornerCut) {
				continue
			}
			idx := index(next)
			if _, seen := closed[idx]; seen {
				continue
			}

			cost := 1.0
			if delta.IsDiagonal() {
				cost = math.Sqrt2
			}
			tentativeG := current.g + cost
			if prev, ok := gScore[idx]; ok && tentativeG >= prev {
				continue
			}
			gScore[idx] = tentativeG
			heap.Push(open, &pathNode{
				point:  next,
				g:      tentativeG,
				f:      tentativeG + heuristic(next, goal),
				parent: current,
			})
		}
	}
	return nil
}

// reconstructPath восстанавливает путь от конца к началу и отбрасывает стартовый тайл
func reconstructPath(end *pathNode) []vec.Vec2 {
	path := make([]vec.Vec2, 0)
	for node := end; node != nil; node = node.parent {
		path = append(path, node.point)
	}
	for i := 0; i < len(path)/2; i++ {
		j := len(path) - 1 - i
		path[i], path[j] = path[j], path[i]
	}
	return path[1:]
}
