package vec

import "math"

// Vec2 представляет координаты тайла (колонка, строка)
type Vec2 struct {
	X, Y int
}

// Neighbors8 - смещения восьми соседей: сначала ортогональные, затем диагональные.
// Порядок фиксирован, от него зависит детерминированность выбора.
var Neighbors8 = [8]Vec2{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
}

// Add возвращает сумму координат
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Sub возвращает разность координат
func (v Vec2) Sub(other Vec2) Vec2 {
	return Vec2{X: v.X - other.X, Y: v.Y - other.Y}
}

// IsDiagonal сообщает, является ли единичное смещение диагональным
func (v Vec2) IsDiagonal() bool {
	return v.X != 0 && v.Y != 0
}

// DistanceTo вычисляет евклидово расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// ChebyshevTo возвращает расстояние Чебышёва (число шагов с диагоналями)
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// IsAdjacent сообщает, что тайлы соседние (включая диагонали), но не совпадают
func (v Vec2) IsAdjacent(other Vec2) bool {
	return v.ChebyshevTo(other) == 1
}

// FacingTowards возвращает направление взгляда (+1/-1) при движении к target.
// При чисто вертикальном движении возвращается current без изменений.
func FacingTowards(from, to Vec2, current int) int {
	switch {
	case to.X > from.X:
		return 1
	case to.X < from.X:
		return -1
	default:
		return current
	}
}
