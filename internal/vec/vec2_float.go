package vec

// Vec2Float - позиция отрисовки в долях тайла (интерполируется между тайлами)
type Vec2Float struct {
	X, Y float64
}

// FromVec2 создает Vec2Float из координат тайла
func FromVec2(v Vec2) Vec2Float {
	return Vec2Float{X: float64(v.X), Y: float64(v.Y)}
}

// Lerp линейно интерполирует между тайлами from и to, t ограничивается [0,1]
func Lerp(from, to Vec2, t float64) Vec2Float {
	if t <= 0 {
		return FromVec2(from)
	}
	if t >= 1 {
		return FromVec2(to)
	}
	return Vec2Float{
		X: float64(from.X) + float64(to.X-from.X)*t,
		Y: float64(from.Y) + float64(to.Y-from.Y)*t,
	}
}
