package grid

import (
	"fmt"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

// Mask - булева матрица [строка][колонка] тех же размеров, что и сетка мира.
// Используется для зон спавна и перемещения групп существ.
type Mask [][]bool

// Grid - статическое описание мира: размеры, размер тайла и матрица коллизий.
// Размеры неизменны на протяжении жизни мира.
type Grid struct {
	Cols      int
	Rows      int
	TileSize  int
	Collision [][]bool // true = непроходимо
}

// New создает сетку и проверяет согласованность матрицы коллизий.
// nil-матрица означает мир без препятствий.
func New(cols, rows, tileSize int, collision [][]bool) (*Grid, error) {
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("недопустимые размеры сетки %dx%d", cols, rows)
	}
	if tileSize <= 0 {
		tileSize = 32
	}

	if collision == nil {
		collision = NewMask(cols, rows)
	}
	if err := checkDims(collision, cols, rows); err != nil {
		return nil, fmt.Errorf("матрица коллизий: %w", err)
	}

	return &Grid{
		Cols:      cols,
		Rows:      rows,
		TileSize:  tileSize,
		Collision: collision,
	}, nil
}

// NewMask создает пустую маску заданных размеров
func NewMask(cols, rows int) Mask {
	m := make(Mask, rows)
	for y := range m {
		m[y] = make([]bool, cols)
	}
	return m
}

func checkDims(m [][]bool, cols, rows int) error {
	if len(m) != rows {
		return fmt.Errorf("ожидалось %d строк, получено %d", rows, len(m))
	}
	for y, row := range m {
		if len(row) != cols {
			return fmt.Errorf("строка %d: ожидалось %d колонок, получено %d", y, cols, len(row))
		}
	}
	return nil
}

// InBounds проверяет, что тайл внутри сетки
func (g *Grid) InBounds(x, y int) bool {
	return g != nil && x >= 0 && y >= 0 && x < g.Cols && y < g.Rows
}

// Blocked сообщает, что тайл непроходим. Тайлы за границей считаются непроходимыми.
func (g *Grid) Blocked(x, y int) bool {
	if !g.InBounds(x, y) {
		return true
	}
	return g.Collision[y][x]
}

// ValidateMask проверяет, что маска совпадает по размерам с сеткой.
// Пустая маска (nil) допустима и означает "зона не задана".
func (g *Grid) ValidateMask(m Mask) error {
	if m == nil {
		return nil
	}
	return checkDims(m, g.Cols, g.Rows)
}

// Get возвращает значение маски; за границей - false
func (m Mask) Get(x, y int) bool {
	if y < 0 || y >= len(m) || x < 0 || x >= len(m[y]) {
		return false
	}
	return m[y][x]
}

// Empty сообщает, что в маске нет ни одной отмеченной клетки
func (m Mask) Empty() bool {
	for _, row := range m {
		for _, v := range row {
			if v {
				return false
			}
		}
	}
	return true
}

// TilesOf возвращает все клетки маски, не занятые коллизией, в порядке строк
func (g *Grid) TilesOf(area Mask) []vec.Vec2 {
	tiles := make([]vec.Vec2, 0)
	for y := 0; y < g.Rows && y < len(area); y++ {
		for x := 0; x < g.Cols && x < len(area[y]); x++ {
			if area[y][x] && !g.Collision[y][x] {
				tiles = append(tiles, vec.Vec2{X: x, Y: y})
			}
		}
	}
	return tiles
}

// MovementMask строит производную маску перемещения:
// collision[y][x] || !movementArea[y][x]. true = тайл группе недоступен.
func (g *Grid) MovementMask(movementArea Mask) Mask {
	mask := NewMask(g.Cols, g.Rows)
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			mask[y][x] = g.Collision[y][x] || !movementArea.Get(x, y)
		}
	}
	return mask
}

// Usable сообщает, что тайл доступен по маске перемещения (false в маске)
func (m Mask) Usable(x, y int) bool {
	if y < 0 || y >= len(m) || x < 0 || x >= len(m[y]) {
		return false
	}
	return !m[y][x]
}
