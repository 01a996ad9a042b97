package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

func TestNew_ValidatesDimensions(t *testing.T) {
	_, err := New(0, 3, 32, nil)
	assert.Error(t, err)

	_, err = New(3, 2, 32, [][]bool{{false, false, false}})
	assert.Error(t, err, "число строк не совпадает")

	g, err := New(3, 2, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, g.TileSize, "размер тайла по умолчанию")
	assert.False(t, g.Blocked(2, 1))
	assert.True(t, g.Blocked(3, 1), "за границей тайл непроходим")
	assert.True(t, g.Blocked(-1, 0))
}

func TestMovementMask(t *testing.T) {
	collision := [][]bool{
		{false, true, false},
		{false, false, false},
	}
	g, err := New(3, 2, 16, collision)
	require.NoError(t, err)

	area := Mask{
		{true, true, false},
		{true, true, true},
	}
	mm := g.MovementMask(area)

	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			expected := collision[y][x] || !area[y][x]
			assert.Equal(t, expected, mm[y][x], "тайл (%d,%d)", x, y)
		}
	}
	assert.True(t, mm.Usable(0, 0))
	assert.False(t, mm.Usable(1, 0))
	assert.False(t, mm.Usable(2, 0))
	assert.False(t, mm.Usable(5, 5))
}

func TestTilesOf_SkipsCollision(t *testing.T) {
	g, err := New(2, 2, 16, [][]bool{{true, false}, {false, false}})
	require.NoError(t, err)

	tiles := g.TilesOf(Mask{{true, true}, {false, true}})
	assert.Equal(t, []vec.Vec2{{X: 1, Y: 0}, {X: 1, Y: 1}}, tiles)
	assert.True(t, Mask(nil).Empty())
	assert.False(t, Mask{{false, true}}.Empty())
}

func TestValidateMask(t *testing.T) {
	g, err := New(2, 2, 16, nil)
	require.NoError(t, err)

	assert.NoError(t, g.ValidateMask(nil))
	assert.NoError(t, g.ValidateMask(NewMask(2, 2)))
	assert.Error(t, g.ValidateMask(NewMask(3, 2)))
}

func TestMaskCache_BuildOnceAndInvalidate(t *testing.T) {
	cache := NewMaskCache()
	builds := 0
	build := func() Mask {
		builds++
		return NewMask(1, 1)
	}

	cache.Get("w1", 1, "g1", build)
	cache.Get("w1", 1, "g1", build)
	assert.Equal(t, 1, builds, "маска строится один раз на (группа, версия)")

	cache.Get("w1", 2, "g1", build)
	assert.Equal(t, 2, builds, "новая версия мира строит маску заново")
	assert.Equal(t, 1, cache.Len(), "маски старой версии удалены")

	cache.Get("w2", 1, "g1", build)
	cache.Invalidate("w1")
	assert.Equal(t, 1, cache.Len())

	hits, misses := cache.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(3), misses)
}
