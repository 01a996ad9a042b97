package storage

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePosition(t *testing.T) {
	cases := []struct {
		name    string
		userID  uint64
		pos     Position
		wantErr bool
	}{
		{"валидная позиция", 7, Position{TileX: 3, TileY: 4, Scale: 1}, false},
		{"нулевой тайл", 7, Position{}, false},
		{"нулевой userID", 0, Position{TileX: 1, TileY: 1, Scale: 1}, true},
		{"отрицательный TileX", 7, Position{TileX: -1, TileY: 1, Scale: 1}, true},
		{"отрицательный TileY", 7, Position{TileX: 1, TileY: -3, Scale: 1}, true},
		{"отрицательный масштаб", 7, Position{TileX: 1, TileY: 1, Scale: -0.5}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePosition(tc.userID, tc.pos)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryPositionRepoKeepsFractionalScale(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	want := Position{TileX: 12, TileY: 0, Scale: 1.75}
	require.NoError(t, repo.Save(ctx, 42, want))

	got, found, err := repo.Load(ctx, 42)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
	assert.InDelta(t, 1.75, got.Scale, 1e-9)

	raw, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"tileX":12,"tileY":0,"scale":1.75}`, string(raw))
}

func TestMemoryPositionRepoMissingAndDelete(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	pos, found, err := repo.Load(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, Position{}, pos)

	require.NoError(t, repo.Save(ctx, 5, Position{TileX: 1, TileY: 2, Scale: 1}))
	require.NoError(t, repo.Save(ctx, 5, Position{TileX: 8, TileY: 9, Scale: 2}))
	pos, _, err = repo.Load(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, Position{TileX: 8, TileY: 9, Scale: 2}, pos, "повторное сохранение перезаписывает позицию")

	require.NoError(t, repo.Delete(ctx, 5))
	_, found, err = repo.Load(ctx, 5)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryPositionRepoBatchSaveIsAtomic(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	err := repo.BatchSave(ctx, map[uint64]Position{
		1: {TileX: 1, TileY: 1, Scale: 1},
		2: {TileX: 2, TileY: -2, Scale: 1},
		3: {TileX: 3, TileY: 3, Scale: 1},
	})
	require.Error(t, err)
	assert.Zero(t, repo.Count(), "пакет с невалидной записью не сохраняется целиком")

	batch := map[uint64]Position{
		1: {TileX: 1, TileY: 1, Scale: 1},
		2: {TileX: 2, TileY: 2, Scale: 0.5},
	}
	require.NoError(t, repo.BatchSave(ctx, batch))
	assert.Equal(t, batch, repo.GetAllPositions())

	require.NoError(t, repo.BatchSave(ctx, nil))
	assert.Equal(t, 2, repo.Count())

	repo.Clear()
	assert.Zero(t, repo.Count())
	assert.Empty(t, repo.GetAllPositions())
}

func TestMemoryPositionRepoRespectsCancelledContext(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.Save(ctx, 1, Position{Scale: 1}), context.Canceled)
	assert.ErrorIs(t, repo.BatchSave(ctx, map[uint64]Position{1: {Scale: 1}}), context.Canceled)
	assert.Zero(t, repo.Count())
}

func TestMemoryPositionRepoParallelWriters(t *testing.T) {
	repo := NewMemoryPositionRepo()
	ctx := context.Background()

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				userID := uint64(w*perWriter + i + 1)
				pos := Position{TileX: w, TileY: i, Scale: 1}
				if !assert.NoError(t, repo.Save(ctx, userID, pos)) {
					return
				}
				got, found, err := repo.Load(ctx, userID)
				assert.NoError(t, err)
				assert.True(t, found)
				assert.Equal(t, pos, got)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, writers*perWriter, repo.Count())
}
