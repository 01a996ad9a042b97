package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
)

func sampleState() *population.RegistryState {
	return &population.RegistryState{
		WorldID:  "meadow",
		Version:  1700000000000,
		LastTick: 1700000012000,
		RNG:      0xDEADBEEF,
		Instances: []population.Instance{
			{ID: "slimes#0", GroupID: "slimes", State: population.StateIdle, Tile: vec.Vec2{X: 3, Y: 4}, Dest: vec.Vec2{X: 3, Y: 4}, Facing: 1, HP: 30, MaxHP: 30},
			{ID: "slimes#1", GroupID: "slimes", Ordinal: 1, State: population.StateMoving, Tile: vec.Vec2{X: 1, Y: 1}, Dest: vec.Vec2{X: 2, Y: 1}, Facing: 1, HP: 30, MaxHP: 30, ArriveAt: 1700000012300},
		},
	}
}

func TestMemoryRegistryStore(t *testing.T) {
	store := NewMemoryRegistryStore()
	ctx := context.Background()

	_, err := store.LoadState(ctx, "meadow")
	assert.True(t, errors.Is(err, ErrStateNotFound))

	st := sampleState()
	require.NoError(t, store.SaveState(ctx, st))

	// Изменение исходного состояния не должно влиять на сохраненную копию
	st.Instances[0].HP = 1

	loaded, err := store.LoadState(ctx, "meadow")
	require.NoError(t, err)
	assert.Equal(t, 30, loaded.Instances[0].HP)
	assert.Equal(t, sampleState(), loaded)

	require.NoError(t, store.DeleteState(ctx, "meadow"))
	_, err = store.LoadState(ctx, "meadow")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestStateCodecRoundTrip(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()

	data, err := EncodeState(enc, sampleState())
	require.NoError(t, err)

	decoded, err := DecodeState(dec, data)
	require.NoError(t, err)
	assert.Equal(t, sampleState(), decoded)

	_, err = DecodeState(dec, []byte("not zstd"))
	assert.Error(t, err)
}
