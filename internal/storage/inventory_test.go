package storage

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestInventory(t *testing.T) *BadgerInventory {
	tempDir, err := os.MkdirTemp("", "inventory-test")
	if err != nil {
		t.Fatalf("Не удалось создать временную директорию: %v", err)
	}

	inv, err := NewBadgerInventory(tempDir)
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Не удалось открыть инвентарь: %v", err)
	}

	t.Cleanup(func() {
		inv.Close()
		os.RemoveAll(tempDir)
	})
	return inv
}

func TestBadgerInventoryCollect(t *testing.T) {
	inv := setupTestInventory(t)
	ctx := context.Background()

	require.NoError(t, inv.Collect(ctx, "gel", 2))
	require.NoError(t, inv.Collect(ctx, "gel", 3))
	require.NoError(t, inv.Collect(ctx, "fang", 1))

	q, err := inv.Quantity("gel")
	require.NoError(t, err)
	assert.Equal(t, int64(5), q)

	missing, err := inv.Quantity("crown")
	require.NoError(t, err)
	assert.Zero(t, missing)

	items, err := inv.Items()
	require.NoError(t, err)
	assert.Equal(t, []InventoryItem{{ItemID: "fang", Quantity: 1}, {ItemID: "gel", Quantity: 5}}, items)
}

func TestBadgerInventoryValidation(t *testing.T) {
	inv := setupTestInventory(t)
	ctx := context.Background()

	assert.Error(t, inv.Collect(ctx, "", 1))
	assert.Error(t, inv.Collect(ctx, "gel", 0))

	require.NoError(t, inv.Close())
	assert.Error(t, inv.Collect(ctx, "gel", 1), "закрытое хранилище не принимает записи")
}

func TestMemoryInventory(t *testing.T) {
	inv := NewMemoryInventory()
	ctx := context.Background()

	require.NoError(t, inv.Collect(ctx, "gel", 2))

	inv.FailNext = 1
	assert.Error(t, inv.Collect(ctx, "gel", 1))
	assert.Equal(t, int64(2), inv.Quantity("gel"), "неудачный вызов не должен менять количество")

	require.NoError(t, inv.Collect(ctx, "gel", 1))
	assert.Equal(t, []InventoryItem{{ItemID: "gel", Quantity: 3}}, inv.Items())

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, inv.Collect(canceled, "gel", 1), context.Canceled)
}
