package worldsrc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
)

const meadowYAML = `
id: meadow
version: 1700000000000
cols: 5
rows: 3
collision:
  - "..#.."
  - "..#.."
  - "....."
archetypes:
  - id: slime
    name: Slime
    attack: 6
    defense: 2
    maxHp: 30
    critChance: 5
    attackIntervalMs: 900
    movementSpeed: 1.2
    loot:
      - itemId: gel
        quantity: 1
        dropChance: 60
groups:
  - id: slimes
    archetype: slime
    spawnArea:
      rows:
        - "xx..."
        - "xx..."
        - "....."
    movementArea:
      rects:
        - {x: 0, y: 0, w: 5, h: 3}
    spawnCount: 2
    respawnMs: 4000
`

func writeWorld(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0644))
	return p
}

func TestYAMLDirSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeWorld(t, dir, "meadow.yaml", meadowYAML)

	src, err := NewYAMLDirSource(dir)
	require.NoError(t, err)
	ctx := context.Background()

	version, err := src.LastModified(ctx, "meadow")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), version)

	cfg, err := src.Load(ctx, "meadow")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Cols)
	assert.Equal(t, 3, cfg.Rows)
	assert.True(t, cfg.Collision[1][2])
	assert.False(t, cfg.Collision[2][2])

	slime := cfg.Archetypes["slime"]
	require.NotNil(t, slime)
	assert.Equal(t, 30, slime.MaxHP)
	assert.Equal(t, []population.LootEntry{{ItemID: "gel", Quantity: 1, DropChance: 60}}, slime.Loot)

	require.Len(t, cfg.Groups, 1)
	g := cfg.Groups[0]
	assert.True(t, g.SpawnArea[1][1])
	assert.False(t, g.SpawnArea[1][2])
	assert.True(t, g.MovementArea[2][4])
	assert.Equal(t, int64(4000), g.RespawnMs)

	reg, err := population.NewRegistry(cfg, nil)
	require.NoError(t, err)
	assert.Empty(t, reg.Skipped())
	assert.Len(t, reg.Instances, 2)
}

func TestYAMLDirSourceVersionFromModTime(t *testing.T) {
	dir := t.TempDir()
	body := "id: cave\ncols: 2\nrows: 2\n"
	p := writeWorld(t, dir, "cave.yml", body)

	stamp := time.UnixMilli(1700000123000)
	require.NoError(t, os.Chtimes(p, stamp, stamp))

	src, err := NewYAMLDirSource(dir)
	require.NoError(t, err)

	version, err := src.LastModified(context.Background(), "cave")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000123000), version)

	// Файл изменился: версия должна смениться
	later := stamp.Add(5 * time.Second)
	require.NoError(t, os.Chtimes(p, later, later))
	version, err = src.LastModified(context.Background(), "cave")
	require.NoError(t, err)
	assert.Equal(t, later.UnixMilli(), version)
}

func TestYAMLDirSourceMissingWorld(t *testing.T) {
	src, err := NewYAMLDirSource(t.TempDir())
	require.NoError(t, err)

	_, err = src.LastModified(context.Background(), "nowhere")
	assert.True(t, errors.Is(err, ErrWorldNotFound))

	_, err = src.Load(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrWorldNotFound)
}

func TestYAMLDirSourceRejectsMismatchedID(t *testing.T) {
	dir := t.TempDir()
	writeWorld(t, dir, "other.yaml", meadowYAML)

	src, err := NewYAMLDirSource(dir)
	require.NoError(t, err)
	_, err = src.Load(context.Background(), "other")
	assert.Error(t, err)
}

func TestWriteDocumentAndWorlds(t *testing.T) {
	dir := t.TempDir()
	doc := &WorldDocument{ID: "plains", Version: 42, Cols: 3, Rows: 1, Collision: []string{".#."}}
	_, err := WriteDocument(dir, doc)
	require.NoError(t, err)
	writeWorld(t, dir, "notes.txt", "не мир")

	src, err := NewYAMLDirSource(dir)
	require.NoError(t, err)

	ids, err := src.Worlds()
	require.NoError(t, err)
	assert.Equal(t, []string{"plains"}, ids)

	cfg, err := src.Load(context.Background(), "plains")
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Version)
	assert.Equal(t, [][]bool{{false, true, false}}, cfg.Collision)
}

func TestAreaDocumentMask(t *testing.T) {
	assert.Nil(t, AreaDocument{}.Mask(3, 3))

	m := AreaDocument{Rects: []RectDocument{{X: 1, Y: 1, W: 5, H: 5}}}.Mask(3, 3)
	assert.Equal(t, [][]bool{
		{false, false, false},
		{false, true, true},
		{false, true, true},
	}, [][]bool(m))
}

func TestMemorySource(t *testing.T) {
	src := NewMemorySource()
	ctx := context.Background()

	_, err := src.Load(ctx, "meadow")
	assert.ErrorIs(t, err, ErrWorldNotFound)

	src.Put(&population.WorldConfig{ID: "meadow", Version: 7, Cols: 2, Rows: 2})
	v, err := src.LastModified(ctx, "meadow")
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)

	_, err = src.Load(ctx, "meadow")
	require.NoError(t, err)
	assert.Equal(t, 1, src.Loads())
}
