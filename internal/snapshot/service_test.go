package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/metrics"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

const start = int64(1700000001000)

func world(id string, version int64) *population.WorldConfig {
	cols, rows := 10, 8
	area := grid.NewMask(cols, rows)
	for y := range area {
		for x := range area[y] {
			area[y][x] = true
		}
	}
	collision := grid.NewMask(cols, rows)
	collision[3][3] = true
	collision[3][4] = true

	return &population.WorldConfig{
		ID:        id,
		Version:   version,
		Cols:      cols,
		Rows:      rows,
		Collision: collision,
		Archetypes: map[string]*population.Archetype{
			"boar": {ID: "boar", MaxHP: 40, MovementSpeed: 1.5},
		},
		Groups: []population.GroupConfig{
			{ID: "boars", ArchetypeID: "boar", SpawnArea: area, SpawnCount: 5, RespawnMs: 2000},
		},
	}
}

func newTestService(t *testing.T, src worldsrc.Source, store RegistryStore) (*Service, *metrics.SnapshotMetrics) {
	t.Helper()
	m := metrics.NewSnapshotMetrics(prometheus.NewRegistry())
	return NewService(src, Options{Store: store, Metrics: m}), m
}

func TestGetSnapshotIdempotent(t *testing.T) {
	src := worldsrc.NewMemorySource()
	src.Put(world("meadow", 1))
	svc, _ := newTestService(t, src, storage.NewMemoryRegistryStore())
	ctx := context.Background()

	first, err := svc.GetSnapshot(ctx, "meadow", start+4000)
	require.NoError(t, err)
	require.Len(t, first, 5)

	second, err := svc.GetSnapshot(ctx, "meadow", start+4000)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.Loads(), "конфигурация должна загружаться один раз")
}

func TestGetSnapshotDeterministicAcrossServices(t *testing.T) {
	run := func() []population.Snapshot {
		src := worldsrc.NewMemorySource()
		src.Put(world("meadow", 1))
		svc, _ := newTestService(t, src, storage.NewMemoryRegistryStore())
		ctx := context.Background()

		_, err := svc.GetSnapshot(ctx, "meadow", start)
		require.NoError(t, err)
		_, err = svc.GetSnapshot(ctx, "meadow", start+7000)
		require.NoError(t, err)
		snaps, err := svc.GetSnapshot(ctx, "meadow", start+20000)
		require.NoError(t, err)
		return snaps
	}

	assert.Equal(t, run(), run())
}

func TestSharedStoreAcrossProcesses(t *testing.T) {
	src := worldsrc.NewMemorySource()
	src.Put(world("meadow", 1))
	store := storage.NewMemoryRegistryStore()
	a, _ := newTestService(t, src, store)
	b, _ := newTestService(t, src, store)
	ctx := context.Background()

	_, err := a.GetSnapshot(ctx, "meadow", start)
	require.NoError(t, err)
	fromA, err := a.GetSnapshot(ctx, "meadow", start+6000)
	require.NoError(t, err)

	fromB, err := b.GetSnapshot(ctx, "meadow", start+6000)
	require.NoError(t, err)
	assert.Equal(t, fromA, fromB)

	laterB, err := b.GetSnapshot(ctx, "meadow", start+9000)
	require.NoError(t, err)
	laterA, err := a.GetSnapshot(ctx, "meadow", start+9000)
	require.NoError(t, err)
	assert.Equal(t, laterB, laterA, "процесс A должен подхватить состояние, продвинутое B")
}

func TestConcurrentQueries(t *testing.T) {
	src := worldsrc.NewMemorySource()
	src.Put(world("meadow", 1))
	src.Put(world("swamp", 1))
	svc, _ := newTestService(t, src, storage.NewMemoryRegistryStore())
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, "meadow", start)
	require.NoError(t, err)
	_, err = svc.GetSnapshot(ctx, "swamp", start)
	require.NoError(t, err)

	const workers = 16
	results := make([][]population.Snapshot, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			worldID := "meadow"
			if i%2 == 1 {
				worldID = "swamp"
			}
			snaps, err := svc.GetSnapshot(ctx, worldID, start+5000)
			assert.NoError(t, err)
			results[i] = snaps
		}(i)
	}
	wg.Wait()

	for i := 2; i < workers; i++ {
		assert.Equal(t, results[i%2], results[i])
	}
	assert.ElementsMatch(t, []string{"meadow", "swamp"}, svc.Worlds())
}

// gatedSource держит LastModified до открытия gate и учитывает отмену контекста
type gatedSource struct {
	*worldsrc.MemorySource
	entered chan struct{}
	gate    chan struct{}
	once    sync.Once
}

func (g *gatedSource) LastModified(ctx context.Context, worldID string) (int64, error) {
	g.once.Do(func() { close(g.entered) })
	<-g.gate
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return g.MemorySource.LastModified(ctx, worldID)
}

func TestMergedQuerySurvivesFirstCallerCancel(t *testing.T) {
	mem := worldsrc.NewMemorySource()
	mem.Put(world("meadow", 1))
	src := &gatedSource{MemorySource: mem, entered: make(chan struct{}), gate: make(chan struct{})}
	svc, _ := newTestService(t, src, storage.NewMemoryRegistryStore())

	firstCtx, cancel := context.WithCancel(context.Background())
	type result struct {
		snaps []population.Snapshot
		err   error
	}
	first := make(chan result, 1)
	second := make(chan result, 1)

	go func() {
		snaps, err := svc.GetSnapshot(firstCtx, "meadow", start)
		first <- result{snaps, err}
	}()
	<-src.entered
	go func() {
		snaps, err := svc.GetSnapshot(context.Background(), "meadow", start)
		second <- result{snaps, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	close(src.gate)

	a, b := <-first, <-second
	require.NoError(t, a.err, "отмена первого вызова не ломает общий расчет")
	require.NoError(t, b.err)
	assert.Len(t, b.snaps, 5)
	assert.Equal(t, a.snaps, b.snaps)
}

func TestVersionChangeRebuilds(t *testing.T) {
	src := worldsrc.NewMemorySource()
	src.Put(world("meadow", 1))
	store := storage.NewMemoryRegistryStore()
	svc, _ := newTestService(t, src, store)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, "meadow", start)
	require.NoError(t, err)

	changed := world("meadow", 2)
	changed.Groups[0].SpawnCount = 3
	src.Put(changed)

	snaps, err := svc.GetSnapshot(ctx, "meadow", start+1000)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
	assert.Equal(t, 2, src.Loads())

	st, err := store.LoadState(ctx, "meadow")
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Version)
}

func TestInvalidate(t *testing.T) {
	src := worldsrc.NewMemorySource()
	src.Put(world("meadow", 1))
	store := storage.NewMemoryRegistryStore()
	svc, _ := newTestService(t, src, store)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, "meadow", start)
	require.NoError(t, err)

	require.NoError(t, svc.Invalidate(ctx, "meadow"))
	_, err = store.LoadState(ctx, "meadow")
	assert.ErrorIs(t, err, storage.ErrStateNotFound)
	assert.Empty(t, svc.Worlds())

	_, err = svc.GetSnapshot(ctx, "meadow", start+1000)
	require.NoError(t, err)
	assert.Equal(t, 2, src.Loads())
}

func TestUnknownWorld(t *testing.T) {
	svc, _ := newTestService(t, worldsrc.NewMemorySource(), nil)
	_, err := svc.GetSnapshot(context.Background(), "nowhere", start)
	assert.True(t, errors.Is(err, ErrWorldNotFound))
}

func TestBoundedCatchUp(t *testing.T) {
	src := worldsrc.NewMemorySource()
	src.Put(world("meadow", 1))
	store := storage.NewMemoryRegistryStore()
	svc, m := newTestService(t, src, store)
	ctx := context.Background()

	_, err := svc.GetSnapshot(ctx, "meadow", start)
	require.NoError(t, err)

	now := start + 60*60*1000
	_, err = svc.GetSnapshot(ctx, "meadow", now)
	require.NoError(t, err)

	st, err := store.LoadState(ctx, "meadow")
	require.NoError(t, err)
	assert.LessOrEqual(t, now-st.LastTick, clock.StepMs)

	ch := make(chan prometheus.Metric, 1)
	m.Replayed.WithLabelValues("meadow").Collect(ch)
	assert.Equal(t, float64(clock.MaxCatchUpMs/clock.StepMs), readCounter(t, <-ch))
}

func TestSnapshotsStayOnUsableTiles(t *testing.T) {
	src := worldsrc.NewMemorySource()
	cfg := world("meadow", 1)
	src.Put(cfg)
	svc, _ := newTestService(t, src, nil)
	ctx := context.Background()

	for now := start; now < start+60000; now += 730 {
		snaps, err := svc.GetSnapshot(ctx, "meadow", now)
		require.NoError(t, err)
		seen := make(map[[2]int]bool)
		for _, s := range snaps {
			if !s.Spawned {
				continue
			}
			require.False(t, cfg.Collision[s.TileY][s.TileX], "экземпляр %s на коллизии", s.ID)
			key := [2]int{s.TileX, s.TileY}
			require.False(t, seen[key], "два экземпляра на тайле %v", key)
			seen[key] = true
		}
	}
}

func TestSnapshotJSONFields(t *testing.T) {
	data, err := json.Marshal(population.Snapshot{ID: "boars#0", GroupID: "boars", TileX: 1, TileY: 2, Facing: -1, Spawned: true, UpdatedAt: 5})
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{"id", "groupId", "tileX", "tileY", "facing", "spawned", "updatedAt"}, keys)
}
