package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lootPayload struct {
	DropID string `json:"dropId"`
	ItemID string `json:"itemId"`
}

func TestNewEnvelope(t *testing.T) {
	ev, err := NewEnvelope("meadow", "loot-spawned", lootPayload{DropID: "d1", ItemID: "gel"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "loot-spawned", ev.EventType)
	assert.Equal(t, "events.loot-spawned", Subject(ev.EventType))

	var decoded lootPayload
	require.NoError(t, ev.Decode(&decoded))
	assert.Equal(t, "gel", decoded.ItemID)
}

func TestMemoryBusFilters(t *testing.T) {
	bus := NewMemoryBus(16)
	ctx := context.Background()

	var mu sync.Mutex
	var got []string
	_, err := bus.Subscribe(ctx, Filter{Types: []string{"creature-died"}}, func(ctx context.Context, ev *Envelope) {
		mu.Lock()
		got = append(got, ev.EventType)
		mu.Unlock()
	})
	require.NoError(t, err)

	for _, typ := range []string{"creature-died", "loot-spawned", "creature-died"} {
		ev, err := NewEnvelope("meadow", typ, nil)
		require.NoError(t, err)
		require.NoError(t, bus.Publish(ctx, ev))
	}

	require.NoError(t, bus.Close())
	assert.Equal(t, []string{"creature-died", "creature-died"}, got)

	stats := bus.Metrics()
	assert.Equal(t, uint64(3), stats.Published)
	assert.Equal(t, uint64(2), stats.Consumed)

	ev, _ := NewEnvelope("meadow", "late", nil)
	assert.ErrorIs(t, bus.Publish(ctx, ev), ErrClosed)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()
	ctx := context.Background()

	calls := make(chan struct{}, 4)
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, ev *Envelope) {
		calls <- struct{}{}
	})
	require.NoError(t, err)
	sub.Unsubscribe()

	ev, _ := NewEnvelope("meadow", "creature-died", nil)
	require.NoError(t, bus.Publish(ctx, ev))

	select {
	case <-calls:
		t.Fatal("отписанный обработчик не должен вызываться")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMetricsExporterCollect(t *testing.T) {
	bus := NewMemoryBus(4)
	exp := NewMetricsExporter(bus, prometheus.NewRegistry())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ev, _ := NewEnvelope("meadow", "creature-died", nil)
		require.NoError(t, bus.Publish(ctx, ev))
	}
	require.NoError(t, bus.Close())

	exp.Collect()
	exp.Collect()

	var pb dto.Metric
	require.NoError(t, exp.published.Write(&pb))
	assert.Equal(t, float64(3), pb.GetCounter().GetValue(), "повторный сбор не должен удваивать счетчик")
}
