package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/snapshot"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

const start = int64(1700000001000)

func meadow() *population.WorldConfig {
	cols, rows := 8, 6
	area := grid.NewMask(cols, rows)
	for y := range area {
		for x := range area[y] {
			area[y][x] = true
		}
	}
	return &population.WorldConfig{
		ID:      "meadow",
		Version: 1,
		Cols:    cols,
		Rows:    rows,
		Archetypes: map[string]*population.Archetype{
			"boar": {ID: "boar", MaxHP: 40, MovementSpeed: 1},
		},
		Groups: []population.GroupConfig{
			{ID: "boars", ArchetypeID: "boar", SpawnArea: area, SpawnCount: 3, RespawnMs: 2000},
		},
	}
}

func newTestServer(t *testing.T, provider SnapshotProvider) *RestServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewRestServer(Config{
		GinMode:   gin.TestMode,
		Snapshots: provider,
		Registry:  reg,
		Gatherer:  reg,
		Now:       func() int64 { return start },
	})
}

func newSnapshotServer(t *testing.T) *RestServer {
	src := worldsrc.NewMemorySource()
	src.Put(meadow())
	return newTestServer(t, snapshot.NewService(src, snapshot.Options{}))
}

func get(t *testing.T, rs *RestServer, url string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	rs.Handler().ServeHTTP(w, req)
	return w
}

type snapshotBody struct {
	Success bool             `json:"success"`
	Data    SnapshotResponse `json:"data"`
}

func TestSnapshotEndpoint(t *testing.T) {
	rs := newSnapshotServer(t)

	w := get(t, rs, "/api/worlds/meadow/snapshot?now=1700000005000")
	require.Equal(t, http.StatusOK, w.Code)

	var body snapshotBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "meadow", body.Data.WorldID)
	assert.Equal(t, int64(1700000005000), body.Data.Now)
	assert.Len(t, body.Data.Creatures, 3)

	// Повторный запрос с тем же now дает тот же ответ
	again := get(t, rs, "/api/worlds/meadow/snapshot?now=1700000005000")
	assert.JSONEq(t, w.Body.String(), again.Body.String())
}

func TestSnapshotDefaultsToServerClock(t *testing.T) {
	rs := newSnapshotServer(t)

	w := get(t, rs, "/api/worlds/meadow/snapshot")
	require.Equal(t, http.StatusOK, w.Code)

	var body snapshotBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, start, body.Data.Now)
}

func TestSnapshotErrors(t *testing.T) {
	rs := newSnapshotServer(t)

	tests := []struct {
		name string
		url  string
		code int
	}{
		{"unknown world", "/api/worlds/nowhere/snapshot?now=1", http.StatusNotFound},
		{"not a number", "/api/worlds/meadow/snapshot?now=soon", http.StatusBadRequest},
		{"negative", "/api/worlds/meadow/snapshot?now=-5", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(t, rs, tt.url)
			assert.Equal(t, tt.code, w.Code)

			var body GenericResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.NotEmpty(t, body.Message)
		})
	}
}

type failingProvider struct{}

func (failingProvider) GetSnapshot(ctx context.Context, worldID string, now int64) ([]population.Snapshot, error) {
	return nil, errors.New("redis недоступен")
}

func (failingProvider) Worlds() []string { return nil }

func TestSnapshotInternalError(t *testing.T) {
	rs := newTestServer(t, failingProvider{})

	w := get(t, rs, "/api/worlds/meadow/snapshot?now=1")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis", "детали ошибки не должны утекать клиенту")
}

func TestListWorlds(t *testing.T) {
	rs := newSnapshotServer(t)

	w := get(t, rs, "/api/worlds")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, w.Body.String())

	get(t, rs, "/api/worlds/meadow/snapshot?now=1700000002000")

	w = get(t, rs, "/api/worlds")
	assert.JSONEq(t, `{"success":true,"data":["meadow"]}`, w.Body.String())
}

func TestHealthAndMetrics(t *testing.T) {
	rs := newSnapshotServer(t)

	w := get(t, rs, "/health")
	require.Equal(t, http.StatusOK, w.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health["status"])
	assert.Contains(t, health, "uptime")
	assert.Contains(t, health, "memory")

	w = get(t, rs, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "snapshot_api_http_request_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	rs := newSnapshotServer(t)

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodOptions, "/api/worlds", nil)
	require.NoError(t, err)
	rs.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "42с", formatUptime(42e9))
	assert.Equal(t, "2м 5с", formatUptime(125e9))
	assert.Equal(t, "1ч 0м 1с", formatUptime(3601e9))
	assert.Equal(t, "1д 1ч 0м 0с", formatUptime(90000e9))
}
