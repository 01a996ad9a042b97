package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutPathReturnsDefaults(t *testing.T) {
	t.Setenv("GAME_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.EventBus.Kind)
	assert.Equal(t, int64(5000), cfg.Simulation.SaveEveryMs)
	assert.Equal(t, int64(1500), cfg.Simulation.PresenceEveryMs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  rest_port: 9090
eventbus:
  kind: jetstream
  retention_hours: 2
worlds:
  source: yaml
  dir: /srv/worlds
simulation:
  save_every_ms: 2500
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	t.Setenv("GAME_CONFIG", path)
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.GetRESTPort())
	assert.Equal(t, "jetstream", cfg.EventBus.Kind)
	assert.Equal(t, "EVENTS", cfg.EventBus.Stream, "незаданные поля остаются по умолчанию")
	assert.Equal(t, 2*time.Hour, cfg.EventBus.RetentionDuration())
	assert.Equal(t, "/srv/worlds", cfg.Worlds.Dir)
	assert.Equal(t, int64(2500), cfg.Simulation.SaveEveryMs)
	assert.Equal(t, int64(1500), cfg.Simulation.PresenceEveryMs)
}

func TestLoadRejectsUnknownKinds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registry_store:\n  kind: redis\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err, "redis-хранилище без redis.enabled")

	require.NoError(t, os.WriteFile(path, []byte("eventbus:\n  kind: kafka\n"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestRESTPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("GAME_REST_PORT", "7001")
	assert.Equal(t, 7001, s.GetRESTPort())

	t.Setenv("GAME_REST_PORT", "bogus")
	assert.Equal(t, 8088, s.GetRESTPort())
}
