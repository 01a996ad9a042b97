package main

import (
	"context"
	"fmt"
	"time"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/clock"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/config"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/interactive"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/metrics"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/presence"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/storage"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/vec"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldgen"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

const (
	demoWorldID = "demo"
	demoUserID  = uint64(1)
)

func generateDemoDocument(seed, version int64) (*worldsrc.WorldDocument, error) {
	return worldgen.NewGenerator(seed, 48, 24).Generate(demoWorldID, version)
}

// runDemo крутит интерактивную симуляцию демо-участника: он выбирает ближайшее
// существо, сражается и подбирает добычу. Состояние уходит в шину событий.
func runDemo(ctx context.Context, cfg *config.Config, in *infrastructure, masks *grid.MaskCache, m *metrics.InteractiveMetrics) error {
	logger := logging.GetInteractiveLogger()

	world, err := in.source.Load(ctx, in.demoWorld)
	if err != nil {
		return fmt.Errorf("загрузка демо-мира: %w", err)
	}

	inventory, closeInventory, err := demoInventory(cfg)
	if err != nil {
		return err
	}
	defer closeInventory()

	positions, closePositions, err := demoPositions(cfg, in)
	if err != nil {
		return err
	}
	defer closePositions()

	var feed presence.Feed = presence.NewMemoryFeed()
	if in.redis != nil {
		feed = presence.NewRedisFeed(in.redis, cfg.Redis.KeyPrefix, world.ID, cfg.Redis.TTL())
	}

	start := vec.Vec2{X: world.Cols / 2, Y: world.Rows / 2}
	if pos, ok, err := positions.Load(ctx, demoUserID); err == nil && ok {
		start = vec.Vec2{X: pos.TileX, Y: pos.TileY}
		logger.Info("📍 Восстановлена позиция участника (%d,%d)", pos.TileX, pos.TileY)
	}

	sink := interactive.NewBusSink(in.bus, world.ID)
	defer sink.Close()

	sim, err := interactive.New(world, interactive.ParticipantConfig{
		UserID:         demoUserID,
		DisplayName:    "demo-hunter",
		Start:          start,
		MaxHP:          200,
		Attack:         25,
		Defense:        6,
		CritChance:     10,
		AttackSpeedSec: 1.2,
		MovementSpeed:  1.4,
	}, interactive.Options{
		Random:          clock.NewTrueRandom(),
		Masks:           masks,
		Inventory:       inventory,
		Positions:       positions,
		Presence:        feed,
		Sink:            sink,
		Metrics:         m,
		SaveEveryMs:     cfg.Simulation.SaveEveryMs,
		PresenceEveryMs: cfg.Simulation.PresenceEveryMs,
	})
	if err != nil {
		return err
	}
	defer sim.Close()

	frame := time.Duration(cfg.Simulation.FrameMs) * time.Millisecond
	if frame <= 0 {
		frame = 16 * time.Millisecond
	}
	ticker := time.NewTicker(frame)
	defer ticker.Stop()

	logger.Info("🏹 Демо-участник вошел в мир %s на (%d,%d)", world.ID, start.X, start.Y)
	var nextThink int64
	for {
		select {
		case <-ctx.Done():
			final := sim.Participant().Tile
			saveCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := positions.Save(saveCtx, demoUserID, storage.Position{TileX: final.X, TileY: final.Y, Scale: 1}); err != nil {
				logger.Warn("⚠️ Финальная позиция не сохранена: %v", err)
			}
			cancel()
			return nil
		case t := <-ticker.C:
			now := t.UnixMilli()
			sim.Step(now)
			if now >= nextThink {
				think(sim, logger)
				nextThink = now + 500
			}
		}
	}
}

// think выбирает следующее действие демо-участника
func think(sim *interactive.Simulator, logger *logging.Logger) {
	v := sim.View()
	for _, n := range v.Notices {
		if n.At == v.Now {
			logger.Info("🔔 %s", n.Message)
		}
	}

	p := sim.Participant()
	if p.TargetID != "" || p.PickupID != "" || p.InTransit() {
		return
	}

	if len(v.Drops) > 0 {
		nearest := v.Drops[0]
		for _, d := range v.Drops[1:] {
			if d.Tile.ChebyshevTo(p.Tile) < nearest.Tile.ChebyshevTo(p.Tile) {
				nearest = d
			}
		}
		if err := sim.Pickup(nearest.ID); err == nil {
			return
		}
	}

	var target *interactive.CreatureView
	for i := range v.Creatures {
		c := &v.Creatures[i]
		if target == nil || c.Tile.ChebyshevTo(p.Tile) < target.Tile.ChebyshevTo(p.Tile) {
			target = c
		}
	}
	if target == nil {
		return
	}
	if err := sim.Attack(target.ID); err != nil {
		logger.Debug("Цель %s недоступна: %v", target.ID, err)
	}
}

func demoInventory(cfg *config.Config) (interactive.Inventory, func(), error) {
	if cfg.Badger.Path == "" {
		return storage.NewMemoryInventory(), func() {}, nil
	}
	inv, err := storage.NewBadgerInventory(cfg.Badger.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("открытие инвентаря Badger: %w", err)
	}
	return inv, func() { _ = inv.Close() }, nil
}

func demoPositions(cfg *config.Config, in *infrastructure) (storage.PositionRepo, func(), error) {
	switch {
	case cfg.Maria.Enabled:
		repo, err := storage.NewMariaPositionRepo(cfg.Maria.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к MariaDB: %w", err)
		}
		return repo, func() { _ = repo.Close() }, nil
	case in.redis != nil:
		repo := storage.NewRedisPositionRepo(in.redis, redisConfig(cfg))
		return repo, func() { _ = repo.Close() }, nil
	default:
		return storage.NewMemoryPositionRepo(), func() {}, nil
	}
}
