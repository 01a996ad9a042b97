package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/api"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/cache"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/config"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/eventbus"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/grid"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/metrics"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/observability"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/snapshot"
)

func main() {
	var (
		configPath = flag.String("config", "", "Путь к YAML-конфигурации (по умолчанию GAME_CONFIG)")
		demo       = flag.Bool("demo", false, "Сгенерировать демо-мир и запустить интерактивную симуляцию")
		demoSeed   = flag.Int64("seed", 42, "Сид генератора демо-мира")
	)
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.GetLoggerManager().CloseAll() }()

	logging.Info("🎮 Запуск симулятора популяции существ...")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === ТРАССИРОВКА ===
	shutdownTracing, err := observability.InitTelemetry(ctx, "anima-population", cfg.Telemetry)
	if err != nil {
		log.Fatalf("❌ Ошибка инициализации OpenTelemetry: %v", err)
	}

	// === ИНФРАСТРУКТУРА ===
	infra, err := newInfrastructure(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer infra.Close()

	if *demo {
		worldID, err := prepareDemoWorld(ctx, cfg, infra, *demoSeed)
		if err != nil {
			log.Fatalf("❌ Ошибка подготовки демо-мира: %v", err)
		}
		infra.demoWorld = worldID
	}

	// === АВТОРИТЕТНЫЙ СИМУЛЯТОР ===
	reg := prometheus.DefaultRegisterer
	masks := grid.NewMaskCache()
	svc := snapshot.NewService(infra.source, snapshot.Options{
		Store:   infra.registryStore,
		Masks:   masks,
		Metrics: metrics.NewSnapshotMetrics(reg),
	})

	if err := infra.invalidator.Subscribe(ctx, cache.ResetHandler(svc)); err != nil {
		log.Fatalf("❌ Ошибка подписки на инвалидацию: %v", err)
	}
	watcher := cache.NewWatcher(infra.source, infra.invalidator, svc.Worlds)
	go watcher.Run(ctx, 10*time.Second)

	// === ШИНА СОБЫТИЙ ===
	busMetrics := eventbus.NewMetricsExporter(infra.bus, reg)
	busMetrics.Start(5 * time.Second)
	defer busMetrics.Stop()
	if _, err := eventbus.StartLoggingListener(ctx, infra.bus); err != nil {
		logging.Warn("⚠️ LoggingListener не запущен: %v", err)
	}

	// === ИНТЕРАКТИВНАЯ СИМУЛЯЦИЯ (демо) ===
	demoDone := make(chan struct{})
	if infra.demoWorld != "" {
		go func() {
			defer close(demoDone)
			if err := runDemo(ctx, cfg, infra, masks, metrics.NewInteractiveMetrics(reg)); err != nil {
				logging.Error("❌ Демо-симуляция остановлена: %v", err)
			}
		}()
	} else {
		close(demoDone)
	}

	// === REST API ===
	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	rest := api.NewRestServer(api.Config{
		Port:      restPort,
		GinMode:   cfg.Server.GinMode,
		Snapshots: svc,
	})
	go func() {
		if err := rest.Start(); err != nil {
			logging.Error("❌ Ошибка REST API: %v", err)
			cancel()
		}
	}()

	logging.Info("✅ Все сервисы запущены (узел %s)", cfg.Server.NodeID)
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📈 Метрики: http://localhost%s/metrics", restPort)
	if infra.demoWorld != "" {
		logging.Info("   🗺️  Снапшот демо-мира: curl http://localhost%s/api/worlds/%s/snapshot", restPort, infra.demoWorld)
	}

	// Канал для получения сигналов ОС
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
	case <-ctx.Done():
	}

	// === GRACEFUL SHUTDOWN ===
	cancel()
	<-demoDone

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()

	logging.Debug("Остановка REST API...")
	if err := rest.Stop(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки REST API: %v", err)
	}
	if err := shutdownTracing(stopCtx); err != nil {
		logging.Error("❌ Ошибка остановки трассировки: %v", err)
	}

	logging.Info("👋 Сервер успешно остановлен")
}
