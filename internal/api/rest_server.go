// Package api - read-only HTTP-интерфейс снапшотов популяции.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/middleware"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/population"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/snapshot"
	"github.com/yuribrpr/anima-mmorpg-sub000/internal/worldsrc"
)

// SnapshotProvider отдает снапшоты миров (реализуется snapshot.Service)
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, worldID string, now int64) ([]population.Snapshot, error)
	Worlds() []string
}

// Config содержит конфигурацию REST сервера
type Config struct {
	Port      string // адрес вида ":8088"
	GinMode   string
	Snapshots SnapshotProvider
	Registry  prometheus.Registerer // nil = дефолтный регистр
	Gatherer  prometheus.Gatherer   // nil = дефолтный
	Logger    *logging.Logger
	// Now возвращает текущее время в мс, если запрос не указал now
	Now func() int64
}

// RestServer представляет REST API сервер
type RestServer struct {
	router    *gin.Engine
	server    *http.Server
	snapshots SnapshotProvider
	metrics   *ServerMetrics
	logger    *logging.Logger
	now       func() int64
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SnapshotResponse - тело ответа на запрос снапшота
type SnapshotResponse struct {
	WorldID   string                `json:"worldId"`
	Now       int64                 `json:"now"`
	Creatures []population.Snapshot `json:"creatures"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.GinMode == "" {
		config.GinMode = gin.ReleaseMode
	}
	if config.Logger == nil {
		config.Logger = logging.GetComponentLogger("api")
	}
	if config.Now == nil {
		config.Now = func() int64 { return time.Now().UnixMilli() }
	}

	gin.SetMode(config.GinMode)

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(middleware.NewRequestLogger(config.Logger).Handler())
	router.Use(otelgin.Middleware("snapshot_api"))

	promMw := middleware.NewPrometheusMiddleware("snapshot_api", config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Gatherer)

	rs := &RestServer{
		router:    router,
		snapshots: config.Snapshots,
		metrics:   NewServerMetrics(),
		logger:    config.Logger,
		now:       config.Now,
	}
	rs.server = &http.Server{Addr: config.Port, Handler: router}

	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.Use(corsMiddleware())

	api := rs.router.Group("/api")
	{
		api.GET("/worlds", rs.handleListWorlds)
		api.GET("/worlds/:id/snapshot", rs.handleSnapshot)
	}

	rs.router.GET("/health", rs.handleHealth)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Handler возвращает http.Handler сервера (используется в тестах)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// handleSnapshot - GET /api/worlds/:id/snapshot?now=<мс>
func (rs *RestServer) handleSnapshot(c *gin.Context) {
	worldID := c.Param("id")

	now := rs.now()
	if raw := c.Query("now"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, GenericResponse{
				Success: false,
				Message: "Параметр now должен быть неотрицательным числом миллисекунд",
			})
			return
		}
		now = parsed
	}

	creatures, err := rs.snapshots.GetSnapshot(c.Request.Context(), worldID, now)
	if err != nil {
		if errors.Is(err, snapshot.ErrWorldNotFound) || errors.Is(err, worldsrc.ErrWorldNotFound) {
			c.JSON(http.StatusNotFound, GenericResponse{
				Success: false,
				Message: "Мир не найден",
			})
			return
		}
		rs.logger.Error("Ошибка снапшота мира %s: %v", worldID, err)
		c.JSON(http.StatusInternalServerError, GenericResponse{
			Success: false,
			Message: "Ошибка получения снапшота",
		})
		return
	}

	if creatures == nil {
		creatures = []population.Snapshot{}
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data: SnapshotResponse{
			WorldID:   worldID,
			Now:       now,
			Creatures: creatures,
		},
	})
}

// handleListWorlds - миры с живыми реестрами
func (rs *RestServer) handleListWorlds(c *gin.Context) {
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Data:    rs.snapshots.Worlds(),
	})
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
		"uptime": rs.metrics.Uptime(),
		"memory": rs.metrics.MemoryStats(),
	}
	if pct, err := rs.metrics.CPUUsage(); err == nil {
		body["cpu_percent"] = pct
	}
	c.JSON(http.StatusOK, body)
}

// Start запускает REST сервер и блокируется до остановки
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.server.Addr)
	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop останавливает сервер, дожидаясь активных запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
