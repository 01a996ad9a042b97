package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuribrpr/anima-mmorpg-sub000/internal/logging"
)

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestPrometheusMiddleware_BasicMetrics(t *testing.T) {
	// Отдельный регистр для изоляции тестов
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())

	r.GET("/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	r.GET("/error", func(c *gin.Context) { c.JSON(500, gin.H{"error": "test error"}) })

	assert.Equal(t, 200, serve(r, "/test").Code)
	assert.Equal(t, 500, serve(r, "/error").Code)

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var durationFound, errorsFound bool
	for _, mf := range metricFamilies {
		switch mf.GetName() {
		case "test_http_request_duration_seconds":
			durationFound = true
			assert.Equal(t, "Длительность HTTP-запросов.", mf.GetHelp())
			assert.Len(t, mf.Metric, 2)
		case "test_http_request_errors_total":
			errorsFound = true
			require.Len(t, mf.Metric, 1)
			assert.Equal(t, float64(1), mf.Metric[0].GetCounter().GetValue())
		case "test_http_requests_inflight":
			assert.Equal(t, float64(0), mf.Metric[0].GetGauge().GetValue())
		}
	}

	assert.True(t, durationFound, "Duration metric not found")
	assert.True(t, errorsFound, "Errors metric not found")
}

func TestPrometheusMiddleware_ErrorCounting(t *testing.T) {
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("error_test", registry)
	r.Use(promMw.Handler())

	r.GET("/400", func(c *gin.Context) { c.JSON(400, gin.H{"error": "bad request"}) })
	r.GET("/404", func(c *gin.Context) { c.JSON(404, gin.H{"error": "not found"}) })
	r.GET("/500", func(c *gin.Context) { c.JSON(500, gin.H{"error": "internal error"}) })
	r.GET("/200", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	for _, path := range []string{"/400", "/404", "/500", "/200", "/200", "/no-such-route"} {
		serve(r, path)
	}

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var totalErrors float64
	paths := make(map[string]bool)
	for _, mf := range metricFamilies {
		if mf.GetName() != "error_test_http_request_errors_total" {
			continue
		}
		for _, m := range mf.Metric {
			totalErrors += m.GetCounter().GetValue()
			for _, lp := range m.Label {
				if lp.GetName() == "path" {
					paths[lp.GetValue()] = true
				}
			}
		}
	}

	assert.Equal(t, float64(4), totalErrors, "400, 404, 500 и несуществующий маршрут")
	assert.True(t, paths["unmatched"], "произвольные URL сворачиваются в одну метку")
	assert.False(t, paths["/no-such-route"])
}

func TestPrometheusMiddleware_MetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	promMw := NewPrometheusMiddleware("test", registry)
	r.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(r, registry)

	r.GET("/api/test", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	assert.Equal(t, 200, serve(r, "/api/test").Code)

	w := serve(r, "/metrics")
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")

	body := w.Body.String()
	assert.Contains(t, body, "# HELP")
	assert.Contains(t, body, `test_http_request_duration_seconds_count{method="GET",path="/api/test",status="200"} 1`)
}

func TestRequestLogger_TraceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	loggerMw := NewRequestLogger(logging.NewWriterLogger("http", &buf, logging.DEBUG))
	r.Use(loggerMw.Handler())

	var capturedTraceID string
	r.GET("/test", func(c *gin.Context) {
		traceID, exists := c.Get(TraceIDKey)
		require.True(t, exists, "trace_id should be set in context")
		capturedTraceID = traceID.(string)
		c.JSON(200, gin.H{"trace_id": capturedTraceID})
	})

	w := serve(r, "/test")

	assert.Equal(t, 200, w.Code)
	assert.NotEmpty(t, capturedTraceID)
	assert.Equal(t, capturedTraceID, w.Header().Get("X-Trace-Id"))
	assert.Contains(t, w.Body.String(), capturedTraceID)

	logged := buf.String()
	assert.Contains(t, logged, "[HTTP] ▶ GET /test")
	assert.Contains(t, logged, "[HTTP] ◀ GET /test 200")
	assert.Contains(t, logged, capturedTraceID)
}

func TestMiddleware_Integration(t *testing.T) {
	registry := prometheus.NewRegistry()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.Use(NewRequestLogger(logging.NewWriterLogger("http", &bytes.Buffer{}, logging.ERROR)).Handler())
	promMw := NewPrometheusMiddleware("integration_test", registry)
	r.Use(promMw.Handler())

	r.GET("/api/v1/test", func(c *gin.Context) {
		traceID, _ := c.Get(TraceIDKey)
		c.JSON(200, gin.H{"status": "ok", "trace_id": traceID})
	})

	for i := 0; i < 5; i++ {
		assert.Equal(t, 200, serve(r, "/api/v1/test").Code)
	}

	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var requestsCount uint64
	for _, mf := range metricFamilies {
		if mf.GetName() == "integration_test_http_request_duration_seconds" {
			for _, metric := range mf.Metric {
				requestsCount += metric.GetHistogram().GetSampleCount()
			}
		}
	}

	assert.Equal(t, uint64(5), requestsCount, "Should have recorded 5 requests")
}
