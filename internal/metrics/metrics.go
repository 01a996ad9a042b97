// Package metrics содержит Prometheus-метрики симуляторов популяции.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SnapshotMetrics - метрики авторитетного сервиса снапшотов
type SnapshotMetrics struct {
	Latency  *prometheus.HistogramVec
	Replayed *prometheus.CounterVec
	Skipped  *prometheus.CounterVec
	Rebuilds *prometheus.CounterVec
	Merged   prometheus.Counter
	Errors   *prometheus.CounterVec
}

// NewSnapshotMetrics создает метрики и регистрирует их в reg.
// reg = nil означает prometheus.DefaultRegisterer.
func NewSnapshotMetrics(reg prometheus.Registerer) *SnapshotMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &SnapshotMetrics{
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "population",
			Subsystem: "snapshot",
			Name:      "duration_seconds",
			Help:      "Длительность запроса снапшота мира.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"world"}),
		Replayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "snapshot",
			Name:      "replayed_steps_total",
			Help:      "Количество проигранных шагов симуляции.",
		}, []string{"world"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "snapshot",
			Name:      "skipped_ms_total",
			Help:      "Время, пропущенное без симуляции из-за ограничения окна догоняния.",
		}, []string{"world"}),
		Rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "snapshot",
			Name:      "rebuilds_total",
			Help:      "Пересборки реестра: первый запрос, смена версии или инвалидация.",
		}, []string{"world", "reason"}),
		Merged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "snapshot",
			Name:      "merged_requests_total",
			Help:      "Запросы, объединенные с уже выполняющимся запросом того же мира.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "snapshot",
			Name:      "errors_total",
			Help:      "Ошибки запросов снапшота по этапам.",
		}, []string{"stage"}),
	}
	reg.MustRegister(m.Latency, m.Replayed, m.Skipped, m.Rebuilds, m.Merged, m.Errors)
	return m
}

// ObserveQuery записывает длительность запроса
func (m *SnapshotMetrics) ObserveQuery(worldID string, started time.Time) {
	if m == nil {
		return
	}
	m.Latency.WithLabelValues(worldID).Observe(time.Since(started).Seconds())
}

// ObserveCatchUp записывает результат догоняния
func (m *SnapshotMetrics) ObserveCatchUp(worldID string, steps int, skippedMs int64) {
	if m == nil {
		return
	}
	if steps > 0 {
		m.Replayed.WithLabelValues(worldID).Add(float64(steps))
	}
	if skippedMs > 0 {
		m.Skipped.WithLabelValues(worldID).Add(float64(skippedMs))
	}
}

// ObserveRebuild учитывает пересборку реестра
func (m *SnapshotMetrics) ObserveRebuild(worldID, reason string) {
	if m == nil {
		return
	}
	m.Rebuilds.WithLabelValues(worldID, reason).Inc()
}

// ObserveMerged учитывает объединенный запрос
func (m *SnapshotMetrics) ObserveMerged() {
	if m == nil {
		return
	}
	m.Merged.Inc()
}

// ObserveError учитывает ошибку на этапе stage
func (m *SnapshotMetrics) ObserveError(stage string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(stage).Inc()
}

// InteractiveMetrics - метрики интерактивного симулятора
type InteractiveMetrics struct {
	Steps         prometheus.Counter
	StepDuration  prometheus.Histogram
	Events        *prometheus.CounterVec
	Collaborators *prometheus.CounterVec
	Creatures     *prometheus.GaugeVec
}

// NewInteractiveMetrics создает метрики и регистрирует их в reg
func NewInteractiveMetrics(reg prometheus.Registerer) *InteractiveMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &InteractiveMetrics{
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "interactive",
			Name:      "steps_total",
			Help:      "Количество шагов интерактивной симуляции.",
		}),
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "population",
			Subsystem: "interactive",
			Name:      "step_duration_seconds",
			Help:      "Длительность одного шага интерактивной симуляции.",
			Buckets:   []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01},
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "interactive",
			Name:      "events_total",
			Help:      "События симуляции по типам.",
		}, []string{"type"}),
		Collaborators: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "population",
			Subsystem: "interactive",
			Name:      "collaborator_calls_total",
			Help:      "Вызовы внешних сервисов (инвентарь, позиции, присутствие) по результату.",
		}, []string{"op", "result"}),
		Creatures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "population",
			Subsystem: "interactive",
			Name:      "creatures",
			Help:      "Количество существ по состояниям.",
		}, []string{"state"}),
	}
	reg.MustRegister(m.Steps, m.StepDuration, m.Events, m.Collaborators, m.Creatures)
	return m
}

// ObserveStep записывает длительность шага
func (m *InteractiveMetrics) ObserveStep(started time.Time) {
	if m == nil {
		return
	}
	m.Steps.Inc()
	m.StepDuration.Observe(time.Since(started).Seconds())
}

// ObserveEvent учитывает событие симуляции
func (m *InteractiveMetrics) ObserveEvent(eventType string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(eventType).Inc()
}

// ObserveCall учитывает вызов внешнего сервиса
func (m *InteractiveMetrics) ObserveCall(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Collaborators.WithLabelValues(op, result).Inc()
}

// SetCreatures публикует распределение существ по состояниям
func (m *InteractiveMetrics) SetCreatures(counts map[string]int) {
	if m == nil {
		return
	}
	for state, n := range counts {
		m.Creatures.WithLabelValues(state).Set(float64(n))
	}
}
