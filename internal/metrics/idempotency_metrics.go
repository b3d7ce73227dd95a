package metrics

import "github.com/prometheus/client_golang/prometheus"

// IdempotencyMetrics: метрики очистки ключей идемпотентности.
type IdempotencyMetrics struct {
	runs        *prometheus.CounterVec
	deleted     prometheus.Counter
	lastDeleted prometheus.Gauge
	replays     *prometheus.CounterVec
}

// NewIdempotencyMetrics регистрирует метрики идемпотентности.
func NewIdempotencyMetrics(registerer prometheus.Registerer) *IdempotencyMetrics {
	registerer = orDefault(registerer)

	return &IdempotencyMetrics{
		runs: registerCollector(registerer, "gusto_idempotency_cleanup_runs_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gusto_idempotency_cleanup_runs_total",
			Help: "Total number of idempotency cleanup runs grouped by result.",
		}, []string{"result"})),
		deleted: registerCollector(registerer, "gusto_idempotency_cleanup_deleted_total", prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gusto_idempotency_cleanup_deleted_total",
			Help: "Total number of deleted expired idempotency keys.",
		})),
		lastDeleted: registerCollector(registerer, "gusto_idempotency_cleanup_last_deleted", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gusto_idempotency_cleanup_last_deleted",
			Help: "Number of keys deleted by the last cleanup run.",
		})),
		replays: registerCollector(registerer, "gusto_idempotency_replays_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gusto_idempotency_replays_total",
			Help: "Total number of kitchen commands answered from the idempotency cache grouped by outcome.",
		}, []string{"method", "outcome"})),
	}
}

// ObserveCleanup учитывает один проход очистки.
func (m *IdempotencyMetrics) ObserveCleanup(result string, deleted int) {
	m.runs.WithLabelValues(result).Inc()
	if result != "ok" {
		return
	}
	m.deleted.Add(float64(deleted))
	m.lastDeleted.Set(float64(deleted))
}

// ObserveReplay учитывает повтор команды с уже использованным ключом.
func (m *IdempotencyMetrics) ObserveReplay(method, outcome string) {
	m.replays.WithLabelValues(method, outcome).Inc()
}
