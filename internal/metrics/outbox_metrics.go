package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics: метрики публикации outbox.
type OutboxMetrics struct {
	attempts     *prometheus.CounterVec
	pending      prometheus.Gauge
	oldestAgeSec prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики outbox worker'а.
func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	registerer = orDefault(registerer)

	return &OutboxMetrics{
		attempts: registerCollector(registerer, "gusto_outbox_publish_attempts_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gusto_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by result.",
		}, []string{"result"})),
		pending: registerCollector(registerer, "gusto_outbox_pending_records", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gusto_outbox_pending_records",
			Help: "Current number of pending records in the outbox.",
		})),
		oldestAgeSec: registerCollector(registerer, "gusto_outbox_oldest_pending_age_seconds", prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gusto_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		})),
	}
}

// ObservePublish учитывает попытку публикации с результатом sent/retry_error/failed/dlq_failed.
func (m *OutboxMetrics) ObservePublish(result string) {
	m.attempts.WithLabelValues(result).Inc()
}

// SetBacklog обновляет размер и возраст backlog.
func (m *OutboxMetrics) SetBacklog(pending int, oldestAgeSeconds float64) {
	m.pending.Set(float64(pending))
	m.oldestAgeSec.Set(oldestAgeSeconds)
}
