// Package metrics содержит Prometheus-метрики контейнера состояния и outbox.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
	"github.com/vladislavdragonenkov/gusto/internal/state"
)

// StoreMetrics считает зафиксированные изменения коллекций и отклонённые операции сторов.
type StoreMetrics struct {
	changes  *prometheus.CounterVec
	size     *prometheus.GaugeVec
	rejected *prometheus.CounterVec
}

// NewStoreMetrics регистрирует метрики в registerer (nil: DefaultRegisterer).
func NewStoreMetrics(registerer prometheus.Registerer) *StoreMetrics {
	registerer = orDefault(registerer)

	return &StoreMetrics{
		changes: registerCollector(registerer, "gusto_state_changes_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gusto_state_changes_total",
			Help: "Total number of committed collection changes grouped by collection and operation.",
		}, []string{"collection", "op"})),
		size: registerCollector(registerer, "gusto_collection_size", prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gusto_collection_size",
			Help: "Number of records currently held by a collection.",
		}, []string{"collection"})),
		rejected: registerCollector(registerer, "gusto_rejected_operations_total", prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gusto_rejected_operations_total",
			Help: "Total number of store operations rejected before any change was made.",
		}, []string{"store", "operation", "reason"})),
	}
}

// Observe реализует state.Observer.
func (m *StoreMetrics) Observe(change state.Change) {
	m.changes.WithLabelValues(change.Collection, string(change.Op)).Inc()
	m.size.WithLabelValues(change.Collection).Set(float64(change.Size))
}

// RecordRejected реализует domain.RejectionRecorder.
func (m *StoreMetrics) RecordRejected(store, operation string, err error) {
	m.rejected.WithLabelValues(store, operation, rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, domain.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "invalid_transition"
	default:
		return "storage"
	}
}

var (
	_ state.Observer           = (*StoreMetrics)(nil)
	_ domain.RejectionRecorder = (*StoreMetrics)(nil)
)
