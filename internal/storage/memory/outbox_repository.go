package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// defaultOutboxRetention: сколько отправленных сообщений держим в памяти, прежде чем выбросить старые.
const defaultOutboxRetention = 1000

// outboxRecord хранит сообщение и служебные поля для in-memory реализации.
type outboxRecord struct {
	msg       domain.OutboxMessage
	updatedAt time.Time
}

// outboxRepositoryInMemory: простое in-memory хранилище outbox c порядком вставки.
type outboxRepositoryInMemory struct {
	mu        sync.RWMutex
	records   map[string]*outboxRecord
	order     []string
	retention int
	now       func() time.Time
}

// NewOutboxRepository создаёт in-memory реализацию outbox.
func NewOutboxRepository() *outboxRepositoryInMemory {
	return &outboxRepositoryInMemory{
		records:   make(map[string]*outboxRecord),
		retention: defaultOutboxRetention,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue сохраняет событие со статусом `pending` и возвращает его с идентификатором.
func (r *outboxRepositoryInMemory) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := r.now()
	msg.Status = domain.OutboxStatusPending
	msg.Attempts = 0
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	if _, exists := r.records[msg.ID]; !exists {
		r.order = append(r.order, msg.ID)
	}
	r.records[msg.ID] = &outboxRecord{msg: msg, updatedAt: now}
	r.compact()
	return msg, nil
}

// PullPending возвращает до limit сообщений со статусом `pending` в порядке вставки.
func (r *outboxRepositoryInMemory) PullPending(limit int) ([]domain.OutboxMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	result := make([]domain.OutboxMessage, 0, min(limit, len(r.order)))
	for _, id := range r.order {
		rec := r.records[id]
		if rec.msg.Status != domain.OutboxStatusPending {
			continue
		}
		result = append(result, rec.msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Stats возвращает размер backlog и время самого старого pending-сообщения.
func (r *outboxRepositoryInMemory) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, id := range r.order {
		rec := r.records[id]
		if rec.msg.Status != domain.OutboxStatusPending {
			continue
		}
		if stats.PendingCount == 0 {
			stats.OldestPendingAt = rec.msg.CreatedAt
		}
		stats.PendingCount++
	}
	return stats, nil
}

// MarkSent обновляет статус события после успешной публикации.
func (r *outboxRepositoryInMemory) MarkSent(id string) error {
	return r.mark(id, domain.OutboxStatusSent)
}

// MarkFailed фиксирует ошибку публикации.
func (r *outboxRepositoryInMemory) MarkFailed(id string) error {
	return r.mark(id, domain.OutboxStatusFailed)
}

func (r *outboxRepositoryInMemory) mark(id string, status domain.OutboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return domain.ErrOutboxMessageNotFound
	}
	record.msg.Status = status
	record.msg.Attempts++
	record.updatedAt = r.now()
	r.compact()
	return nil
}

// AllPending возвращает копию всех сообщений со статусом `pending` (используется в тестах).
func (r *outboxRepositoryInMemory) AllPending() []domain.OutboxMessage {
	pending, _ := r.PullPending(len(r.order) + 1)
	return pending
}

// compact выбрасывает самые старые обработанные сообщения сверх retention. Вызывается под блокировкой.
func (r *outboxRepositoryInMemory) compact() {
	if len(r.order) <= r.retention {
		return
	}
	excess := len(r.order) - r.retention
	r.order = slices.DeleteFunc(r.order, func(id string) bool {
		if excess == 0 {
			return false
		}
		if r.records[id].msg.Status == domain.OutboxStatusPending {
			return false
		}
		delete(r.records, id)
		excess--
		return true
	})
}

var _ domain.OutboxRepository = (*outboxRepositoryInMemory)(nil)
