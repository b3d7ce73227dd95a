package domain

import (
	"context"
	"time"
)

// KeyValueStore: персистентное хранилище коллекций, один ключ хранит весь JSON коллекции.
type KeyValueStore interface {
	// Get возвращает значение ключа; found=false, если ключ ещё не записывался.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// PutMany полностью перезаписывает все переданные ключи одной атомарной операцией.
	PutMany(ctx context.Context, entries map[string][]byte) error
	// Ping проверяет доступность хранилища для health-check.
	Ping(ctx context.Context) error
}

// OutboxPublisher публикует события из outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(ctx context.Context, event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// RejectionRecorder учитывает отклонённые операции сторов (валидация, инварианты).
type RejectionRecorder interface {
	RecordRejected(store, operation string, err error)
}

// NopRejections ничего не делает; используется, когда метрики не нужны.
type NopRejections struct{}

// RecordRejected реализует RejectionRecorder.
func (NopRejections) RecordRejected(string, string, error) {}

// OutboxStatus: состояние сообщения в outbox.
type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "pending"
	OutboxStatusSent    OutboxStatus = "sent"
	OutboxStatusFailed  OutboxStatus = "failed"
)

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	CreatedAt     time.Time
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
