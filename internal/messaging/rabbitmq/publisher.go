package rabbitmq

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vladislavdragonenkov/gusto/internal/domain"
)

// OutboxPublisher публикует тело outbox-события в exchange; ID и тип идут в свойства AMQP.
type OutboxPublisher struct {
	client   *Client
	exchange string
}

// NewOutboxPublisher создаёт паблишер; пустой exchange: gusto.state.events.
func NewOutboxPublisher(client *Client, exchange string) *OutboxPublisher {
	if exchange == "" {
		exchange = ExchangeStateEvents
	}
	return &OutboxPublisher{client: client, exchange: exchange}
}

// Publish реализует domain.OutboxPublisher.
func (p *OutboxPublisher) Publish(ctx context.Context, event domain.OutboxMessage) error {
	if p == nil || p.client == nil {
		return errors.New("rabbitmq outbox publisher is not initialized")
	}

	return p.client.Publish(ctx, p.exchange, event.AggregateID, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    event.ID,
		Type:         event.EventType,
		Headers: amqp.Table{
			"aggregate_type": event.AggregateType,
			"aggregate_id":   event.AggregateID,
		},
		Body: event.Payload,
	})
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
