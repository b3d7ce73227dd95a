// Package rabbitmq публикует события изменений состояния в fanout exchange RabbitMQ.
package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

// ExchangeStateEvents: fanout exchange событий, на него подписываются экраны кухни.
const ExchangeStateEvents = "gusto.state.events"

// Channel: часть *amqp.Channel, которую использует клиент.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type connection interface {
	IsClosed() bool
	Close() error
}

// Client держит одно соединение и канал с включёнными publisher confirms.
type Client struct {
	conn   connection
	ch     Channel
	acks   <-chan amqp.Confirmation
	mu     sync.Mutex // Publish сериализован, чтобы confirm соответствовал своему сообщению
	logger *log.Entry
	now    func() time.Time
}

// Dial подключается по AMQP URL, включает confirms и объявляет exchange событий.
func Dial(url string, logger *log.Entry) (*Client, error) {
	if url == "" {
		return nil, errors.New("rabbitmq: url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq confirm mode: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	client := newClient(conn, ch, acks, logger)
	if err := client.DeclareExchange(ExchangeStateEvents); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func newClient(conn connection, ch Channel, acks <-chan amqp.Confirmation, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.WithField("component", "rabbitmq")
	}
	return &Client{
		conn:   conn,
		ch:     ch,
		acks:   acks,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// DeclareExchange объявляет durable fanout exchange.
func (c *Client) DeclareExchange(name string) error {
	if err := c.ch.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq declare exchange %s: %w", name, err)
	}
	return nil
}

// Publish отправляет сообщение и ждёт ack/nack брокера.
func (c *Client) Publish(ctx context.Context, exchange, key string, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	if err := c.ch.PublishWithContext(ctx, exchange, key, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}

	select {
	case conf, ok := <-c.acks:
		if !ok {
			return errors.New("rabbitmq: confirm channel closed")
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq: publish %d was nacked by broker", conf.DeliveryTag)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ping: лёгкая проверка соединения для health.
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.conn == nil || c.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close закрывает канал и соединение.
func (c *Client) Close() {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			c.logger.WithError(err).Debug("rabbitmq channel close")
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.WithError(err).Debug("rabbitmq connection close")
		}
	}
}
