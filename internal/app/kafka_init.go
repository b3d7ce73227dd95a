package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/gusto/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/gusto/internal/messaging/rabbitmq"
	"github.com/vladislavdragonenkov/gusto/internal/service/outbox"
)

// splitBrokers разбирает список брокеров через запятую, пропуская пустые элементы.
func splitBrokers(brokers string) []string {
	var out []string
	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}

// initKafkaProducer создаёт producer, если брокеры заданы.
// Возвращает nil, nil при пустом списке; ошибку подключения приложение переживает без Kafka.
func initKafkaProducer(brokers string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := splitBrokers(brokers)
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList,
		kafka.WithClientID("gusto"),
		kafka.WithProducerLogger(logger.WithField("broker", "kafka")),
	)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}

// closeKafkaProducer закрывает producer, если он не nil.
func closeKafkaProducer(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	logger.Info("kafka producer closed")
}

// auditStateEvent пишет в лог каждое опубликованное изменение коллекции.
// Битые события возвращают ошибку и после retry уходят в DLQ.
func auditStateEvent(logger *log.Entry) kafka.EnvelopeHandler {
	return func(_ context.Context, envelope kafka.Envelope) error {
		if envelope.EventType != outbox.EventStateChanged {
			return fmt.Errorf("unexpected event type %q", envelope.EventType)
		}
		var event outbox.StateChanged
		if err := json.Unmarshal(envelope.Payload, &event); err != nil {
			return fmt.Errorf("decode state change: %w", err)
		}
		if event.Collection == "" {
			return errors.New("state change without collection")
		}
		logger.WithFields(log.Fields{
			"event_id":   envelope.ID,
			"collection": event.Collection,
			"op":         event.Op,
			"size":       event.Size,
		}).Info("state change observed")
		return nil
	}
}

// startStateAudit поднимает аудит-консьюмер, если задана группа и есть producer для DLQ.
func startStateAudit(ctx context.Context, brokers, group string, producer *kafka.Producer, logger *log.Entry) (*kafka.Consumer, error) {
	group = strings.TrimSpace(group)
	brokerList := splitBrokers(brokers)
	if group == "" || len(brokerList) == 0 {
		return nil, nil
	}

	auditLogger := logger.WithField("component", "state-audit")
	options := []kafka.ConsumerOption{kafka.WithConsumerLogger(auditLogger)}
	if producer != nil {
		options = append(options, kafka.WithDLQ(producer))
	}
	consumer, err := kafka.NewConsumer(brokerList, group, []string{kafka.TopicStateEvents},
		kafka.HandleEnvelopes(auditStateEvent(auditLogger)), options...)
	if err != nil {
		logger.WithError(err).Warn("failed to create state audit consumer, continuing without it")
		return nil, err
	}
	if err := consumer.Start(ctx); err != nil {
		return nil, err
	}
	return consumer, nil
}

func stopStateAudit(consumer *kafka.Consumer, logger *log.Entry) {
	if consumer == nil {
		return
	}
	if err := consumer.Stop(); err != nil {
		logger.WithError(err).Warn("failed to stop state audit consumer")
	}
}

// initRabbitMQ подключается к RabbitMQ, если задан URL.
func initRabbitMQ(url string, logger *log.Entry) (*rabbitmq.Client, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}
	client, err := rabbitmq.Dial(url, logger.WithField("broker", "rabbitmq"))
	if err != nil {
		logger.WithError(err).Warn("failed to connect to rabbitmq, continuing without rabbitmq")
		return nil, err
	}
	logger.WithField("exchange", rabbitmq.ExchangeStateEvents).Info("rabbitmq publisher initialized")
	return client, nil
}

func closeRabbitMQ(client *rabbitmq.Client, logger *log.Entry) {
	if client == nil {
		return
	}
	client.Close()
	logger.Info("rabbitmq connection closed")
}
