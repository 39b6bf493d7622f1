package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/coinpay-gateway/internal/config"
	"github.com/DanielPopoola/coinpay-gateway/internal/core/ports"
	"github.com/IBM/sarama"
)

// Publisher writes payment lifecycle events to a single topic. Messages are
// keyed by payment id, or user id for ledger events, so one attempt's events
// stay ordered within a partition.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

func NewPublisher(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// Dial connects a synchronous producer to the configured brokers.
func Dial(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = "coinpay-gateway"
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return NewPublisher(producer, cfg.Topic, logger), nil
}

func (p *Publisher) Publish(ctx context.Context, event ports.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	key := event.PaymentID
	if key == "" {
		key = event.UserID
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}

	p.logger.Debug("published event",
		"event_type", event.Type,
		"payment_id", event.PaymentID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
