package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/al3-renewal-pipeline/internal/config"
	"github.com/segmentio/kafka-go"
)

type BatchJobMessageProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates the batch-job producer and ensures the topic exists
func NewBatchJobMessageProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*BatchJobMessageProducer, error) {
	if cfg.BatchJobTopic == "" {
		return nil, fmt.Errorf("kafka batch job topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for batch job producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.BatchJobTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure batch job topic %s exists: %w", cfg.BatchJobTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.BatchJobTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Batch jobs are re-published by the outbox poller on loss
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write messages asynchronously", "topic", cfg.BatchJobTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote messages asynchronously", "topic", cfg.BatchJobTopic, "count", len(messages))
			}
		},
	}

	return &BatchJobMessageProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.BatchJobTopic,
	}, nil
}

func (p *BatchJobMessageProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for batch job producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish batch job message",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish message to %s via batch job producer: %w", p.topic, err)
	}

	p.logger.Debug("Published batch job message",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *BatchJobMessageProducer) Close() error {
	p.logger.Info("Closing batch job Kafka message producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close batch job kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
