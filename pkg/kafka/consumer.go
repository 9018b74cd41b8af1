// Package kafka wraps segmentio/kafka-go for the document ingest topic. The
// producer publishes JSON events and the consumer hands raw messages to a
// MessageHandler.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/btree-search-engine/pkg/config"
	"github.com/segmentio/kafka-go"
)

// MessageHandler is a callback invoked for each Kafka message. A non-nil
// error leaves the message uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ConsumerOptions tunes a Consumer beyond the shared Kafka config.
type ConsumerOptions struct {
	// FromBeginning replays the topic from the first retained offset when
	// the group has no committed offset.
	FromBeginning bool
	// IdleTimeout stops Start once no message has arrived for this long.
	// Zero means consume until the context is cancelled.
	IdleTimeout time.Duration
}

// Consumer reads messages from a Kafka topic and dispatches them to a
// MessageHandler.
type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	handler MessageHandler
	idle    time.Duration
	handled int
}

// NewConsumer creates a Consumer for the given topic and handler.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler, opts ConsumerOptions) *Consumer {
	start := kafka.LastOffset
	if opts.FromBeginning {
		start = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: start,
	})

	return &Consumer{
		reader:  r,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
		handler: handler,
		idle:    opts.IdleTimeout,
	}
}

// Start enters the consume loop. It returns nil when ctx is cancelled or the
// idle timeout elapses.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started", "idle_timeout", c.idle)
	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopping", "reason", ctx.Err(), "handled", c.handled)
			return nil
		}

		msg, err := c.fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) {
				c.logger.Info("consumer idle, stopping", "handled", c.handled)
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.logger.Error("failed to process message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		c.handled++
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) fetch(ctx context.Context) (kafka.Message, error) {
	if c.idle <= 0 {
		return c.reader.FetchMessage(ctx)
	}
	fetchCtx, cancel := context.WithTimeout(ctx, c.idle)
	defer cancel()
	return c.reader.FetchMessage(fetchCtx)
}

// Handled reports how many messages were processed successfully.
func (c *Consumer) Handled() int {
	return c.handled
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// DecodeJSON is a generic helper that unmarshals a Kafka message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
