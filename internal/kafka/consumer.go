package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/snappy-loop/gallery/internal/models"
)

// messageReader is the subset of kafka.Reader used by Consumer.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventHandler processes gallery events
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *models.Event) error
}

// Consumer reads gallery events and hands them to an EventHandler
type Consumer struct {
	reader  messageReader
	handler EventHandler

	baseDelay time.Duration
	maxDelay  time.Duration
}

// Retry policy for a failing message.
const (
	maxBackoffShift = 10
	maxAttempts     = 50 // then the message is skipped so it cannot block the partition
)

// NewConsumer creates a new Kafka consumer
func NewConsumer(brokers []string, topic, groupID string, handler EventHandler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits
		// Events published before the first deployment of the worker are still recorded.
		StartOffset: kafka.FirstOffset,
	})

	log.Info().
		Strs("brokers", brokers).
		Str("topic", topic).
		Str("group_id", groupID).
		Msg("Kafka consumer initialized")

	return &Consumer{
		reader:    reader,
		handler:   handler,
		baseDelay: time.Second,
		maxDelay:  5 * time.Minute,
	}
}

// Start consumes events until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Msg("Starting Kafka consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Consumer context cancelled, stopping")
				return ctx.Err()
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			continue
		}

		if err := c.processWithRetry(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().
				Err(err).
				Str("topic", msg.Topic).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("CRITICAL: Event processing failed after all retries - SKIPPING MESSAGE")
		}

		// Commit both handled and skipped messages so one bad event cannot block the queue.
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			log.Error().Err(err).Msg("Failed to commit message")
		}
	}
}

// processWithRetry retries a message with exponential backoff. Undecodable
// messages are not retried.
func (c *Consumer) processWithRetry(ctx context.Context, msg kafka.Message) error {
	ev, err := decodeEvent(msg)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if lastErr = c.handler.HandleEvent(ctx, ev); lastErr == nil {
			log.Debug().
				Str("event_id", ev.ID.String()).
				Str("event", ev.Type).
				Msg("Event processed successfully")
			return nil
		}

		log.Error().
			Err(lastErr).
			Str("event_id", ev.ID.String()).
			Int64("offset", msg.Offset).
			Int("attempt", attempt+1).
			Int("max_attempts", maxAttempts).
			Msg("Failed to process event - will retry")

		delay := c.baseDelay * time.Duration(1<<uint(min(attempt, maxBackoffShift)))
		if delay > c.maxDelay {
			delay = c.maxDelay
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("handler error: %w", lastErr)
}

func decodeEvent(msg kafka.Message) (*models.Event, error) {
	var ev models.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("event at offset %d has no type", msg.Offset)
	}
	return &ev, nil
}

// Close closes the consumer
func (c *Consumer) Close() error {
	log.Info().Msg("Closing Kafka consumer")
	return c.reader.Close()
}
