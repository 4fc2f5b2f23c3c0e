package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/synaptica-ai/medrecords/pkg/common/logger"
	"github.com/synaptica-ai/medrecords/pkg/common/models"
)

const (
	handleAttempts = 3
	maxRetryDelay  = 30 * time.Second
)

type deadLetterPublisher interface {
	Publish(ctx context.Context, key string, event models.Event) error
}

type Consumer struct {
	reader     *kafka.Reader
	deadLetter deadLetterPublisher
	retryDelay time.Duration
}

type EventHandler func(ctx context.Context, event models.Event) error

// NewConsumer joins groupID on topic. When deadLetter is non-nil, events the
// handler keeps rejecting are forwarded there before their offset is
// committed.
func NewConsumer(brokers []string, topic, groupID string, deadLetter *Producer) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3, // 10KB
		MaxBytes: 10e6, // 10MB
	})

	c := &Consumer{reader: reader, retryDelay: time.Second}
	if deadLetter != nil {
		c.deadLetter = deadLetter
	}
	return c
}

func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Log.WithError(err).Error("Failed to fetch message")
			continue
		}

		var event models.Event
		if err := json.Unmarshal(message.Value, &event); err != nil {
			logger.Log.WithError(err).Error("Failed to unmarshal event")
			c.commit(ctx, message)
			continue
		}

		if err := c.process(ctx, string(message.Key), event, handler); err != nil {
			return err
		}
		c.commit(ctx, message)
	}
}

// process runs handler on event until it succeeds or attempts run out,
// then hands the event to the dead letter topic. The offset moves past the
// message once process returns nil, so a nil result means the event was
// handled, dead-lettered or dropped. A non-nil result is the context error.
func (c *Consumer) process(ctx context.Context, key string, event models.Event, handler EventHandler) error {
	entry := logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	delay := c.retryDelay
	var err error
	for attempt := 1; attempt <= handleAttempts; attempt++ {
		if err = handler(ctx, event); err == nil {
			return nil
		}
		entry.WithError(err).WithField("attempt", attempt).Warn("Failed to process event")
		if attempt < handleAttempts {
			if waitErr := sleep(ctx, delay); waitErr != nil {
				return waitErr
			}
			delay = nextDelay(delay)
		}
	}

	if c.deadLetter == nil {
		entry.WithError(err).Error("Dropping event after retries")
		return nil
	}

	delay = c.retryDelay
	for {
		dlqErr := c.deadLetter.Publish(ctx, key, event)
		if dlqErr == nil {
			entry.WithError(err).Warn("Event moved to dead letter topic")
			return nil
		}
		entry.WithField("dead_letter_error", dlqErr.Error()).Error("Failed to dead-letter event")
		if waitErr := sleep(ctx, delay); waitErr != nil {
			return waitErr
		}
		delay = nextDelay(delay)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextDelay(d time.Duration) time.Duration {
	d *= 2
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

func (c *Consumer) commit(ctx context.Context, message kafka.Message) {
	if err := c.reader.CommitMessages(ctx, message); err != nil {
		logger.Log.WithError(err).Error("Failed to commit message")
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
