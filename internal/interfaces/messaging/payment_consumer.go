// Package messaging consumes payment confirmations from Kafka and turns them
// into deduction jobs.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cafe/backend/internal/domain/deduction"
	"github.com/cafe/backend/internal/domain/order"
	"github.com/cafe/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Enqueuer accepts a paid order for deduction. Duplicate calls for the same
// order must be harmless.
type Enqueuer interface {
	Enqueue(ctx context.Context, orderID uuid.UUID, lines []order.Line) (*deduction.Job, bool, error)
}

// MessageReader is the subset of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// ConsumerStats is a snapshot of the consumer counters
type ConsumerStats struct {
	Enqueued  int64 `json:"enqueued"`
	Duplicate int64 `json:"duplicate"`
	Ignored   int64 `json:"ignored"`
	Rejected  int64 `json:"rejected"`
}

// PaymentConsumer reads payment confirmations one at a time and enqueues a
// deduction job per paid order. An offset is committed only after the job
// is durable, so a crash redelivers the message instead of losing the order.
type PaymentConsumer struct {
	reader   MessageReader
	enqueuer Enqueuer
	logger   *zap.Logger

	retryDelay    time.Duration
	maxRetryDelay time.Duration

	enqueued  atomic.Int64
	duplicate atomic.Int64
	ignored   atomic.Int64
	rejected  atomic.Int64
}

// NewPaymentConsumer creates a consumer group reader for cfg.Topic
func NewPaymentConsumer(cfg config.KafkaConfig, enqueuer Enqueuer, logger *zap.Logger) *PaymentConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		// offsets are committed explicitly after Enqueue succeeds
		CommitInterval: 0,
	})
	return NewPaymentConsumerWithReader(reader, enqueuer, logger)
}

// NewPaymentConsumerWithReader creates a consumer on an existing reader
func NewPaymentConsumerWithReader(reader MessageReader, enqueuer Enqueuer, logger *zap.Logger) *PaymentConsumer {
	return &PaymentConsumer{
		reader:        reader,
		enqueuer:      enqueuer,
		logger:        logger,
		retryDelay:    200 * time.Millisecond,
		maxRetryDelay: 30 * time.Second,
	}
}

// Run consumes until ctx is cancelled. It returns nil on cancellation and
// the reader error otherwise. The reader is closed on return.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.logger.Warn("failed to close kafka reader", zap.Error(err))
		}
	}()

	c.logger.Info("payment consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("payment consumer stopped")
				return nil
			}
			return fmt.Errorf("fetch payment message: %w", err)
		}

		if err := c.handleWithRetry(ctx, msg); err != nil {
			// only cancellation ends the retry loop
			c.logger.Info("payment consumer stopped")
			return nil
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// the job exists, a redelivery is absorbed by Enqueue
			c.logger.Warn("failed to commit payment message",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}
}

// handleWithRetry retries transient failures with capped exponential backoff.
// The partition is blocked meanwhile, which keeps offsets in order.
func (c *PaymentConsumer) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	delay := c.retryDelay
	for attempt := 1; ; attempt++ {
		err := c.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.Warn("failed to enqueue paid order, retrying",
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		if delay > c.maxRetryDelay {
			delay = c.maxRetryDelay
		}
	}
}

// Handle processes one message. It returns an error only for failures worth
// retrying; malformed and unpaid messages are logged and dropped.
// The message value is an order document whose payment_status must be "paid".
func (c *PaymentConsumer) Handle(ctx context.Context, msg kafka.Message) error {
	o, err := order.ParseOrder(msg.Value)
	if err != nil {
		c.reject(msg, err)
		return nil
	}

	if !o.IsPaid() {
		c.ignored.Add(1)
		c.logger.Debug("ignoring order that is not paid",
			zap.String("order_id", o.ID.String()),
			zap.String("payment_status", string(o.PaymentStatus)),
		)
		return nil
	}

	if err := o.Validate(); err != nil {
		c.reject(msg, err)
		return nil
	}

	job, created, err := c.enqueuer.Enqueue(ctx, o.ID, o.Lines)
	if err != nil {
		if errors.Is(err, order.ErrMalformedOrder) {
			c.reject(msg, err)
			return nil
		}
		return err
	}

	if !created {
		c.duplicate.Add(1)
		if job == nil {
			c.logger.Info("order has no active deduction job",
				zap.String("order_id", o.ID.String()))
		}
		return nil
	}
	c.enqueued.Add(1)
	return nil
}

func (c *PaymentConsumer) reject(msg kafka.Message, err error) {
	c.rejected.Add(1)
	c.logger.Error("dropping malformed payment message",
		zap.String("key", string(msg.Key)),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(err),
	)
}

// Stats returns a snapshot of the counters
func (c *PaymentConsumer) Stats() ConsumerStats {
	return ConsumerStats{
		Enqueued:  c.enqueued.Load(),
		Duplicate: c.duplicate.Load(),
		Ignored:   c.ignored.Load(),
		Rejected:  c.rejected.Load(),
	}
}
