package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pc1e0/comm/common/logger"
)

type ConsumerConfig struct {
	Stream      string        // Redis stream name
	Group       string        // Redis consumer group name
	Consumer    string        // Redis consumer name
	DLQStream   string        // Dead letter queue stream for failed messages
	BatchSize   int64         // Number of messages to read per call
	Block       time.Duration // How long to block waiting for new messages
	MaxAttempts int           // Attempts before a message moves to the DLQ
}

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig

	// pendingDrained flips once this consumer's own unacked backlog is empty.
	// The reclaimer clears it after claiming entries from a dead consumer.
	pendingDrained atomic.Bool
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(ctx); err != nil {
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) Stream() string {
	return c.cfg.Stream
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Starting from "0" instead of "$" keeps items published while the bot was down.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

// Read returns the next batch. Messages this consumer received before a
// restart but never acknowledged come first, then new ones. An empty batch
// means the block timeout passed.
func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "comm.queue.consumer",
		Stream:    logger.Ptr(c.cfg.Stream),
	})

	start, block := ">", c.cfg.Block
	if !c.pendingDrained.Load() {
		// 0 = this consumer's pending entries; no blocking, they are there or not
		start, block = "0", -1
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, start},
		Count:    c.cfg.BatchSize,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			if start == "0" {
				c.pendingDrained.Store(true)
			}
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	received := 0
	for _, stream := range streams {
		received += len(stream.Messages)
		for _, msg := range stream.Messages {
			parsed, parseErr := ParseMessage(msg)
			if parseErr != nil {
				slog.ErrorContext(ctx, "failed to parse message",
					"error", parseErr,
					"raw_message_id", msg.ID)
				_ = c.Ack(ctx, Message{ID: msg.ID, Raw: msg})
				continue
			}
			messages = append(messages, parsed)
		}
	}

	if start == "0" && received == 0 {
		c.pendingDrained.Store(true)
		slog.DebugContext(ctx, "pending entries drained", "consumer", c.cfg.Consumer)
	}

	if len(messages) > 0 {
		slog.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"pending", start == "0",
			"consumer", c.cfg.Consumer)
	}

	return messages, nil
}

// rewind makes the next Read start from this consumer's pending entries again.
func (c *RedisConsumer) rewind() {
	c.pendingDrained.Store(false)
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}

	slog.DebugContext(ctx, "message acknowledged", "stream", c.cfg.Stream, "message_id", msg.ID)
	return nil
}

// Settle records the outcome of handling msg: acknowledged on success,
// requeued with the next attempt number on failure, dead-lettered once
// MaxAttempts is reached.
func (c *RedisConsumer) Settle(ctx context.Context, msg Message, handleErr error) error {
	if handleErr == nil {
		return c.Ack(ctx, msg)
	}

	if msg.Attempt >= c.cfg.MaxAttempts {
		slog.ErrorContext(ctx, "max attempts reached, sending to DLQ",
			"message_id", msg.ID,
			"fullname", msg.Fullname,
			"attempts", msg.Attempt)
		return c.SendDLQ(ctx, msg, handleErr.Error())
	}

	slog.WarnContext(ctx, "requeuing failed message",
		"message_id", msg.ID,
		"fullname", msg.Fullname,
		"attempt", msg.Attempt)
	return c.Requeue(ctx, msg, handleErr.Error())
}

func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	attempt := msg.Attempt + 1
	if attempt <= 1 {
		attempt = 2
	}

	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed message for requeue: %w", err)
	}

	values := messageValues(msg, attempt)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	slog.InfoContext(ctx, "message requeued for retry",
		"fullname", msg.Fullname,
		"next_attempt", attempt,
		"reason", errMsg)
	return nil
}

func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking failed message for dlq: %w", err)
	}

	values := messageValues(msg, msg.Attempt)
	values["error"] = errMsg
	values["source_stream"] = c.cfg.Stream

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	slog.ErrorContext(ctx, "message sent to DLQ",
		"fullname", msg.Fullname,
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}
