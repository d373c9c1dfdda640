package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/pc1e0/comm/internal/domain"
)

type Producer interface {
	Publish(ctx context.Context, stream string, node domain.Node, traceID string) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		logger: logger,
	}
}

// Publish announces node on stream as a first attempt.
func (p *redisProducer) Publish(ctx context.Context, stream string, node domain.Node, traceID string) error {
	if !node.Valid() {
		return fmt.Errorf("publish: invalid node")
	}

	values := messageValues(Message{Kind: node.Kind, Fullname: node.Fullname(), TraceID: traceID}, 1)
	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("publish %s to %s: %w", node.Fullname(), stream, err)
	}

	p.logger.InfoContext(ctx, "published reddit item",
		"stream", stream,
		"fullname", node.Fullname(),
		"message_id", id)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
