package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/feed"
)

type ForwarderConfig struct {
	Stream string // destination Redis stream
	// MaxPublishTries bounds attempts per item before the forwarder gives up.
	MaxPublishTries uint
	RetryInterval   time.Duration
}

// Forwarder copies a live node stream into a Redis stream. Each item starts a
// trace whose id travels with the message to the consuming listener.
type Forwarder struct {
	source   feed.NodeStream
	producer Producer
	cfg      ForwarderConfig
}

func NewForwarder(source feed.NodeStream, producer Producer, cfg ForwarderConfig) *Forwarder {
	if cfg.MaxPublishTries == 0 {
		cfg.MaxPublishTries = 5
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	return &Forwarder{source: source, producer: producer, cfg: cfg}
}

// Run forwards until ctx is cancelled (returning nil) or the source or the
// producer fails for good.
func (f *Forwarder) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Stream:    logger.Ptr(f.source.Name()),
		Component: "comm.queue.forwarder",
	})
	slog.InfoContext(ctx, "forwarder started", "destination", f.cfg.Stream)

	for {
		node, err := f.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.InfoContext(ctx, "forwarder stopped")
				return nil
			}
			return fmt.Errorf("forwarder %s: %w", f.source.Name(), err)
		}

		if err := f.publish(ctx, node); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("forwarder %s: %w", f.source.Name(), err)
		}
	}
}

func (f *Forwarder) publish(ctx context.Context, node domain.Node) error {
	span := logger.StartSpan(ctx, "queue.forward")
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.cfg.RetryInterval

	_, err := backoff.Retry(span.Context(), func() (struct{}, error) {
		err := f.producer.Publish(span.Context(), f.cfg.Stream, node, span.TraceID())
		if err != nil {
			slog.WarnContext(span.Context(), "publish failed", "fullname", node.Fullname(), "error", err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(f.cfg.MaxPublishTries),
	)
	if err != nil {
		span.RecordError(err)
	}
	return err
}
