package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/internal/domain"
	"github.com/pc1e0/comm/internal/feed"
)

// NodeResolver fetches the current content behind a fullname.
type NodeResolver interface {
	Node(ctx context.Context, fullname string) (domain.Node, error)
}

type SourceConfig struct {
	Name string
	// MaxReadErrors ends the source after that many failed reads in a row.
	MaxReadErrors int
	// ReadErrorDelay is the pause after a failed read.
	ReadErrorDelay time.Duration
}

// Source feeds a listener from a consumer group. Each message is resolved to
// a fresh node; its event settles the message when the handler is done.
type Source struct {
	consumer *RedisConsumer
	resolver NodeResolver
	cfg      SourceConfig
	buffered []Message
}

func NewSource(consumer *RedisConsumer, resolver NodeResolver, cfg SourceConfig) *Source {
	if cfg.Name == "" {
		cfg.Name = consumer.Stream()
	}
	if cfg.MaxReadErrors <= 0 {
		cfg.MaxReadErrors = 5
	}
	if cfg.ReadErrorDelay <= 0 {
		cfg.ReadErrorDelay = time.Second
	}
	return &Source{consumer: consumer, resolver: resolver, cfg: cfg}
}

func (s *Source) Name() string {
	return s.cfg.Name
}

func (s *Source) Next(ctx context.Context) (feed.Event, error) {
	readErrors := 0
	for {
		if err := ctx.Err(); err != nil {
			return feed.Event{}, err
		}

		if len(s.buffered) == 0 {
			msgs, err := s.consumer.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return feed.Event{}, ctx.Err()
				}
				readErrors++
				if readErrors >= s.cfg.MaxReadErrors {
					return feed.Event{}, fmt.Errorf("%s source: %d consecutive read failures: %w", s.cfg.Name, readErrors, err)
				}
				slog.ErrorContext(ctx, "stream read failed", "source", s.cfg.Name, "error", err)
				if err := sleep(ctx, s.cfg.ReadErrorDelay); err != nil {
					return feed.Event{}, err
				}
				continue
			}
			readErrors = 0
			s.buffered = msgs
			continue
		}

		msg := s.buffered[0]
		s.buffered = s.buffered[1:]

		mctx := logger.WithLogFields(ctx, logger.LogFields{
			MessageID: logger.Ptr(msg.ID),
			ContentID: logger.Ptr(msg.Fullname),
			Attempt:   logger.Ptr(msg.Attempt),
		})

		node, err := s.resolver.Node(mctx, msg.Fullname)
		if err != nil {
			slog.WarnContext(mctx, "could not resolve queued item", "error", err)
			if settleErr := s.consumer.Settle(mctx, msg, fmt.Errorf("resolving %s: %w", msg.Fullname, err)); settleErr != nil {
				slog.ErrorContext(mctx, "failed to settle message", "error", settleErr)
			}
			continue
		}

		event := feed.NewEvent(node, func(ctx context.Context, handleErr error) error {
			return s.consumer.Settle(ctx, msg, handleErr)
		})
		event.MessageID = msg.ID
		event.Attempt = msg.Attempt
		event.TraceID = msg.TraceID
		return event, nil
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
