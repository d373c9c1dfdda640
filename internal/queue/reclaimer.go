package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pc1e0/comm/common/logger"
)

type ReclaimerConfig struct {
	MinIdle   time.Duration // entries idle this long are considered abandoned
	Interval  time.Duration
	BatchSize int64
}

// Reclaimer moves entries abandoned by other consumers of the group (a bot
// that crashed after XREADGROUP but before XACK) to its consumer, which then
// delivers them through its pending drain like its own unacked entries.
type Reclaimer struct {
	consumer *RedisConsumer
	cfg      ReclaimerConfig
}

func NewReclaimer(consumer *RedisConsumer, cfg ReclaimerConfig) *Reclaimer {
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = 5 * time.Minute
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	return &Reclaimer{consumer: consumer, cfg: cfg}
}

// Run reclaims every Interval until ctx is cancelled. Cycle errors are
// logged; the next tick tries again.
func (r *Reclaimer) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "comm.queue.reclaimer",
		Stream:    logger.Ptr(r.consumer.cfg.Stream),
	})

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"min_idle", r.cfg.MinIdle,
		"group", r.consumer.cfg.Group)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

// ReclaimOnce claims one batch of abandoned entries and reports how many
// were claimed.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	c := r.consumer
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: c.cfg.Stream,
		Group:  c.cfg.Group,
		Idle:   r.cfg.MinIdle,
		Start:  "-",
		End:    "+",
		Count:  r.cfg.BatchSize,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("xpending: %w", err)
	}

	var ids []string
	for _, p := range pending {
		// Our own pending entries are already in flight or will be drained.
		if p.Consumer == c.cfg.Consumer {
			continue
		}
		slog.InfoContext(ctx, "reclaiming stale message",
			"message_id", p.ID,
			"original_consumer", p.Consumer,
			"idle_time", p.Idle,
			"retry_count", p.RetryCount)
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	claimed, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  r.cfg.MinIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("xclaim: %w", err)
	}

	if len(claimed) > 0 {
		c.rewind()
		slog.InfoContext(ctx, "reclaimed stale messages", "count", len(claimed))
	}
	return len(claimed), nil
}
