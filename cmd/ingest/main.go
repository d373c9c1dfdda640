package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/common/otel"
	"github.com/pc1e0/comm/core/config"
	"github.com/pc1e0/comm/internal/queue"
	"github.com/pc1e0/comm/internal/reddit"
)

// ingest polls the subreddit and publishes new comments and posts to Redis
// streams for cmd/bot running with FEED_MODE=redis.
func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeIngest)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	code := 0
	if err := run(ctx, cfg); err != nil {
		slog.ErrorContext(ctx, "ingest stopped with error", "error", err)
		code = 1
	}

	if telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
		cancel()
	}
	os.Exit(code)
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "comm ingest starting", "env", cfg.Env, "subreddit", cfg.Reddit.Subreddit)

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("connecting to redis: %w", err)
	}

	producer := queue.NewRedisProducer(client, slog.Default())
	defer producer.Close()

	rc := reddit.New(ctx, reddit.Credentials{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
	}, reddit.WithRequestsPerMinute(cfg.Reddit.RequestsPerMinute))

	forwarders := []*queue.Forwarder{
		queue.NewForwarder(
			reddit.CommentStream(rc, cfg.Reddit.Subreddit, reddit.StreamConfig{}),
			producer,
			queue.ForwarderConfig{Stream: cfg.Pipeline.CommentStream},
		),
		queue.NewForwarder(
			reddit.PostStream(rc, cfg.Reddit.Subreddit, reddit.StreamConfig{}),
			producer,
			queue.ForwarderConfig{Stream: cfg.Pipeline.PostStream},
		),
	}

	// Forwarders are independent: one failing must not stop the other, so
	// the group context is not used to cancel siblings.
	var g errgroup.Group
	for _, f := range forwarders {
		g.Go(func() error {
			return f.Run(ctx)
		})
	}

	slog.InfoContext(ctx, "ingest running",
		"comment_stream", cfg.Pipeline.CommentStream,
		"post_stream", cfg.Pipeline.PostStream)
	return g.Wait()
}
