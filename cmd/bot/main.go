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

	"github.com/pc1e0/comm/common/id"
	"github.com/pc1e0/comm/common/llm"
	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/common/otel"
	"github.com/pc1e0/comm/core/config"
	"github.com/pc1e0/comm/core/db"
	"github.com/pc1e0/comm/internal/brain"
	"github.com/pc1e0/comm/internal/feed"
	"github.com/pc1e0/comm/internal/http/handler"
	"github.com/pc1e0/comm/internal/http/server"
	"github.com/pc1e0/comm/internal/knowledge"
	"github.com/pc1e0/comm/internal/listener"
	"github.com/pc1e0/comm/internal/pipeline"
	"github.com/pc1e0/comm/internal/queue"
	"github.com/pc1e0/comm/internal/reddit"
	"github.com/pc1e0/comm/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeBot)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := run(ctx, cfg); err != nil {
		slog.ErrorContext(ctx, "bot stopped with error", "error", err)
		shutdownTelemetry(telemetry)
		os.Exit(1)
	}

	shutdownTelemetry(telemetry)
	slog.InfoContext(ctx, "shutdown complete")
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "comm bot starting",
		"env", cfg.Env,
		"subreddit", cfg.Reddit.Subreddit,
		"feed_mode", cfg.Pipeline.FeedMode)

	if err := id.Init(cfg.InstanceID); err != nil {
		return fmt.Errorf("initializing id generator: %w", err)
	}

	observations := store.ObservationStore(store.NoopObservationStore{})
	if cfg.DB.Enabled() {
		database, err := db.New(ctx, cfg.DB)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()

		stores := store.New(database.Pool())
		if err := stores.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("creating observation schema: %w", err)
		}
		observations = stores.Observations()
		slog.InfoContext(ctx, "database connected, recording observations")
	} else {
		slog.InfoContext(ctx, "no database configured, observations disabled")
	}

	kb, err := knowledge.Open(knowledge.Config{
		Path:  cfg.Knowledge.Path,
		Embed: knowledge.NewEmbeddingFunc(cfg.Knowledge),
	})
	if err != nil {
		return err
	}
	if err := kb.EnsureSchema(ctx, false); err != nil {
		return err
	}

	prompts := brain.LoadPrompts(ctx, kb, cfg.OpenAI.Model)

	llmClient, err := llm.New(llm.Config{
		APIKey:          cfg.OpenAI.APIKey,
		BaseURL:         cfg.OpenAI.BaseURL,
		Model:           prompts.Model,
		ModerationModel: cfg.OpenAI.ModerationModel,
	})
	if err != nil {
		return fmt.Errorf("creating llm client: %w", err)
	}
	slog.InfoContext(ctx, "llm client ready", "model", llmClient.Model())

	var classifierOpts []brain.ClassifierOption
	if cfg.Bot.StructuredOutput {
		classifierOpts = append(classifierOpts, brain.WithStructuredOutput())
	}

	redditClient := reddit.New(ctx, reddit.Credentials{
		ClientID:     cfg.Reddit.ClientID,
		ClientSecret: cfg.Reddit.ClientSecret,
		Username:     cfg.Reddit.Username,
		Password:     cfg.Reddit.Password,
		UserAgent:    cfg.Reddit.UserAgent,
	}, reddit.WithRequestsPerMinute(cfg.Reddit.RequestsPerMinute))

	p := pipeline.New(pipeline.Config{
		ContextDepth: cfg.Bot.ContextDepth,
		LearnCommand: cfg.Bot.LearnCommand,
		AdminUser:    cfg.Reddit.AdminUser,
	}, pipeline.Deps{
		Resolver:     redditClient,
		Moderator:    brain.NewModerationGate(llmClient, llm.DefaultRetryPolicy),
		Classifier:   brain.NewClassifier(llmClient, prompts.ClassifierInstruction, llm.DefaultRetryPolicy, classifierOpts...),
		Summarizer:   brain.NewSummarizer(llmClient, prompts.SummarizerInstruction, llm.DefaultRetryPolicy),
		Knowledge:    kb,
		Observations: observations,
	})

	sources, err := openFeeds(ctx, cfg, redditClient)
	if err != nil {
		return err
	}
	defer sources.close()

	orchestrator := listener.NewOrchestrator(
		listener.New("comments", sources.comments, listener.HandlerFunc(p.HandleComment)),
		listener.New("posts", sources.posts, listener.HandlerFunc(p.HandlePost)),
	)

	serverCfg := server.ServerConfig{
		Port:         cfg.Port,
		ServiceName:  cfg.OTel.ServiceName,
		Tracing:      cfg.OTel.Enabled(),
		IsProduction: cfg.IsProduction(),
	}
	router := server.NewRouter(serverCfg, handler.NewStatusHandler(orchestrator, observations))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return orchestrator.Run(gctx)
	})
	g.Go(func() error {
		return server.Serve(gctx, serverCfg, router)
	})
	for _, r := range sources.reclaimers {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	slog.InfoContext(ctx, "bot initialized and listening")
	return g.Wait()
}

type feeds struct {
	comments   feed.Source
	posts      feed.Source
	reclaimers []*queue.Reclaimer
	close      func()
}

// openFeeds builds the comment and post sources for the configured mode. In
// redis mode cmd/ingest fills the streams and each listener reads its own.
func openFeeds(ctx context.Context, cfg config.Config, rc *reddit.Client) (*feeds, error) {
	if cfg.Pipeline.FeedMode == config.FeedModeDirect {
		return &feeds{
			comments: feed.Direct(reddit.CommentStream(rc, cfg.Reddit.Subreddit, reddit.StreamConfig{})),
			posts:    feed.Direct(reddit.PostStream(rc, cfg.Reddit.Subreddit, reddit.StreamConfig{})),
			close:    func() {},
		}, nil
	}

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected",
		"comment_stream", cfg.Pipeline.CommentStream,
		"post_stream", cfg.Pipeline.PostStream)

	f := &feeds{close: func() { client.Close() }}
	newSource := func(name, stream string) (feed.Source, error) {
		consumer, err := queue.NewRedisConsumer(ctx, client, queue.ConsumerConfig{
			Stream:      stream,
			Group:       cfg.Pipeline.Group,
			Consumer:    cfg.Pipeline.Consumer,
			DLQStream:   cfg.Pipeline.DLQStream,
			BatchSize:   10,
			Block:       cfg.Pipeline.Block,
			MaxAttempts: cfg.Pipeline.MaxAttempts,
		})
		if err != nil {
			return nil, err
		}
		f.reclaimers = append(f.reclaimers, queue.NewReclaimer(consumer, queue.ReclaimerConfig{
			MinIdle:  cfg.Pipeline.ReclaimIdle,
			Interval: cfg.Pipeline.ReclaimInterval,
		}))
		return queue.NewSource(consumer, rc, queue.SourceConfig{Name: name}), nil
	}

	if f.comments, err = newSource("comments", cfg.Pipeline.CommentStream); err != nil {
		f.close()
		return nil, err
	}
	if f.posts, err = newSource("posts", cfg.Pipeline.PostStream); err != nil {
		f.close()
		return nil, err
	}
	return f, nil
}

func shutdownTelemetry(telemetry *otel.Telemetry) {
	if telemetry == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "otel shutdown error", "error", err)
	}
}

const banner = `
 ██████╗ ██████╗ ███╗   ███╗███╗   ███╗
██╔════╝██╔═══██╗████╗ ████║████╗ ████║
██║     ██║   ██║██╔████╔██║██╔████╔██║
██║     ██║   ██║██║╚██╔╝██║██║╚██╔╝██║
╚██████╗╚██████╔╝██║ ╚═╝ ██║██║ ╚═╝ ██║
 ╚═════╝ ╚═════╝ ╚═╝     ╚═╝╚═╝     ╚═╝
`
