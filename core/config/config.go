package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/pc1e0/comm/core/db"
)

type Config struct {
	OTel      OTelConfig
	Reddit    RedditConfig
	OpenAI    OpenAIConfig
	Knowledge KnowledgeConfig
	Pipeline  PipelineConfig
	Bot       BotConfig
	Env       string
	Port      string
	DB        db.Config

	// InstanceID seeds the snowflake generator; it must differ between
	// processes writing to the same database.
	InstanceID int64
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRatio    float64
}

type RedditConfig struct {
	ClientID          string
	ClientSecret      string
	Username          string
	Password          string
	UserAgent         string
	Subreddit         string
	AdminUser         string // suggestions from this account are auto-approved
	RequestsPerMinute int
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	// Model is empty unless OPENAI_MODEL is set. When set it wins over the
	// knowledge store's System/openai_model entry; otherwise that entry, then
	// brain.DefaultModel, is used.
	Model           string
	ModerationModel string
}

type KnowledgeConfig struct {
	Path              string // chromem persistence directory
	EmbeddingsBaseURL string // optional: OpenAI-compatible embeddings endpoint
	EmbeddingsKey     string
	EmbeddingsModel   string
}

type PipelineConfig struct {
	FeedMode      FeedMode
	RedisURL      string
	CommentStream string
	PostStream    string
	Group         string
	Consumer      string
	DLQStream     string
	MaxAttempts   int
	Block         time.Duration

	// Entries another consumer has held longer than ReclaimIdle are claimed
	// by this one, checked every ReclaimInterval.
	ReclaimIdle     time.Duration
	ReclaimInterval time.Duration
}

type BotConfig struct {
	ContextDepth int
	LearnCommand string
	// StructuredOutput asks the model for JSON-schema constrained output.
	// Responses are validated either way.
	StructuredOutput bool
}

type FeedMode string

const (
	FeedModeDirect FeedMode = "direct" // listeners poll Reddit themselves
	FeedModeRedis  FeedMode = "redis"  // listeners read streams filled by cmd/ingest
)

type ServiceType string

const (
	ServiceTypeBot    ServiceType = "bot"
	ServiceTypeIngest ServiceType = "ingest"
	ServiceTypeKB     ServiceType = "kb"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.bot for the listener
//   - .env.ingest for the Reddit-to-Redis ingester
//   - .env.kb for the knowledge base CLI
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("BOT_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:        getEnv("BOT_ENV", "development"),
		Port:       getEnv("PORT", "8080"),
		InstanceID: int64(getEnvInt("INSTANCE_ID", 1)),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 4),
			MinConns: getEnvInt32("DB_MIN_CONNS", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "comm-bot"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("BOT_ENV", "development"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
		},
		Reddit: RedditConfig{
			ClientID:          getEnv("REDDIT_CLIENT_ID", ""),
			ClientSecret:      getEnv("REDDIT_SECRET", ""),
			Username:          getEnv("REDDIT_USERNAME", ""),
			Password:          getEnv("REDDIT_PASSWORD", ""),
			UserAgent:         getEnv("REDDIT_USER_AGENT", "comm-bot/0.1"),
			Subreddit:         getEnv("REDDIT_SUBREDDIT", ""),
			AdminUser:         getEnv("REDDIT_ADMIN_USER", ""),
			RequestsPerMinute: getEnvInt("REDDIT_REQUESTS_PER_MINUTE", 60),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_KEY", ""),
			BaseURL:         getEnv("OPENAI_BASE_URL", ""),
			Model:           getEnv("OPENAI_MODEL", ""),
			ModerationModel: getEnv("MODERATION_MODEL", "omni-moderation-latest"),
		},
		Knowledge: KnowledgeConfig{
			Path:              getEnv("KNOWLEDGE_PATH", "data/knowledge"),
			EmbeddingsBaseURL: getEnv("EMBEDDINGS_BASE_URL", ""),
			EmbeddingsKey:     getEnv("EMBEDDINGS_KEY", getEnv("OPENAI_KEY", "")),
			EmbeddingsModel:   getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		},
		Pipeline: PipelineConfig{
			FeedMode:        FeedMode(strings.ToLower(getEnv("FEED_MODE", string(FeedModeDirect)))),
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
			CommentStream:   getEnv("REDIS_COMMENT_STREAM", "reddit_comments"),
			PostStream:      getEnv("REDIS_POST_STREAM", "reddit_submissions"),
			Group:           getEnv("REDIS_CONSUMER_GROUP", "comm_bot"),
			Consumer:        getEnv("REDIS_CONSUMER_NAME", "bot-1"),
			DLQStream:       getEnv("REDIS_DLQ_STREAM", "reddit_events_dlq"),
			MaxAttempts:     getEnvInt("MAX_ATTEMPTS", 3),
			Block:           getEnvDuration("REDIS_BLOCK", 5*time.Second),
			ReclaimIdle:     getEnvDuration("REDIS_RECLAIM_IDLE", 5*time.Minute),
			ReclaimInterval: getEnvDuration("REDIS_RECLAIM_INTERVAL", time.Minute),
		},
		Bot: BotConfig{
			ContextDepth:     getEnvInt("CONTEXT_DEPTH", 5),
			LearnCommand:     getEnv("LEARN_COMMAND", "!learn this"),
			StructuredOutput: getEnvBool("CLASSIFIER_STRUCTURED_OUTPUT", true),
		},
	}

	if err := cfg.validate(serviceType); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate(serviceType ServiceType) error {
	switch c.Pipeline.FeedMode {
	case FeedModeDirect, FeedModeRedis:
	default:
		return fmt.Errorf("FEED_MODE must be %q or %q, got %q", FeedModeDirect, FeedModeRedis, c.Pipeline.FeedMode)
	}

	if c.InstanceID < 0 || c.InstanceID > 1023 {
		return fmt.Errorf("INSTANCE_ID must be between 0 and 1023, got %d", c.InstanceID)
	}

	if serviceType == ServiceTypeKB {
		return nil
	}

	if !c.Reddit.Enabled() {
		return fmt.Errorf("REDDIT_CLIENT_ID, REDDIT_SECRET, REDDIT_USERNAME and REDDIT_PASSWORD are required")
	}
	if c.Reddit.Subreddit == "" {
		return fmt.Errorf("REDDIT_SUBREDDIT is required")
	}

	if serviceType == ServiceTypeBot && !c.OpenAI.Enabled() {
		return fmt.Errorf("OPENAI_KEY is required")
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c RedditConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
