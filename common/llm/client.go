package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client is the language-model and moderation capability. Implementations
// must be safe for concurrent use; both listeners share one.
type Client interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Moderate(ctx context.Context, input string) (*Moderation, error)
	Model() string
}

type Request struct {
	Messages    []Message
	SchemaName  string
	Schema      any // optional JSON schema; when set the model is asked for structured output
	MaxTokens   int
	Temperature *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	Content          string
	FinishReason     string
	PromptTokens     int
	CompletionTokens int
}

// Moderation is the verdict for a single input.
type Moderation struct {
	Flagged    bool
	Categories []string // categories that were flagged, sorted
}

type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	ModerationModel string
	MaxRetries      int // SDK-level retries; 0 leaves retrying to callers
}

type client struct {
	openai          openai.Client
	model           string
	moderationModel string
}

func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	moderationModel := cfg.ModerationModel
	if moderationModel == "" {
		moderationModel = openai.ModerationModelOmniModerationLatest
	}

	return &client{
		openai:          openai.NewClient(opts...),
		model:           model,
		moderationModel: moderationModel,
	}, nil
}

func (c *client) Complete(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 512
	}

	params := openai.ChatCompletionNewParams{
		Model:     c.model,
		Messages:  convertMessages(req.Messages),
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        req.SchemaName,
					Description: openai.String("Structured response schema"),
					Schema:      req.Schema,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := c.openai.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response: %w", ErrEmptyResponse)
	}

	slog.DebugContext(ctx, "llm chat completed",
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason)

	choice := resp.Choices[0]
	return &Response{
		Content:          choice.Message.Content,
		FinishReason:     string(choice.FinishReason),
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (c *client) Moderate(ctx context.Context, input string) (*Moderation, error) {
	start := time.Now()
	resp, err := c.openai.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(input)},
		Model: c.moderationModel,
	})
	if err != nil {
		return nil, fmt.Errorf("openai moderation: %w", err)
	}

	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("no results in moderation response: %w", ErrEmptyResponse)
	}

	result := resp.Results[0]
	categories := flaggedCategories(result.Categories.RawJSON())

	slog.DebugContext(ctx, "moderation completed",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"flagged", result.Flagged,
		"categories", categories)

	return &Moderation{
		Flagged:    result.Flagged,
		Categories: categories,
	}, nil
}

func (c *client) Model() string {
	return c.model
}

func convertMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))

	for _, msg := range msgs {
		switch msg.Role {
		case RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}

	return result
}

// flaggedCategories pulls the true-valued keys out of the raw categories object.
// The SDK exposes categories as a fixed struct; the raw form keeps us working
// when new categories are added upstream.
func flaggedCategories(raw string) []string {
	if raw == "" {
		return nil
	}
	var all map[string]*bool
	if err := json.Unmarshal([]byte(raw), &all); err != nil {
		return nil
	}
	var flagged []string
	for name, v := range all {
		if v != nil && *v {
			flagged = append(flagged, name)
		}
	}
	slices.Sort(flagged)
	return flagged
}

func IsRetryable(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "llm error not retryable: context cancelled or deadline exceeded")
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			slog.WarnContext(ctx, "llm rate limited, will retry",
				"status_code", apiErr.StatusCode)
			return true
		case apiErr.StatusCode >= 500:
			slog.WarnContext(ctx, "llm server error, will retry",
				"status_code", apiErr.StatusCode)
			return true
		default:
			slog.ErrorContext(ctx, "llm client error, not retryable",
				"status_code", apiErr.StatusCode,
				"error_type", apiErr.Type,
				"error_code", apiErr.Code)
			return false
		}
	}

	if errors.Is(err, ErrEmptyResponse) {
		return false
	}

	// Network errors (no API response) are generally retryable
	slog.WarnContext(ctx, "llm network error, will retry", "error", err)
	return true
}
