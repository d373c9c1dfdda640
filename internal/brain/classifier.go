package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pc1e0/comm/common/llm"
	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/internal/domain"
)

const classifierMaxTokens = 64

type ClassifierOption func(*Classifier)

// WithStructuredOutput asks the model for output matching the classification
// schema. The response is validated either way.
func WithStructuredOutput() ClassifierOption {
	return func(c *Classifier) {
		c.schema = llm.GenerateSchema[domain.Classification]()
	}
}

type Classifier struct {
	llm         llm.Client
	instruction string
	retry       llm.RetryPolicy
	schema      any
}

func NewClassifier(client llm.Client, instruction string, retry llm.RetryPolicy, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		llm:         client,
		instruction: instruction,
		retry:       retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify decides whether inquiry is asking for help and which category it belongs to.
func (c *Classifier) Classify(ctx context.Context, inquiry string, transcript domain.Transcript) (domain.Classification, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "comm.brain.classifier"})

	req := llm.Request{
		Messages: []llm.Message{
			llm.SystemMessage(c.instruction),
			llm.UserMessage("Context:\n\n" + transcript.String()),
			llm.UserMessage("User inquiry:\n\n" + inquiry),
		},
		MaxTokens:   classifierMaxTokens,
		Temperature: llm.Temp(0),
	}
	if c.schema != nil {
		req.SchemaName = "classification"
		req.Schema = c.schema
	}

	resp, err := llm.Retry(ctx, c.retry, func() (*llm.Response, error) {
		return c.llm.Complete(ctx, req)
	})
	if err != nil {
		return domain.Classification{}, &CompletionError{Op: "classify", Err: err}
	}

	result, err := ParseClassification(resp.Content)
	if err != nil {
		slog.WarnContext(ctx, "classifier returned invalid output",
			"error", err,
			"raw", logger.Truncate(resp.Content, 200))
		return domain.Classification{}, err
	}

	return result, nil
}

// ParseClassification validates raw model output in three stages: it must be a
// JSON object, it must carry seeks_help and category, and those must be a
// boolean and a string. Nothing is returned unless all three pass.
func ParseClassification(raw string) (domain.Classification, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &obj); err != nil || obj == nil {
		detail := "not a JSON object"
		if err != nil {
			detail = err.Error()
		}
		return domain.Classification{}, &ValidationError{Kind: ValidationMalformed, Detail: detail, Raw: raw}
	}

	for _, key := range []string{"seeks_help", "category"} {
		if _, ok := obj[key]; !ok {
			return domain.Classification{}, &ValidationError{
				Kind:   ValidationSchema,
				Field:  key,
				Detail: "missing",
				Raw:    raw,
			}
		}
	}

	seeksHelp, ok := obj["seeks_help"].(bool)
	if !ok {
		return domain.Classification{}, &ValidationError{
			Kind:   ValidationType,
			Field:  "seeks_help",
			Detail: fmt.Sprintf("want boolean, got %s", jsonType(obj["seeks_help"])),
			Raw:    raw,
		}
	}
	category, ok := obj["category"].(string)
	if !ok {
		return domain.Classification{}, &ValidationError{
			Kind:   ValidationType,
			Field:  "category",
			Detail: fmt.Sprintf("want string, got %s", jsonType(obj["category"])),
			Raw:    raw,
		}
	}

	return domain.Classification{SeeksHelp: seeksHelp, Category: category}, nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}
