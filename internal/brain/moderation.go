package brain

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pc1e0/comm/common/llm"
	"github.com/pc1e0/comm/common/logger"
)

type ModerationGate struct {
	llm   llm.Client
	retry llm.RetryPolicy
}

func NewModerationGate(client llm.Client, retry llm.RetryPolicy) *ModerationGate {
	return &ModerationGate{llm: client, retry: retry}
}

// Moderate reports whether text is flagged. Every failure comes back as *ModerationError.
func (g *ModerationGate) Moderate(ctx context.Context, text string) (bool, error) {
	if strings.TrimSpace(text) == "" {
		return false, nil
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "comm.brain.moderation"})

	result, err := llm.Retry(ctx, g.retry, func() (*llm.Moderation, error) {
		return g.llm.Moderate(ctx, text)
	})
	if err != nil {
		return false, &ModerationError{Err: err}
	}

	if result.Flagged {
		slog.InfoContext(ctx, "content flagged by moderation",
			"categories", result.Categories)
	}
	return result.Flagged, nil
}
