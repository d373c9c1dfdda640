package brain

import (
	"context"

	"github.com/pc1e0/comm/common/llm"
)

const summarizerMaxTokens = 512

type Summarizer struct {
	llm         llm.Client
	instruction string
	retry       llm.RetryPolicy
}

func NewSummarizer(client llm.Client, instruction string, retry llm.RetryPolicy) *Summarizer {
	return &Summarizer{llm: client, instruction: instruction, retry: retry}
}

// Summarize returns the model's free-text summary. The output is not validated.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	req := llm.Request{
		Messages: []llm.Message{
			llm.SystemMessage(s.instruction),
			llm.UserMessage("Content:\n\n" + content),
		},
		MaxTokens: summarizerMaxTokens,
	}

	resp, err := llm.Retry(ctx, s.retry, func() (*llm.Response, error) {
		return s.llm.Complete(ctx, req)
	})
	if err != nil {
		return "", &CompletionError{Op: "summarize", Err: err}
	}
	return resp.Content, nil
}
