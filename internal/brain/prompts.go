package brain

import (
	"context"
	"log/slog"
	"strings"
)

// Config entry names in the knowledge store's System collection.
const (
	ConfigOpenAIModel           = "openai_model"
	ConfigClassifierInstruction = "classifier_instruction"
	ConfigSummarizerInstruction = "summarizer_instruction"
)

const (
	DefaultModel = "gpt-4o-mini"

	DefaultClassifierInstruction = `You triage comments in an online community.
Given the conversation context and the user's latest message, decide whether the user is asking for help and which topic the message belongs to.
Respond with a single JSON object and nothing else: {"seeks_help": <true|false>, "category": "<short lowercase topic>"}`

	DefaultSummarizerInstruction = `Summarize the following community content as a short factual note for a knowledge base.
Keep names, numbers and links that matter. Do not add information that is not in the content.`
)

// ConfigReader reads named configuration entries.
type ConfigReader interface {
	ReadConfig(ctx context.Context, name string) (string, error)
}

// Prompts holds the tunable model settings used by the classifier and summarizer.
type Prompts struct {
	Model                 string
	ClassifierInstruction string
	SummarizerInstruction string
}

// LoadPrompts reads prompts from store and falls back to defaults for entries
// that are missing or unreadable. A non-empty model comes from the operator's
// environment and is used as is; the store's model entry is then not read.
// It never fails.
func LoadPrompts(ctx context.Context, store ConfigReader, model string) Prompts {
	p := Prompts{
		Model:                 DefaultModel,
		ClassifierInstruction: DefaultClassifierInstruction,
		SummarizerInstruction: DefaultSummarizerInstruction,
	}
	if model != "" {
		p.Model = model
	}
	if store == nil {
		return p
	}

	load := func(name string, dst *string) {
		value, err := store.ReadConfig(ctx, name)
		if err != nil {
			slog.WarnContext(ctx, "config entry unavailable, using default",
				"name", name,
				"error", err)
			return
		}
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}

	if model == "" {
		load(ConfigOpenAIModel, &p.Model)
	}
	load(ConfigClassifierInstruction, &p.ClassifierInstruction)
	load(ConfigSummarizerInstruction, &p.SummarizerInstruction)

	return p
}
