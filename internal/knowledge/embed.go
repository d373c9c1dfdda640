package knowledge

import (
	chromem "github.com/philippgille/chromem-go"

	"github.com/pc1e0/comm/core/config"
)

// NewEmbeddingFunc picks the embedding backend: an OpenAI-compatible endpoint
// when a base URL is configured, OpenAI otherwise.
func NewEmbeddingFunc(cfg config.KnowledgeConfig) chromem.EmbeddingFunc {
	model := cfg.EmbeddingsModel
	if model == "" {
		model = string(chromem.EmbeddingModelOpenAI3Small)
	}
	if cfg.EmbeddingsBaseURL != "" {
		return chromem.NewEmbeddingFuncOpenAICompat(cfg.EmbeddingsBaseURL, cfg.EmbeddingsKey, model, nil)
	}
	return chromem.NewEmbeddingFuncOpenAI(cfg.EmbeddingsKey, chromem.EmbeddingModelOpenAI(model))
}
