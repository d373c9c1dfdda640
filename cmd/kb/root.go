package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pc1e0/comm/common/logger"
	"github.com/pc1e0/comm/core/config"
	"github.com/pc1e0/comm/internal/knowledge"
)

var (
	storePath string
	kb        *knowledge.Store
)

var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the bot's knowledge base",
	Long: `kb administers the vector store the bot reads its prompts from and
writes learned factoids to: create the collections, read and write named
configuration entries, and search stored factoids.`,
	SilenceUsage:      true,
	PersistentPreRunE: openStore,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "path", "", "knowledge store directory (defaults to KNOWLEDGE_PATH)")
}

func openStore(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(config.ServiceTypeKB)
	if err != nil {
		return err
	}
	logger.Setup(cfg)

	path := cfg.Knowledge.Path
	if storePath != "" {
		path = storePath
	}

	kb, err = knowledge.Open(knowledge.Config{
		Path:  path,
		Embed: knowledge.NewEmbeddingFunc(cfg.Knowledge),
	})
	if err != nil {
		return fmt.Errorf("opening knowledge store at %s: %w", path, err)
	}
	return nil
}
