package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pc1e0/comm/internal/knowledge"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the knowledge collections",
	Long:  `Creates any missing collections. With --reset every collection is dropped first, deleting all stored documents.`,
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().Bool("reset", false, "drop all collections before creating them")
	rootCmd.AddCommand(schemaCmd)
}

func runSchema(cmd *cobra.Command, _ []string) error {
	reset, _ := cmd.Flags().GetBool("reset")

	if err := kb.EnsureSchema(cmd.Context(), reset); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, name := range knowledge.Collections() {
		fmt.Fprintf(out, "%-12s %d documents\n", name, kb.Count(name))
	}
	return nil
}
