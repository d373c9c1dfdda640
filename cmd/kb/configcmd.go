package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read and write named configuration entries",
	Long: `Configuration entries live in the System collection. The bot reads
openai_model, classifier_instruction and summarizer_instruction at startup.`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a configuration entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <name> [content]",
	Short: "Write a configuration entry, replacing any previous value",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runConfigSet,
}

func init() {
	configSetCmd.Flags().String("file", "", "read the content from a file instead of the argument")
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	content, err := kb.ReadConfig(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), content)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	name := args[0]
	file, _ := cmd.Flags().GetString("file")

	var content string
	switch {
	case file != "" && len(args) == 2:
		return fmt.Errorf("pass the content as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		content = string(data)
	case len(args) == 2:
		content = args[1]
	default:
		return fmt.Errorf("no content given for %s", name)
	}

	if err := kb.WriteConfig(cmd.Context(), name, strings.TrimSpace(content)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", name, len(content))
	return nil
}
