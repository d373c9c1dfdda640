package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pc1e0/comm/internal/domain"
)

var factoidsCmd = &cobra.Command{
	Use:   "factoids",
	Short: "Inspect learned factoids",
}

var factoidsSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the factoids closest to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runFactoidsSearch,
}

var factoidsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one factoid",
	Args:  cobra.ExactArgs(1),
	RunE:  runFactoidsGet,
}

func init() {
	factoidsSearchCmd.Flags().Int("limit", 5, "maximum number of results")
	factoidsCmd.AddCommand(factoidsSearchCmd, factoidsGetCmd)
	rootCmd.AddCommand(factoidsCmd)
}

func runFactoidsSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	results, err := kb.SearchFactoids(cmd.Context(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "no factoids found")
		return nil
	}
	for _, f := range results {
		fmt.Fprintf(out, "%s  [%s] %s (%s)\n", f.ID, f.ReviewStatus, f.Summary, f.Category)
	}
	return nil
}

func runFactoidsGet(cmd *cobra.Command, args []string) error {
	f, err := kb.GetFactoid(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printFactoid(cmd, f)
	return nil
}

func printFactoid(cmd *cobra.Command, f domain.Factoid) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "id:           %s\n", f.ID)
	fmt.Fprintf(out, "status:       %s\n", f.ReviewStatus)
	fmt.Fprintf(out, "category:     %s\n", f.Category)
	fmt.Fprintf(out, "author:       %s\n", f.Author)
	fmt.Fprintf(out, "suggested by: %s\n", f.SuggestedBy)
	fmt.Fprintf(out, "source:       %s\n", f.Source)
	fmt.Fprintf(out, "created:      %s\n", f.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "\n%s\n\n%s\n", f.Summary, f.Content)
}
