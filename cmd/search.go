package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/engine"
)

var (
	searchReader int64
	searchLimit  int
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the books a reader is subscribed to",
	Long:  `Runs a semantic search over the reader's subscribed books and prints the most relevant passages with their sources.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int64Var(&searchReader, "reader", 0, "reader id the search runs for (required)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of passages (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	_ = searchCmd.MarkFlagRequired("reader")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.engine.Search(ctx, searchReader, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	switch resp.Outcome {
	case engine.OutcomeEmptyScope:
		fmt.Println("This reader has no active subscriptions; there is nothing to search.")
		return nil
	case engine.OutcomeNoMatch:
		fmt.Println("No matching passages found in the subscribed books.")
		return nil
	}

	fmt.Printf("Found %d passage(s)", len(resp.Results))
	if resp.CacheTier != "" {
		fmt.Printf(" (cached: %s)", resp.CacheTier)
	}
	fmt.Println(":")
	fmt.Println()

	for i, r := range resp.Results {
		location := r.Title
		if r.SectionTitle != "" {
			location += ", " + r.SectionTitle
		}
		if r.PageNumber > 0 {
			location += fmt.Sprintf(" (p. %d)", r.PageNumber)
		}
		fmt.Printf("  %d. [%.3f] %s\n", i+1, r.Score, location)
		fmt.Printf("     %s\n\n", truncate(r.Text, 160))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
