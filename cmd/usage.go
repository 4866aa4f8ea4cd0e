package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/usage"
)

var (
	usageSinceDays int
	usageReader    int64
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show API usage and estimated cost",
	Long:  `Summarizes recorded search, answer and ingestion activity with token counts and estimated API cost.`,
	RunE:  runUsage,
}

func init() {
	usageCmd.Flags().IntVar(&usageSinceDays, "since", 30, "only include the last N days (0 = everything)")
	usageCmd.Flags().Int64Var(&usageReader, "reader", 0, "also list recent events for this reader")
	rootCmd.AddCommand(usageCmd)
}

func runUsage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening library database: %w", err)
	}
	defer database.Close()
	store := usage.NewStore(database)

	var since time.Time
	if usageSinceDays > 0 {
		since = time.Now().AddDate(0, 0, -usageSinceDays)
	}

	summaries, err := store.Summarize(ctx, since)
	if err != nil {
		return fmt.Errorf("summarizing usage: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No usage recorded.")
		return nil
	}

	fmt.Println("Usage Summary")
	fmt.Println("=============")
	fmt.Printf("  %-10s %8s %12s %12s %10s %9s\n", "operation", "count", "tokens in", "tokens out", "cost", "failures")
	var total float64
	for _, s := range summaries {
		fmt.Printf("  %-10s %8d %12d %12d   $%7.4f %9d\n",
			s.Operation, s.Count, s.TokensIn, s.TokensOut, s.Cost, s.Failures)
		total += s.Cost
	}
	fmt.Printf("  %-10s %8s %12s %12s   $%7.4f\n", "total", "", "", "", total)

	if usageReader > 0 {
		events, err := store.Query(ctx, usage.Filter{ReaderID: usageReader, Limit: 20})
		if err != nil {
			return fmt.Errorf("querying usage events: %w", err)
		}
		fmt.Printf("\nRecent events for reader %d:\n", usageReader)
		if len(events) == 0 {
			fmt.Println("  none")
		}
		for _, e := range events {
			status := "ok"
			if !e.Success {
				status = "failed"
			}
			fmt.Printf("  %s  %-7s %-6s %5dms  $%.5f\n",
				e.CreatedAt.Format(time.DateTime), e.Operation, status, e.LatencyMS, e.CostEstimate)
		}
	}
	return nil
}
