package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/answer"
	"github.com/bookquill/bookquill/internal/render"
)

var (
	askReader int64
	askHTML   string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question answered from a reader's subscribed books",
	Long: `Streams a grounded answer assembled from the reader's subscribed books,
with the supporting passages cited. With --html the finished answer is
also written out as a standalone HTML page.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int64Var(&askReader, "reader", 0, "reader id the question is asked for (required)")
	askCmd.Flags().StringVar(&askHTML, "html", "", "write the finished answer to this HTML file")
	_ = askCmd.MarkFlagRequired("reader")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	question := args[0]

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		result    *answer.Result
		sources   []answer.Source
		streamErr string
	)
	for ev := range a.engine.AnswerStream(ctx, askReader, question) {
		switch ev.Type {
		case answer.EventSources:
			sources = ev.Sources
		case answer.EventChunk:
			fmt.Print(ev.Content)
		case answer.EventComplete:
			result = ev.Result
		case answer.EventNoContext:
			fmt.Println("Your subscribed books contain nothing relevant to this question.")
			return nil
		case answer.EventError:
			streamErr = ev.Err
			if ev.Result != nil {
				result = ev.Result
			}
		}
	}
	fmt.Println()

	if len(sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range sources {
			line := fmt.Sprintf("  [%d] %s", i+1, src.Title)
			if src.SectionTitle != "" {
				line += ", " + src.SectionTitle
			}
			if src.PageNumber > 0 {
				line += fmt.Sprintf(" (p. %d)", src.PageNumber)
			}
			fmt.Println(line)
		}
	}

	if askHTML != "" && result != nil {
		page, err := render.AnswerHTML(question, result)
		if err != nil {
			return fmt.Errorf("rendering answer page: %w", err)
		}
		if err := os.WriteFile(askHTML, page, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", askHTML, err)
		}
		fmt.Printf("\nAnswer page written to %s\n", askHTML)
	}

	if streamErr != "" {
		return fmt.Errorf("answering failed: %s", streamErr)
	}
	return nil
}
