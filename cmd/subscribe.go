package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/scope"
)

var (
	subReader int64
	subAuthor int64
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe a reader to an author's catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScopes(cmd, func(scopes *scope.Store) error {
			if err := scopes.Subscribe(cmd.Context(), subReader, subAuthor); err != nil {
				return err
			}
			fmt.Printf("Reader %d subscribed to author %d.\n", subReader, subAuthor)
			return nil
		})
	},
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: "Remove a reader's subscription to an author's catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withScopes(cmd, func(scopes *scope.Store) error {
			if err := scopes.Unsubscribe(cmd.Context(), subReader, subAuthor); err != nil {
				return err
			}
			fmt.Printf("Reader %d unsubscribed from author %d.\n", subReader, subAuthor)
			return nil
		})
	},
}

// withScopes opens only the database, so subscription management works
// without an API key.
func withScopes(cmd *cobra.Command, fn func(*scope.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	database, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("opening library database: %w", err)
	}
	defer database.Close()
	return fn(scope.NewStore(database))
}

func addSubscriptionFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&subReader, "reader", 0, "reader id (required)")
	cmd.Flags().Int64Var(&subAuthor, "author", 0, "author id (required)")
	_ = cmd.MarkFlagRequired("reader")
	_ = cmd.MarkFlagRequired("author")
}

func init() {
	addSubscriptionFlags(subscribeCmd)
	addSubscriptionFlags(unsubscribeCmd)
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(unsubscribeCmd)
}
