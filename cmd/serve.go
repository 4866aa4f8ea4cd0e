package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bookquill HTTP server",
	Long:  `Starts the HTTP API serving search, streamed question answering (SSE and websocket), document ingestion and subscription management.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if servePort > 0 {
			a.cfg.Server.Port = servePort
		}

		srv := server.New(a.cfg.Server, a.engine, a.docs, a.scopes, a.pipeline, a.logger)

		errCh := make(chan error, 1)
		go func() {
			fmt.Fprintf(os.Stderr, "bookquill server listening on :%d (index: %d chunks)\n",
				a.cfg.Server.Port, a.vectors.Count())
			errCh <- srv.Start()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-stop:
		}

		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return a.persistVectors(shutdownCtx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "override the configured HTTP port")
	rootCmd.AddCommand(serveCmd)
}
