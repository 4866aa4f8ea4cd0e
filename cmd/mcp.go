package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/bookquill/bookquill/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing the library's search and question-answering tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		// Stdout carries protocol traffic; status goes to stderr.
		fmt.Fprintf(os.Stderr, "bookquill MCP server started on stdio (index: %d chunks)\n", a.vectors.Count())

		srv := mcpserver.NewServer(a.engine, a.docs)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
