package cmd

import (
	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize bookquill configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure bookquill and generates a .bookquill.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
