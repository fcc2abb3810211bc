package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nfrund/unicorn/internal/app"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the unicorn version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "unicorn %s\n", app.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
