package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nfrund/unicorn/internal/app"
	"github.com/nfrund/unicorn/internal/config"
	"github.com/nfrund/unicorn/internal/logging"
)

var (
	debug      bool
	configPath string

	// level backs every logger built by the CLI so it can change at runtime.
	level = new(slog.LevelVar)
)

var rootCmd = &cobra.Command{
	Use:     "unicorn",
	Short:   "Unified Communications Over Real-time Networks",
	Version: app.Version,
	Long: `unicorn is a publish/subscribe message router for WebSocket clients.

Clients send JSON requests such as topic.create, topic.subscribe and
topic.publish; unicorn keeps topic membership and fans messages out to
subscribers.

Use "unicorn [command] --help" for more information about a command.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.LoadDotEnv()
		setLevel("")
		logging.New("", level)
	},
}

// Execute executes the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setLevel applies a configured level name unless --debug forces debug output.
func setLevel(name string) {
	if debug {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(logging.ParseLevel(name))
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Show verbose output. Sets log level to debug")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Provide a configuration file")
}
