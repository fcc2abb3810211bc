package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nfrund/unicorn/internal/app"
	"github.com/nfrund/unicorn/internal/config"
	"github.com/nfrund/unicorn/internal/logging"
)

// ErrNotImplemented is returned for components that exist in name only.
var ErrNotImplemented = errors.New("component not implemented")

const (
	componentAll       = "all"
	componentAPI       = "api"
	componentDatastore = "datastore"
)

var runCmd = &cobra.Command{
	Use:   "run [component]",
	Short: "Run a unicorn component",
	Long: `Run a unicorn component. Components:
  all        every available component (default)
  api        the WebSocket topic router
  datastore  not implemented yet`,
	ValidArgs: []string{componentAPI, componentAll, componentDatastore},
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		component := componentAll
		if len(args) == 1 {
			component = args[0]
		}
		return runComponent(cmd.Context(), afero.NewOsFs(), component)
	},
}

func runComponent(ctx context.Context, fs afero.Fs, component string) error {
	switch component {
	case componentAll:
		slog.Info("Running all components from configuration")
		return runAPI(ctx, fs)
	case componentAPI:
		return runAPI(ctx, fs)
	case componentDatastore:
		return fmt.Errorf("%s: %w", component, ErrNotImplemented)
	default:
		return fmt.Errorf("unknown component %q", component)
	}
}

func runAPI(ctx context.Context, fs afero.Fs) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(fs, configPath)
	if err != nil {
		return err
	}
	setLevel(cfg.LogLevel)
	logger := logging.New(cfg.LogFormat, level)
	logger.Debug("Config loaded", "path", configPath, "api", cfg.Service(config.APIService).Address())

	if exists, _ := afero.Exists(fs, configPath); exists {
		err := config.Watch(ctx, fs, configPath, func(c *config.Config) {
			setLevel(c.LogLevel)
		})
		if err != nil {
			logger.Warn("Config hot reload disabled", "error", err)
		}
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build api: %w", err)
	}

	logger.Info("Starting kernel", "version", app.Version)
	if err := a.Run(ctx); err != nil {
		logger.Error("API stopped", "error", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
