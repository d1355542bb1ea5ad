package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"inabottle/internal/config"
	"inabottle/internal/logger"
	"inabottle/pkg/logging"
)

// App is what a service binary runs once its config and logger exist.
type App interface {
	Initialize(ctx context.Context) error
	Run(ctx context.Context) error
}

// NewRootCommand builds the cobra command shared by every binary: a root that
// serves by default, a serve subcommand and a --config flag that falls back
// to CONFIG_FILE.
func NewRootCommand(serviceName, short string, newApp func(cfg *config.Config, log logger.Logger) App) *cobra.Command {
	var configFile string

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the " + serviceName,
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(serviceName)

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
				if configFile == "" {
					earlyLog.Warn("No config file given, using defaults and environment")
				}
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			log, err := logger.NewWithService(cfg.Logging.Level, serviceName)
			if err != nil {
				return fmt.Errorf("failed to init logger: %w", err)
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting "+serviceName)

			app := newApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Shutdown complete")
			return nil
		},
	}

	root := &cobra.Command{
		Use:          serviceName,
		Short:        short,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	root.AddCommand(serve)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute(root *cobra.Command) {
	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
