package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goalreminder/goal-reminder/internal/bootstrap"
	"github.com/goalreminder/goal-reminder/pkg/config"
)

var (
	cfgFile  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goalctl",
		Short: "Goal Reminder operations CLI",
		Long: `goalctl runs one-off operations against a Goal Reminder deployment:
reminder sweeps, database migrations and onboarding conversations, using the
same configuration as the server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./configs/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSimulateCmd())

	return cmd
}

func Execute() error {
	return newRootCmd().Execute()
}

// Main runs the CLI and exits non-zero on failure.
func Main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	cfg.Format = "console"
	if logLevel != "" {
		cfg.Level = logLevel
	}
	return bootstrap.NewLogger(cfg)
}

// withApp loads the full configuration, builds the application and runs fn.
func withApp(ctx context.Context, fn func(app *bootstrap.App) error) error {
	log, err := newLogger(config.LoggingConfig{})
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := bootstrap.LoadConfig(ctx, cfgFile, log)
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	return fn(app)
}

func printf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, format, args...)
}
