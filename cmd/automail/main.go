package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/automail/automail/internal/app"
	"github.com/automail/automail/internal/config"
	"github.com/automail/automail/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "automail",
	Short:         "Manage templates and batches and send personalized applications",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(templateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withApp loads config, opens the store and runs fn
func withApp(cmd *cobra.Command, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), logLevel, "console")

	a, err := app.New(cmd.Context(), cfg, log, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(cmd.Context(), a)
}
