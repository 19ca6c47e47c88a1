package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rivoaiteam/rivo-partners/internal/app"
	"github.com/rivoaiteam/rivo-partners/internal/common/logger"
	"github.com/rivoaiteam/rivo-partners/internal/config"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rivo-admin",
		Short:         "Operator commands for rivo-partners",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedConfigCmd())
	rootCmd.AddCommand(syncCRMCmd())
	rootCmd.AddCommand(nudgeCmd())
	rootCmd.AddCommand(exportBonusesCmd())
	rootCmd.AddCommand(updateStatusCmd())
	rootCmd.AddCommand(linkReferrerCmd())

	return rootCmd
}

// withApp builds the App from the environment, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "rivo-admin")
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
