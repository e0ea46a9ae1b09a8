package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skillsync/internal/app"
	"skillsync/internal/config"
	"skillsync/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:           "skillsync",
	Short:         "Student networking backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create Mongo indexes or apply Postgres migrations, then exit",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("startup failed")
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("shutdown incomplete")
		}
	}()

	return a.Run(ctx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.IsDevelopment())

	store, err := app.OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	logger.Info().Str("driver", cfg.StoreDriver).Msg("migrations applied")
	return store.Close(context.Background())
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Stderr.WriteString("skillsync: " + err.Error() + "\n")
		os.Exit(1)
	}
}
