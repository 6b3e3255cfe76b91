package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/chamada/internal/app"
	"github.com/saturnino-fabrica-de-software/chamada/internal/capture/opencv"
	"github.com/saturnino-fabrica-de-software/chamada/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API with websocket progress events.

Listens on HOST:PORT (default 127.0.0.1:3000). Documentation is served
under /swagger and Prometheus metrics under /metrics.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The server always logs
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Chamada API",
		slog.String("environment", cfg.Environment),
		slog.String("addr", cfg.Addr()),
		slog.String("provider", cfg.ProviderType),
	)

	a, err := app.New(cfg, logger, app.WithOpener(opencv.Opener{}))
	if err != nil {
		return err
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx, version)
}
