package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/api"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/app"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Slack events HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runServe initializes the application and serves Slack events until
// interrupted.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting event server", "version", Version)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	if err := a.WireSlack(); err != nil {
		return fmt.Errorf("wiring slack: %w", err)
	}

	events := api.NewEventsHandler(a.Handler, logger)
	server := api.NewServer(events, a.Pool, logger)

	logger.Info("event server ready",
		"addr", addr,
		"events", "/slack/events",
		"health", "/health, /ready",
	)

	return server.Run(ctx, addr)
}
