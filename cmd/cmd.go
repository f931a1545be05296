// Package cmd provides the CLI commands for the support bot.
//
// Commands:
//   - serve: HTTP server receiving Slack events
//   - mcp: Model Context Protocol server exposing the tool surface
//   - migrate: apply database migrations and exit
//
// Signal handling and graceful shutdown are implemented for all
// long-running commands via context cancellation.
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "supportbot",
	Short: "Self-learning IT support bot for Slack",
	Long: `supportbot answers IT support questions in Slack threads.

It reads the full conversation thread, consults a semantic knowledge base
backed by pgvector, searches the web when needed, and snapshots resolutions
back into the knowledge base so the next occurrence of the same problem is
answered from memory.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the CLI.
func Execute() error {
	initLogger()
	return rootCmd.Execute()
}

// initLogger installs the process-wide default logger. Logs go to stderr;
// on the mcp command stdout carries JSON-RPC and must stay clean.
func initLogger() {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(applog.New(applog.Config{Level: level}))
}
