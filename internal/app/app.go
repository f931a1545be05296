// Package app wires the application together: one connection pool, one
// Gemini client, one tool registry and one orchestrator per process, shared
// by reference across concurrent conversations.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/bot"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/config"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/knowledge"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/tools"
)

// App is the application container. Construct with Setup, release with
// Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Pool         *pgxpool.Pool
	Store        *knowledge.Store
	Embedder     knowledge.Embedder
	Registry     *tools.Registry
	LLM          *llm.Client
	Orchestrator *bot.Orchestrator

	// Handler is set by WireSlack; nil for processes that only serve the
	// tool surface (the MCP command).
	Handler *bot.Handler

	otelCleanup func()
}

// Close releases resources in reverse construction order.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Debug("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
