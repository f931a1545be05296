package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/genai"

	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/db"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/bot"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/config"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/knowledge"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/llm"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/slack"
	"github.com/gabrielkoo/self-learning-rag-it-support-slackbot/internal/tools"
)

// Setup builds the core application: tracing, database, Gemini clients,
// tool registry and orchestrator. Slack wiring is separate (WireSlack)
// because the MCP command runs without a Slack token.
//
// On error everything already initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	a.otelCleanup = provideTracing(ctx, cfg.Tracing, logger)

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	store, err := knowledge.NewStore(pool, cfg.EmbeddingDimension, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}
	a.Store = store

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	embedder, err := knowledge.NewGeminiEmbedder(gc, cfg.EmbedderModel, cfg.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	a.Embedder = embedder

	web := tools.NewWebClient(tools.WebConfig{
		SearchBaseURL: cfg.SearchBaseURL,
		MaxResults:    cfg.SearchMaxResults,
		FetchTimeout:  cfg.FetchTimeout,
		FetchMaxBytes: cfg.FetchMaxBytes,
	}, logger)
	kt := tools.NewKnowledgeTools(embedder, store, logger)

	registry, err := tools.NewRegistry(logger,
		web.SearchTool(),
		web.RetrieveTool(),
		kt.SnapshotTool(),
		kt.SearchTool(),
	)
	if err != nil {
		return nil, fmt.Errorf("building tool registry: %w", err)
	}
	a.Registry = registry

	client, err := llm.NewClient(gc, llm.ClientConfig{
		ChatModel:         cfg.ChatModel,
		DocumentChatModel: cfg.DocumentChatModel,
		Temperature:       cfg.Temperature,
	}, registry.Specs(), logger)
	if err != nil {
		return nil, fmt.Errorf("creating completion client: %w", err)
	}
	a.LLM = client

	a.Orchestrator = bot.NewOrchestrator(client, registry, cfg.MaxRounds, logger)

	return a, nil
}

// WireSlack attaches the Slack adapter and event handler. Requires
// SLACK_BOT_TOKEN.
func (a *App) WireSlack() error {
	sc, err := slack.New(a.Config.SlackBotToken, a.Config.SlackAPIBase, a.Logger)
	if err != nil {
		return fmt.Errorf("creating slack client: %w", err)
	}
	a.Handler = bot.NewHandler(sc, sc, a.Orchestrator, a.Config.RunTimeout, a.Logger)
	return nil
}

// provideTracing installs an OTLP HTTP trace exporter when an endpoint is
// configured. Tracing failures never block startup; the bot works fine
// without a collector.
func provideTracing(ctx context.Context, cfg config.TracingConfig, logger *slog.Logger) func() {
	if cfg.Endpoint == "" {
		return func() {}
	}

	// The default resource reads these. Setenv is not concurrent-safe, but
	// this runs exactly once during startup before goroutines are spawned.
	if cfg.ServiceName != "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName)
	}
	if cfg.Environment != "" {
		_ = os.Setenv("OTEL_RESOURCE_ATTRIBUTES", "deployment.environment="+cfg.Environment)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.Endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	// One startup span verifies the export pipeline end to end.
	_, span := provider.Tracer("supportbot-init").Start(ctx, "supportbot.init")
	span.End()

	logger.Debug("tracing enabled",
		"endpoint", cfg.Endpoint,
		"service", cfg.ServiceName,
		"environment", cfg.Environment)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens the bounded connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %w", err)
	}

	poolCfg.MinConns = int32(cfg.PoolMinConns)
	poolCfg.MaxConns = int32(cfg.PoolMaxConns)
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}
