// Package config provides application configuration with multi-source priority.
//
// Sources, highest to lowest:
//  1. Environment variables (secrets and runtime overrides)
//  2. Config file (config.yaml in the working directory or /etc/supportbot)
//  3. Defaults
//
// Error handling uses sentinel errors so callers and tests can match causes
// with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrMissingAPIKey indicates the Gemini API key is not set.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrMissingSlackToken indicates the Slack bot token is not set.
	ErrMissingSlackToken = errors.New("missing SLACK_BOT_TOKEN")

	// ErrInvalidTemperature indicates the sampling temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidDimension indicates the embedding dimension is not positive.
	ErrInvalidDimension = errors.New("invalid embedding dimension")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPoolBounds indicates the connection pool min/max are inconsistent.
	ErrInvalidPoolBounds = errors.New("invalid connection pool bounds")

	// ErrInvalidMaxRounds indicates the orchestration round ceiling is negative.
	ErrInvalidMaxRounds = errors.New("invalid max rounds")
)

// Defaults for the completion and embedding models.
const (
	// DefaultChatModel handles conversations without document attachments.
	DefaultChatModel = "gemini-2.5-flash"

	// DefaultDocumentChatModel handles conversations that carry document
	// blocks (PDF and office formats). Routed to per call, see llm.Client.
	DefaultDocumentChatModel = "gemini-2.5-pro"

	// DefaultEmbedderModel produces the knowledge-base embeddings.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbeddingDimension must match the vector(n) column in the
	// knowledgebase table. Changing it requires a migration.
	DefaultEmbeddingDimension = 1024

	// DefaultTemperature keeps replies determinism-leaning.
	DefaultTemperature = 0.1
)

// Config stores application configuration.
type Config struct {
	// Model configuration
	GeminiAPIKey      string  `mapstructure:"gemini_api_key"`
	ChatModel         string  `mapstructure:"chat_model"`
	DocumentChatModel string  `mapstructure:"document_chat_model"`
	Temperature       float32 `mapstructure:"temperature"`

	// Embedding configuration
	EmbedderModel      string `mapstructure:"embedder_model"`
	EmbeddingDimension int    `mapstructure:"embedding_dimension"`

	// Orchestration limits
	MaxRounds  int           `mapstructure:"max_rounds"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`
	PoolMinConns     int    `mapstructure:"pool_min_conns"`
	PoolMaxConns     int    `mapstructure:"pool_max_conns"`

	// Slack configuration
	SlackBotToken string `mapstructure:"slack_bot_token"`
	SlackAPIBase  string `mapstructure:"slack_api_base"`

	// HTTP server
	ListenAddr string `mapstructure:"listen_addr"`

	// Tool configuration
	SearchBaseURL    string        `mapstructure:"search_base_url"`
	SearchMaxResults int           `mapstructure:"search_max_results"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	FetchMaxBytes    int64         `mapstructure:"fetch_max_bytes"`

	// Tracing (optional; empty endpoint disables the exporter)
	Tracing TracingConfig `mapstructure:"tracing"`
}

// TracingConfig holds OTLP trace exporter settings.
type TracingConfig struct {
	// Endpoint is the OTLP HTTP collector address (host:port).
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
	Environment string `mapstructure:"environment"`
}

// Load reads configuration from defaults, config.yaml and the environment.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/supportbot")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("config file not found, using defaults")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("chat_model", DefaultChatModel)
	viper.SetDefault("document_chat_model", DefaultDocumentChatModel)
	viper.SetDefault("temperature", DefaultTemperature)

	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedding_dimension", DefaultEmbeddingDimension)

	viper.SetDefault("max_rounds", 8)
	viper.SetDefault("run_timeout", 5*time.Minute)

	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "supportbot")
	viper.SetDefault("postgres_db_name", "supportbot")
	viper.SetDefault("postgres_ssl_mode", "prefer")
	viper.SetDefault("pool_min_conns", 1)
	viper.SetDefault("pool_max_conns", 8)

	viper.SetDefault("slack_api_base", "https://slack.com")

	viper.SetDefault("listen_addr", "127.0.0.1:3000")

	viper.SetDefault("search_base_url", "https://html.duckduckgo.com/html")
	viper.SetDefault("search_max_results", 10)
	viper.SetDefault("fetch_timeout", 30*time.Second)
	viper.SetDefault("fetch_max_bytes", int64(10*1024*1024))

	viper.SetDefault("tracing.service_name", "supportbot")
	viper.SetDefault("tracing.environment", "dev")
}

// bindEnvVariables binds secrets and deploy-time overrides explicitly.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("gemini_api_key", "GEMINI_API_KEY")
	mustBind("slack_bot_token", "SLACK_BOT_TOKEN")

	mustBind("postgres_host", "DB_HOST")
	mustBind("postgres_port", "DB_PORT")
	mustBind("postgres_user", "DB_USER")
	mustBind("postgres_password", "DB_PASSWORD")
	mustBind("postgres_db_name", "DB_NAME")

	mustBind("listen_addr", "SUPPORTBOT_LISTEN_ADDR")
	mustBind("tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}
