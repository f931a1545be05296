package config

import "fmt"

// Validate performs fail-fast validation of the loaded configuration.
// Secrets are checked for presence only; their values are never logged.
func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (must be within [0, 2])", ErrInvalidTemperature, c.Temperature)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDimension, c.EmbeddingDimension)
	}

	if c.MaxRounds < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxRounds, c.MaxRounds)
	}

	if c.PostgresHost == "" {
		return ErrInvalidPostgresHost
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PoolMinConns < 0 || c.PoolMaxConns < 1 || c.PoolMinConns > c.PoolMaxConns {
		return fmt.Errorf("%w: min=%d max=%d", ErrInvalidPoolBounds, c.PoolMinConns, c.PoolMaxConns)
	}

	return nil
}

// ValidateServe adds the checks only the HTTP bot needs.
// The MCP server, for example, runs without Slack credentials.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.SlackBotToken == "" {
		return ErrMissingSlackToken
	}
	return nil
}
