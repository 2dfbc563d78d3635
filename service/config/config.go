package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"

	"github.com/brojonat/salesbot/service/logging"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Watched project
	ProjectAddress solana.PublicKey
	DiscordURL     string

	// Solana configuration
	SolanaRPCURLs  []string
	SignatureLimit int

	// Environment and logging
	AppEnv   string
	LogLevel string

	// Polling configuration
	PollInterval    time.Duration
	FetchRetryDelay time.Duration
	HTTPTimeout     time.Duration

	// Optional sinks and endpoints; empty disables them
	MetricsAddr string
	NATSURL     string
	DatabaseURL string
}

// Load reads configuration from environment variables and validates all required fields.
// A .env file in the working directory is loaded first if present; it never
// overrides variables already set.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []error

	// Watched project
	address := strings.TrimSpace(os.Getenv("PROJECT_ADDRESS"))
	if address == "" {
		errs = append(errs, fmt.Errorf("PROJECT_ADDRESS is required"))
	} else {
		pk, err := solana.PublicKeyFromBase58(address)
		if err != nil {
			errs = append(errs, fmt.Errorf("PROJECT_ADDRESS: invalid public key %q: %w", address, err))
		} else {
			cfg.ProjectAddress = pk
		}
	}

	cfg.DiscordURL = strings.TrimSpace(os.Getenv("DISCORD_URL"))
	if cfg.DiscordURL == "" {
		errs = append(errs, fmt.Errorf("DISCORD_URL is required"))
	}

	// Solana configuration
	cfg.SolanaRPCURLs = splitList(getEnvOrDefault("SOLANA_RPC_URL", rpc.MainNetBeta_RPC))
	if len(cfg.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL must contain at least one endpoint"))
	}

	limit, err := parseInt("SIGNATURE_LIMIT", 0)
	if err != nil {
		errs = append(errs, err)
	} else if limit < 0 || limit > 1000 {
		errs = append(errs, fmt.Errorf("SIGNATURE_LIMIT must be between 0 and 1000, got %d", limit))
	} else {
		cfg.SignatureLimit = limit
	}

	// Environment and logging
	cfg.AppEnv = getEnvOrDefault("APP_ENV", logging.EnvDevelopment)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel != "" {
		if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
			errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
		}
	}

	// Polling configuration
	pollInterval, err := parseDuration("POLL_INTERVAL", "2s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.PollInterval = pollInterval
	}

	retryDelay, err := parseDuration("FETCH_RETRY_DELAY", "0s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.FetchRetryDelay = retryDelay
	}

	httpTimeout, err := parseDuration("HTTP_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.HTTPTimeout = httpTimeout
	}

	// Optional
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.ProjectAddress.IsZero() {
		errs = append(errs, fmt.Errorf("ProjectAddress is required"))
	}

	if c.DiscordURL == "" {
		errs = append(errs, fmt.Errorf("DiscordURL is required"))
	}

	if len(c.SolanaRPCURLs) == 0 {
		errs = append(errs, fmt.Errorf("SolanaRPCURLs is required"))
	}

	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("PollInterval must be positive"))
	}

	if c.FetchRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("FetchRetryDelay cannot be negative"))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, fmt.Errorf("HTTPTimeout must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// IsProduction reports whether APP_ENV selects the production logger.
func (c *Config) IsProduction() bool {
	return c.AppEnv == logging.EnvProduction
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// splitList splits a comma separated value, dropping blanks.
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
