package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Application
	LogLevel string
	HTTPPort string

	// Market data feed
	FeedWSURL               string
	WSDialTimeout           time.Duration
	WSPongTimeout           time.Duration
	WSPingInterval          time.Duration
	WSReconnectInitialDelay time.Duration
	WSReconnectMaxDelay     time.Duration
	WSReconnectBackoffMult  float64
	WSMessageBufferSize     int

	// Price cache
	PriceCacheMaxItems int64
	PriceCacheTTL      time.Duration

	// Arbitrage detection
	ArbFeeCents        int
	ArbMinTradeSize    float64
	ArbMaxTradeSize    float64
	ValidatorMaxStale  time.Duration
	OpportunityBufSize int

	// Circuit breaker
	BreakerMaxPositionPerMarket float64
	BreakerMaxTotalPosition     float64
	BreakerMaxDailyLoss         float64
	BreakerMaxLossPerTrade      float64
	BreakerMaxConsecutiveErrors int
	BreakerErrorCooldown        time.Duration

	// Execution
	ExecutionMode            string
	ExecutionLiquidityFactor float64
	ExecutionGasBufferCents  int

	// Storage
	StorageMode  string // "postgres" or "console"
	PostgresHost string
	PostgresPort string
	PostgresUser string
	PostgresPass string
	PostgresDB   string
	PostgresSSL  string
}

// LoadFromEnv loads configuration from environment variables with defaults.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		// Application defaults
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),

		// Feed defaults
		FeedWSURL:               getEnvOrDefault("FEED_WS_URL", "wss://feed.example.com/ws/markets"),
		WSDialTimeout:           getDurationOrDefault("WS_DIAL_TIMEOUT", 10*time.Second),
		WSPongTimeout:           getDurationOrDefault("WS_PONG_TIMEOUT", 15*time.Second),
		WSPingInterval:          getDurationOrDefault("WS_PING_INTERVAL", 10*time.Second),
		WSReconnectInitialDelay: getDurationOrDefault("WS_RECONNECT_INITIAL_DELAY", 1*time.Second),
		WSReconnectMaxDelay:     getDurationOrDefault("WS_RECONNECT_MAX_DELAY", 30*time.Second),
		WSReconnectBackoffMult:  getFloat64OrDefault("WS_RECONNECT_BACKOFF_MULTIPLIER", 2.0),
		WSMessageBufferSize:     getIntOrDefault("WS_MESSAGE_BUFFER_SIZE", 1000),

		// Price cache defaults
		PriceCacheMaxItems: int64(getIntOrDefault("PRICE_CACHE_MAX_ITEMS", 100000)),
		PriceCacheTTL:      getDurationOrDefault("PRICE_CACHE_TTL", 5*time.Minute),

		// Arbitrage defaults
		ArbFeeCents:        getIntOrDefault("ARB_FEE_CENTS", 2),
		ArbMinTradeSize:    getFloat64OrDefault("ARB_MIN_TRADE_SIZE", 10.0),
		ArbMaxTradeSize:    getFloat64OrDefault("ARB_MAX_TRADE_SIZE", 10000.0),
		ValidatorMaxStale:  getDurationOrDefault("VALIDATOR_MAX_STALE", 1*time.Second),
		OpportunityBufSize: getIntOrDefault("OPPORTUNITY_BUFFER_SIZE", 256),

		// Circuit breaker defaults
		BreakerMaxPositionPerMarket: getFloat64OrDefault("BREAKER_MAX_POSITION_PER_MARKET", 50000.0),
		BreakerMaxTotalPosition:     getFloat64OrDefault("BREAKER_MAX_TOTAL_POSITION", 100000.0),
		BreakerMaxDailyLoss:         getFloat64OrDefault("BREAKER_MAX_DAILY_LOSS", 500.0),
		BreakerMaxLossPerTrade:      getFloat64OrDefault("BREAKER_MAX_LOSS_PER_TRADE", 5.0),
		BreakerMaxConsecutiveErrors: getIntOrDefault("BREAKER_MAX_CONSECUTIVE_ERRORS", 5),
		BreakerErrorCooldown:        getDurationOrDefault("BREAKER_ERROR_COOLDOWN", 60*time.Second),

		// Execution defaults
		ExecutionMode:            getEnvOrDefault("EXECUTION_MODE", "paper"),
		ExecutionLiquidityFactor: getFloat64OrDefault("EXECUTION_LIQUIDITY_FACTOR", 0.5),
		ExecutionGasBufferCents:  getIntOrDefault("EXECUTION_GAS_BUFFER_CENTS", 3),

		// Storage defaults
		StorageMode:  getEnvOrDefault("STORAGE_MODE", "console"),
		PostgresHost: getEnvOrDefault("POSTGRES_HOST", "localhost"),
		PostgresPort: getEnvOrDefault("POSTGRES_PORT", "5432"),
		PostgresUser: getEnvOrDefault("POSTGRES_USER", "arb"),
		PostgresPass: getEnvOrDefault("POSTGRES_PASSWORD", "arb123"),
		PostgresDB:   getEnvOrDefault("POSTGRES_DB", "prediction_arb"),
		PostgresSSL:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
	}

	err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are valid.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT cannot be empty")
	}

	if c.FeedWSURL == "" {
		return fmt.Errorf("FEED_WS_URL cannot be empty")
	}

	if c.ArbFeeCents < 0 || c.ArbFeeCents >= 100 {
		return fmt.Errorf("ARB_FEE_CENTS must be in [0, 100), got %d", c.ArbFeeCents)
	}

	if c.ArbMinTradeSize <= 0 || c.ArbMaxTradeSize < c.ArbMinTradeSize {
		return fmt.Errorf("trade size bounds invalid: min=%f max=%f", c.ArbMinTradeSize, c.ArbMaxTradeSize)
	}

	if c.ExecutionLiquidityFactor <= 0 || c.ExecutionLiquidityFactor > 1 {
		return fmt.Errorf("EXECUTION_LIQUIDITY_FACTOR must be in (0, 1], got %f", c.ExecutionLiquidityFactor)
	}

	if c.ExecutionMode != "paper" {
		return fmt.Errorf("EXECUTION_MODE must be 'paper', got %q", c.ExecutionMode)
	}

	if c.StorageMode != "postgres" && c.StorageMode != "console" {
		return fmt.Errorf("STORAGE_MODE must be 'postgres' or 'console', got %q", c.StorageMode)
	}

	return nil
}

func getEnvOrDefault(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}

	return floatVal
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}

	return duration
}
