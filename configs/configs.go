// Package configs provides application configuration loaded from
// environment variables. All configuration is externalized for 12-factor
// app compliance; a .env file is honored for local development.
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Pair is one configured (y, x) instrument pair.
type Pair struct {
	Y string
	X string
}

// Key is the pair identifier used in topics, cache rows and URLs.
func (p Pair) Key() string { return p.Y + "_" + p.X }

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DBDSN is the ClickHouse connection string.
	DBDSN string

	// KafkaBroker is the bus broker address (e.g., "localhost:9092").
	KafkaBroker string

	// TopicPrefix is the per-pair live-update topic prefix.
	TopicPrefix string

	// Symbols are the instruments to collect and aggregate.
	Symbols []string

	// Pairs are the instrument pairs to analyze and publish.
	Pairs []Pair

	// Feed contains upstream trade feed settings.
	Feed FeedConfig

	// Writer contains tick batching settings.
	Writer WriterConfig

	// Aggregator contains candle aggregation settings.
	Aggregator AggregatorConfig

	// RollingWindow is the analytics sliding-window size in candles.
	RollingWindow int

	// PublishInterval is the snapshot publish cadence.
	PublishInterval time.Duration

	// Gateway contains fan-out server settings.
	Gateway GatewayConfig
}

// FeedConfig holds upstream feed connection settings.
type FeedConfig struct {
	// WSURL is the feed endpoint without the stream suffix.
	WSURL string

	// ReconnectDelay is the fixed wait between reconnect attempts.
	ReconnectDelay time.Duration
}

// WriterConfig holds tick write batching settings.
type WriterConfig struct {
	// BatchSize is the maximum number of ticks to accumulate before flushing.
	BatchSize int

	// BatchTimeout is the maximum time to wait before flushing.
	BatchTimeout time.Duration
}

// AggregatorConfig holds candle aggregation settings.
type AggregatorConfig struct {
	// Interval is the tumbling-window candle length.
	Interval time.Duration

	// Lookback is how far back each aggregation cycle re-reads ticks.
	Lookback time.Duration
}

// GatewayConfig holds fan-out server settings.
type GatewayConfig struct {
	// Port is the HTTP listen port.
	Port string

	// RateLimitRPS caps REST requests per second.
	RateLimitRPS float64
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "user")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "password")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "pairstream")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// parsePairs parses "btcusdt:ethusdt,linkusdt:ethusdt" into pairs.
func parsePairs(raw string) []Pair {
	var pairs []Pair
	for _, part := range strings.Split(raw, ",") {
		y, x, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		y = strings.ToLower(strings.TrimSpace(y))
		x = strings.ToLower(strings.TrimSpace(x))
		if y == "" || x == "" {
			continue
		}
		pairs = append(pairs, Pair{Y: y, X: x})
	}
	return pairs
}

// parseSymbols parses a comma-separated symbol list, lower-cased.
func parseSymbols(raw string) []string {
	var symbols []string
	for _, part := range strings.Split(raw, ",") {
		s := strings.ToLower(strings.TrimSpace(part))
		if s != "" {
			symbols = append(symbols, s)
		}
	}
	return symbols
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		DBDSN:       getDatabaseDSN(),
		KafkaBroker: getEnv("KAFKA_BROKER", "localhost:9092"),
		TopicPrefix: getEnv("TOPIC_PREFIX", "live_updates"),
		Symbols:     parseSymbols(getEnv("SYMBOLS", "btcusdt,ethusdt")),
		Pairs:       parsePairs(getEnv("PAIRS", "btcusdt:ethusdt")),
		Feed: FeedConfig{
			WSURL:          getEnv("FEED_WS_URL", "wss://fstream.binance.com/ws"),
			ReconnectDelay: time.Duration(getEnvInt("RECONNECT_SECONDS", 5)) * time.Second,
		},
		Writer: WriterConfig{
			BatchSize:    getEnvInt("BATCH_SIZE", 200),
			BatchTimeout: time.Duration(getEnvInt("BATCH_TIMEOUT_SECONDS", 2)) * time.Second,
		},
		Aggregator: AggregatorConfig{
			Interval: time.Duration(getEnvInt("CANDLE_INTERVAL_SECONDS", 60)) * time.Second,
			Lookback: time.Duration(getEnvInt("LOOKBACK_MINUTES", 60)) * time.Minute,
		},
		RollingWindow:   getEnvInt("ROLLING_WINDOW", 60),
		PublishInterval: time.Duration(getEnvInt("PUBLISH_INTERVAL_MS", 1000)) * time.Millisecond,
		Gateway: GatewayConfig{
			Port:         getEnv("GATEWAY_PORT", "8000"),
			RateLimitRPS: float64(getEnvInt("RATE_LIMIT_RPS", 20)),
		},
	}
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
