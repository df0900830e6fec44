package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Service configuration constants
const (
	ServiceName    = "stockguard"
	ServiceVersion = "0.1.0"
)

// Kafka configuration constants
const (
	CheckoutRequestedTopic = "CheckoutRequested"
	StockCheckedTopic      = "StockChecked"
	GroupID                = "stockguard-group"
	BatchTimeout           = 10 * time.Millisecond
	BatchSize              = 100
)

// OpenTelemetry configuration constants
const (
	LogsPath       = "/otlp/v1/logs"
	TracesPath     = "/otlp/v1/traces"
	MetricsPath    = "/otlp/v1/metrics"
	ExportTimeout  = 30 * time.Second
	MaxQueueSize   = 2048
	MetricInterval = 15 * time.Second
)

// Inventory lookup defaults
const (
	DefaultLookupTimeout = 5 * time.Second
)

// HTTP server constants
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 30 * time.Second
	ShutdownTimeout = 10 * time.Second
)

// Channel identifies which host flow triggered a check.
type Channel string

const (
	ChannelPOS   Channel = "pos"
	ChannelSales Channel = "sales"
)

// Config holds environment-specific configuration
type Config struct {
	KafkaBroker    string
	OtelEndpoint   string
	OtelAuthHeader string
	HTTPAddr       string
	CORSOrigins    []string

	InventoryURL      string
	InventoryDB       string
	InventoryUID      int64
	InventoryPassword string
	LookupTimeout     time.Duration
	MaxConcurrency    int

	PreventPOS            bool
	PreventSales          bool
	StockLocationID       string
	PickingTypeLocationID string
}

// LoadConfig loads configuration from environment variables with sensible defaults
func LoadConfig() (*Config, error) {
	config := &Config{
		KafkaBroker:           getEnvOrDefault("KAFKA_BROKER", "localhost:9092"),
		OtelEndpoint:          getEnvOrDefault("OTEL_ENDPOINT", "localhost:4318"),
		OtelAuthHeader:        os.Getenv("OTEL_AUTH_HEADER"),
		HTTPAddr:              getEnvOrDefault("HTTP_ADDR", ":8080"),
		CORSOrigins:           splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		InventoryURL:          os.Getenv("INVENTORY_URL"),
		InventoryDB:           os.Getenv("INVENTORY_DB"),
		InventoryPassword:     os.Getenv("INVENTORY_PASSWORD"),
		StockLocationID:       os.Getenv("STOCK_LOCATION_ID"),
		PickingTypeLocationID: os.Getenv("PICKING_TYPE_LOCATION_ID"),
	}

	var err error
	if config.InventoryUID, err = parseInt64("INVENTORY_UID", 0); err != nil {
		return nil, err
	}
	if config.LookupTimeout, err = parseDuration("INVENTORY_LOOKUP_TIMEOUT", DefaultLookupTimeout); err != nil {
		return nil, err
	}
	maxConcurrency, err := parseInt64("INVENTORY_MAX_CONCURRENCY", 0)
	if err != nil {
		return nil, err
	}
	config.MaxConcurrency = int(maxConcurrency)
	if config.PreventPOS, err = parseBool("PREVENT_NEGATIVE_STOCK_POS", true); err != nil {
		return nil, err
	}
	if config.PreventSales, err = parseBool("PREVENT_NEGATIVE_STOCK_SALES", true); err != nil {
		return nil, err
	}

	// Basic validation
	if config.KafkaBroker == "" {
		return nil, fmt.Errorf("KAFKA_BROKER cannot be empty")
	}
	if config.InventoryURL == "" {
		return nil, fmt.Errorf("INVENTORY_URL environment variable is required")
	}
	if config.LookupTimeout <= 0 {
		return nil, fmt.Errorf("INVENTORY_LOOKUP_TIMEOUT must be positive, got %s", config.LookupTimeout)
	}
	if config.MaxConcurrency < 0 {
		return nil, fmt.Errorf("INVENTORY_MAX_CONCURRENCY cannot be negative, got %d", config.MaxConcurrency)
	}

	return config, nil
}

// Enabled reports whether stock checks are switched on for the channel.
// Unknown channels follow the POS flag.
func (c *Config) Enabled(channel Channel) bool {
	switch channel {
	case ChannelSales:
		return c.PreventSales
	default:
		return c.PreventPOS
	}
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func parseInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
