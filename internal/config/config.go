package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Shortener ShortenerConfig
	Blocklist BlocklistConfig
	Retention RetentionConfig
	Kafka     KafkaConfig
	OTel      OTelConfig
}

type AppConfig struct {
	Name     string
	Version  string
	Env      string
	LogLevel string
}

type ServerConfig struct {
	Port string
	Host string
}

type MongoDBConfig struct {
	URI      string
	Database string
}

type ShortenerConfig struct {
	BaseURL        string
	CodeLength     int
	RedirectStatus int // 301 or 302
}

type BlocklistConfig struct {
	// FailClosed rejects requests when the block list lookup itself fails.
	// The default is fail-open to preserve availability.
	FailClosed bool
}

type RetentionConfig struct {
	// Cutoff is the instant before which link records are purged.
	Cutoff time.Time
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type OTelConfig struct {
	Enabled  bool
	Endpoint string
}

// DefaultRetentionCutoff matches the cutoff the service has always shipped
// with; override via RETENTION_CUTOFF (RFC3339).
var DefaultRetentionCutoff = time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}

	cutoff := DefaultRetentionCutoff
	if raw := GetEnv("RETENTION_CUTOFF", ""); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("RETENTION_CUTOFF must be RFC3339 (got %q): %w", raw, err)
		}
		cutoff = parsed.UTC()
	}

	cfg := &Config{
		App: AppConfig{
			Name:     GetEnv("APP_NAME", "shortlink"),
			Version:  GetEnv("APP_VERSION", "0.1.0"),
			Env:      GetEnv("APP_ENV", "development"),
			LogLevel: GetEnv("LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: GetEnv("APP_PORT", "8080"),
			Host: GetEnv("APP_HOST", "localhost"),
		},
		MongoDB: MongoDBConfig{
			URI:      GetEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database: GetEnv("MONGODB_DATABASE", "shortlink"),
		},
		Shortener: ShortenerConfig{
			BaseURL:        GetEnv("SHORTENER_BASE_URL", "https://aides.bz"),
			CodeLength:     GetEnvInt("CODE_LENGTH", 5),
			RedirectStatus: GetEnvInt("REDIRECT_STATUS", 302),
		},
		Blocklist: BlocklistConfig{
			FailClosed: GetEnvBool("BLOCKLIST_FAIL_CLOSED", false),
		},
		Retention: RetentionConfig{
			Cutoff: cutoff,
		},
		Kafka: KafkaConfig{
			Enabled: GetEnvBool("KAFKA_ENABLED", false),
			Brokers: SplitCSV(GetEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   GetEnv("KAFKA_CLICKS_TOPIC", "shortlink.clicks"),
			GroupID: GetEnv("KAFKA_GROUP_ID", "shortlink-click-consumer"),
		},
		OTel: OTelConfig{
			Enabled:  GetEnvBool("OTEL_ENABLED", false),
			Endpoint: GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://localhost:4318"),
		},
	}

	if cfg.Shortener.RedirectStatus != 301 && cfg.Shortener.RedirectStatus != 302 {
		return nil, fmt.Errorf("REDIRECT_STATUS must be 301 or 302 (got %d)", cfg.Shortener.RedirectStatus)
	}
	if cfg.Shortener.CodeLength < 4 || cfg.Shortener.CodeLength > 32 {
		return nil, fmt.Errorf("CODE_LENGTH must be between 4 and 32 (got %d)", cfg.Shortener.CodeLength)
	}

	return cfg, nil
}
