package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Port          string
	Environment   string
	APIKey        string
	AdminUsername string
	AdminPassword string
	CORSOrigins   []string
	LogLevel      string
	Timezone      string

	// Storage
	StorageDSN string

	// Simulated latencies
	ChatReplyDelay time.Duration
	AuthDelay      time.Duration
	SensorInterval time.Duration
	SensorSeed     int64

	// Optional integrations (empty disables them)
	NATSURL            string
	NATSSubjectSensors string
	QdrantURL          string
	QdrantAPIKey       string
	QdrantCollection   string
}

// LoadConfig loads configuration from environment variables.
// When AGRINOVA_CONFIG_FILE points at a YAML file, its values are used as the
// defaults and the environment still wins. A file that cannot be loaded is
// logged and the built-in defaults are used.
func LoadConfig() *Config {
	cfg, err := Load()
	if err != nil {
		log.Printf("Warning: %v (using built-in defaults)", err)
	}
	return cfg
}

// Load は LoadConfig と同じ設定を返します。AGRINOVA_CONFIG_FILE の読み込みに
// 失敗した場合は既定値の設定とともにエラーを返します。
func Load() (*Config, error) {
	defaults := DefaultFileConfig()
	var fileErr error
	if path := os.Getenv("AGRINOVA_CONFIG_FILE"); path != "" {
		fc, err := LoadFileConfig(path)
		if err != nil {
			fileErr = fmt.Errorf("AGRINOVA_CONFIG_FILE %s: %w", path, err)
		} else {
			defaults = fc
		}
	}

	return fromEnv(defaults), fileErr
}

// fromEnv は環境変数を優先し、未設定の項目を defaults で補います。
func fromEnv(defaults *FileConfig) *Config {
	return &Config{
		Port:               getEnv("PORT", defaults.Server.Port),
		Environment:        getEnv("ENVIRONMENT", defaults.Server.Environment),
		APIKey:             getEnv("API_KEY", ""),
		AdminUsername:      getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", strings.Join(defaults.Server.CORSOrigins, ","))),
		LogLevel:           getEnv("LOG_LEVEL", defaults.Server.LogLevel),
		Timezone:           getEnv("TIMEZONE", defaults.Server.Timezone),
		StorageDSN:         getEnv("STORAGE_DSN", defaults.Storage.DSN),
		ChatReplyDelay:     getDuration("CHAT_REPLY_DELAY", defaults.Timings.ChatReplyDelay),
		AuthDelay:          getDuration("AUTH_DELAY", defaults.Timings.AuthDelay),
		SensorInterval:     getDuration("SENSOR_INTERVAL", defaults.Timings.SensorInterval),
		SensorSeed:         getInt64("SENSOR_SEED", 0),
		NATSURL:            getEnv("NATS_URL", defaults.NATS.URL),
		NATSSubjectSensors: getEnv("NATS_SUBJECT_SENSORS", defaults.NATS.SubjectSensors),
		QdrantURL:          getEnv("QDRANT_URL", defaults.Qdrant.URL),
		QdrantAPIKey:       getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", defaults.Qdrant.Collection),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration parses a Go duration ("1s", "500ms"); invalid values fall back to the default.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
