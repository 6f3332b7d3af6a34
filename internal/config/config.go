package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration for the narrative pipeline.
type Config struct {
	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	QueueKey        string
	ProcessingKey   string
	MockSettingsKey string

	DatabaseDriver string
	DatabaseURL    string

	CronSecret string

	WorkerTimeBudget time.Duration
	StaleAfter       time.Duration

	NewsCount      int
	YahooSearchURL string
	YahooRSSURL    string

	TwelveDataAPIKey      string
	TwelveDataBaseURL     string
	TwelveDataMinInterval time.Duration
	QuoteBatchSize        int

	GeminiAPIKey string
	LLMModel     string

	KafkaBrokers     []string
	KafkaEventsTopic string
	KafkaGroupID     string

	UniverseFile string
	Universe     Universe

	SchedulerEnabled bool
	SeedInterval     time.Duration
	WorkInterval     time.Duration
	SyncInterval     time.Duration
}

// envOrDefault returns the value of an env var or a default.
func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

func envBoolOrDefault(key string, def bool) (bool, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}

	return def, nil
}

// envCSVOrDefault splits a comma separated env var. Empty entries are dropped,
// so an unset var with an empty default yields a nil slice.
func envCSVOrDefault(key, def string) []string {
	raw := envOrDefault(key, def)
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// LoadConfig loads configuration from environment variables and, when
// UNIVERSE_FILE is set, the symbol universe from a YAML file.
func LoadConfig() (Config, error) {
	var err error
	cfg := Config{
		HTTPAddr: envOrDefault("HTTP_ADDR", ":8080"),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		QueueKey:        envOrDefault("QUEUE_KEY", "narrative:queue"),
		ProcessingKey:   envOrDefault("PROCESSING_KEY", "narrative:processing"),
		MockSettingsKey: envOrDefault("MOCK_SETTINGS_KEY", "narrative:mock_settings"),

		DatabaseDriver: envOrDefault("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    envOrDefault("DATABASE_URL", "postgres://localhost:5432/narrative?sslmode=disable"),

		CronSecret: os.Getenv("CRON_SECRET"),

		YahooSearchURL: envOrDefault("YAHOO_SEARCH_URL", "https://query2.finance.yahoo.com/v1/finance/search"),
		YahooRSSURL:    envOrDefault("YAHOO_RSS_URL", "https://feeds.finance.yahoo.com/rss/2.0/headline"),

		TwelveDataAPIKey:  os.Getenv("TWELVEDATA_API_KEY"),
		TwelveDataBaseURL: envOrDefault("TWELVEDATA_BASE_URL", "https://api.twelvedata.com"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		LLMModel:     envOrDefault("LLM_MODEL", "gemini-2.5-flash"),

		KafkaBrokers:     envCSVOrDefault("KAFKA_BROKERS", ""),
		KafkaEventsTopic: envOrDefault("KAFKA_TOPIC_EVENTS", "narrative_events"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "narrative-events-tail"),

		UniverseFile: os.Getenv("UNIVERSE_FILE"),
	}

	if cfg.RedisDB, err = envIntOrDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.NewsCount, err = envIntOrDefault("NEWS_COUNT", 5); err != nil {
		return Config{}, err
	}
	if cfg.QuoteBatchSize, err = envIntOrDefault("QUOTE_BATCH_SIZE", 8); err != nil {
		return Config{}, err
	}
	if cfg.WorkerTimeBudget, err = envDurationOrDefault("WORKER_TIME_BUDGET", 50*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.StaleAfter, err = envDurationOrDefault("STALE_AFTER", 25*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.TwelveDataMinInterval, err = envDurationOrDefault("TWELVEDATA_MIN_INTERVAL", 8*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SchedulerEnabled, err = envBoolOrDefault("SCHEDULER_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedInterval, err = envDurationOrDefault("SEED_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.WorkInterval, err = envDurationOrDefault("WORK_INTERVAL", time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.SyncInterval, err = envDurationOrDefault("SYNC_INTERVAL", 24*time.Hour); err != nil {
		return Config{}, err
	}

	if cfg.QuoteBatchSize <= 0 {
		return Config{}, fmt.Errorf("invalid QUOTE_BATCH_SIZE: must be positive, got %d", cfg.QuoteBatchSize)
	}

	cfg.Universe = DefaultUniverse()
	if cfg.UniverseFile != "" {
		u, err := LoadUniverse(cfg.UniverseFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Universe = u
	}

	return cfg, nil
}
