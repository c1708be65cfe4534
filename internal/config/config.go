package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	BatchSize          int
	BatchFlushInterval time.Duration

	// Upstream almanac site.
	AlmanacBaseURL   string
	AlmanacTimeout   time.Duration
	AlmanacRateLimit float64
	UserAgent        string

	// Tibetan observance lookup.
	TibetanLookupEnabled bool
	TibetanBaseURL       string
	TibetanTimeout       time.Duration

	// Gemini commentary.
	GeminiAPIKey       string
	GeminiEnabled      bool
	GeminiModel        string
	GeminiTimeout      time.Duration
	GeminiTemperature  float32
	CommentaryCooldown time.Duration

	CacheBackend string
	CacheSize    int
	CachePath    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	almanacTimeout, err := parsePositiveDuration("ALMANAC_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	tibetanTimeout, err := parsePositiveDuration("TIBETAN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	geminiTimeout, err := parsePositiveDuration("GEMINI_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	cooldown, err := parsePositiveDuration("COMMENTARY_COOLDOWN", "45s")
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("ALMANAC_RATE_LIMIT", "2"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid ALMANAC_RATE_LIMIT")
	}

	temperature, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("GEMINI_TEMPERATURE", "0.7"), 32)
	if err != nil || temperature < 0 || temperature > 2 {
		return nil, errors.New("invalid GEMINI_TEMPERATURE")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("CACHE_SIZE", "1000"))
	if err != nil || cacheSize <= 0 {
		return nil, errors.New("invalid CACHE_SIZE")
	}

	geminiKey := os.Getenv("GEMINI_API_KEY")
	geminiEnabled := geminiKey != ""
	if v := os.Getenv("GEMINI_ENABLED"); v != "" {
		geminiEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled:     parseBool("KAFKA_ENABLED", true),
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "almanac-requests"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "almanac-advisories"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "almanac-etl"),

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		AlmanacBaseURL:   strings.TrimRight(sharedcfg.EnvOrDefault("ALMANAC_BASE_URL", "https://www.goodaytw.com"), "/"),
		AlmanacTimeout:   almanacTimeout,
		AlmanacRateLimit: rateLimit,
		UserAgent:        sharedcfg.EnvOrDefault("ALMANAC_USER_AGENT", defaultUserAgent),

		TibetanLookupEnabled: parseBool("TIBETAN_LOOKUP_ENABLED", false),
		TibetanBaseURL:       strings.TrimRight(sharedcfg.EnvOrDefault("TIBETAN_BASE_URL", "https://zangli.pro/calendar"), "/"),
		TibetanTimeout:       tibetanTimeout,

		GeminiAPIKey:       geminiKey,
		GeminiEnabled:      geminiEnabled,
		GeminiModel:        sharedcfg.EnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout:      geminiTimeout,
		GeminiTemperature:  float32(temperature),
		CommentaryCooldown: cooldown,

		CacheBackend: sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory),
		CacheSize:    cacheSize,
		CachePath:    sharedcfg.EnvOrDefault("CACHE_PATH", "data/cache"),
	}

	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	}
	if cfg.AlmanacBaseURL == "" {
		return nil, errors.New("ALMANAC_BASE_URL is required")
	}
	if cfg.GeminiEnabled && cfg.GeminiAPIKey == "" {
		return nil, errors.New("GEMINI_ENABLED is true but GEMINI_API_KEY is not set")
	}
	switch cfg.CacheBackend {
	case CacheMemory:
	case CacheBadger:
		if cfg.CachePath == "" {
			return nil, errors.New("CACHE_PATH is required for the badger cache backend")
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.CacheBackend)
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true"
	}
	return def
}
