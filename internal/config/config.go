package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Пул соединений PostgreSQL
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"30m"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`
	// Воркеры подбора держат BRPOP, поэтому пул должен быть больше MATCH_WORKERS
	RedisPoolSize int `env:"REDIS_POOL_SIZE" envDefault:"10"`

	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Webhook Config (эскалации для служб)
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// Notification transport Config
	NotifyURL     string        `env:"NOTIFY_URL"`
	NotifyTimeout time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`

	// Matcher Config
	MatchTopK       int           `env:"MATCH_TOP_K" envDefault:"5"`
	MatchBackoff    time.Duration `env:"MATCH_BACKOFF" envDefault:"60s"`
	MatchMaxRetries int           `env:"MATCH_MAX_RETRIES" envDefault:"3"`
	MatchWorkers    int           `env:"MATCH_WORKERS" envDefault:"4"`
	// Сверка возвращает в очередь записи, чей подбор просрочен на MATCH_SWEEP_GRACE
	MatchSweepInterval time.Duration `env:"MATCH_SWEEP_INTERVAL" envDefault:"1m"`
	MatchSweepGrace    time.Duration `env:"MATCH_SWEEP_GRACE" envDefault:"2m"`

	// Panic alert Config
	AlertMaxResponders int           `env:"ALERT_MAX_RESPONDERS" envDefault:"3"`
	AlertTTL           time.Duration `env:"ALERT_TTL" envDefault:"0"`

	// Rate limit для подачи отчетов
	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"10"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		StoreDriver:        getEnv("STORE_DRIVER", StoreDriverPostgres),
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		DBMaxConns:         int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		DBMaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:          os.Getenv("REDIS_PASSWORD"),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		RedisPoolSize:      getEnvAsInt("REDIS_POOL_SIZE", 10),
		CacheTTL:           getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		WebhookURL:         os.Getenv("WEBHOOK_URL"),
		WebhookSecret:      os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:     getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:  getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:   getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		NotifyURL:          os.Getenv("NOTIFY_URL"),
		NotifyTimeout:      getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		MatchTopK:          getEnvAsInt("MATCH_TOP_K", 5),
		MatchBackoff:       getEnvAsDuration("MATCH_BACKOFF", 60*time.Second),
		MatchMaxRetries:    getEnvAsInt("MATCH_MAX_RETRIES", 3),
		MatchWorkers:       getEnvAsInt("MATCH_WORKERS", 4),
		MatchSweepInterval: getEnvAsDuration("MATCH_SWEEP_INTERVAL", time.Minute),
		MatchSweepGrace:    getEnvAsDuration("MATCH_SWEEP_GRACE", 2*time.Minute),
		AlertMaxResponders: getEnvAsInt("ALERT_MAX_RESPONDERS", 3),
		AlertTTL:           getEnvAsDuration("ALERT_TTL", 0),
		RateLimitRPS:       getEnvAsInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		cfg.APIKeys = strings.Split(apiKeysStr, ",")
		for i, key := range cfg.APIKeys {
			cfg.APIKeys[i] = strings.TrimSpace(key)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate проверяет обязательные поля и исправляет некорректные значения
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.MatchTopK <= 0 {
		c.MatchTopK = 5
	}
	if c.MatchWorkers <= 0 {
		c.MatchWorkers = 1
	}
	if c.MatchBackoff <= 0 {
		c.MatchBackoff = 60 * time.Second
	}
	if c.MatchMaxRetries < 0 {
		c.MatchMaxRetries = 0
	}
	// Отрицательный интервал отключает сверку
	if c.MatchSweepInterval < 0 {
		c.MatchSweepInterval = 0
	}
	if c.MatchSweepGrace <= 0 {
		c.MatchSweepGrace = 2 * time.Minute
	}
	// Каждый воркер подбора занимает соединение на BRPOP, плюс воркер вебхуков и запросы кеша
	if c.RedisPoolSize < c.MatchWorkers+2 {
		c.RedisPoolSize = c.MatchWorkers + 2
	}
	if c.DBMaxConns <= 0 {
		c.DBMaxConns = 10
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 10 * time.Second
	}
	if c.AlertMaxResponders <= 0 {
		c.AlertMaxResponders = 1
	}
	if c.WebhookMaxRetries <= 0 {
		c.WebhookMaxRetries = 1
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
