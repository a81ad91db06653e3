package app

import (
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	PostgresDSN string

	AdminUsername string
	AdminPassword string
	AdminToken    string

	KafkaBrokers []string

	LogLevel string

	OutboxPollInterval time.Duration
}

// DefaultConfig возвращает базовые значения для локального запуска.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		AdminUsername:      "admin",
		LogLevel:           "info",
		OutboxPollInterval: time.Second,
	}
}

// LoadConfig читает конфигурацию из .env (если есть) и переменных окружения.
// Пустой STOREFRONT_ADMIN_TOKEN означает одноразовый токен на время работы процесса.
func LoadConfig() Config {
	// .env нужен только для локальной разработки, его отсутствие не ошибка.
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if v := os.Getenv("STOREFRONT_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("STOREFRONT_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("STOREFRONT_POSTGRES_DSN"))
	if v := os.Getenv("STOREFRONT_ADMIN_USERNAME"); v != "" {
		cfg.AdminUsername = v
	}
	cfg.AdminPassword = os.Getenv("STOREFRONT_ADMIN_PASSWORD")
	cfg.AdminToken = os.Getenv("STOREFRONT_ADMIN_TOKEN")
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		for _, broker := range strings.Split(v, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
			}
		}
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("STOREFRONT_OUTBOX_POLL_INTERVAL"); v != "" {
		if interval, err := time.ParseDuration(v); err == nil && interval > 0 {
			cfg.OutboxPollInterval = interval
		}
	}
	return cfg
}

// ensureAdminToken гарантирует наличие bearer-токена для админских ручек.
func ensureAdminToken(cfg *Config, logger *log.Entry) {
	if cfg.AdminToken != "" {
		return
	}
	cfg.AdminToken = uuid.NewString()
	logger.WithField("token", cfg.AdminToken).Warn("STOREFRONT_ADMIN_TOKEN не задан, сгенерирован одноразовый токен")
}

// ParseLogLevel переводит строку уровня в logrus.Level, по умолчанию info.
func ParseLogLevel(raw string) log.Level {
	level, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return log.InfoLevel
	}
	return level
}
