package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "TPOINTS_"

type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска сервиса. Все поля читаются из окружения с префиксом TPOINTS_.
type Config struct {
	HTTPAddr    string `env:"HTTP_ADDR"`
	GRPCAddr    string `env:"GRPC_ADDR"`
	MetricsAddr string `env:"METRICS_ADDR"`
	LogFormat   string `env:"LOG_FORMAT"`
	LogLevel    string `env:"LOG_LEVEL"`

	StorageDriver       StorageDriver `env:"STORAGE_DRIVER"`
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	PostgresAutoMigrate bool          `env:"POSTGRES_AUTO_MIGRATE"`
	LockTimeout         time.Duration `env:"LOCK_TIMEOUT"`

	KafkaBrokers     []string      `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic       string        `env:"KAFKA_TOPIC"`
	KafkaClientID    string        `env:"KAFKA_CLIENT_ID"`
	BreakerFailures  int           `env:"DELIVERY_BREAKER_FAILURES"`
	BreakerResetTime time.Duration `env:"DELIVERY_BREAKER_RESET"`

	RedisURL       string        `env:"REDIS_URL"`
	RedisKeyPrefix string        `env:"REDIS_KEY_PREFIX"`
	MarkerTTL      time.Duration `env:"SCHEDULER_MARKER_TTL"`

	SchedulerEnabled       bool          `env:"SCHEDULER_ENABLED"`
	SchedulerInterval      time.Duration `env:"SCHEDULER_INTERVAL"`
	SchedulerRetryInterval time.Duration `env:"SCHEDULER_RETRY_INTERVAL"`
	Timezone               string        `env:"TIMEZONE"`
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:               ":8080",
		GRPCAddr:               ":50051",
		MetricsAddr:            ":9090",
		LogFormat:              "text",
		LogLevel:               "info",
		StorageDriver:          StorageDriverMemory,
		PostgresAutoMigrate:    true,
		LockTimeout:            5 * time.Second,
		KafkaTopic:             "tpoints.notifications",
		KafkaClientID:          "tpoints-service",
		BreakerFailures:        5,
		BreakerResetTime:       30 * time.Second,
		RedisKeyPrefix:         "tpoints:scheduler",
		MarkerTTL:              48 * time.Hour,
		SchedulerEnabled:       true,
		SchedulerInterval:      30 * time.Minute,
		SchedulerRetryInterval: 10 * time.Minute,
		Timezone:               "Local",
	}
}

// LoadConfig читает .env (если есть) и переменные окружения поверх DefaultConfig.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("postgres dsn is required for postgres storage driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.HTTPAddr == "" {
		return errors.New("http address is required")
	}
	if c.SchedulerInterval <= 0 || c.SchedulerRetryInterval <= 0 {
		return errors.New("scheduler intervals must be positive")
	}
	if c.BreakerFailures <= 0 || c.BreakerResetTime <= 0 {
		return errors.New("delivery breaker settings must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location возвращает часовой пояс планировщика.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ConfigureLogging применяет формат и уровень логов.
func (c Config) ConfigureLogging() error {
	if strings.EqualFold(c.LogFormat, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	log.SetLevel(level)
	return nil
}
