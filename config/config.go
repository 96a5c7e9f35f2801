package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
	Log      LogConfig      `yaml:"log"`
}

type HTTPConfig struct {
	Address         string `yaml:"address"`
	SwaggerDir      string `yaml:"swagger_dir"`
	GinMode         string `yaml:"gin_mode"`
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
	Migrate  bool   `yaml:"migrate"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	BookingEventsTopic string   `yaml:"booking_events_topic"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

const (
	LedgerBackendMemory   = "memory"
	LedgerBackendPostgres = "postgres"
	LedgerBackendRedis    = "redis"
)

type LedgerConfig struct {
	Backend string `yaml:"backend"`
}

type BookingConfig struct {
	FlightsCacheTTL int `yaml:"flights_cache_ttl_seconds"`
}

type WorkerConfig struct {
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"`
	ReconcileGraceSeconds    int `yaml:"reconcile_grace_seconds"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (b BookingConfig) FlightsCacheDuration() time.Duration {
	return time.Duration(b.FlightsCacheTTL) * time.Second
}

func (w WorkerConfig) ReconcileInterval() time.Duration {
	return time.Duration(w.ReconcileIntervalSeconds) * time.Second
}

func (w WorkerConfig) ReconcileGrace() time.Duration {
	return time.Duration(w.ReconcileGraceSeconds) * time.Second
}

func (h HTTPConfig) ShutdownDuration() time.Duration {
	return time.Duration(h.ShutdownTimeout) * time.Second
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTP:    HTTPConfig{Address: ":8080", GinMode: "release", ShutdownTimeout: 5},
		GRPC:    GRPCConfig{Address: ":9090"},
		Ledger:  LedgerConfig{Backend: LedgerBackendPostgres},
		Booking: BookingConfig{FlightsCacheTTL: 30},
		Worker:  WorkerConfig{ReconcileIntervalSeconds: 60, ReconcileGraceSeconds: 300},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Ledger.Backend {
	case LedgerBackendMemory, LedgerBackendPostgres, LedgerBackendRedis:
	default:
		errs = append(errs, fmt.Errorf("ledger.backend %q must be one of memory, postgres, redis", c.Ledger.Backend))
	}
	if c.HTTP.Address == "" {
		errs = append(errs, errors.New("http.address is required"))
	}
	if c.Worker.ReconcileIntervalSeconds <= 0 {
		errs = append(errs, errors.New("worker.reconcile_interval_seconds must be positive"))
	}
	if c.Worker.ReconcileGraceSeconds < 0 {
		errs = append(errs, errors.New("worker.reconcile_grace_seconds must not be negative"))
	}
	return errors.Join(errs...)
}
