// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	DB         DBConfig         `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	PubSub     PubSubConfig     `mapstructure:"pubsub"`
	Queue      QueueConfig      `mapstructure:"queue"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Collector  CollectorConfig  `mapstructure:"collector"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Seed       SeedConfig       `mapstructure:"seed"`
}

// ServerConfig controls the ops HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DBConfig controls access to the relational store.
type DBConfig struct {
	Driver   string `mapstructure:"driver"` // "postgres" or "memory"
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// RedisConfig controls the Redis connection used by the redis queue driver.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// PubSubConfig holds metadata for the Pub/Sub queue driver.
type PubSubConfig struct {
	ProjectID    string `mapstructure:"project_id"`
	TopicName    string `mapstructure:"topic_name"`
	Subscription string `mapstructure:"subscription"`
}

// QueueConfig selects the job queue transport.
type QueueConfig struct {
	Driver string `mapstructure:"driver"` // "memory", "redis" or "pubsub"
	Depth  int    `mapstructure:"depth"`  // memory driver capacity
}

// WorkerConfig bounds the worker pool.
type WorkerConfig struct {
	MaxJobs           int `mapstructure:"max_jobs"`
	JobTimeoutSeconds int `mapstructure:"job_timeout_seconds"`
}

// CollectorConfig governs fetch adapter and orchestrator behavior.
type CollectorConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxItems       int    `mapstructure:"max_items"`
	Concurrency    int    `mapstructure:"concurrency"`
}

// ClassifierConfig configures the external classification service. An empty
// APIKey disables classification (the batch job becomes a no-op).
type ClassifierConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	Endpoint       string `mapstructure:"endpoint"`
	BatchSize      int    `mapstructure:"batch_size"`
	Concurrency    int    `mapstructure:"concurrency"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SeedConfig toggles seeding of the static source catalog at startup.
type SeedConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RADAR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("db.driver", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 1)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.key", "radar:jobs")
	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.depth", 64)
	v.SetDefault("worker.max_jobs", 10)
	v.SetDefault("worker.job_timeout_seconds", 600)
	v.SetDefault("collector.user_agent", "kinoradar-bot/0.1")
	v.SetDefault("collector.timeout_seconds", 30)
	v.SetDefault("collector.max_items", 20)
	v.SetDefault("collector.concurrency", 4)
	v.SetDefault("classifier.model", "gemini-1.5-flash")
	v.SetDefault("classifier.batch_size", 50)
	v.SetDefault("classifier.concurrency", 4)
	v.SetDefault("classifier.timeout_seconds", 60)
	v.SetDefault("seed.enabled", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	switch c.DB.Driver {
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.driver is postgres")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown db.driver %q", c.DB.Driver)
	}
	switch c.Queue.Driver {
	case "memory":
		if c.Queue.Depth <= 0 {
			return fmt.Errorf("queue.depth must be > 0 for the memory driver")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr must be set when queue.driver is redis")
		}
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when queue.driver is pubsub")
		}
	default:
		return fmt.Errorf("unknown queue.driver %q", c.Queue.Driver)
	}
	if c.Worker.MaxJobs <= 0 {
		return fmt.Errorf("worker.max_jobs must be > 0")
	}
	if c.Worker.JobTimeoutSeconds <= 0 {
		return fmt.Errorf("worker.job_timeout_seconds must be > 0")
	}
	if c.Collector.TimeoutSeconds <= 0 {
		return fmt.Errorf("collector.timeout_seconds must be > 0")
	}
	if c.Collector.MaxItems <= 0 {
		return fmt.Errorf("collector.max_items must be > 0")
	}
	if c.Classifier.BatchSize <= 0 {
		return fmt.Errorf("classifier.batch_size must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// JobTimeout returns the per-job execution budget.
func (c Config) JobTimeout() time.Duration {
	return time.Duration(c.Worker.JobTimeoutSeconds) * time.Second
}

// FetchTimeout returns the per-fetch budget for adapters.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Collector.TimeoutSeconds) * time.Second
}
