// Package config loads the checker configuration from a YAML file with
// DSC_* environment-variable overrides. Every subsystem (HTTP server, RPC
// server, rule engine, report store, queue worker, result cache) has its own
// typed section.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	RPC      RPCConfig      `yaml:"rpc"`
	Checker  CheckerConfig  `yaml:"checker"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// RPCConfig holds the internal RPC listener settings. Port 0 disables it.
type RPCConfig struct {
	Port int `yaml:"port"`
}

// CheckerConfig controls the rule engine.
type CheckerConfig struct {
	RulesFile    string        `yaml:"rulesFile"`
	Prefilter    bool          `yaml:"prefilter"`
	Workers      int           `yaml:"workers"`
	MatchTimeout time.Duration `yaml:"matchTimeout"`
	ErrorsOnly   bool          `yaml:"errorsOnly"`
}

// PostgresConfig holds PostgreSQL connection parameters. An empty Host
// disables the report store.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds broker and topic settings for the queue worker. No
// brokers disables the worker.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics names the topics the worker reads from and writes to.
type KafkaTopics struct {
	Units   string `yaml:"units"`
	Results string `yaml:"results"`
}

// RedisConfig holds the result cache connection. An empty Addr disables the
// cache.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no subsystem can run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.RPC.Port < 0 || c.RPC.Port > 65535 {
		return fmt.Errorf("rpc.port %d out of range", c.RPC.Port)
	}
	if c.Checker.Workers < 1 {
		return fmt.Errorf("checker.workers must be at least 1, got %d", c.Checker.Workers)
	}
	if c.Checker.MatchTimeout < 0 {
		return fmt.Errorf("checker.matchTimeout must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && (c.Kafka.Topics.Units == "" || c.Kafka.Topics.Results == "") {
		return fmt.Errorf("kafka.topics.units and kafka.topics.results are required when brokers are set")
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
			MaxBodyBytes:    4 << 20,
		},
		RPC: RPCConfig{
			Port: 0,
		},
		Checker: CheckerConfig{
			Prefilter:    true,
			Workers:      4,
			MatchTimeout: 100 * time.Millisecond,
		},
		Postgres: PostgresConfig{
			Port:            5432,
			Database:        "stylecheck",
			User:            "stylecheck",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "stylecheck-workers",
			Topics: KafkaTopics{
				Units:   "stylecheck.units",
				Results: "stylecheck.results",
			},
		},
		Redis: RedisConfig{
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DSC_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("DSC_SERVER_PORT", &cfg.Server.Port)
	setInt("DSC_RPC_PORT", &cfg.RPC.Port)
	setString("DSC_CHECKER_RULES_FILE", &cfg.Checker.RulesFile)
	setInt("DSC_CHECKER_WORKERS", &cfg.Checker.Workers)
	if v := os.Getenv("DSC_CHECKER_PREFILTER"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Checker.Prefilter = b
		}
	}
	if v := os.Getenv("DSC_CHECKER_MATCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Checker.MatchTimeout = d
		}
	}
	setString("DSC_POSTGRES_HOST", &cfg.Postgres.Host)
	setInt("DSC_POSTGRES_PORT", &cfg.Postgres.Port)
	setString("DSC_POSTGRES_DATABASE", &cfg.Postgres.Database)
	setString("DSC_POSTGRES_USER", &cfg.Postgres.User)
	setString("DSC_POSTGRES_PASSWORD", &cfg.Postgres.Password)
	setString("DSC_POSTGRES_SSLMODE", &cfg.Postgres.SSLMode)
	if v := os.Getenv("DSC_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	setString("DSC_REDIS_ADDR", &cfg.Redis.Addr)
	setString("DSC_REDIS_PASSWORD", &cfg.Redis.Password)
	setString("DSC_LOGGING_LEVEL", &cfg.Logging.Level)
	setString("DSC_LOGGING_FORMAT", &cfg.Logging.Format)
	setInt("DSC_METRICS_PORT", &cfg.Metrics.Port)
}
