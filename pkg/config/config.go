package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. BARVIEW_SERVER_PORT.
const EnvPrefix = "BARVIEW_"

type Config struct {
	Environment string           `yaml:"environment" env:"ENVIRONMENT" default:"development"`
	Server      ServerConfig     `yaml:"server" envPrefix:"SERVER_"`
	Metrics     MetricsConfig    `yaml:"metrics" envPrefix:"METRICS_"`
	Log         LogConfig        `yaml:"log" envPrefix:"LOG_"`
	Store       StoreConfig      `yaml:"store" envPrefix:"STORE_"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse" envPrefix:"CLICKHOUSE_"`
	Cache       CacheConfig      `yaml:"cache" envPrefix:"CACHE_"`
	Kafka       KafkaConfig      `yaml:"kafka" envPrefix:"KAFKA_"`
	Limits      LimitsConfig     `yaml:"limits" envPrefix:"LIMITS_"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"PORT" default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" default:"10s"`
	CORS            bool          `yaml:"cors" env:"CORS" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"ENABLED" default:"true"`
	Path    string `yaml:"path" env:"PATH" default:"/metrics"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL" default:"info"`
	Format string `yaml:"format" env:"FORMAT" default:"console"`
	Output string `yaml:"output" env:"OUTPUT" default:"stdout"`
	// Ship deduplicated warn/error logs to kafka.log_topic.
	Collect         bool          `yaml:"collect" env:"COLLECT"`
	CollectInterval time.Duration `yaml:"collect_interval" env:"COLLECT_INTERVAL" default:"30s"`
	CollectMax      int           `yaml:"collect_max" env:"COLLECT_MAX" default:"100"`
	CollectLevels   []string      `yaml:"collect_levels" env:"COLLECT_LEVELS" envSeparator:"," default:"[\"warn\",\"error\"]"`
}

// StoreConfig selects the bar backend. Drawings always live in the SQLite file.
type StoreConfig struct {
	Type           string        `yaml:"type" env:"TYPE" default:"sqlite"`
	Path           string        `yaml:"path" env:"PATH" default:"trading_data.db"`
	MaxConnections int           `yaml:"max_connections" env:"MAX_CONNECTIONS" default:"10"`
	BusyTimeout    time.Duration `yaml:"busy_timeout" env:"BUSY_TIMEOUT" default:"30s"`
	CachePages     int           `yaml:"cache_pages" env:"CACHE_PAGES" default:"10000"`
	MmapBytes      int64         `yaml:"mmap_bytes" env:"MMAP_BYTES" default:"268435456"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF" default:"100ms"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" env:"HOST" default:"localhost"`
	Port             int           `yaml:"port" env:"PORT" default:"9000"`
	Database         string        `yaml:"database" env:"DATABASE" default:"default"`
	User             string        `yaml:"user" env:"USER" default:"default"`
	Password         string        `yaml:"password" env:"PASSWORD"`
	UseHTTP          bool          `yaml:"use_http" env:"USE_HTTP"`
	MaxOpenConns     int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns     int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS" default:"5"`
	DialTimeout      time.Duration `yaml:"dial_timeout" env:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" env:"MAX_EXECUTION_TIME" default:"60s"`
}

type CacheConfig struct {
	Type          string        `yaml:"type" env:"TYPE" default:"memory"`
	TTL           time.Duration `yaml:"ttl" env:"TTL" default:"5m"`
	MaxEntries    int           `yaml:"max_entries" env:"MAX_ENTRIES" default:"1024"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL" default:"1m"`
	Redis         struct {
		Addr     string `yaml:"addr" env:"ADDR" default:"localhost:6379"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		Prefix   string `yaml:"prefix" env:"PREFIX" default:"barview:"`
	} `yaml:"redis" envPrefix:"REDIS_"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled" env:"ENABLED"`
	Brokers      []string      `yaml:"brokers" env:"BROKERS" envSeparator:"," default:"[\"localhost:9092\"]"`
	Topic        string        `yaml:"topic" env:"TOPIC" default:"barview.drawings"`
	LogTopic     string        `yaml:"log_topic" env:"LOG_TOPIC" default:"barview.logs"`
	Compression  string        `yaml:"compression" env:"COMPRESSION" default:"snappy"`
	MaxAttempts  int           `yaml:"max_attempts" env:"MAX_ATTEMPTS" default:"3"`
	RequiredAcks int           `yaml:"required_acks" env:"REQUIRED_ACKS" default:"1"`
	Async        bool          `yaml:"async" env:"ASYNC"`
	Linger       time.Duration `yaml:"linger" env:"LINGER" default:"100ms"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"10s"`
}

type LimitsConfig struct {
	// Token bucket per client for /download.
	DownloadBurst     float64 `yaml:"download_burst" env:"DOWNLOAD_BURST" default:"10"`
	DownloadPerSecond float64 `yaml:"download_per_second" env:"DOWNLOAD_PER_SECOND" default:"0.5"`
}

// Load reads the YAML file at path from the OS filesystem and applies environment overrides.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs is Load over an arbitrary filesystem. Precedence, lowest first:
// struct defaults, YAML file, .env file, process environment. An empty path skips the file.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Load .env file if it exists
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Store.Type {
	case "sqlite", "clickhouse":
	default:
		return fmt.Errorf("store.type must be 'sqlite' or 'clickhouse', got '%s'", c.Store.Type)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	if c.Store.MaxConnections < 1 {
		return fmt.Errorf("store.max_connections must be at least 1")
	}
	switch c.Cache.Type {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("cache.type must be 'none', 'memory' or 'redis', got '%s'", c.Cache.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Log.Collect && !c.Kafka.Enabled {
		return fmt.Errorf("log.collect requires kafka.enabled")
	}
	for _, lvl := range c.Log.CollectLevels {
		if lvl != "warn" && lvl != "error" {
			return fmt.Errorf("log.collect_levels accepts 'warn' and 'error', got '%s'", lvl)
		}
	}
	if c.Limits.DownloadBurst < 0 || c.Limits.DownloadPerSecond < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

