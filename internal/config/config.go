// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	DB        DBConfig        `mapstructure:"db"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Publisher PublisherConfig `mapstructure:"publisher"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownSeconds int `mapstructure:"shutdown_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// CrawlConfig governs the orchestration loop.
type CrawlConfig struct {
	DefaultTimeoutSeconds int `mapstructure:"default_timeout_seconds"`
	MaxRetries            int `mapstructure:"max_retries"`
	RetryBackoffSeconds   int `mapstructure:"retry_backoff_seconds"`
}

// BrowserConfig configures the headless browser pool.
type BrowserConfig struct {
	MaxParallel       int     `mapstructure:"max_parallel"`
	UserAgent         string  `mapstructure:"user_agent"`
	NavTimeoutSeconds int     `mapstructure:"nav_timeout_seconds"`
	DomainQPS         float64 `mapstructure:"domain_qps"`
}

// ProbeConfig configures the plain-HTTP first pass for general pages.
type ProbeConfig struct {
	Enabled             bool `mapstructure:"enabled"`
	TimeoutSeconds      int  `mapstructure:"timeout_seconds"`
	BodyLengthThreshold int  `mapstructure:"body_length_threshold"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider     string `mapstructure:"provider"`
	DSN          string `mapstructure:"dsn"`
	RecordsTable string `mapstructure:"records_table"`
	ClientsTable string `mapstructure:"clients_table"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
}

// StorageConfig selects where debug screenshots are written.
type StorageConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PublisherConfig selects the crawl-completed event transport.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PLACECRAWLER")
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
	v.SetDefault("server.shutdown_seconds", 15)
	v.SetDefault("logging.development", true)
	v.SetDefault("crawl.default_timeout_seconds", 60)
	v.SetDefault("crawl.max_retries", 2)
	v.SetDefault("crawl.retry_backoff_seconds", 3)
	v.SetDefault("browser.max_parallel", 2)
	v.SetDefault("browser.user_agent", "placecrawler-bot/0.1")
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.domain_qps", 1.0)
	v.SetDefault("probe.enabled", true)
	v.SetDefault("probe.timeout_seconds", 15)
	v.SetDefault("probe.body_length_threshold", 2048)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.records_table", "crawl_records")
	v.SetDefault("db.clients_table", "clients")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.prefix", "screenshots")
	v.SetDefault("publisher.provider", "memory")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.DefaultTimeoutSeconds <= 0 {
		return fmt.Errorf("crawl.default_timeout_seconds must be > 0")
	}
	if c.Crawl.MaxRetries < 0 {
		return fmt.Errorf("crawl.max_retries must be >= 0")
	}
	if c.Browser.MaxParallel <= 0 {
		return fmt.Errorf("browser.max_parallel must be > 0")
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown db provider %q", c.DB.Provider)
	}
	switch c.Storage.Provider {
	case "memory", "noop":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set when storage.provider is local")
		}
	case "gcs":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set when storage.provider is gcs")
		}
	default:
		return fmt.Errorf("unknown storage provider %q", c.Storage.Provider)
	}
	switch c.Publisher.Provider {
	case "memory", "noop":
	case "pubsub":
		if c.Publisher.ProjectID == "" || c.Publisher.TopicID == "" {
			return fmt.Errorf("publisher.project_id and publisher.topic_id must be set when publisher.provider is pubsub")
		}
	default:
		return fmt.Errorf("unknown publisher provider %q", c.Publisher.Provider)
	}
	return nil
}

// CrawlTimeout returns the configured default overall deadline.
func (c Config) CrawlTimeout() time.Duration {
	return time.Duration(c.Crawl.DefaultTimeoutSeconds) * time.Second
}

// RetryBackoff returns the configured fixed backoff between attempts.
func (c Config) RetryBackoff() time.Duration {
	return time.Duration(c.Crawl.RetryBackoffSeconds) * time.Second
}

// NavTimeout returns the configured per-navigation deadline.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// ProbeTimeout returns the configured probe request deadline.
func (c Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Probe.TimeoutSeconds) * time.Second
}
