package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the batchmon configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects and tunes the job store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite or postgres
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// WorkerConfig tunes the timer job worker.
type WorkerConfig struct {
	ID           string        `mapstructure:"id"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	Concurrency  int           `mapstructure:"concurrency"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
	RetryWait    time.Duration `mapstructure:"retry_wait"`
}

// MonitorConfig holds the defaults for new delete batches.
type MonitorConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	PartSize      int           `mapstructure:"part_size"`
}

// StatsConfig controls the handler stats collector.
type StatsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	Retention time.Duration `mapstructure:"retention"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// Load reads configuration from file and environment variables.
// An empty path looks for an optional batchmon.yaml; an explicit path must exist.
// Environment variables use the BATCHMON_ prefix: worker.poll_interval → BATCHMON_WORKER_POLL_INTERVAL.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("batchmon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/batchmon")
	}

	v.SetEnvPrefix("BATCHMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks for configuration errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn must not be empty")
	}
	if c.Worker.PollInterval <= 0 {
		return errors.New("worker.poll_interval must be positive")
	}
	if c.Worker.LockTimeout <= 0 {
		return errors.New("worker.lock_timeout must be positive")
	}
	if c.Monitor.CheckInterval <= 0 {
		return errors.New("monitor.check_interval must be positive")
	}
	if c.Monitor.PartSize <= 0 {
		return errors.New("monitor.part_size must be positive")
	}
	if c.Stats.Enabled && c.Stats.Interval <= 0 {
		return errors.New("stats.interval must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Database
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "batchmon.db")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.auto_migrate", true)

	// Worker
	v.SetDefault("worker.id", "")
	v.SetDefault("worker.poll_interval", "1s")
	v.SetDefault("worker.batch_size", 10)
	v.SetDefault("worker.concurrency", 10)
	v.SetDefault("worker.lock_timeout", "5m")
	v.SetDefault("worker.retry_wait", "10s")

	// Monitor
	v.SetDefault("monitor.check_interval", "10s")
	v.SetDefault("monitor.part_size", 100)

	// Stats
	v.SetDefault("stats.enabled", true)
	v.SetDefault("stats.interval", "1m")
	v.SetDefault("stats.retention", "168h")

	// Log
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
