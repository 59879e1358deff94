// Package config handles loading and validating the application
// configuration from a YAML file with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Source   SourceConfig   `yaml:"source"`
	Telegram TelegramConfig `yaml:"telegram"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the operational HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// SourceConfig defines the listing page to poll and extraction behavior.
type SourceConfig struct {
	// ListingURL is the category listing page that each cycle fetches.
	ListingURL string `yaml:"listing_url"`
	// Category tags every extracted record (single-category deployment).
	Category string `yaml:"category"`
	// MaxProducts caps how many listing items one cycle will parse.
	MaxProducts int           `yaml:"max_products"`
	Timeout     time.Duration `yaml:"timeout"`
	RetryCount  int           `yaml:"retry_count"`
	// FetchDetails enables per-product detail page fetches to read size
	// and stock availability. Slower and noisier; off by default.
	FetchDetails bool `yaml:"fetch_details"`
	// DetailLimit caps detail fetches per cycle when FetchDetails is on.
	DetailLimit int `yaml:"detail_limit"`
}

// TelegramConfig defines the notification destination.
type TelegramConfig struct {
	Enabled bool `yaml:"enabled"`
	// BotToken usually arrives via ${TELEGRAM_BOT_TOKEN} substitution.
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	APIURL   string `yaml:"api_url"`
	// SendsPerSecond paces consecutive sends to stay under Bot API limits.
	SendsPerSecond float64 `yaml:"sends_per_second"`
}

// ScheduleConfig defines the polling loop timing.
type ScheduleConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	// Jitter is the bound of the random offset added to each wait.
	Jitter time.Duration `yaml:"jitter"`
	// MinWait is the floor applied after jitter.
	MinWait          time.Duration `yaml:"min_wait"`
	FailureThreshold int           `yaml:"failure_threshold"`
	FailureCooldown  time.Duration `yaml:"failure_cooldown"`
	SummaryInterval  time.Duration `yaml:"summary_interval"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// Load reads and parses a YAML config file, performing environment
// variable substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyDatabaseDefaults(&cfg.Database)
	applySourceDefaults(&cfg.Source)
	applyTelegramDefaults(&cfg.Telegram)
	applyScheduleDefaults(&cfg.Schedule)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 10
	}
}

func applySourceDefaults(s *SourceConfig) {
	if s.Category == "" {
		s.Category = "men"
	}
	if s.MaxProducts == 0 {
		s.MaxProducts = 50
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}
	if s.RetryCount == 0 {
		s.RetryCount = 3
	}
	if s.DetailLimit == 0 {
		s.DetailLimit = 10
	}
}

func applyTelegramDefaults(t *TelegramConfig) {
	if t.APIURL == "" {
		t.APIURL = "https://api.telegram.org"
	}
	if t.SendsPerSecond == 0 {
		t.SendsPerSecond = 1.0
	}
}

func applyScheduleDefaults(s *ScheduleConfig) {
	if s.PollInterval == 0 {
		s.PollInterval = 3 * time.Minute
	}
	if s.Jitter == 0 {
		s.Jitter = 30 * time.Second
	}
	if s.MinWait == 0 {
		s.MinWait = time.Minute
	}
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.FailureCooldown == 0 {
		s.FailureCooldown = 5 * time.Minute
	}
	if s.SummaryInterval == 0 {
		s.SummaryInterval = 2 * time.Hour
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Host == "" {
		errs = append(errs, fmt.Errorf("database.host is required"))
	}
	if cfg.Database.Name == "" {
		errs = append(errs, fmt.Errorf("database.name is required"))
	}
	if cfg.Database.User == "" {
		errs = append(errs, fmt.Errorf("database.user is required"))
	}

	if cfg.Source.ListingURL == "" {
		errs = append(errs, fmt.Errorf("source.listing_url is required"))
	}

	if cfg.Telegram.Enabled {
		if cfg.Telegram.BotToken == "" {
			errs = append(errs, fmt.Errorf("telegram.bot_token is required when telegram is enabled"))
		}
		if cfg.Telegram.ChatID == "" {
			errs = append(errs, fmt.Errorf("telegram.chat_id is required when telegram is enabled"))
		}
	}

	if cfg.Schedule.Jitter >= cfg.Schedule.PollInterval {
		errs = append(errs, fmt.Errorf(
			"schedule.jitter (%s) must be smaller than schedule.poll_interval (%s)",
			cfg.Schedule.Jitter, cfg.Schedule.PollInterval,
		))
	}

	return errors.Join(errs...)
}
