// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Channel  ChannelConfig  `mapstructure:"channel"`
	Autopost AutopostConfig `mapstructure:"autopost"`
	Reaper   ReaperConfig   `mapstructure:"reaper"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Events   EventsConfig   `mapstructure:"events"`
	CRM      CRMConfig      `mapstructure:"crm"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls the operational HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FeedConfig governs supplier feed download and change detection.
type FeedConfig struct {
	URL                 string `mapstructure:"url"`
	LocalPath           string `mapstructure:"local_path"`
	UserAgent           string `mapstructure:"user_agent"`
	PollIntervalMinutes int    `mapstructure:"poll_interval_minutes"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
}

// CatalogConfig governs parsing and admission of feed rows.
type CatalogConfig struct {
	ExcludeTerm string `mapstructure:"exclude_term"`
}

// ChannelConfig selects and configures the publishing channel.
type ChannelConfig struct {
	Provider string         `mapstructure:"provider"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Bot API credentials and the target chat.
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	ChatID         string `mapstructure:"chat_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// AutopostConfig governs the periodic product publisher.
type AutopostConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

// ReaperConfig governs the stale-post sweep.
type ReaperConfig struct {
	IntervalHours int `mapstructure:"interval_hours"`
	MessageWindow int `mapstructure:"message_window"`
}

// LedgerConfig selects the price ledger backend.
type LedgerConfig struct {
	Provider string         `mapstructure:"provider"`
	FilePath string         `mapstructure:"file_path"`
	DB       LedgerDBConfig `mapstructure:"db"`
}

// LedgerDBConfig controls access to the relational ledger backend.
type LedgerDBConfig struct {
	DSN          string `mapstructure:"dsn"`
	Table        string `mapstructure:"table"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ArchiveConfig selects where confirmed feed revisions are retained.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	LocalDir  string `mapstructure:"local_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// EventsConfig holds metadata for feed-update notifications.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// CRMConfig configures order forwarding to LP-CRM.
type CRMConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
	Domain  string `mapstructure:"domain"`
}

// RuntimeConfig holds process-level settings.
type RuntimeConfig struct {
	PIDFile string `mapstructure:"pid_file"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TGSTORE")
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
	v.SetDefault("feed.local_path", "uploads.csv")
	v.SetDefault("feed.user_agent", "tgbotstore/1.0")
	v.SetDefault("feed.poll_interval_minutes", 60)
	v.SetDefault("feed.timeout_seconds", 30)
	v.SetDefault("catalog.exclude_term", "")
	v.SetDefault("channel.provider", "telegram")
	v.SetDefault("channel.telegram.timeout_seconds", 30)
	v.SetDefault("autopost.interval_minutes", 10)
	v.SetDefault("reaper.interval_hours", 48)
	v.SetDefault("reaper.message_window", 100)
	v.SetDefault("ledger.provider", "file")
	v.SetDefault("ledger.file_path", "price_history.json")
	v.SetDefault("ledger.db.table", "price_ledger")
	v.SetDefault("ledger.db.max_open_conns", 4)
	v.SetDefault("archive.provider", "none")
	v.SetDefault("events.provider", "none")
	v.SetDefault("runtime.pid_file", "bot.lock")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Feed.LocalPath == "" {
		return fmt.Errorf("feed.local_path is required")
	}
	if c.Feed.PollIntervalMinutes <= 0 {
		return fmt.Errorf("feed.poll_interval_minutes must be > 0")
	}
	if c.Feed.TimeoutSeconds <= 0 {
		return fmt.Errorf("feed.timeout_seconds must be > 0")
	}
	switch c.Channel.Provider {
	case "telegram":
		if c.Channel.Telegram.Token == "" {
			return fmt.Errorf("channel.telegram.token is required")
		}
		if c.Channel.Telegram.ChatID == "" {
			return fmt.Errorf("channel.telegram.chat_id is required")
		}
	case "memory":
	default:
		return fmt.Errorf("channel.provider must be telegram or memory, got %q", c.Channel.Provider)
	}
	if c.Autopost.IntervalMinutes <= 0 {
		return fmt.Errorf("autopost.interval_minutes must be > 0")
	}
	if c.Reaper.IntervalHours <= 0 {
		return fmt.Errorf("reaper.interval_hours must be > 0")
	}
	if c.Reaper.MessageWindow <= 0 {
		return fmt.Errorf("reaper.message_window must be > 0")
	}
	switch c.Ledger.Provider {
	case "file":
		if c.Ledger.FilePath == "" {
			return fmt.Errorf("ledger.file_path is required")
		}
	case "postgres":
		if c.Ledger.DB.DSN == "" {
			return fmt.Errorf("ledger.db.dsn is required when ledger.provider is postgres")
		}
	default:
		return fmt.Errorf("ledger.provider must be file or postgres, got %q", c.Ledger.Provider)
	}
	switch c.Archive.Provider {
	case "none", "memory":
	case "local":
		if c.Archive.LocalDir == "" {
			return fmt.Errorf("archive.local_dir is required when archive.provider is local")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket is required when archive.provider is gcs")
		}
	default:
		return fmt.Errorf("archive.provider must be none, memory, local or gcs, got %q", c.Archive.Provider)
	}
	switch c.Events.Provider {
	case "none", "memory":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicName == "" {
			return fmt.Errorf("events.project_id and events.topic_name are required when events.provider is pubsub")
		}
	default:
		return fmt.Errorf("events.provider must be none, memory or pubsub, got %q", c.Events.Provider)
	}
	if c.CRM.Enabled && (c.CRM.APIKey == "" || c.CRM.Domain == "") {
		return fmt.Errorf("crm.api_key and crm.domain are required when crm is enabled")
	}
	return nil
}

// FeedPollInterval converts the poll interval into a duration.
func (c Config) FeedPollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalMinutes) * time.Minute
}

// FeedTimeout converts the download timeout into a duration.
func (c Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// AutopostInterval converts the posting interval into a duration.
func (c Config) AutopostInterval() time.Duration {
	return time.Duration(c.Autopost.IntervalMinutes) * time.Minute
}

// ReaperInterval converts the sweep interval into a duration.
func (c Config) ReaperInterval() time.Duration {
	return time.Duration(c.Reaper.IntervalHours) * time.Hour
}
