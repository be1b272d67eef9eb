package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DetectorConfig holds the scoring heuristic settings.
type DetectorConfig struct {
	// Threshold is the minimum confidence for a candidate to be
	// accepted. A parsed date is always required regardless.
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`

	// Keywords is the meeting-related keyword set matched against
	// normalized tokens. Empty means the built-in default set.
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
}

// MailboxConfig holds the IMAP mailbox connection settings.
// The account password is stored in the system keyring, not here.
type MailboxConfig struct {
	IMAPHost string `mapstructure:"imap_host" yaml:"imap_host"`
	IMAPPort string `mapstructure:"imap_port" yaml:"imap_port"`
	Username string `mapstructure:"username" yaml:"username"`
	UseTLS   bool   `mapstructure:"use_tls" yaml:"use_tls"`

	// ProcessedLabel is applied to messages whose candidate was
	// accepted and written to the calendar.
	ProcessedLabel string `mapstructure:"processed_label" yaml:"processed_label"`
}

// CalendarConfig selects and configures the calendar backend.
type CalendarConfig struct {
	// Backend is "ics" (local file) or "http" (JSON API).
	Backend string `mapstructure:"backend" yaml:"backend"`

	// ICSPath is the calendar file for the ics backend.
	ICSPath string `mapstructure:"ics_path" yaml:"ics_path"`

	// BaseURL and CalendarID configure the http backend.
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	CalendarID string `mapstructure:"calendar_id" yaml:"calendar_id"`
}

// ReminderConfig holds notification scheduling settings.
type ReminderConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// MorningHour is the hour of the "morning of the event"
	// reminder, in local time.
	MorningHour int `mapstructure:"morning_hour" yaml:"morning_hour"`

	// Command is an optional external notification command, e.g.
	// notify-send. Empty means notifications go to the process log.
	Command string `mapstructure:"command" yaml:"command"`
}

// ReviewConfig holds decision-surface policy settings.
type ReviewConfig struct {
	// RepresentRecovered controls whether a declined-then-recovered
	// candidate is prompted again on the next cycle.
	RepresentRecovered bool `mapstructure:"represent_recovered" yaml:"represent_recovered"`
}

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Detector        DetectorConfig `mapstructure:"detector" yaml:"detector"`
	Mailbox         MailboxConfig  `mapstructure:"mailbox" yaml:"mailbox"`
	Calendar        CalendarConfig `mapstructure:"calendar" yaml:"calendar"`
	Reminders       ReminderConfig `mapstructure:"reminders" yaml:"reminders"`
	Review          ReviewConfig   `mapstructure:"review" yaml:"review"`
	Server          ServerConfig   `mapstructure:"server" yaml:"server"`
	PollIntervalSec int            `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	DBPath          string         `mapstructure:"db_path" yaml:"db_path"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/inboxcal/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "inboxcal", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	dataDir := "."
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".local", "share", "inboxcal")
	}
	return &AppConfig{
		Detector: DetectorConfig{
			Threshold: 0.6,
		},
		Mailbox: MailboxConfig{
			IMAPPort:       "993",
			UseTLS:         true,
			ProcessedLabel: "CalendarAdded",
		},
		Calendar: CalendarConfig{
			Backend: "ics",
			ICSPath: filepath.Join(dataDir, "inboxcal.ics"),
		},
		Reminders: ReminderConfig{
			Enabled:     true,
			MorningHour: 8,
		},
		Review: ReviewConfig{
			RepresentRecovered: true,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:5800",
		},
		PollIntervalSec: 300,
		DBPath:          filepath.Join(dataDir, "events.db"),
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := defaultAppConfig()
	v.SetDefault("detector.threshold", defaults.Detector.Threshold)
	v.SetDefault("mailbox.imap_port", defaults.Mailbox.IMAPPort)
	v.SetDefault("mailbox.use_tls", defaults.Mailbox.UseTLS)
	v.SetDefault("mailbox.processed_label", defaults.Mailbox.ProcessedLabel)
	v.SetDefault("calendar.backend", defaults.Calendar.Backend)
	v.SetDefault("calendar.ics_path", defaults.Calendar.ICSPath)
	v.SetDefault("reminders.enabled", defaults.Reminders.Enabled)
	v.SetDefault("reminders.morning_hour", defaults.Reminders.MorningHour)
	v.SetDefault("review.represent_recovered", defaults.Review.RepresentRecovered)
	v.SetDefault("server.addr", defaults.Server.Addr)
	v.SetDefault("poll_interval_sec", defaults.PollIntervalSec)
	v.SetDefault("db_path", defaults.DBPath)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Unmarshal fills defaults in place, so capture the fallback
	// interval before the file value lands on it.
	fallbackInterval := defaults.PollIntervalSec
	cfg := defaults
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.PollIntervalSec <= 0 {
		cfg.PollIntervalSec = fallbackInterval
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("detector", cfg.Detector)
	v.Set("mailbox", cfg.Mailbox)
	v.Set("calendar", cfg.Calendar)
	v.Set("reminders", cfg.Reminders)
	v.Set("review", cfg.Review)
	v.Set("server", cfg.Server)
	v.Set("poll_interval_sec", cfg.PollIntervalSec)
	v.Set("db_path", cfg.DBPath)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
