package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Detector.Threshold != 0.6 {
		t.Errorf("threshold = %f, want 0.6", cfg.Detector.Threshold)
	}
	if cfg.Mailbox.IMAPPort != "993" || !cfg.Mailbox.UseTLS {
		t.Errorf("mailbox defaults = %+v", cfg.Mailbox)
	}
	if cfg.Mailbox.ProcessedLabel != "CalendarAdded" {
		t.Errorf("processed label = %q", cfg.Mailbox.ProcessedLabel)
	}
	if cfg.Calendar.Backend != "ics" {
		t.Errorf("backend = %q, want ics", cfg.Calendar.Backend)
	}
	if !cfg.Reminders.Enabled || cfg.Reminders.MorningHour != 8 {
		t.Errorf("reminder defaults = %+v", cfg.Reminders)
	}
	if !cfg.Review.RepresentRecovered {
		t.Error("represent_recovered default should be true")
	}
	if cfg.PollIntervalSec != 300 {
		t.Errorf("poll interval = %d, want 300", cfg.PollIntervalSec)
	}
	if cfg.Server.Addr == "" || cfg.DBPath == "" {
		t.Errorf("addr = %q, db path = %q", cfg.Server.Addr, cfg.DBPath)
	}
}

func TestConfigSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	cfg.Mailbox.IMAPHost = "imap.example.com"
	cfg.Mailbox.Username = "bob@example.com"
	cfg.Detector.Threshold = 0.75
	cfg.Detector.Keywords = []string{"standup", "retro"}
	cfg.Calendar.Backend = "http"
	cfg.Calendar.BaseURL = "https://cal.example.com"
	cfg.Calendar.CalendarID = "primary"
	cfg.PollIntervalSec = 60

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Mailbox.IMAPHost != "imap.example.com" ||
		got.Mailbox.Username != "bob@example.com" {
		t.Errorf("mailbox = %+v", got.Mailbox)
	}
	if got.Detector.Threshold != 0.75 {
		t.Errorf("threshold = %f, want 0.75", got.Detector.Threshold)
	}
	if len(got.Detector.Keywords) != 2 || got.Detector.Keywords[0] != "standup" {
		t.Errorf("keywords = %v", got.Detector.Keywords)
	}
	if got.Calendar.Backend != "http" || got.Calendar.CalendarID != "primary" {
		t.Errorf("calendar = %+v", got.Calendar)
	}
	if got.PollIntervalSec != 60 {
		t.Errorf("poll interval = %d, want 60", got.PollIntervalSec)
	}
}

func TestLoadConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	partial := "mailbox:\n  imap_host: imap.example.com\n  username: bob@example.com\n"
	if err := os.WriteFile(path, []byte(partial), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mailbox.IMAPHost != "imap.example.com" {
		t.Errorf("host = %q", cfg.Mailbox.IMAPHost)
	}
	// Unset keys keep their defaults.
	if cfg.Mailbox.IMAPPort != "993" {
		t.Errorf("port = %q, want default 993", cfg.Mailbox.IMAPPort)
	}
	if cfg.Detector.Threshold != 0.6 {
		t.Errorf("threshold = %f, want default 0.6", cfg.Detector.Threshold)
	}
}

func TestLoadConfigClampsPollInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("poll_interval_sec: -5\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PollIntervalSec != 300 {
		t.Errorf("poll interval = %d, want default 300", cfg.PollIntervalSec)
	}
}
