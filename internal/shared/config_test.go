package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "sharesync.db" {
			t.Errorf("expected database path sharesync.db, got %s", config.Database.Path)
		}

		if config.Sync.MaxRetries != 3 {
			t.Errorf("expected 3 max retries, got %d", config.Sync.MaxRetries)
		}

		if config.Sync.RetryInterval() != time.Hour {
			t.Errorf("expected one hour retry interval, got %v", config.Sync.RetryInterval())
		}

		if config.Sync.SweepCron != "0 8,20 * * *" {
			t.Errorf("unexpected sweep cron %q", config.Sync.SweepCron)
		}

		if !config.Sync.OnlyMedia || len(config.Sync.MediaSuffixes) == 0 {
			t.Error("media filtering must be on by default")
		}

		if config.Provider.PollDelay() != 500*time.Millisecond {
			t.Errorf("expected 500ms poll delay, got %v", config.Provider.PollDelay())
		}

		if config.AI.Enabled {
			t.Error("AI filtering must be off by default")
		}

		if config.Filter.Bits != 1048576 || config.Filter.HashCount != 7 {
			t.Errorf("unexpected filter sizing: %d bits, %d hashes", config.Filter.Bits, config.Filter.HashCount)
		}

		if config.Pipeline.QueueCapacity != 1024 {
			t.Errorf("expected queue capacity 1024, got %d", config.Pipeline.QueueCapacity)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[provider]
base_url = "https://pan.internal"
poll_delay_ms = 250

[sync]
max_retries = 5
retry_interval_secs = 600
task_pause_ms = 1000
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected custom database path, got %s", config.Database.Path)
		}
		if config.Provider.BaseURL != "https://pan.internal" {
			t.Errorf("expected custom base URL, got %s", config.Provider.BaseURL)
		}
		if config.Sync.MaxRetries != 5 {
			t.Errorf("expected 5 max retries, got %d", config.Sync.MaxRetries)
		}
		if config.Sync.RetryInterval() != 10*time.Minute {
			t.Errorf("expected 10m retry interval, got %v", config.Sync.RetryInterval())
		}
		if config.Sync.TaskPause() != time.Second {
			t.Errorf("expected 1s task pause, got %v", config.Sync.TaskPause())
		}
	})

	t.Run("LoadConfigMissingFile", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.toml"); err == nil {
			t.Error("loading missing config should fail")
		}
	})

	t.Run("LoadConfigInvalidTOML", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := os.WriteFile(configPath, []byte("not [valid toml"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("loading invalid TOML should fail")
		}
	})
}
