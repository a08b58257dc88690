package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	AI       AIConfig       `toml:"ai"`
	Database DatabaseConfig `toml:"database"`
	Sync     SyncConfig     `toml:"sync"`
	Filter   FilterConfig   `toml:"filter"`
	Pipeline PipelineConfig `toml:"pipeline"`
}

// ProviderConfig contains cloud storage provider settings.
type ProviderConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSecs    int    `toml:"timeout_secs"`
	PollDelayMs    int    `toml:"poll_delay_ms"`
	MaxPollRetries int    `toml:"max_poll_retries"`
}

// AIConfig contains settings for the AI-assisted file filter.
type AIConfig struct {
	Enabled   bool   `toml:"enabled"`
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model"`
	BatchSize int    `toml:"batch_size"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// SyncConfig contains retry, expiry, and sweep pacing settings for the task engine.
type SyncConfig struct {
	MaxRetries         int      `toml:"max_retries"`
	RetryIntervalSecs  int      `toml:"retry_interval_secs"`
	ExpiryDays         int      `toml:"expiry_days"`
	OnlyMedia          bool     `toml:"only_media"`
	MediaSuffixes      []string `toml:"media_suffixes"`
	SweepCron          string   `toml:"sweep_cron"`
	CleanupCron        string   `toml:"cleanup_cron"`
	TaskPauseMs        int      `toml:"task_pause_ms"`
	EmptyRecycleOnSave bool     `toml:"empty_recycle_on_save"`
}

// FilterConfig contains harmonized-content filter settings.
type FilterConfig struct {
	Path      string `toml:"path"`
	Bits      uint   `toml:"bits"`
	HashCount int    `toml:"hash_count"`
}

// PipelineConfig contains completion event pipeline settings.
type PipelineConfig struct {
	QueuePath     string `toml:"queue_path"`
	QueueCapacity int    `toml:"queue_capacity"`
}

// RetryInterval returns the configured retry interval as a [time.Duration].
func (c SyncConfig) RetryInterval() time.Duration {
	return time.Duration(c.RetryIntervalSecs) * time.Second
}

// TaskPause returns the inter-task sweep pause as a [time.Duration].
func (c SyncConfig) TaskPause() time.Duration {
	return time.Duration(c.TaskPauseMs) * time.Millisecond
}

// PollDelay returns the batch job polling delay as a [time.Duration].
func (c ProviderConfig) PollDelay() time.Duration {
	return time.Duration(c.PollDelayMs) * time.Millisecond
}

// Timeout returns the provider HTTP timeout as a [time.Duration].
func (c ProviderConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
