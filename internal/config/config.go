package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid configuration")

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ArchiveConfig enables S3 archival of mask artifacts when Bucket is set.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// EventsConfig enables Kafka lifecycle events when Brokers is non-empty and
// a local JSONL journal when Journal names a file.
type EventsConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Journal string   `mapstructure:"journal"`
}

// Config holds all runtime configuration for slitforge.
// Values are populated from .slitforge.yaml, SLITFORGE_* env vars, and CLI flags.
type Config struct {
	MaskgenPath   string        `mapstructure:"maskgen_path"`
	CutterPath    string        `mapstructure:"cutter_path"`
	ToolDir       string        `mapstructure:"tool_dir"`
	ArtifactDir   string        `mapstructure:"artifact_dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxPrompts    int           `mapstructure:"max_prompts"`
	ConfirmAnswer string        `mapstructure:"confirm_answer"`
	PromptIdle    time.Duration `mapstructure:"prompt_idle"`
	MaxIterations int           `mapstructure:"max_iterations"`
	ScratchFiles  []string      `mapstructure:"scratch_files"`
	Verbose       bool          `mapstructure:"verbose"`
	Store         StoreConfig   `mapstructure:"store"`
	Archive       ArchiveConfig `mapstructure:"archive"`
	Events        EventsConfig  `mapstructure:"events"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("maskgen_path", "maskgen")
	viper.SetDefault("cutter_path", "smdfplt")
	viper.SetDefault("tool_dir", ".")
	viper.SetDefault("artifact_dir", "artifacts")
	viper.SetDefault("timeout", "10s")
	viper.SetDefault("max_prompts", 8)
	viper.SetDefault("confirm_answer", "y")
	viper.SetDefault("prompt_idle", "2s")
	viper.SetDefault("max_iterations", 20)
	viper.SetDefault("scratch_files", []string{".loc_mgvers.dat", ".loc_ociw214.pem"})
	viper.SetDefault("verbose", false)
	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("store.dsn", "slitforge.db")
	viper.SetDefault("archive.bucket", "")
	viper.SetDefault("archive.prefix", "")
	viper.SetDefault("events.brokers", []string{})
	viper.SetDefault("events.topic", "mask-lifecycle")
	viper.SetDefault("events.journal", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects settings no run can work with.
func (c Config) Validate() error {
	var problems []string
	if c.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.MaxPrompts < 1 {
		problems = append(problems, "max_prompts must be at least 1")
	}
	if c.PromptIdle <= 0 {
		problems = append(problems, "prompt_idle must be positive")
	}
	if c.MaxIterations < 1 {
		problems = append(problems, "max_iterations must be at least 1")
	}
	switch c.Store.Driver {
	case "memory", "sqlite", "postgres":
	default:
		problems = append(problems, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}
	if c.MaskgenPath == "" {
		problems = append(problems, "maskgen_path is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}
