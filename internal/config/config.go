// Package config holds the engine instance configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Config is the root configuration for an engine instance.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Log     LogConfig     `yaml:"log"`
	Cleaner CleanerConfig `yaml:"cleaner"`
	Debug   DebugConfig   `yaml:"debug"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// LogConfig covers the write-ahead log record layer.
type LogConfig struct {
	// FileSize is the nominal log file size; rotation and the cleaner's
	// distance estimates both use it.
	FileSize uint32 `yaml:"file_size"`
}

// CleanerConfig controls the log cleaner daemon.
type CleanerConfig struct {
	// WakeInterval drives periodic passes with an empty work queue; zero
	// means the cleaner only runs when explicitly woken.
	WakeInterval time.Duration `yaml:"wake_interval"`
	// MaxRetries bounds how often one wake cycle is retried after
	// transient contention.
	MaxRetries int `yaml:"max_retries"`
	// UtilizationThreshold is the live-byte fraction below which a file is
	// worth cleaning.
	UtilizationThreshold float64 `yaml:"utilization_threshold"`
}

// DebugConfig enables diagnostics that release builds run without.
type DebugConfig struct {
	// LatchTable records which owners hold which latches.
	LatchTable bool `yaml:"latch_table"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{Level: "info"},
		Log:    LogConfig{FileSize: 1 << 20},
		Cleaner: CleanerConfig{
			WakeInterval:         10 * time.Second,
			MaxRetries:           3,
			UtilizationThreshold: 0.5,
		},
	}
}

// Load reads a yaml config from path. A missing file falls back to
// Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("config file not found, using default config", "path", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// LogLevel maps the configured level name onto slog's scale.
func (c LoggerConfig) LogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
