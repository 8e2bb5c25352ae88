package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the tool version reported in metadata and the user agent.
const Version = "1.0.0"

// Config holds runtime configuration for a fetch run. Values come from an
// optional config.yaml merged with CLI flags; flags win.
type Config struct {
	UserAgent      string        `yaml:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent"`
	MaxAttempts    int           `yaml:"max_attempts"`
	OutputDir      string        `yaml:"output_dir"`
	MinFreeBytes   int64         `yaml:"min_free_bytes"`

	// Cooldowns applied between retry attempts depending on the upstream
	// response; see the download package for how each one is selected.
	RateCooldown   time.Duration `yaml:"rate_cooldown"`
	ServerCooldown time.Duration `yaml:"server_cooldown"`
	BackoffBase    time.Duration `yaml:"backoff_base"`

	// Politeness delays. ChapterDelay bounds the randomized pause before
	// each chapter download starts; DocumentDelay the pause between
	// documents in a multi-URL run.
	ChapterDelayMin  time.Duration `yaml:"chapter_delay_min"`
	ChapterDelayMax  time.Duration `yaml:"chapter_delay_max"`
	DocumentDelayMin time.Duration `yaml:"document_delay_min"`
	DocumentDelayMax time.Duration `yaml:"document_delay_max"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		UserAgent:        "ipofetch/" + Version + " (research tool)",
		RequestTimeout:   30 * time.Second,
		MaxConcurrent:    3,
		MaxAttempts:      3,
		OutputDir:        "./prospectus/",
		MinFreeBytes:     200 << 20,
		RateCooldown:     60 * time.Second,
		ServerCooldown:   30 * time.Second,
		BackoffBase:      time.Second,
		ChapterDelayMin:  time.Second,
		ChapterDelayMax:  3 * time.Second,
		DocumentDelayMin: 5 * time.Second,
		DocumentDelayMax: 15 * time.Second,
	}
}

// LoadConfig reads a YAML config file and overlays it on the defaults.
// A missing file is not an error; the defaults are returned.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
