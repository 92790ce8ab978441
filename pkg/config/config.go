// Package config implements the agent's configuration blob, loaded from a
// single YAML file at startup (spec.md §6). Decoding uses gopkg.in/yaml.v3
// with strict field checking, grounded on mutagen's
// pkg/compose/internal/configuration/load.go, which uses the same decoder
// with KnownFields(true) to reject unrecognized keys rather than silently
// ignoring typos.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/Abdullahalhasan627/ShieldAI-sub000/pkg/action"
)

// Config is the agent's complete runtime configuration.
type Config struct {
	EnableRealTimeProtection bool     `yaml:"enable_real_time_protection"`
	WatchedRoots             []string `yaml:"watched_roots"`
	Exceptions               []string `yaml:"exceptions"`
	MalwareThreshold         float64  `yaml:"malware_threshold"`
	MaxFileSizeMB            int64    `yaml:"max_file_size_mb"`

	ActionMode             action.Mode `yaml:"action_mode"`
	AskMinScore            int         `yaml:"ask_min_score"`
	AutoQuarantineMinScore int         `yaml:"auto_quarantine_min_score"`

	AtomicMoveMaxRetries      int `yaml:"atomic_move_max_retries"`
	AtomicMoveInitialDelayMS  int `yaml:"atomic_move_initial_delay_ms"`
	AtomicMoveMaxDelayMS      int `yaml:"atomic_move_max_delay_ms"`

	SHA256Allowlist []string `yaml:"sha256_allowlist"`
	QuarantinePath  string   `yaml:"quarantine_path"`
	SignatureDBPath string   `yaml:"signature_db_path"`

	CoalesceWindowMS  int `yaml:"coalesce_window_ms"`
	WorkerPoolSize    int `yaml:"worker_pool_size"`
	ScanCacheTTLS     int `yaml:"scan_cache_ttl_seconds"`
	ScanCacheCapacity int `yaml:"scan_cache_capacity"`
	// RateLimitPerMin is loaded and defaulted but is not passed to the IPC
	// server, which always applies its built-in limit of 50 requests per
	// minute per session.
	RateLimitPerMin int `yaml:"rate_limit_per_minute"`
}

// Default returns the agent's default configuration.
func Default() Config {
	return Config{
		EnableRealTimeProtection: true,
		MalwareThreshold:         0.5,
		MaxFileSizeMB:            200,
		ActionMode:               action.AutoQuarantine,
		AskMinScore:              20,
		AutoQuarantineMinScore:   80,
		AtomicMoveMaxRetries:     3,
		AtomicMoveInitialDelayMS: 50,
		AtomicMoveMaxDelayMS:     2000,
		QuarantinePath:           "/var/lib/shieldai/quarantine",
		CoalesceWindowMS:         500,
		WorkerPoolSize:           4,
		ScanCacheTTLS:            300,
		ScanCacheCapacity:        10000,
		RateLimitPerMin:          50,
	}
}

// Load reads and strictly decodes the YAML configuration file at path,
// layering it over Default so that an omitted key keeps its default
// value, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "unable to open configuration file %q", path)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unable to parse configuration file")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the numeric ranges and enumerations spec.md §6
// documents for each option.
func (c Config) Validate() error {
	if c.MalwareThreshold < 0 || c.MalwareThreshold > 1 {
		return errors.New("malware_threshold must be between 0 and 1")
	}
	if c.AskMinScore < 0 || c.AskMinScore > 100 {
		return errors.New("ask_min_score must be between 0 and 100")
	}
	if c.AutoQuarantineMinScore < 0 || c.AutoQuarantineMinScore > 100 {
		return errors.New("auto_quarantine_min_score must be between 0 and 100")
	}
	if c.AskMinScore > c.AutoQuarantineMinScore {
		return errors.New("ask_min_score must not exceed auto_quarantine_min_score")
	}
	switch c.ActionMode {
	case action.AutoQuarantine, action.AutoBlock, action.AskUser:
	default:
		return errors.Errorf("unrecognized action_mode %q", c.ActionMode)
	}
	if c.MaxFileSizeMB < 0 {
		return errors.New("max_file_size_mb must not be negative")
	}
	if c.AtomicMoveMaxRetries < 0 {
		return errors.New("atomic_move_max_retries must not be negative")
	}
	if c.QuarantinePath == "" {
		return errors.New("quarantine_path must not be empty")
	}
	return nil
}

// ActionPolicy derives an action.Policy from the configuration.
func (c Config) ActionPolicy() action.Policy {
	return action.Policy{
		Mode:                   c.ActionMode,
		AskMinScore:            c.AskMinScore,
		AutoQuarantineMinScore: c.AutoQuarantineMinScore,
		MaxRetries:             c.AtomicMoveMaxRetries,
		InitialRetryDelay:      time.Duration(c.AtomicMoveInitialDelayMS) * time.Millisecond,
		MaxRetryDelay:          time.Duration(c.AtomicMoveMaxDelayMS) * time.Millisecond,
	}
}
