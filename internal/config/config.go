// Package config provides the Config struct and loader for .evalbench.yaml
// service configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/evalbench/evalbench/internal/runner"
)

// ConfigFileName is the file Load walks up the directory tree looking for.
const ConfigFileName = ".evalbench.yaml"

// Default values for service configuration. These are the single source of
// truth — New() references them and no other code should duplicate them.
const (
	DefaultServerPort = 8080

	DefaultWorkers        = 4
	DefaultMaxRetries     = 2
	DefaultRetryBackoffMs = 2000

	DefaultQuestionsDir = "questions/"

	DefaultMockModelName = "mock"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

// SchedulerConfig holds worker pool and retry settings.
type SchedulerConfig struct {
	Workers        int  `yaml:"workers,omitempty"`
	MaxRetries     *int `yaml:"max_retries,omitempty"`
	RetryBackoffMs int  `yaml:"retry_backoff_ms,omitempty"`
}

// RetryBackoff returns the configured backoff as a duration.
func (c SchedulerConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// QuestionsConfig holds question bank settings.
type QuestionsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// Config is the top-level configuration loaded from .evalbench.yaml.
type Config struct {
	Server    ServerConfig           `yaml:"server,omitempty"`
	Scheduler SchedulerConfig        `yaml:"scheduler,omitempty"`
	Questions QuestionsConfig        `yaml:"questions,omitempty"`
	Models    []runner.BackendConfig `yaml:"models,omitempty"`
}

// New returns a Config with all hard-coded defaults populated. The default
// model list carries a single mock backend, enough to exercise the whole
// pipeline without external credentials.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Scheduler: SchedulerConfig{
			Workers:        DefaultWorkers,
			MaxRetries:     intPtr(DefaultMaxRetries),
			RetryBackoffMs: DefaultRetryBackoffMs,
		},
		Questions: QuestionsConfig{
			Dir: DefaultQuestionsDir,
		},
		Models: []runner.BackendConfig{
			{Name: DefaultMockModelName, Backend: "mock"},
		},
	}
}

// Load finds .evalbench.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*Config, error) {
	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil // no file found → return defaults
		}
		return nil, fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}
	return parse(data)
}

// LoadFile reads an explicitly named config file, for the --config flag.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	return parse(data)
}

func parse(data []byte) (*Config, error) {
	cfg := New()

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	mergeConfig(cfg, &fileCfg)
	return cfg, nil
}

// findConfigFile walks up from dir looking for .evalbench.yaml (max 10
// levels). Returns os.ErrNotExist if no config file is found. Propagates
// real I/O errors (e.g. permission denied) instead of silently swallowing
// them.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break // reached filesystem root
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if len(src.Server.AllowedOrigins) > 0 {
		dst.Server.AllowedOrigins = src.Server.AllowedOrigins
	}

	if src.Scheduler.Workers != 0 {
		dst.Scheduler.Workers = src.Scheduler.Workers
	}
	if src.Scheduler.MaxRetries != nil {
		dst.Scheduler.MaxRetries = src.Scheduler.MaxRetries
	}
	if src.Scheduler.RetryBackoffMs != 0 {
		dst.Scheduler.RetryBackoffMs = src.Scheduler.RetryBackoffMs
	}

	if src.Questions.Dir != "" {
		dst.Questions.Dir = src.Questions.Dir
	}

	// A configured model list replaces the default wholesale; merging
	// entries would make it impossible to drop the default mock model.
	if len(src.Models) > 0 {
		dst.Models = src.Models
	}
}

func intPtr(n int) *int {
	return &n
}
