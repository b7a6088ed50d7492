package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/wsmaint/internal/logger"
	"gopkg.in/yaml.v3"
)

// CleanConfig configures the clean command.
type CleanConfig struct {
	// Targets are the build-output directory names to remove (case-insensitive)
	Targets []string `yaml:"targets"`

	// MaxDepth bounds the search (0 = unlimited)
	MaxDepth int `yaml:"max_depth"`
}

// BumpConfig configures the bump command.
type BumpConfig struct {
	// FileName is the version-stamp file to rewrite (case-insensitive)
	FileName string `yaml:"file_name"`

	// MaxDepth bounds the search (0 = unlimited)
	MaxDepth int `yaml:"max_depth"`

	// DefaultVersion is used when no version argument is given
	DefaultVersion string `yaml:"default_version"`
}

// RestoreConfig configures the restore command.
type RestoreConfig struct {
	// Command is the restore executable and any leading arguments,
	// e.g. ["mono", ".nuget/nuget.exe"]
	Command []string `yaml:"command"`

	// ManifestName is the package manifest file name to look for
	ManifestName string `yaml:"manifest_name"`

	// OutputDir is where packages are restored to, relative to the workspace root
	OutputDir string `yaml:"output_dir"`

	// Level is how many directory levels below the root manifests are searched
	Level int `yaml:"level"`

	// Timeout bounds each restore invocation (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	// Enabled records every run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the database location, relative to the state directory
	DBPath string `yaml:"db_path"`
}

// MetricsConfig configures metrics export.
type MetricsConfig struct {
	// Textfile is a Prometheus textfile-collector output path (empty = disabled)
	Textfile string `yaml:"textfile"`
}

// Config represents wsmaint configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir enables per-run log files in this directory (empty = console only)
	LogDir string `yaml:"log_dir"`

	Clean   CleanConfig   `yaml:"clean"`
	Bump    BumpConfig    `yaml:"bump"`
	Restore RestoreConfig `yaml:"restore"`
	History HistoryConfig `yaml:"history"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DefaultConfig returns a Config matching the classic clean, bump and restore behaviour
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		LogDir:   "",
		Clean: CleanConfig{
			Targets:  []string{"bin", "obj"},
			MaxDepth: 1,
		},
		Bump: BumpConfig{
			FileName:       "AssemblyInfo.cs",
			MaxDepth:       0,
			DefaultVersion: "1.0.0.0",
		},
		Restore: RestoreConfig{
			Command:      []string{filepath.Join(".nuget", "nuget.exe")},
			ManifestName: "packages.config",
			OutputDir:    "packages",
			Level:        2,
			Timeout:      10 * time.Minute,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "history.db",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// Keys present in the file override the defaults; absent keys keep them.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Decoding into the populated defaults only overwrites keys that are present
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Load resolves the configuration for a workspace root: the config file
// (configPath, or <state dir>/config.yaml when empty), then WSMAINT_* values
// from <root>/.env and the process environment.
func Load(root, configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(StateDir(root), "config.yaml")
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	env, err := ReadEnv(root)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MergeWithFlags merges global CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, metricsFile *string, historyEnabled *bool) {
	if logLevel != nil {
		c.LogLevel = strings.ToLower(strings.TrimSpace(*logLevel))
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if metricsFile != nil {
		c.Metrics.Textfile = *metricsFile
	}
	if historyEnabled != nil {
		c.History.Enabled = *historyEnabled
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}

	if len(c.Clean.Targets) == 0 {
		return fmt.Errorf("clean.targets cannot be empty")
	}
	for _, target := range c.Clean.Targets {
		if err := ValidateName("clean.targets", target); err != nil {
			return err
		}
	}
	if c.Clean.MaxDepth < 0 {
		return fmt.Errorf("clean.max_depth must be >= 0, got %d", c.Clean.MaxDepth)
	}

	if err := ValidateName("bump.file_name", c.Bump.FileName); err != nil {
		return err
	}
	if c.Bump.MaxDepth < 0 {
		return fmt.Errorf("bump.max_depth must be >= 0, got %d", c.Bump.MaxDepth)
	}

	if len(c.Restore.Command) == 0 || strings.TrimSpace(c.Restore.Command[0]) == "" {
		return fmt.Errorf("restore.command cannot be empty")
	}
	if err := ValidateName("restore.manifest_name", c.Restore.ManifestName); err != nil {
		return err
	}
	if c.Restore.OutputDir == "" {
		return fmt.Errorf("restore.output_dir cannot be empty")
	}
	if c.Restore.Level < 0 {
		return fmt.Errorf("restore.level must be >= 0, got %d", c.Restore.Level)
	}
	if c.Restore.Timeout < 0 {
		return fmt.Errorf("restore.timeout must be >= 0, got %v", c.Restore.Timeout)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	return nil
}

// ValidateName checks that a configured entry name is a single path element.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s cannot contain empty names", field)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%s entry %q must be a plain name, not a path", field, name)
	}
	return nil
}
