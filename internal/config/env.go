package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables recognised as configuration overrides.
const (
	EnvHome            = "WSMAINT_HOME"
	EnvLogLevel        = "WSMAINT_LOG_LEVEL"
	EnvLogDir          = "WSMAINT_LOG_DIR"
	EnvCleanMaxDepth   = "WSMAINT_CLEAN_MAX_DEPTH"
	EnvBumpMaxDepth    = "WSMAINT_BUMP_MAX_DEPTH"
	EnvRestoreCommand  = "WSMAINT_RESTORE_COMMAND"
	EnvRestoreOutput   = "WSMAINT_RESTORE_OUTPUT_DIR"
	EnvRestoreTimeout  = "WSMAINT_RESTORE_TIMEOUT"
	EnvHistoryEnabled  = "WSMAINT_HISTORY_ENABLED"
	EnvMetricsTextfile = "WSMAINT_METRICS_TEXTFILE"
)

var envKeys = []string{
	EnvLogLevel,
	EnvLogDir,
	EnvCleanMaxDepth,
	EnvBumpMaxDepth,
	EnvRestoreCommand,
	EnvRestoreOutput,
	EnvRestoreTimeout,
	EnvHistoryEnabled,
	EnvMetricsTextfile,
}

// ReadEnv collects WSMAINT_* values from <root>/.env, overlaid by the process
// environment. A missing .env file is not an error.
func ReadEnv(root string) (map[string]string, error) {
	values := make(map[string]string)

	envPath := filepath.Join(root, ".env")
	fileValues, err := godotenv.Read(envPath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", envPath, err)
	}
	for _, key := range envKeys {
		if v, ok := fileValues[key]; ok {
			values[key] = v
		}
	}

	for _, key := range envKeys {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	return values, nil
}

// ApplyEnv overrides configuration values from an environment map.
func (c *Config) ApplyEnv(env map[string]string) error {
	if v, ok := env[EnvLogLevel]; ok && v != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := env[EnvLogDir]; ok {
		c.LogDir = v
	}
	if v, ok := env[EnvCleanMaxDepth]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvCleanMaxDepth, v, err)
		}
		c.Clean.MaxDepth = n
	}
	if v, ok := env[EnvBumpMaxDepth]; ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvBumpMaxDepth, v, err)
		}
		c.Bump.MaxDepth = n
	}
	if v, ok := env[EnvRestoreCommand]; ok && strings.TrimSpace(v) != "" {
		c.Restore.Command = strings.Fields(v)
	}
	if v, ok := env[EnvRestoreOutput]; ok && v != "" {
		c.Restore.OutputDir = v
	}
	if v, ok := env[EnvRestoreTimeout]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvRestoreTimeout, v, err)
		}
		c.Restore.Timeout = d
	}
	if v, ok := env[EnvHistoryEnabled]; ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHistoryEnabled, v, err)
		}
		c.History.Enabled = b
	}
	if v, ok := env[EnvMetricsTextfile]; ok {
		c.Metrics.Textfile = v
	}
	return nil
}
