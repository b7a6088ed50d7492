package config

import (
	"os"
	"path/filepath"
)

// StateDir returns the directory holding wsmaint's own files for a workspace
// (config, history database, lock, logs).
// Priority order:
//  1. WSMAINT_HOME environment variable (if set)
//  2. <root>/.wsmaint
func StateDir(root string) string {
	if home := os.Getenv(EnvHome); home != "" {
		return home
	}
	return filepath.Join(root, ".wsmaint")
}

// LockPath returns the workspace lock file path.
func LockPath(root string) string {
	return filepath.Join(StateDir(root), "wsmaint.lock")
}

// HistoryDBPath returns the absolute history database path.
// Relative db_path values are resolved against the state directory.
func (c *Config) HistoryDBPath(root string) string {
	return ResolvePath(StateDir(root), c.History.DBPath)
}

// LogDirPath returns the resolved log directory, or "" when file logging is off.
// Relative log_dir values are resolved against the workspace root.
func (c *Config) LogDirPath(root string) string {
	if c.LogDir == "" {
		return ""
	}
	return ResolvePath(root, c.LogDir)
}

// ResolvePath joins p onto base unless p is already absolute.
func ResolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
