package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/wsmaint/internal/models"
)

// LatestLink is the name of the symlink pointing at the newest run log.
const LatestLink = "latest.log"

// FileLogger writes one run's log to <dir>/<command>-YYYYMMDD-HHMMSS.log and
// points LatestLink at it.
type FileLogger struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	level Level
}

// NewFileLogger creates dir if needed and opens the log file for a run of command.
func NewFileLogger(dir, level, command string) (*FileLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	started := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", command, started.Format("20060102-150405")))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	if err := relink(filepath.Join(dir, LatestLink), filepath.Base(path)); err != nil {
		f.Close()
		return nil, err
	}

	fl := &FileLogger{f: f, path: path, level: levelOrInfo(level)}
	fl.write(fmt.Sprintf("=== wsmaint %s ===\nStarted at: %s\n\n", command, started.Format(time.RFC3339)))
	return fl, nil
}

// relink points the symlink at link to target, replacing any previous link.
func relink(link, target string) error {
	if err := os.Remove(link); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove old %s: %w", filepath.Base(link), err)
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s: %w", filepath.Base(link), err)
	}
	return nil
}

// Path returns the path of the run log file.
func (fl *FileLogger) Path() string {
	return fl.path
}

func (fl *FileLogger) LogTrace(message string) { fl.log(LevelTrace, message) }
func (fl *FileLogger) LogDebug(message string) { fl.log(LevelDebug, message) }
func (fl *FileLogger) LogInfo(message string)  { fl.log(LevelInfo, message) }
func (fl *FileLogger) LogWarn(message string)  { fl.log(LevelWarn, message) }
func (fl *FileLogger) LogError(message string) { fl.log(LevelError, message) }

func (fl *FileLogger) log(level Level, message string) {
	if level < fl.level {
		return
	}
	fl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), level, message))
}

// LogSummary writes the final counts and the overall outcome.
func (fl *FileLogger) LogSummary(summary models.Summary) {
	if LevelInfo < fl.level {
		return
	}

	outcome := "SUCCESS"
	if summary.Failed > 0 {
		outcome = "FAILED"
	}
	mode := ""
	if summary.DryRun {
		mode = " (dry run)"
	}

	ts := timestamp()
	var b strings.Builder
	fmt.Fprintf(&b, "\n[%s] %s finished: %s%s\n", ts, summary.Command, outcome, mode)
	fmt.Fprintf(&b, "[%s]   %d done, %d skipped, %d failed in %.1fs\n",
		ts, summary.Succeeded, summary.Skipped, summary.Failed, summary.Duration.Seconds())
	for _, f := range summary.Failures {
		fmt.Fprintf(&b, "[%s]   failed %s %s: %s\n", ts, f.Kind, f.Path, f.Detail)
	}
	fl.write(b.String())
}

// Close syncs and closes the log file. Closing twice is a no-op.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.f == nil {
		return nil
	}
	f := fl.f
	fl.f = nil
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync run log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close run log: %w", err)
	}
	return nil
}

func (fl *FileLogger) write(s string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.f != nil {
		fl.f.WriteString(s)
	}
}
