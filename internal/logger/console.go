// Package logger provides the levelled loggers used by wsmaint commands.
//
// ConsoleLogger writes "[HH:MM:SS] [LEVEL] message" lines to a writer and
// colours the level when that writer is a terminal. FileLogger writes the same
// lines to a per-run file. MultiLogger fans out to several loggers.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/wsmaint/internal/models"
	"github.com/mattn/go-isatty"
)

// Logger is the levelled logging surface shared by the console and file loggers.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogSummary(summary models.Summary)
}

var levelColors = map[Level]*color.Color{
	LevelTrace: color.New(color.FgHiBlack),
	LevelDebug: color.New(color.FgCyan),
	LevelInfo:  color.New(color.FgBlue),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
}

// ConsoleLogger logs to a writer. It is safe for concurrent use.
type ConsoleLogger struct {
	mu    sync.Mutex
	w     io.Writer
	level Level
	color bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to w; a nil w discards
// everything. An unknown level name falls back to info.
func NewConsoleLogger(w io.Writer, level string) *ConsoleLogger {
	return &ConsoleLogger{
		w:     w,
		level: levelOrInfo(level),
		color: isTerminal(w),
	}
}

// isTerminal reports whether w is a TTY that should receive ANSI colours.
// NO_COLOR is honoured through color.NoColor.
func isTerminal(w io.Writer) bool {
	if w == nil || color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cl *ConsoleLogger) LogTrace(message string) { cl.log(LevelTrace, message) }
func (cl *ConsoleLogger) LogDebug(message string) { cl.log(LevelDebug, message) }
func (cl *ConsoleLogger) LogInfo(message string)  { cl.log(LevelInfo, message) }
func (cl *ConsoleLogger) LogWarn(message string)  { cl.log(LevelWarn, message) }
func (cl *ConsoleLogger) LogError(message string) { cl.log(LevelError, message) }

func (cl *ConsoleLogger) log(level Level, message string) {
	if cl.w == nil || level < cl.level {
		return
	}
	tag := level.String()
	if cl.color {
		tag = levelColors[level].Sprint(tag)
	}
	cl.write(fmt.Sprintf("[%s] [%s] %s\n", timestamp(), tag, message))
}

// LogSummary prints the end-of-run counts at info level, followed by one line
// per failed action.
func (cl *ConsoleLogger) LogSummary(summary models.Summary) {
	if cl.w == nil || LevelInfo < cl.level {
		return
	}

	header := fmt.Sprintf("=== %s summary ===", summary.Command)
	if summary.DryRun {
		header = fmt.Sprintf("=== %s summary (dry run) ===", summary.Command)
	}
	if cl.color {
		header = color.New(color.Bold).Sprint(header)
	}

	lines := []string{
		header,
		cl.counts(summary),
		"Duration: " + formatDuration(summary.Duration),
	}
	for _, f := range summary.Failures {
		line := fmt.Sprintf("  - %s %s: %s", f.Kind, f.Path, f.Detail)
		if cl.color {
			line = levelColors[LevelError].Sprint(line)
		}
		lines = append(lines, line)
	}

	ts := timestamp()
	var b strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", ts, line)
	}
	cl.write(b.String())
}

// counts renders "done: N, skipped: N, failed: N". On a terminal non-zero
// skipped and failed counts are highlighted.
func (cl *ConsoleLogger) counts(s models.Summary) string {
	done := fmt.Sprintf("done: %d", s.Succeeded)
	skipped := fmt.Sprintf("skipped: %d", s.Skipped)
	failed := fmt.Sprintf("failed: %d", s.Failed)
	if cl.color {
		done = color.New(color.FgGreen).Sprint(done)
		if s.Skipped > 0 {
			skipped = levelColors[LevelWarn].Sprint(skipped)
		}
		if s.Failed > 0 {
			failed = levelColors[LevelError].Sprint(failed)
		}
	}
	return done + ", " + skipped + ", " + failed
}

func (cl *ConsoleLogger) write(s string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	io.WriteString(cl.w, s)
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration renders d as "250ms", "5s", "1m30s" or "2h15m", dropping
// zero trailing units.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := d.Truncate(time.Second).String()
	s = strings.Replace(s, "m0s", "m", 1)
	return strings.Replace(s, "h0m", "h", 1)
}
