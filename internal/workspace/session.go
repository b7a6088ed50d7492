// Package workspace wraps one maintenance command in a run session: it holds
// the workspace lock and routes every action outcome to the run history, the
// metrics recorder and the run summary.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/wsmaint/internal/config"
	"github.com/harrison/wsmaint/internal/filelock"
	"github.com/harrison/wsmaint/internal/history"
	"github.com/harrison/wsmaint/internal/logger"
	"github.com/harrison/wsmaint/internal/metrics"
	"github.com/harrison/wsmaint/internal/models"
)

// Options configures Open.
type Options struct {
	Root    string
	Command string
	Args    []string
	DryRun  bool
	Config  *config.Config
	// Out receives console log output (nil discards it)
	Out io.Writer
}

// Session is one locked maintenance run against a workspace.
type Session struct {
	Root    string
	Config  *config.Config
	Logger  logger.Logger
	Run     *models.Run
	Metrics *metrics.Recorder

	ctx        context.Context
	lock       *filelock.Lock
	store      *history.Store
	fileLogger *logger.FileLogger
	summary    models.Summary
	started    time.Time
	closed     bool
}

// Open resolves the workspace root, takes the workspace lock and starts the
// run record. The caller must Close the session.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("workspace session requires a configuration")
	}
	if opts.Command == "" {
		return nil, fmt.Errorf("workspace session requires a command name")
	}

	root, err := ResolveRoot(opts.Root)
	if err != nil {
		return nil, err
	}

	lock, err := filelock.Acquire(config.LockPath(root), opts.Command)
	if err != nil {
		if errors.Is(err, filelock.ErrLocked) {
			return nil, fmt.Errorf("another wsmaint run is using workspace %s: %w", root, err)
		}
		return nil, fmt.Errorf("failed to lock workspace: %w", err)
	}

	s := &Session{
		Root:    root,
		Config:  opts.Config,
		Metrics: metrics.NewRecorder(opts.Command),
		ctx:     ctx,
		lock:    lock,
		summary: models.Summary{Command: opts.Command, DryRun: opts.DryRun},
		started: time.Now(),
	}

	if err := s.openLogger(opts); err != nil {
		s.release()
		return nil, err
	}

	s.Run = &models.Run{
		Command:   opts.Command,
		Root:      root,
		Args:      opts.Args,
		DryRun:    opts.DryRun,
		StartedAt: s.started,
		Status:    models.RunRunning,
	}

	if opts.Config.History.Enabled {
		store, err := history.NewStore(opts.Config.HistoryDBPath(root))
		if err != nil {
			s.release()
			return nil, fmt.Errorf("failed to open run history: %w", err)
		}
		s.store = store

		run, err := store.StartRun(ctx, opts.Command, root, opts.Args, opts.DryRun)
		if err != nil {
			s.release()
			return nil, fmt.Errorf("failed to record run start: %w", err)
		}
		s.Run = run
	}

	mode := ""
	if opts.DryRun {
		mode = " (dry run)"
	}
	s.Logger.LogDebug(fmt.Sprintf("Starting %s%s in %s", opts.Command, mode, root))
	if s.fileLogger != nil {
		s.Logger.LogDebug(fmt.Sprintf("Run log: %s", s.fileLogger.Path()))
	}

	return s, nil
}

// ResolveRoot returns root as a clean absolute path to an existing directory.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace root %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("failed to access workspace root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace root is not a directory: %s", abs)
	}
	return abs, nil
}

func (s *Session) openLogger(opts Options) error {
	console := logger.NewConsoleLogger(opts.Out, s.Config.LogLevel)

	logDir := s.Config.LogDirPath(s.Root)
	if logDir == "" {
		s.Logger = console
		return nil
	}

	fileLogger, err := logger.NewFileLogger(logDir, s.Config.LogLevel, opts.Command)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	s.fileLogger = fileLogger
	s.Logger = logger.NewMultiLogger(console, fileLogger)
	return nil
}

// Record routes one action outcome to the summary, history and metrics.
// A history write failure is logged and does not fail the action.
func (s *Session) Record(kind models.ActionKind, path string, status models.ActionStatus, detail string) {
	rec := models.ActionRecord{
		RunID:  s.Run.ID,
		Kind:   kind,
		Path:   path,
		Status: status,
		Detail: detail,
	}

	if s.store != nil {
		if err := s.store.RecordAction(s.ctx, &rec); err != nil {
			s.Logger.LogWarn(fmt.Sprintf("Failed to record %s in history: %v", path, err))
		}
	}

	s.summary.Add(rec)
	s.Metrics.Record(kind, status)
}

// AddBytesFreed adds removed bytes to the run metrics.
func (s *Session) AddBytesFreed(n int64) {
	s.Metrics.AddBytesFreed(n)
}

// Visit is the tree search hook: it counts and traces each listed directory.
func (s *Session) Visit(path string, depth int) {
	s.Metrics.DirectoryVisited()
	s.Logger.LogTrace(fmt.Sprintf("Searching %s (depth %d)", path, depth))
}

// Summary returns the outcome counts recorded so far.
func (s *Session) Summary() models.Summary {
	sum := s.summary
	sum.Duration = time.Since(s.started)
	return sum
}

// Close finishes the run with runErr, writes metrics, prints the summary and
// releases the workspace lock. It returns bookkeeping errors only; runErr is
// the caller's to report. Closing twice is a no-op.
func (s *Session) Close(runErr error) error {
	if s.closed {
		return nil
	}
	s.closed = true

	summary := s.Summary()
	s.Metrics.ObserveDuration(summary.Duration)

	var errs []error

	if s.store != nil {
		// The run is finished even if the command's context was cancelled
		if err := s.store.FinishRun(context.WithoutCancel(s.ctx), s.Run, runErr); err != nil {
			errs = append(errs, fmt.Errorf("failed to record run result: %w", err))
		}
	} else {
		finished := time.Now()
		s.Run.FinishedAt = &finished
		s.Run.Status = models.RunSucceeded
		if runErr != nil {
			s.Run.Status = models.RunFailed
			s.Run.Error = runErr.Error()
		}
	}

	if path := s.metricsPath(); path != "" {
		if err := s.Metrics.WriteTextfile(path); err != nil {
			errs = append(errs, err)
		} else {
			s.Logger.LogDebug(fmt.Sprintf("Metrics written to %s", path))
		}
	}

	// A failed run has no summary; the console gets the error from main
	if runErr == nil {
		s.Logger.LogSummary(summary)
	} else if s.fileLogger != nil {
		s.fileLogger.LogError(runErr.Error())
	}

	errs = append(errs, s.release()...)
	return errors.Join(errs...)
}

func (s *Session) metricsPath() string {
	path := strings.TrimSpace(s.Config.Metrics.Textfile)
	if path == "" {
		return ""
	}
	return config.ResolvePath(s.Root, path)
}

// release closes the history store and file log and unlocks the workspace.
func (s *Session) release() []error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close run history: %w", err))
		}
		s.store = nil
	}
	if s.fileLogger != nil {
		if err := s.fileLogger.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close run log: %w", err))
		}
		s.fileLogger = nil
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			errs = append(errs, err)
		}
		s.lock = nil
	}
	return errs
}
