package restore

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/wsmaint/internal/models"
)

// Logger is the logging surface used by Runner.
type Logger interface {
	LogDebug(message string)
	LogInfo(message string)
}

// Recorder receives one record per manifest handled.
type Recorder interface {
	Record(kind models.ActionKind, path string, status models.ActionStatus, detail string)
}

// Runner invokes the restore tool as
// "<Command...> install <manifest> -OutputDirectory <OutputDir>".
type Runner struct {
	// Command is the tool and any leading arguments, e.g. ["mono", ".nuget/nuget.exe"]
	Command []string
	// OutputDir is passed to the tool as -OutputDirectory
	OutputDir string
	// Dir is the working directory; relative tool paths are resolved against it
	Dir string
	// Timeout bounds each invocation (0 = none)
	Timeout  time.Duration
	DryRun   bool
	Logger   Logger
	Recorder Recorder
}

// Args returns the full argument vector for manifest, tool first.
func (r *Runner) Args(manifest string) []string {
	args := make([]string, 0, len(r.Command)+4)
	args = append(args, r.Command...)
	if len(args) > 0 {
		args[0] = r.resolveTool(args[0])
	}
	return append(args, "install", manifest, "-OutputDirectory", r.OutputDir)
}

// resolveTool anchors a relative tool path such as ".nuget/nuget.exe" at Dir.
// Bare names are left for PATH lookup.
func (r *Runner) resolveTool(tool string) string {
	if r.Dir == "" || filepath.IsAbs(tool) {
		return tool
	}
	if strings.ContainsRune(tool, '/') || strings.ContainsRune(tool, filepath.Separator) {
		return filepath.Join(r.Dir, tool)
	}
	return tool
}

// Restore runs the tool for a single manifest.
func (r *Runner) Restore(ctx context.Context, manifest string) error {
	if len(r.Command) == 0 {
		return fmt.Errorf("restore command is not configured")
	}

	args := r.Args(manifest)
	if r.DryRun {
		r.info(fmt.Sprintf("Would run: %s", strings.Join(args, " ")))
		r.record(manifest, models.ActionDryRun, "")
		return nil
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	r.info(fmt.Sprintf("Restoring packages for %s", manifest))

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	r.logOutput(stdout.Bytes())

	if runErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			runErr = fmt.Errorf("timed out after %v: %w", r.Timeout, ctx.Err())
		}
		err := fmt.Errorf("restore of %s failed: %w", manifest, runErr)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("restore of %s failed: %s: %w", manifest, msg, runErr)
		}
		r.record(manifest, models.ActionFailed, err.Error())
		return err
	}

	r.record(manifest, models.ActionOK, fmt.Sprintf("restored in %s", time.Since(start).Round(time.Millisecond)))
	return nil
}

// RestoreAll restores each manifest in order and stops at the first failure.
func (r *Runner) RestoreAll(ctx context.Context, manifests []string) error {
	for _, manifest := range manifests {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.Restore(ctx, manifest); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) logOutput(out []byte) {
	if r.Logger == nil {
		return
	}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			r.Logger.LogDebug(line)
		}
	}
}

func (r *Runner) record(path string, status models.ActionStatus, detail string) {
	if r.Recorder != nil {
		r.Recorder.Record(models.KindRestore, path, status, detail)
	}
}

func (r *Runner) info(msg string) {
	if r.Logger != nil {
		r.Logger.LogInfo(msg)
	}
}
