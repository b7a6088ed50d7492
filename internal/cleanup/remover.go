// Package cleanup removes build-output directories matched by the clean command.
package cleanup

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/harrison/wsmaint/internal/models"
)

// Logger is the logging surface used by Remover.
type Logger interface {
	LogInfo(message string)
	LogWarn(message string)
}

// Recorder receives one record per matched path and the bytes freed.
type Recorder interface {
	Record(kind models.ActionKind, path string, status models.ActionStatus, detail string)
	AddBytesFreed(n int64)
}

// Remover deletes matched directories. It satisfies the tree search action
// signature through its Remove method.
type Remover struct {
	DryRun   bool
	Logger   Logger
	Recorder Recorder
}

// Remove deletes the directory at path and everything below it.
// A match that is not a directory is left in place and recorded as skipped.
func (r *Remover) Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		r.record(path, models.ActionFailed, err.Error())
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		r.warn(fmt.Sprintf("Skipping %s: not a directory", path))
		r.record(path, models.ActionSkipped, "not a directory")
		return nil
	}

	size, err := TreeSize(path)
	if err != nil {
		// Size is informational; removal still proceeds
		r.warn(fmt.Sprintf("Could not measure %s: %v", path, err))
	}

	if r.DryRun {
		r.info(fmt.Sprintf("Would remove %s (%s)", path, FormatBytes(size)))
		r.record(path, models.ActionDryRun, FormatBytes(size))
		return nil
	}

	r.info(fmt.Sprintf("Removing %s", path))
	if err := os.RemoveAll(path); err != nil {
		r.record(path, models.ActionFailed, err.Error())
		return fmt.Errorf("remove %s: %w", path, err)
	}

	if r.Recorder != nil {
		r.Recorder.AddBytesFreed(size)
	}
	r.record(path, models.ActionOK, fmt.Sprintf("freed %s", FormatBytes(size)))
	return nil
}

// TreeSize returns the total size of the regular files under root.
// Symbolic links are not followed.
func TreeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// FormatBytes renders n using binary units, e.g. "512 B", "1.5 KiB".
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func (r *Remover) record(path string, status models.ActionStatus, detail string) {
	if r.Recorder != nil {
		r.Recorder.Record(models.KindRemove, path, status, detail)
	}
}

func (r *Remover) info(msg string) {
	if r.Logger != nil {
		r.Logger.LogInfo(msg)
	}
}

func (r *Remover) warn(msg string) {
	if r.Logger != nil {
		r.Logger.LogWarn(msg)
	}
}
