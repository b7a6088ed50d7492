// Package filelock provides the workspace lock that keeps two maintenance runs
// from touching the same tree, and atomic file replacement for rewritten sources.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Acquire when another process holds the lock.
var ErrLocked = errors.New("lock is held by another process")

// Owner identifies the process holding a workspace lock.
type Owner struct {
	PID     int
	Command string
	Since   time.Time
}

func (o Owner) String() string {
	return fmt.Sprintf("pid %d (%s) since %s", o.PID, o.Command, o.Since.Local().Format("15:04:05"))
}

// Lock is an exclusive lock on a workspace lock file. The owner of the lock
// is written to a sidecar file so a contending run can report who holds it.
type Lock struct {
	flock *flock.Flock
	path  string
}

// Acquire creates the lock file's directory and takes the lock without
// blocking, recording command as the owner. It returns an error wrapping
// ErrLocked if another process already holds it.
func Acquire(path, command string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(path)
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to try lock on %s: %w", path, err)
	}
	if !acquired {
		// The owner file may not be written yet if the holder just started
		if owner, err := ReadOwner(path); err == nil {
			return nil, fmt.Errorf("%s held by %s: %w", path, owner, ErrLocked)
		}
		return nil, fmt.Errorf("%s: %w", path, ErrLocked)
	}

	lock := &Lock{flock: fl, path: path}
	owner := Owner{PID: os.Getpid(), Command: command, Since: time.Now()}
	if err := lock.writeOwner(owner); err != nil {
		fl.Unlock()
		return nil, err
	}
	return lock, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Unlock removes the owner record and releases the lock.
func (l *Lock) Unlock() error {
	if err := os.Remove(ownerPath(l.path)); err != nil && !os.IsNotExist(err) {
		l.flock.Unlock()
		return fmt.Errorf("failed to remove lock owner file: %w", err)
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

func (l *Lock) writeOwner(o Owner) error {
	content := fmt.Sprintf("%d\n%s\n%s\n", o.PID, o.Command, o.Since.UTC().Format(time.RFC3339))
	if err := AtomicWrite(ownerPath(l.path), []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to record lock owner: %w", err)
	}
	return nil
}

// ReadOwner returns the owner recorded for the lock at path.
func ReadOwner(path string) (Owner, error) {
	data, err := os.ReadFile(ownerPath(path))
	if err != nil {
		return Owner{}, err
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		return Owner{}, fmt.Errorf("malformed lock owner file %s", ownerPath(path))
	}
	pid, err := strconv.Atoi(lines[0])
	if err != nil {
		return Owner{}, fmt.Errorf("malformed lock owner pid %q: %w", lines[0], err)
	}
	since, err := time.Parse(time.RFC3339, lines[2])
	if err != nil {
		return Owner{}, fmt.Errorf("malformed lock owner time %q: %w", lines[2], err)
	}
	return Owner{PID: pid, Command: lines[1], Since: since}, nil
}

func ownerPath(lockPath string) string {
	return lockPath + ".owner"
}

// AtomicWrite replaces path with data by writing a temp file in the same
// directory and renaming it over path. The result has permissions perm.
func AtomicWrite(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	// Same directory keeps the rename on one filesystem
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if err := writeAndClose(tmp, data, perm); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func writeAndClose(f *os.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", f.Name(), err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
	if err := os.Chmod(f.Name(), perm); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", f.Name(), err)
	}
	return nil
}
