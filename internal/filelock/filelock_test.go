package filelock

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestAcquire(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, ".wsmaint", "wsmaint.lock")

	first, err := Acquire(lockPath, "clean")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if first.Path() != lockPath {
		t.Errorf("Expected lock path %s, got %s", lockPath, first.Path())
	}
	if _, err := os.Stat(lockPath); err != nil {
		t.Errorf("lock file should exist: %v", err)
	}

	_, err = Acquire(lockPath, "bump")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if !strings.Contains(err.Error(), "(clean)") {
		t.Errorf("expected error to name the holding command, got %v", err)
	}

	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	second, err := Acquire(lockPath, "bump")
	if err != nil {
		t.Fatalf("Acquire after unlock failed: %v", err)
	}
	second.Unlock()
}

func TestReadOwner(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "wsmaint.lock")

	lock, err := Acquire(lockPath, "restore")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	owner, err := ReadOwner(lockPath)
	if err != nil {
		t.Fatalf("ReadOwner failed: %v", err)
	}
	if owner.PID != os.Getpid() {
		t.Errorf("Expected pid %d, got %d", os.Getpid(), owner.PID)
	}
	if owner.Command != "restore" {
		t.Errorf("Expected command restore, got %q", owner.Command)
	}
	if owner.Since.IsZero() {
		t.Error("Expected owner start time to be set")
	}

	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if _, err := ReadOwner(lockPath); !os.IsNotExist(err) {
		t.Errorf("owner file should be removed on unlock, got %v", err)
	}
}

func TestReadOwnerMalformed(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "wsmaint.lock")

	tests := []string{"", "abc\nclean\n2026-01-02T03:04:05Z\n", "1\nclean\nyesterday\n"}
	for _, content := range tests {
		if err := os.WriteFile(ownerPath(lockPath), []byte(content), 0644); err != nil {
			t.Fatalf("write owner file: %v", err)
		}
		if _, err := ReadOwner(lockPath); err == nil {
			t.Errorf("expected error for owner file %q", content)
		}
	}
}

func TestAtomicWrite(t *testing.T) {
	tmpDir := t.TempDir()
	targetPath := filepath.Join(tmpDir, "AssemblyInfo.cs")

	if err := os.WriteFile(targetPath, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to write initial file: %v", err)
	}

	content := []byte("[assembly: AssemblyVersion(\"2.0.0.0\")]\r\n")
	if err := AtomicWrite(targetPath, content, 0644); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	readContent, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("Failed to read file: %v", err)
	}
	if string(readContent) != string(content) {
		t.Errorf("Expected content %q, got %q", string(content), string(readContent))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("Failed to read directory: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only AssemblyInfo.cs, found %d entries", len(entries))
	}
}

func TestAtomicWritePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	targetPath := filepath.Join(t.TempDir(), "a", "b", "AssemblyInfo.cs")

	if err := AtomicWrite(targetPath, []byte("nested"), 0600); err != nil {
		t.Fatalf("AtomicWrite failed: %v", err)
	}

	info, err := os.Stat(targetPath)
	if err != nil {
		t.Fatalf("Failed to stat file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected permissions %v, got %v", os.FileMode(0600), info.Mode().Perm())
	}
}
