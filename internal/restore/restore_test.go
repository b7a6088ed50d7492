package restore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/harrison/wsmaint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("<packages />"), 0644))
}

func TestDiscover_LevelBound(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "packages.config"))
	touch(t, filepath.Join(root, "App", "packages.config"))
	touch(t, filepath.Join(root, "src", "Lib", "Packages.Config"))
	touch(t, filepath.Join(root, "src", "Lib", "deep", "packages.config"))
	touch(t, filepath.Join(root, ".nuget", "packages.config"))
	touch(t, filepath.Join(root, "App", "other.config"))

	tests := []struct {
		level int
		want  []string
	}{
		{0, []string{"packages.config"}},
		{1, []string{".nuget/packages.config", "App/packages.config", "packages.config"}},
		{2, []string{".nuget/packages.config", "App/packages.config", "packages.config", "src/Lib/Packages.Config"}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("level %d", tt.level), func(t *testing.T) {
			got, err := Discover(root, "packages.config", tt.level)
			require.NoError(t, err)

			rel := make([]string, 0, len(got))
			for _, p := range got {
				r, err := filepath.Rel(root, p)
				require.NoError(t, err)
				rel = append(rel, filepath.ToSlash(r))
			}
			assert.Equal(t, tt.want, rel)
		})
	}
}

func TestDiscover_InvalidInput(t *testing.T) {
	_, err := Discover(t.TempDir(), "", 2)
	assert.Error(t, err)

	_, err = Discover(t.TempDir(), "packages.config", -1)
	assert.Error(t, err)

	_, err = Discover(filepath.Join(t.TempDir(), "missing"), "packages.config", 2)
	assert.Error(t, err)
}

func TestRunner_Args(t *testing.T) {
	r := &Runner{
		Command:   []string{"mono", filepath.Join(".nuget", "nuget.exe")},
		OutputDir: "packages",
		Dir:       "/ws",
	}
	assert.Equal(t,
		[]string{"mono", filepath.Join(".nuget", "nuget.exe"), "install", "/ws/App/packages.config", "-OutputDirectory", "packages"},
		r.Args("/ws/App/packages.config"))

	r.Command = []string{filepath.Join(".nuget", "nuget.exe")}
	assert.Equal(t, filepath.Join("/ws", ".nuget", "nuget.exe"), r.Args("m")[0], "relative tool path is anchored at Dir")

	r.Command = []string{"nuget"}
	assert.Equal(t, "nuget", r.Args("m")[0], "bare names are left for PATH lookup")
}

type fakeRecorder struct {
	records []models.ActionRecord
}

func (f *fakeRecorder) Record(kind models.ActionKind, path string, status models.ActionStatus, detail string) {
	f.records = append(f.records, models.ActionRecord{Kind: kind, Path: path, Status: status, Detail: detail})
}

type fakeLogger struct {
	lines []string
}

func (f *fakeLogger) LogDebug(m string) { f.lines = append(f.lines, "DEBUG "+m) }
func (f *fakeLogger) LogInfo(m string)  { f.lines = append(f.lines, "INFO "+m) }

// writeTool creates an executable shell script at <dir>/.nuget/nuget.exe.
func writeTool(t *testing.T, dir, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script tools are not supported on windows")
	}
	path := filepath.Join(dir, ".nuget", "nuget.exe")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755))
}

func TestRunner_RestoreInvokesTool(t *testing.T) {
	root := t.TempDir()
	writeTool(t, root, `echo "$@" >> calls.txt
echo "Restoring NuGet package Foo.1.0"
`)
	manifest := filepath.Join(root, "App", "packages.config")
	touch(t, manifest)

	rec := &fakeRecorder{}
	log := &fakeLogger{}
	r := &Runner{
		Command:   []string{filepath.Join(".nuget", "nuget.exe")},
		OutputDir: "packages",
		Dir:       root,
		Logger:    log,
		Recorder:  rec,
	}

	require.NoError(t, r.Restore(context.Background(), manifest))

	calls, err := os.ReadFile(filepath.Join(root, "calls.txt"))
	require.NoError(t, err)
	assert.Equal(t, "install "+manifest+" -OutputDirectory packages\n", string(calls))

	require.Len(t, rec.records, 1)
	assert.Equal(t, models.KindRestore, rec.records[0].Kind)
	assert.Equal(t, models.ActionOK, rec.records[0].Status)
	assert.Contains(t, log.lines, "DEBUG Restoring NuGet package Foo.1.0")
}

func TestRunner_FailureCarriesStderr(t *testing.T) {
	root := t.TempDir()
	writeTool(t, root, `echo "Unable to find package Foo" >&2
exit 3
`)

	rec := &fakeRecorder{}
	r := &Runner{Command: []string{filepath.Join(".nuget", "nuget.exe")}, OutputDir: "packages", Dir: root, Recorder: rec}

	err := r.Restore(context.Background(), "packages.config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to find package Foo")
	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionFailed, rec.records[0].Status)
}

func TestRunner_RestoreAllStopsAtFirstFailure(t *testing.T) {
	root := t.TempDir()
	writeTool(t, root, `echo "$2" >> calls.txt
case "$2" in *bad*) exit 1;; esac
`)

	r := &Runner{Command: []string{filepath.Join(".nuget", "nuget.exe")}, OutputDir: "packages", Dir: root}
	err := r.RestoreAll(context.Background(), []string{"a.config", "bad.config", "c.config"})
	require.Error(t, err)

	calls, readErr := os.ReadFile(filepath.Join(root, "calls.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, []string{"a.config", "bad.config"}, strings.Fields(string(calls)))
}

func TestRunner_Timeout(t *testing.T) {
	root := t.TempDir()
	writeTool(t, root, "exec sleep 5\n")

	r := &Runner{
		Command:   []string{filepath.Join(".nuget", "nuget.exe")},
		OutputDir: "packages",
		Dir:       root,
		Timeout:   100 * time.Millisecond,
	}
	err := r.Restore(context.Background(), "packages.config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestRunner_DryRun(t *testing.T) {
	root := t.TempDir()
	rec := &fakeRecorder{}
	log := &fakeLogger{}
	r := &Runner{
		Command:   []string{filepath.Join(".nuget", "nuget.exe")},
		OutputDir: "packages",
		Dir:       root,
		DryRun:    true,
		Logger:    log,
		Recorder:  rec,
	}

	require.NoError(t, r.Restore(context.Background(), "packages.config"))
	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionDryRun, rec.records[0].Status)
	require.Len(t, log.lines, 1)
	assert.True(t, strings.HasPrefix(log.lines[0], "INFO Would run: "))
	assert.NoFileExists(t, filepath.Join(root, ".nuget", "nuget.exe"))
}

func TestRunner_NoCommand(t *testing.T) {
	r := &Runner{}
	assert.Error(t, r.Restore(context.Background(), "packages.config"))
}
