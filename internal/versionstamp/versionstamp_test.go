package versionstamp

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/harrison/wsmaint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr string
	}{
		{in: "2.1.5.3", want: Version{2, 1, 5, 3}},
		{in: "2.1", want: Version{2, 1, 0, 0}},
		{in: "7", want: Version{7, 0, 0, 0}},
		{in: " 1.0.0.0 ", want: Version{1, 0, 0, 0}},
		{in: "", wantErr: "empty"},
		{in: "1.2.3.4.5", wantErr: "at most 4"},
		{in: "1.x", wantErr: "not a number"},
		{in: "1..2", wantErr: "not a number"},
		{in: "1.0.*", wantErr: "not a number"},
		{in: "1.-2", wantErr: ">= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVersion(tt.in)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersion_String(t *testing.T) {
	assert.Equal(t, "2.1.5.3", Version{2, 1, 5, 3}.String())
	assert.Equal(t, "0.0.0.0", Version{}.String())
}

func TestRewriteLines(t *testing.T) {
	v := Version{2, 1, 5, 3}

	tests := []struct {
		name        string
		in          string
		want        string
		wantChanged int
	}{
		{
			name: "crlf file",
			in: "using System.Reflection;\r\n" +
				"[assembly: AssemblyTitle(\"App\")]\r\n" +
				"[assembly: AssemblyVersion(\"1.0.0.0\")]\r\n" +
				"[assembly: AssemblyFileVersion(\"1.0.0.0\")]\r\n",
			want: "using System.Reflection;\r\n" +
				"[assembly: AssemblyTitle(\"App\")]\r\n" +
				"[assembly: AssemblyVersion(\"2.1.5.3\")]\r\n" +
				"[assembly: AssemblyFileVersion(\"2.1.5.3\")]\r\n",
			wantChanged: 2,
		},
		{
			name:        "lf terminators are kept",
			in:          "[assembly: AssemblyVersion(\"1.0.0.0\")]\n// end\n",
			want:        "[assembly: AssemblyVersion(\"2.1.5.3\")]\n// end\n",
			wantChanged: 1,
		},
		{
			name:        "last line without terminator",
			in:          "// header\n[assembly: AssemblyFileVersion(\"3.4.5\")]",
			want:        "// header\n[assembly: AssemblyFileVersion(\"2.1.5.3\")]",
			wantChanged: 1,
		},
		{
			name:        "wildcards",
			in:          "[assembly: AssemblyVersion(\"1.0.*\")]\n[assembly: AssemblyFileVersion(\"1.2.3.*\")]\n",
			want:        "[assembly: AssemblyVersion(\"2.1.5.3\")]\n[assembly: AssemblyFileVersion(\"2.1.5.3\")]\n",
			wantChanged: 2,
		},
		{
			name:        "trailing text after the attribute is replaced with the line",
			in:          "[assembly: AssemblyVersion(\"1.0.0.0\")] // pinned\n",
			want:        "[assembly: AssemblyVersion(\"2.1.5.3\")]\n",
			wantChanged: 1,
		},
		{
			name: "non-matching lines are byte-identical",
			in: "  [assembly: AssemblyVersion(\"1.0.0.0\")]\n" +
				"// [assembly: AssemblyVersion(\"1.0.0.0\")]\n" +
				"[assembly: AssemblyVersion(\"1.0\")]\n" +
				"[assembly: AssemblyInformationalVersion(\"1.0.0.0\")]\n" +
				"[assembly:AssemblyVersion(\"1.0.0.0\")]\r\n",
			want: "  [assembly: AssemblyVersion(\"1.0.0.0\")]\n" +
				"// [assembly: AssemblyVersion(\"1.0.0.0\")]\n" +
				"[assembly: AssemblyVersion(\"1.0\")]\n" +
				"[assembly: AssemblyInformationalVersion(\"1.0.0.0\")]\n" +
				"[assembly:AssemblyVersion(\"1.0.0.0\")]\r\n",
			wantChanged: 0,
		},
		{
			name:        "empty input",
			in:          "",
			want:        "",
			wantChanged: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := RewriteLines([]byte(tt.in), v)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
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
func (f *fakeLogger) LogWarn(m string)  { f.lines = append(f.lines, "WARN "+m) }

const assemblyInfo = "using System.Reflection;\r\n" +
	"[assembly: AssemblyVersion(\"1.0.0.0\")]\r\n" +
	"[assembly: AssemblyFileVersion(\"1.0.0.0\")]\r\n"

func TestRewriter_Apply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AssemblyInfo.cs")
	require.NoError(t, os.WriteFile(path, []byte(assemblyInfo), 0640))

	rec := &fakeRecorder{}
	log := &fakeLogger{}
	r := &Rewriter{Version: Version{2, 1, 5, 3}, Logger: log, Recorder: rec}

	require.NoError(t, r.Apply(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "using System.Reflection;\r\n"+
		"[assembly: AssemblyVersion(\"2.1.5.3\")]\r\n"+
		"[assembly: AssemblyFileVersion(\"2.1.5.3\")]\r\n", string(data))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0640), info.Mode().Perm(), "file mode is preserved")
	}

	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionRecord{Kind: models.KindRewrite, Path: path, Status: models.ActionOK, Detail: "2.1.5.3"}, rec.records[0])
	assert.Contains(t, log.lines, "INFO Updating file "+path+" to version 2.1.5.3")
}

func TestRewriter_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AssemblyInfo.cs")
	require.NoError(t, os.WriteFile(path, []byte(assemblyInfo), 0644))

	rec := &fakeRecorder{}
	r := &Rewriter{Version: Version{9, 9, 9, 9}, DryRun: true, Recorder: rec}
	require.NoError(t, r.Apply(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, assemblyInfo, string(data))
	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionDryRun, rec.records[0].Status)
}

func TestRewriter_NoAttributes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AssemblyInfo.cs")
	require.NoError(t, os.WriteFile(path, []byte("// generated\n"), 0644))

	rec := &fakeRecorder{}
	r := &Rewriter{Version: Version{2, 0, 0, 0}, Recorder: rec}
	require.NoError(t, r.Apply(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "// generated\n", string(data))
	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionSkipped, rec.records[0].Status)
}

func TestRewriter_DirectoryIsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AssemblyInfo.cs")
	require.NoError(t, os.Mkdir(path, 0755))

	rec := &fakeRecorder{}
	log := &fakeLogger{}
	r := &Rewriter{Version: Version{2, 0, 0, 0}, Logger: log, Recorder: rec}
	require.NoError(t, r.Apply(path))

	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionSkipped, rec.records[0].Status)
	assert.Contains(t, log.lines[0], "WARN Skipping")
}

func TestRewriter_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AssemblyInfo.cs")

	rec := &fakeRecorder{}
	r := &Rewriter{Version: Version{2, 0, 0, 0}, Recorder: rec}
	err := r.Apply(path)

	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	require.Len(t, rec.records, 1)
	assert.Equal(t, models.ActionFailed, rec.records[0].Status)
}
