package history

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harrison/wsmaint/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun() (*models.Run, []*models.ActionRecord) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(2 * time.Second)
	run := &models.Run{
		ID:         "4f6c2d1e-8a7b-4c3d-9e2f-1a2b3c4d5e6f",
		Command:    "clean",
		Root:       "/ws",
		Args:       []string{"2"},
		StartedAt:  started,
		FinishedAt: &finished,
		Status:     models.RunFailed,
		Error:      "remove /ws/b|in: permission denied",
	}
	actions := []*models.ActionRecord{
		{ID: 1, RunID: run.ID, Kind: models.KindRemove, Path: "/ws/proj/bin", Status: models.ActionOK, Detail: "freed 10 B", CreatedAt: started},
		{ID: 2, RunID: run.ID, Kind: models.KindRemove, Path: "/ws/b|in", Status: models.ActionFailed, Detail: "permission denied", CreatedAt: started},
	}
	return run, actions
}

func TestRenderMarkdown(t *testing.T) {
	run, actions := sampleRun()
	md := RenderMarkdown(run, actions)

	assert.True(t, strings.HasPrefix(md, "# wsmaint clean run 4f6c2d1e\n"))
	assert.Contains(t, md, "- **Run ID:** `4f6c2d1e-8a7b-4c3d-9e2f-1a2b3c4d5e6f`")
	assert.Contains(t, md, "- **Arguments:** `2`")
	assert.Contains(t, md, "- **Status:** failed")
	assert.Contains(t, md, "(2s)")
	assert.Contains(t, md, "2 actions: 1 done, 0 skipped, 1 failed")
	assert.Contains(t, md, "| 1 | remove | `/ws/proj/bin` | ok | freed 10 B |")
	assert.Contains(t, md, "| 2 | remove | `/ws/b\\|in` | failed | permission denied |")
	assert.NotContains(t, md, "Dry run")
}

func TestRenderMarkdown_NoActions(t *testing.T) {
	run, _ := sampleRun()
	run.DryRun = true
	md := RenderMarkdown(run, nil)
	assert.Contains(t, md, "No actions recorded.")
	assert.Contains(t, md, "- **Dry run:** yes")
}

func TestExport_HTML(t *testing.T) {
	run, actions := sampleRun()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, run, actions, FormatHTML))

	html := buf.String()
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<title>wsmaint clean run 4f6c2d1e</title>")
	assert.Contains(t, html, "<h1>wsmaint clean run 4f6c2d1e</h1>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<code>/ws/proj/bin</code>")
}

func TestExport_JSON(t *testing.T) {
	run, actions := sampleRun()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, run, actions, FormatJSON))

	var decoded struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Actions []struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		} `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, run.ID, decoded.ID)
	assert.Equal(t, "failed", decoded.Status)
	require.Len(t, decoded.Actions, 2)
	assert.Equal(t, "/ws/b|in", decoded.Actions[1].Path)
}

func TestExport_JSONEmptyActions(t *testing.T) {
	run, _ := sampleRun()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, run, nil, FormatJSON))
	assert.Contains(t, buf.String(), `"actions": []`)
}

func TestExport_CSV(t *testing.T) {
	run, actions := sampleRun()
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, run, actions, FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "run_id", "kind", "path", "status", "detail", "created_at"}, records[0])
	assert.Equal(t, "/ws/proj/bin", records[1][3])
	assert.Equal(t, "2026-03-01T12:00:00Z", records[1][6])
}

func TestExport_InvalidFormat(t *testing.T) {
	run, actions := sampleRun()
	err := Export(&bytes.Buffer{}, run, actions, "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.False(t, ValidFormat("pdf"))
	assert.True(t, ValidFormat(FormatHTML))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport_WriterError(t *testing.T) {
	run, actions := sampleRun()
	for _, format := range []string{FormatMarkdown, FormatHTML, FormatJSON, FormatCSV} {
		t.Run(format, func(t *testing.T) {
			assert.Error(t, Export(failingWriter{}, run, actions, format))
		})
	}
}
