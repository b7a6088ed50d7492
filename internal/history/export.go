package history

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/wsmaint/internal/models"
)

// Export formats
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatJSON     = "json"
	FormatCSV      = "csv"
)

// ValidFormat reports whether format is supported by Export.
func ValidFormat(format string) bool {
	switch format {
	case FormatMarkdown, FormatHTML, FormatJSON, FormatCSV:
		return true
	}
	return false
}

// Export writes a report of run and its actions to w in the given format.
func Export(w io.Writer, run *models.Run, actions []*models.ActionRecord, format string) error {
	switch format {
	case FormatMarkdown:
		_, err := io.WriteString(w, RenderMarkdown(run, actions))
		return err
	case FormatHTML:
		return renderHTML(w, run, actions)
	case FormatJSON:
		return exportJSON(w, run, actions)
	case FormatCSV:
		return exportCSV(w, actions)
	default:
		return fmt.Errorf("invalid format '%s': format must be one of md, html, json, csv", format)
	}
}

// RenderMarkdown builds the markdown run report.
func RenderMarkdown(run *models.Run, actions []*models.ActionRecord) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# wsmaint %s run %s\n\n", run.Command, run.ShortID())
	fmt.Fprintf(&sb, "- **Run ID:** `%s`\n", run.ID)
	fmt.Fprintf(&sb, "- **Workspace:** `%s`\n", run.Root)
	if len(run.Args) > 0 {
		fmt.Fprintf(&sb, "- **Arguments:** `%s`\n", strings.Join(run.Args, " "))
	}
	if run.DryRun {
		sb.WriteString("- **Dry run:** yes\n")
	}
	fmt.Fprintf(&sb, "- **Started:** %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(&sb, "- **Finished:** %s (%s)\n", run.FinishedAt.Local().Format(time.RFC3339), run.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "- **Status:** %s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(&sb, "- **Error:** %s\n", escapeCell(run.Error))
	}

	var summary models.Summary
	for _, a := range actions {
		summary.Add(*a)
	}
	sb.WriteString("\n## Summary\n\n")
	fmt.Fprintf(&sb, "%d actions: %d done, %d skipped, %d failed\n", summary.Total(), summary.Succeeded, summary.Skipped, summary.Failed)

	sb.WriteString("\n## Actions\n\n")
	if len(actions) == 0 {
		sb.WriteString("No actions recorded.\n")
		return sb.String()
	}

	sb.WriteString("| # | Kind | Path | Status | Detail |\n")
	sb.WriteString("|---|------|------|--------|--------|\n")
	for i, a := range actions {
		fmt.Fprintf(&sb, "| %d | %s | `%s` | %s | %s |\n",
			i+1, a.Kind, escapeCell(a.Path), a.Status, escapeCell(a.Detail))
	}

	return sb.String()
}

// escapeCell keeps a value on one table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", " ")
}

func renderHTML(w io.Writer, run *models.Run, actions []*models.ActionRecord) error {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(RenderMarkdown(run, actions)), &body); err != nil {
		return fmt.Errorf("failed to render HTML: %w", err)
	}

	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>wsmaint %s run %s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		run.Command, run.ShortID(), body.String())
	return err
}

type runExport struct {
	*models.Run
	Actions []*models.ActionRecord `json:"actions"`
}

func exportJSON(w io.Writer, run *models.Run, actions []*models.ActionRecord) error {
	if actions == nil {
		actions = make([]*models.ActionRecord, 0)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(runExport{Run: run, Actions: actions}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func exportCSV(w io.Writer, actions []*models.ActionRecord) error {
	csvWriter := csv.NewWriter(w)

	header := []string{"id", "run_id", "kind", "path", "status", "detail", "created_at"}
	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, a := range actions {
		row := []string{
			fmt.Sprint(a.ID),
			a.RunID,
			string(a.Kind),
			a.Path,
			string(a.Status),
			a.Detail,
			a.CreatedAt.Format(time.RFC3339),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
