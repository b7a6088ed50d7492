package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/wsmaint/internal/history"
	"github.com/harrison/wsmaint/internal/models"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'wsmaint history' command group
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect the record of past runs",
		Long: `Inspect, export and clear the runs recorded in the workspace history
database (.wsmaint/history.db).

Run IDs may be shortened to any unique prefix, such as the 8 characters shown
by 'wsmaint history list'.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryExportCommand())
	cmd.AddCommand(newHistoryClearCommand())

	return cmd
}

// openHistory opens the workspace history database. It returns a nil store
// when no database has been created yet.
func openHistory(cmd *cobra.Command) (*history.Store, string, error) {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}

	dbPath := cfg.HistoryDBPath(root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, dbPath, nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return nil, dbPath, fmt.Errorf("open run history: %w", err)
	}
	return store, dbPath, nil
}

func newHistoryListCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryList(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show (0 = all)")

	return cmd
}

func runHistoryList(cmd *cobra.Command, limit int) error {
	output := cmd.OutOrStdout()

	store, dbPath, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintf(output, "No run history found at: %s\n", dbPath)
		return nil
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintf(output, "No runs recorded.\n")
		return nil
	}

	printRunTable(output, runs)
	return nil
}

// printRunTable prints one line per run with the status coloured.
func printRunTable(w io.Writer, runs []*models.Run) {
	fmt.Fprintf(w, "%-8s  %-7s  %-19s  %8s  %-9s  %s\n", "ID", "COMMAND", "STARTED", "DURATION", "STATUS", "ARGS")
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = formatDuration(run.Duration())
		}
		args := strings.Join(run.Args, " ")
		if run.DryRun {
			args = strings.TrimSpace(args + " (dry run)")
		}
		fmt.Fprintf(w, "%-8s  %-7s  %-19s  %8s  %s  %s\n",
			run.ShortID(),
			run.Command,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			statusColor(run.Status).Sprintf("%-9s", run.Status),
			args)
	}
}

func statusColor(status models.RunStatus) *color.Color {
	switch status {
	case models.RunSucceeded:
		return color.New(color.FgGreen)
	case models.RunFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}

// formatDuration renders d as "850ms", "12s", "3m05s" or "1h02m".
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run and the actions it took",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryShow(cmd, args[0])
		},
	}
}

func runHistoryShow(cmd *cobra.Command, id string) error {
	output := cmd.OutOrStdout()

	store, dbPath, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no run history found at %s", dbPath)
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	actions, err := store.ListActions(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}

	printRunDetail(output, run, actions)
	return nil
}

// printRunDetail prints a run header followed by its actions.
func printRunDetail(w io.Writer, run *models.Run, actions []*models.ActionRecord) {
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(w, "\n=== %s run %s ===\n\n", run.Command, run.ShortID())
	fmt.Fprintf(w, "  ID:        %s\n", run.ID)
	fmt.Fprintf(w, "  Workspace: %s\n", run.Root)
	if len(run.Args) > 0 {
		fmt.Fprintf(w, "  Args:      %s\n", strings.Join(run.Args, " "))
	}
	fmt.Fprintf(w, "  Dry run:   %t\n", run.DryRun)
	fmt.Fprintf(w, "  Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "  Duration:  %s\n", formatDuration(run.Duration()))
	}
	fmt.Fprintf(w, "  Status:    ")
	statusColor(run.Status).Fprintf(w, "%s\n", run.Status)
	if run.Error != "" {
		fmt.Fprintf(w, "  Error:     %s\n", run.Error)
	}

	fmt.Fprintf(w, "\nActions (%d):\n", len(actions))
	if len(actions) == 0 {
		gray.Fprintf(w, "  none\n")
		return
	}
	for _, a := range actions {
		fmt.Fprintf(w, "  %-7s ", a.Kind)
		actionColor(a.Status).Fprintf(w, "%-8s", a.Status)
		fmt.Fprintf(w, " %s", a.Path)
		if a.Detail != "" {
			gray.Fprintf(w, " (%s)", a.Detail)
		}
		fmt.Fprintln(w)
	}
}

func actionColor(status models.ActionStatus) *color.Color {
	switch status {
	case models.ActionOK:
		return color.New(color.FgGreen)
	case models.ActionFailed:
		return color.New(color.FgRed)
	case models.ActionSkipped:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgCyan)
	}
}

func newHistoryExportCommand() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a run report as markdown, HTML, JSON or CSV",
		Long: `Export a run and its actions for sharing or archiving.

If no output file is specified, the report is written to stdout.

Examples:
  # Markdown report on stdout
  wsmaint history export 4f6c2d1e

  # HTML report
  wsmaint history export 4f6c2d1e --format html --output clean-report.html

Supported formats:
  - md:   markdown report with an actions table
  - html: the markdown report rendered to a standalone HTML page
  - json: the run with an array of its actions
  - csv:  one row per action, with headers`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryExport(cmd, args[0], format, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", history.FormatMarkdown, "Export format (md|html|json|csv)")
	cmd.Flags().StringVar(&output, "output", "", "Output file path (stdout if not specified)")

	return cmd
}

func runHistoryExport(cmd *cobra.Command, id, format, output string) error {
	if !history.ValidFormat(format) {
		return fmt.Errorf("invalid format '%s': format must be one of md, html, json, csv", format)
	}

	store, dbPath, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("no run history found at %s", dbPath)
	}
	defer store.Close()

	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return err
	}
	actions, err := store.ListActions(cmd.Context(), run.ID)
	if err != nil {
		return fmt.Errorf("list actions: %w", err)
	}

	writer := cmd.OutOrStdout()
	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		writer = file
	}

	if err := history.Export(writer, run, actions, format); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported run %s to %s\n", run.ShortID(), output)
	}
	return nil
}

func newHistoryClearCommand() *cobra.Command {
	var before string
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete recorded runs",
		Long: `Delete runs from the history database (requires confirmation).

Examples:
  # Delete every run
  wsmaint history clear

  # Delete runs older than 30 days without prompting
  wsmaint history clear --before 30d --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistoryClear(cmd, before, yes)
		},
	}

	cmd.Flags().StringVar(&before, "before", "", "Only delete runs older than this age (e.g. 72h, 30d)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")

	return cmd
}

func runHistoryClear(cmd *cobra.Command, before string, yes bool) error {
	output := cmd.OutOrStdout()

	var age time.Duration
	if before != "" {
		var err error
		age, err = parseAge(before)
		if err != nil {
			return err
		}
	}

	store, dbPath, err := openHistory(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintf(output, "No run history found at: %s\n", dbPath)
		return nil
	}
	defer store.Close()

	if age > 0 {
		fmt.Fprintf(output, "This will delete all runs older than %s.\n", before)
	} else {
		fmt.Fprintf(output, "WARNING: This will delete ALL recorded runs.\n")
	}
	if !yes && !confirmAction(cmd.InOrStdin(), output) {
		fmt.Fprintf(output, "Operation cancelled.\n")
		return nil
	}

	var deleted int64
	if age > 0 {
		deleted, err = store.ClearBefore(cmd.Context(), time.Now().Add(-age))
	} else {
		deleted, err = store.Clear(cmd.Context())
	}
	if err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	runText := "run"
	if deleted != 1 {
		runText = "runs"
	}
	fmt.Fprintf(output, "Deleted %d %s.\n", deleted, runText)
	return nil
}

// parseAge accepts Go durations plus a whole-day form such as "30d".
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid age %q: expected a positive number of days", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid age %q: %w", s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid age %q: must be positive", s)
	}
	return d, nil
}

// confirmAction prompts on w and reads a yes/no answer from r
func confirmAction(r io.Reader, w io.Writer) bool {
	scanner := bufio.NewScanner(r)

	fmt.Fprintf(w, "Continue? [y/N]: ")

	if !scanner.Scan() {
		return false
	}

	response := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return response == "y" || response == "yes"
}
