package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/harrison/wsmaint/internal/config"
	"github.com/harrison/wsmaint/internal/workspace"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for wsmaint
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wsmaint",
		Short: "Workspace maintenance for .NET project trees",
		Long: `wsmaint keeps a .NET project workspace tidy.

It removes build output (bin and obj directories), stamps a version into
every AssemblyInfo.cs, and restores NuGet packages for each packages.config
near the workspace root. Every run is recorded in a local history database.

Configuration is loaded from .wsmaint/config.yaml in the workspace if present,
then WSMAINT_* variables from .env and the environment. Flags override both.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.String("dir", ".", "Workspace root directory")
	flags.String("config", "", "Path to config file (default: <dir>/.wsmaint/config.yaml)")
	flags.String("log-level", "", "Log level: trace, debug, info, warn, error")
	flags.String("log-dir", "", "Write per-run log files to this directory")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	flags.Bool("no-history", false, "Do not record this run in the history database")

	cmd.AddCommand(NewCleanCommand())
	cmd.AddCommand(NewBumpCommand())
	cmd.AddCommand(NewRestoreCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// loadConfig resolves the workspace root and the effective configuration:
// config file, then environment, then any global flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	flags := cmd.Flags()

	dir, _ := flags.GetString("dir")
	root, err := workspace.ResolveRoot(dir)
	if err != nil {
		return nil, "", err
	}

	configPath, _ := flags.GetString("config")
	cfg, err := config.Load(root, configPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}

	var logLevel, logDir, metricsFile *string
	var historyEnabled *bool
	if flags.Changed("log-level") {
		v, _ := flags.GetString("log-level")
		logLevel = &v
	}
	if flags.Changed("log-dir") {
		v, _ := flags.GetString("log-dir")
		logDir = &v
	}
	if flags.Changed("metrics-file") {
		v, _ := flags.GetString("metrics-file")
		metricsFile = &v
	}
	if flags.Changed("no-history") {
		v, _ := flags.GetBool("no-history")
		enabled := !v
		historyEnabled = &enabled
	}
	cfg.MergeWithFlags(logLevel, logDir, metricsFile, historyEnabled)

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, root, nil
}

// openSession loads configuration and starts a locked run for a maintenance command.
func openSession(ctx context.Context, cmd *cobra.Command, args []string, dryRun bool) (*workspace.Session, error) {
	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	return workspace.Open(ctx, workspace.Options{
		Root:    root,
		Command: cmd.Name(),
		Args:    args,
		DryRun:  dryRun,
		Config:  cfg,
		Out:     cmd.OutOrStdout(),
	})
}

// commandContext returns the command's context, cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}

// finish closes the session with runErr and returns whichever error should
// reach the user.
func finish(s *workspace.Session, runErr error) error {
	closeErr := s.Close(runErr)
	if runErr != nil {
		return runErr
	}
	return closeErr
}
