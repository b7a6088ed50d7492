package cmd

import (
	"fmt"

	"github.com/harrison/wsmaint/internal/restore"
	"github.com/spf13/cobra"
)

// NewRestoreCommand creates the 'wsmaint restore' command
func NewRestoreCommand() *cobra.Command {
	var dryRun bool
	var level int
	var output string
	var tool string

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore NuGet packages for every packages.config",
		Long: `Run the package restore tool for each packages.config found near the
workspace root.

Manifests are looked for in the root and in directories up to --level levels
below it (2 by default). For each one wsmaint runs

  <tool> install <manifest> -OutputDirectory <output>

from the workspace root, stopping at the first failure. The tool defaults to
.nuget/nuget.exe; set restore.command in the config file to run it through
another program, e.g. ["mono", ".nuget/nuget.exe"].

Examples:
  # Restore into ./packages with the workspace's nuget.exe
  wsmaint restore

  # Show the commands without running them
  wsmaint restore --dry-run

  # Use a nuget on PATH and a different output directory
  wsmaint restore --tool nuget --output lib/packages`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, args, dryRun, level, output, tool)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the restore commands without running them")
	cmd.Flags().IntVar(&level, "level", -1, "Directory levels below the root to search for manifests (-1 = use config)")
	cmd.Flags().StringVar(&output, "output", "", "Package output directory (default from config: packages)")
	cmd.Flags().StringVar(&tool, "tool", "", "Restore executable (default from config: .nuget/nuget.exe)")

	return cmd
}

func runRestore(cmd *cobra.Command, args []string, dryRun bool, level int, output, tool string) error {
	if level < -1 {
		return fmt.Errorf("invalid --level %d: must be >= 0", level)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, cmd, args, dryRun)
	if err != nil {
		return err
	}

	rc := s.Config.Restore
	if level < 0 {
		level = rc.Level
	}
	if output == "" {
		output = rc.OutputDir
	}
	command := rc.Command
	if tool != "" {
		command = []string{tool}
	}

	manifests, err := restore.Discover(s.Root, rc.ManifestName, level)
	if err != nil {
		return finish(s, err)
	}
	if len(manifests) == 0 {
		s.Logger.LogInfo(fmt.Sprintf("No %s found within %d levels of %s", rc.ManifestName, level, s.Root))
		return finish(s, nil)
	}
	s.Logger.LogDebug(fmt.Sprintf("Found %d %s file(s)", len(manifests), rc.ManifestName))

	runner := &restore.Runner{
		Command:   command,
		OutputDir: output,
		Dir:       s.Root,
		Timeout:   rc.Timeout,
		DryRun:    dryRun,
		Logger:    s.Logger,
		Recorder:  s,
	}

	return finish(s, runner.RestoreAll(ctx, manifests))
}
