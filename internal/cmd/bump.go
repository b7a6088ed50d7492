package cmd

import (
	"fmt"

	"github.com/harrison/wsmaint/internal/config"
	"github.com/harrison/wsmaint/internal/treesearch"
	"github.com/harrison/wsmaint/internal/versionstamp"
	"github.com/spf13/cobra"
)

// NewBumpCommand creates the 'wsmaint bump' command
func NewBumpCommand() *cobra.Command {
	var dryRun bool
	var maxDepth int
	var fileName string

	cmd := &cobra.Command{
		Use:   "bump [major.minor.build.revision]",
		Short: "Stamp a version into every AssemblyInfo.cs",
		Long: `Rewrite the AssemblyVersion and AssemblyFileVersion attributes of every
AssemblyInfo.cs in the workspace.

Missing version components are 0, so "2.1" stamps 2.1.0.0. Without an
argument the configured default version (1.0.0.0) is used. Only lines that
start with a version attribute are replaced; every other line is kept as is.

Examples:
  # Stamp 2.1.5.3 everywhere
  wsmaint bump 2.1.5.3

  # Preview which files would change
  wsmaint bump 3.0 --dry-run

  # Only search the top two levels
  wsmaint bump 2.0.0.1 --max-depth 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBump(cmd, args, dryRun, maxDepth, fileName)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report which files would change without writing them")
	cmd.Flags().IntVar(&maxDepth, "max-depth", -1, "Maximum search depth (0 = unlimited, -1 = use config)")
	cmd.Flags().StringVar(&fileName, "file", "", "Version file name to rewrite (default from config: AssemblyInfo.cs)")

	return cmd
}

func runBump(cmd *cobra.Command, args []string, dryRun bool, maxDepth int, fileName string) error {
	if maxDepth < -1 {
		return fmt.Errorf("invalid --max-depth %d: must be >= 0", maxDepth)
	}

	// A bad version argument fails before the workspace is touched
	var version *versionstamp.Version
	if len(args) == 1 {
		v, err := versionstamp.ParseVersion(args[0])
		if err != nil {
			return err
		}
		version = &v
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, cmd, args, dryRun)
	if err != nil {
		return err
	}

	if version == nil {
		v, err := versionstamp.ParseVersion(s.Config.Bump.DefaultVersion)
		if err != nil {
			return finish(s, fmt.Errorf("invalid bump.default_version: %w", err))
		}
		version = &v
	}
	if maxDepth < 0 {
		maxDepth = s.Config.Bump.MaxDepth
	}
	if fileName == "" {
		fileName = s.Config.Bump.FileName
	} else if err := config.ValidateName("--file", fileName); err != nil {
		return finish(s, err)
	}

	rewriter := &versionstamp.Rewriter{
		Version:  *version,
		DryRun:   dryRun,
		Logger:   s.Logger,
		Recorder: s,
	}

	s.Logger.LogDebug(fmt.Sprintf("Stamping version %s into %s files (max depth %d)", version, fileName, maxDepth))
	runErr := treesearch.Search(ctx, treesearch.Request{
		Root:     s.Root,
		Target:   fileName,
		Action:   rewriter.Apply,
		MaxDepth: maxDepth,
		Visit:    s.Visit,
	})

	return finish(s, runErr)
}
