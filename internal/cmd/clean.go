package cmd

import (
	"fmt"
	"strconv"

	"github.com/harrison/wsmaint/internal/cleanup"
	"github.com/harrison/wsmaint/internal/config"
	"github.com/harrison/wsmaint/internal/treesearch"
	"github.com/spf13/cobra"
)

// NewCleanCommand creates the 'wsmaint clean' command
func NewCleanCommand() *cobra.Command {
	var dryRun bool
	var targets []string

	cmd := &cobra.Command{
		Use:   "clean [maxDepth]",
		Short: "Remove bin and obj build output directories",
		Long: `Remove build output directories from the workspace.

Each target name (bin and obj by default) is searched for case-insensitively.
When a directory contains a match, the match is removed and that directory is
not searched further. maxDepth bounds how far the search descends; 0 searches
the whole tree. With maxDepth N a match can be removed up to N+1 levels below
the workspace root.

Examples:
  # Remove bin/obj in the root and its immediate subdirectories
  wsmaint clean

  # Search two levels deep
  wsmaint clean 2

  # Show what would be removed, searching the whole tree
  wsmaint clean 0 --dry-run

  # Remove other output directories
  wsmaint clean --target bin --target obj --target TestResults`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClean(cmd, args, dryRun, targets)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be removed without deleting anything")
	cmd.Flags().StringSliceVar(&targets, "target", nil, "Directory name to remove (repeatable, default from config: bin, obj)")

	return cmd
}

// parseDepth parses a non-negative max depth argument.
func parseDepth(s string) (int, error) {
	depth, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid max depth %q: must be a whole number", s)
	}
	if depth < 0 {
		return 0, fmt.Errorf("invalid max depth %d: must be >= 0", depth)
	}
	return depth, nil
}

func runClean(cmd *cobra.Command, args []string, dryRun bool, targets []string) error {
	// Validate arguments before touching the workspace
	maxDepth := -1
	if len(args) == 1 {
		depth, err := parseDepth(args[0])
		if err != nil {
			return err
		}
		maxDepth = depth
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	s, err := openSession(ctx, cmd, args, dryRun)
	if err != nil {
		return err
	}

	if maxDepth < 0 {
		maxDepth = s.Config.Clean.MaxDepth
	}
	if len(targets) == 0 {
		targets = s.Config.Clean.Targets
	}
	for _, target := range targets {
		if err := config.ValidateName("--target", target); err != nil {
			return finish(s, err)
		}
	}

	remover := &cleanup.Remover{
		DryRun:   dryRun,
		Logger:   s.Logger,
		Recorder: s,
	}

	var runErr error
	for _, target := range targets {
		s.Logger.LogDebug(fmt.Sprintf("Searching for %s (max depth %d)", target, maxDepth))
		runErr = treesearch.Search(ctx, treesearch.Request{
			Root:     s.Root,
			Target:   target,
			Action:   remover.Remove,
			MaxDepth: maxDepth,
			Visit:    s.Visit,
		})
		if runErr != nil {
			break
		}
	}

	return finish(s, runErr)
}
