// Package fileutil locates workspace files by name within a bounded number of
// directory levels.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindOptions configures FindFiles.
type FindOptions struct {
	// Names are the base names to match, compared case-insensitively
	Names []string
	// MaxLevel is how many directory levels below root are searched.
	// 0 searches root only; a negative value searches the whole tree.
	MaxLevel int
	// SkipHidden skips directories whose name starts with "."
	SkipHidden bool
}

// FindFiles returns the absolute paths of the files under root whose
// name matches opts.Names, sorted. The first unreadable entry aborts the search.
func FindFiles(root string, opts FindOptions) ([]string, error) {
	if len(opts.Names) == 0 {
		return nil, fmt.Errorf("at least one file name is required")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absRoot)
	}

	names := make(map[string]bool, len(opts.Names))
	for _, n := range opts.Names {
		names[strings.ToLower(n)] = true
	}

	var found []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing %s: %w", path, err)
		}
		if path == absRoot {
			return nil
		}

		if d.IsDir() {
			if opts.SkipHidden && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			if opts.MaxLevel >= 0 && Level(absRoot, path) > opts.MaxLevel {
				return filepath.SkipDir
			}
			return nil
		}

		if names[strings.ToLower(d.Name())] {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(found)
	return found, nil
}

// Level returns how many directories path lies below root. root itself and
// the entries directly inside it are level 0 and 1 respectively.
func Level(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
