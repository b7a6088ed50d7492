// Package restore finds package manifests near the workspace root and runs the
// package-restore tool for each of them.
package restore

import (
	"fmt"

	"github.com/harrison/wsmaint/internal/fileutil"
)

// Discover returns the manifests named manifestName (case-insensitive) whose
// directory is at most level levels below root, sorted by path.
// Level 0 only looks in root itself.
func Discover(root, manifestName string, level int) ([]string, error) {
	if manifestName == "" {
		return nil, fmt.Errorf("manifest name cannot be empty")
	}
	if level < 0 {
		return nil, fmt.Errorf("level must be >= 0, got %d", level)
	}

	manifests, err := fileutil.FindFiles(root, fileutil.FindOptions{
		Names:    []string{manifestName},
		MaxLevel: level,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s for %s: %w", root, manifestName, err)
	}
	return manifests, nil
}
