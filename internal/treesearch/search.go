package treesearch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Action is invoked once for every matched path.
type Action func(path string) error

// Request configures a single Search call.
type Request struct {
	// Root is the directory the search starts from. Paths handed to Action
	// are joined onto Root, so they are absolute only when Root is.
	Root string
	// Target is the entry name to look for, compared case-insensitively
	Target string
	// Action is called for every match
	Action Action
	// MaxDepth limits descent (0 = unlimited)
	MaxDepth int
	// Visit, when set, is called for every directory before it is listed
	Visit func(path string, depth int)
}

// frame is one pending directory on the work-list.
type frame struct {
	path  string
	depth int
}

// Validate checks the request before any filesystem access.
func (r Request) Validate() error {
	if r.Root == "" {
		return errors.New("search root cannot be empty")
	}
	if r.Target == "" {
		return errors.New("search target cannot be empty")
	}
	if r.Action == nil {
		return errors.New("search action cannot be nil")
	}
	if r.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", r.MaxDepth)
	}
	return nil
}

// Search walks the tree under req.Root and applies req.Action to every entry
// named req.Target that is not below another match.
func Search(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	target := strings.ToLower(req.Target)
	stack := []frame{{path: req.Root, depth: 0}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if req.Visit != nil {
			req.Visit(current.path, current.depth)
		}

		entries, err := os.ReadDir(current.path)
		if err != nil {
			return &TraversalError{Path: current.path, Depth: current.depth, Err: err}
		}

		matched := false
		for _, entry := range entries {
			if strings.ToLower(entry.Name()) != target {
				continue
			}
			matched = true
			path := filepath.Join(current.path, entry.Name())
			if err := req.Action(path); err != nil {
				return &ActionError{Path: path, Err: err}
			}
		}
		if matched {
			continue
		}

		childDepth := current.depth + 1
		if req.MaxDepth > 0 && childDepth > req.MaxDepth {
			continue
		}

		// Push in reverse so the lexically first child is listed next.
		for i := len(entries) - 1; i >= 0; i-- {
			childPath := filepath.Join(current.path, entries[i].Name())
			if !isDir(entries[i], childPath) {
				continue
			}
			stack = append(stack, frame{path: childPath, depth: childDepth})
		}
	}

	return nil
}

// isDir reports whether entry is a directory, resolving symbolic links.
func isDir(entry fs.DirEntry, path string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		// Dangling link
		return false
	}
	return info.IsDir()
}
