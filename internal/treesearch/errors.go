package treesearch

import (
	"fmt"
	"strings"
)

// TraversalError reports a directory that could not be listed.
type TraversalError struct {
	Path  string // Directory being listed
	Depth int    // Depth of the directory below the search root
	Err   error  // Underlying filesystem error
}

// Error implements the error interface for TraversalError.
func (e *TraversalError) Error() string {
	return fmt.Sprintf("list %s (depth %d): %v", e.Path, e.Depth, e.Err)
}

// Unwrap returns the underlying filesystem error.
func (e *TraversalError) Unwrap() error {
	return e.Err
}

// ActionError reports an Action that failed for a matched path.
type ActionError struct {
	Path string // Matched path handed to the action
	Err  error  // Error returned by the action
}

// Error implements the error interface for ActionError.
func (e *ActionError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("action on %s failed", e.Path))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the error returned by the action.
func (e *ActionError) Unwrap() error {
	return e.Err
}
