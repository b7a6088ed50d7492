package models

import "time"

// RunStatus is the lifecycle state of a maintenance run.
type RunStatus string

// Run status constants
const (
	RunRunning   RunStatus = "running"   // Run started, not yet finished
	RunSucceeded RunStatus = "succeeded" // Every step completed
	RunFailed    RunStatus = "failed"    // A traversal or action step failed
)

// Run is one invocation of a maintenance command against a workspace.
type Run struct {
	ID         string     `json:"id"`                    // UUID assigned when the run starts
	Command    string     `json:"command"`               // clean, bump, restore
	Root       string     `json:"root"`                  // Absolute workspace root
	Args       []string   `json:"args"`                  // Command arguments as given
	DryRun     bool       `json:"dry_run"`               // No filesystem changes were made
	StartedAt  time.Time  `json:"started_at"`            // When the run started
	FinishedAt *time.Time `json:"finished_at,omitempty"` // When the run finished (nil while running)
	Status     RunStatus  `json:"status"`                // Current status
	Error      string     `json:"error,omitempty"`       // Error message for failed runs
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ShortID returns the first 8 characters of the run ID.
func (r Run) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}
