package models

import "time"

// ActionKind identifies what a run did to a path.
type ActionKind string

// Action kind constants
const (
	KindRemove  ActionKind = "remove"  // Build-output directory removal
	KindRewrite ActionKind = "rewrite" // Version-stamp rewrite
	KindRestore ActionKind = "restore" // Package manifest restore
)

// ActionStatus is the outcome of a single action.
type ActionStatus string

// Action status constants
const (
	ActionOK      ActionStatus = "ok"
	ActionFailed  ActionStatus = "failed"
	ActionDryRun  ActionStatus = "dry-run"
	ActionSkipped ActionStatus = "skipped"
)

// ActionRecord is one action applied to a matched path during a run.
type ActionRecord struct {
	ID        int64        `json:"id"`
	RunID     string       `json:"run_id"`
	Kind      ActionKind   `json:"kind"`
	Path      string       `json:"path"`
	Status    ActionStatus `json:"status"`
	Detail    string       `json:"detail,omitempty"` // Free-form detail, e.g. "2.1.5.3" or "freed 4.0 KiB"
	CreatedAt time.Time    `json:"created_at"`
}

// Summary aggregates the actions of a run for display.
type Summary struct {
	Command   string
	Succeeded int // Actions with status ok or dry-run
	Failed    int
	Skipped   int
	DryRun    bool
	Duration  time.Duration
	Failures  []ActionRecord
}

// Add counts a record into the summary.
func (s *Summary) Add(rec ActionRecord) {
	switch rec.Status {
	case ActionOK, ActionDryRun:
		s.Succeeded++
	case ActionFailed:
		s.Failed++
		s.Failures = append(s.Failures, rec)
	case ActionSkipped:
		s.Skipped++
	}
}

// Total returns the number of actions counted.
func (s Summary) Total() int {
	return s.Succeeded + s.Failed + s.Skipped
}
