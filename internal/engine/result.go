package engine

import skerrors "github.com/stevehiehn/skewer/internal/errors"

// Step statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusCleanup = "cleanup"
	StatusDryRun  = "dry-run"
)

// Result is the structured output of a run.
type Result struct {
	RunID      string              `json:"run_id"`
	Model      string              `json:"model,omitempty"`
	Success    bool                `json:"success"`
	FailedStep string              `json:"failed_step,omitempty"`
	Steps      []StepResult        `json:"steps"`
	Artifacts  []string            `json:"artifacts,omitempty"`
	Errors     []skerrors.RunError `json:"errors,omitempty"`
}

// StepResult describes the outcome of a single step.
type StepResult struct {
	Name     string   `json:"name,omitempty"`
	Title    string   `json:"title"`
	Status   string   `json:"status"`
	Sites    []string `json:"sites,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Error    string   `json:"error,omitempty"`
}
