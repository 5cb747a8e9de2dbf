package domain

import "time"

// JobKind is the closed set of asynchronous work the orchestrator runs.
// A map[JobKind]Handler registry dispatches on this value, realizing the
// "dynamic scheduling via decorators" redesign note as an explicit table
// rather than runtime decoration.
type JobKind string

const (
	JobOptimizeDay   JobKind = "optimize_day"
	JobBatchPredict  JobKind = "batch_predict"
	JobBulkImport    JobKind = "bulk_import"
)

// JobStatus is a job's position in its lifecycle. Progression is
// monotonically forward except queued -> cancelled.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether the job will not transition further.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobSucceeded, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Job is the orchestrator's unit of asynchronous work, covering
// OptimizeDay, BatchPredict, and BulkImport alike.
type Job struct {
	ID           string     `json:"id"`
	Kind         JobKind    `json:"kind"`
	TargetKey    string     `json:"target_key"`
	Submitter    string     `json:"submitter"`
	Status       JobStatus  `json:"status"`
	Input        []byte     `json:"input"`
	Progress     float64    `json:"progress"`
	ProgressNote string     `json:"progress_note,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	ResultHandle string     `json:"result_handle,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	LastProgressAt *time.Time `json:"last_progress_at,omitempty"`
	Version      int64      `json:"version"`
}
