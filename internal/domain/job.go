package domain

import "time"

// JobStatus represents the lifecycle state of a generation job.
// Values include JobStatusPending, JobStatusQueued, JobStatusRunning,
// JobStatusCompleted, JobStatusError, and JobStatusCancelled.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// Active reports whether the status is one of the non-terminal states
// (pending, queued, running).
func (s JobStatus) Active() bool {
	switch s {
	case JobStatusPending, JobStatusQueued, JobStatusRunning:
		return true
	}
	return false
}

// Progress holds step-level progress, present only while a job is active.
type Progress struct {
	Value   int     `json:"value"`
	Max     int     `json:"max"`
	Percent float64 `json:"percent,omitempty"`
	Node    string  `json:"node,omitempty"`
}

// Overall holds coarser multi-step progress, present only while a job is active.
type Overall struct {
	Current int     `json:"current"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent,omitempty"`
}

// Preview is a transient live preview image streamed by the backend.
type Preview struct {
	URL string `json:"url"`
}

// JobOutput is one produced output of a completed job.
// Exists is tri-state: nil means not checked yet, false means known missing.
type JobOutput struct {
	ImagePath string `json:"image_path"`
	ThumbURL  string `json:"thumb_url,omitempty"`
	Exists    *bool  `json:"exists,omitempty"`
}

// Visible reports whether the output should appear in output path lists.
// Only outputs known to be missing are hidden.
func (o JobOutput) Visible() bool {
	return o.Exists == nil || *o.Exists
}

// Job represents one submitted generation request as reported by the backend.
// Snapshots arrive whole from every update source; there is no field-level merge.
type Job struct {
	ID           string      `json:"id"`
	WorkflowID   string      `json:"workflow_id"`
	Status       JobStatus   `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	Progress     *Progress   `json:"progress,omitempty"`
	Overall      *Overall    `json:"overall,omitempty"`
	Preview      *Preview    `json:"preview,omitempty"`
	PromptID     string      `json:"prompt_id,omitempty"`
	Outputs      []JobOutput `json:"outputs,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}

// Active reports whether the job is in a non-terminal state.
func (j *Job) Active() bool {
	return j.Status.Active()
}

// Suspect reports whether the job completed with no discoverable outputs while
// carrying a backend correlation id. Such jobs are eligible for an automatic
// output recheck: the backend said done but the output side effect may not be
// visible yet.
func (j *Job) Suspect() bool {
	return j.Status == JobStatusCompleted && len(j.Outputs) == 0 && j.PromptID != ""
}
