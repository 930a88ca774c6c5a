package types

import "time"

// ModelInfo describes a persisted model artifact.
type ModelInfo struct {
	// example: iris-logreg
	Name string `json:"name" example:"iris-logreg"`
	// Size of the artifact in bytes.
	// example: 2048
	SizeBytes int64 `json:"size_bytes" example:"2048"`
	// example: 1700000000
	ModifiedUnix int64 `json:"modified_unix" example:"1700000000"`
	// Whether the model is resident in memory.
	Loaded bool `json:"loaded"`
}

// JobState is the lifecycle state of a training job.
type JobState string

const (
	JobPending JobState = "pending"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// JobStatus is the record kept for the latest training job of a model name.
type JobStatus struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	State      JobState  `json:"state"`
	Error      string    `json:"error,omitempty"`
	Rows       int       `json:"rows"`
	Features   int       `json:"features"`
	CreatedAt  time.Time `json:"created_at"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Terminal reports whether the job has finished, successfully or not.
func (j JobStatus) Terminal() bool { return j.State == JobDone || j.State == JobFailed }

// Event is a lifecycle event published by the manager.
type Event struct {
	Name   string         `json:"name"`
	Model  string         `json:"model,omitempty"`
	Time   time.Time      `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}
