package types

// FitRequest starts a background training job.
type FitRequest struct {
	// Unique model name. Becomes the artifact file name.
	// example: iris-logreg
	Name string `json:"name" validate:"required,max=128" example:"iris-logreg"`
	// Feature matrix, one row per sample.
	// example: [[0,0],[1,1]]
	X [][]float64 `json:"X" validate:"required,min=1,dive,min=1"`
	// Targets, one per row. Class labels for classifiers, numbers (or arrays of
	// numbers for multi-output) for regression.
	// example: [0,1]
	Y []any `json:"y" validate:"required,min=1"`
	// Model kind.
	// example: logreg
	ModelType string `json:"model_type" validate:"required" enums:"logreg,randf,lr" example:"logreg"`
	// Optional estimator parameters.
	Params map[string]any `json:"params,omitempty"`
}

// PredictRequest runs inference against a loaded model.
type PredictRequest struct {
	// example: iris-logreg
	Name string      `json:"name" validate:"required,max=128" example:"iris-logreg"`
	X    [][]float64 `json:"X" validate:"required,min=1,dive,min=1"`
}

// ModelRequest names a model for load/unload/remove.
type ModelRequest struct {
	// example: iris-logreg
	Name string `json:"name" validate:"required,max=128" example:"iris-logreg"`
}

// StatusReply is the common {status: ...} acknowledgement.
type StatusReply struct {
	// example: loaded
	Status string `json:"status" example:"loaded"`
	// Set by /fit: identifier of the started job.
	JobID string `json:"job_id,omitempty" example:"6f1c8c3e-8a53-4c1e-9a43-2b1f0d4c9a10"`
	// Set by /remove_all: number of artifacts deleted.
	Removed *int `json:"removed,omitempty" example:"3"`
}

// PredictResponse carries the model output. Elements are scalars, or arrays for
// multi-output regression.
type PredictResponse struct {
	Predictions []any `json:"predictions"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not found: m1
	Error string `json:"error" example:"model not found: m1"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
	// Machine-readable error kind.
	// example: not_found
	Kind string `json:"kind,omitempty" example:"not_found"`
}

// ModelsResponse is returned by GET /models.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// JobsResponse is returned by GET /jobs.
type JobsResponse struct {
	Jobs []JobStatus `json:"jobs"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Training jobs currently running.
	// example: 1
	ActiveJobs int `json:"active_jobs" example:"1"`
	// Ceiling on concurrent training jobs.
	// example: 4
	MaxProcesses int `json:"max_processes" example:"4"`
	// Resident models.
	Loaded []LoadedModel `json:"loaded"`
	// Ceiling on resident models.
	// example: 8
	MaxLoaded int `json:"max_loaded" example:"8"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 12
	FitsStarted uint64 `json:"fits_started" example:"12"`
	// example: 1
	FitsFailed uint64 `json:"fits_failed" example:"1"`
	// example: 20
	LoadsTotal uint64 `json:"loads_total" example:"20"`
}

// LoadedModel summarizes a resident model for /status.
type LoadedModel struct {
	// example: iris-logreg
	Name string `json:"name" example:"iris-logreg"`
	// example: logreg
	Kind string `json:"kind" example:"logreg"`
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix" example:"1700000000"`
	// example: 42
	Predictions uint64 `json:"predictions" example:"42"`
}
