// Package manager owns the model lifecycle: admission of background training
// jobs, the bounded cache of loaded models and the persistence contract
// between them. It is structured into small files by concern:
//
//   - manager.go: core Manager type, ModelStore contract, Close.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsCapacityExceeded, IsNameCollision,
//     IsNotFound, IsNotLoaded, IsInvalidModelKind, IsInvalidInput).
//   - admission.go: non-blocking training-slot reservation.
//   - cache.go: loaded-model cache with load placeholders.
//   - fit.go: Fit and the background training goroutine.
//   - ops.go: Load, Unload, Predict, Remove, RemoveAll, Preload.
//   - status_report.go: Status, ListModels, Jobs.
//   - sanity.go: storage checks backing readiness.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: prometheus collectors.
//
// A name moves ABSENT -> PERSISTED (fit) -> RESIDENT (load) -> PERSISTED
// (unload); remove returns it to ABSENT from either state and evicts it.
// Persisted names are never overwritten by fit.
//
// External packages should use public methods only (New/NewWithConfig, Fit,
// Load, Unload, Predict, Remove, RemoveAll, Status, ListModels, Jobs, Close).
package manager
