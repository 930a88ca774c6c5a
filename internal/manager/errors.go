package manager

import (
	"errors"
	"fmt"
)

// capacityExceededError signals that a bounded resource is full (return 429).
type capacityExceededError struct {
	resource string
	limit    int
}

func (e capacityExceededError) Error() string {
	return fmt.Sprintf("capacity exceeded: %s (limit %d)", e.resource, e.limit)
}

// IsCapacityExceeded reports whether err means the training-job ceiling or the
// loaded-model ceiling was hit.
func IsCapacityExceeded(err error) bool {
	var e capacityExceededError
	return errors.As(err, &e)
}

// nameCollisionError is returned by Fit when the name is stored or in training.
type nameCollisionError struct{ name string }

func (e nameCollisionError) Error() string { return "model name already in use: " + e.name }

func IsNameCollision(err error) bool {
	var e nameCollisionError
	return errors.As(err, &e)
}

// notFoundError means no artifact (or job record) exists for the name.
type notFoundError struct{ name string }

func (e notFoundError) Error() string { return "model not found: " + e.name }

// ErrModelNotFound returns the error used for a missing model name.
func ErrModelNotFound(name string) error { return notFoundError{name: name} }

func IsNotFound(err error) bool {
	var e notFoundError
	return errors.As(err, &e)
}

// notLoadedError is returned by Predict for a model that is not resident.
type notLoadedError struct{ name string }

func (e notLoadedError) Error() string { return "model not loaded: " + e.name }

func IsNotLoaded(err error) bool {
	var e notLoadedError
	return errors.As(err, &e)
}

type invalidModelKindError struct{ kind string }

func (e invalidModelKindError) Error() string { return fmt.Sprintf("invalid model kind: %q", e.kind) }

func IsInvalidModelKind(err error) bool {
	var e invalidModelKindError
	return errors.As(err, &e)
}

// invalidInputError covers bad names, params and data shapes.
type invalidInputError struct{ err error }

func (e invalidInputError) Error() string { return e.err.Error() }
func (e invalidInputError) Unwrap() error { return e.err }

func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}

// shuttingDownError is returned by Fit once Close has begun (return 503).
type shuttingDownError struct{}

func (shuttingDownError) Error() string { return "manager is shutting down" }

func IsShuttingDown(err error) bool {
	var e shuttingDownError
	return errors.As(err, &e)
}
