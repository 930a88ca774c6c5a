package manager

import (
	"time"

	"fitd/pkg/types"
)

// Lifecycle event names.
const (
	EventFitStarted    = "fit_started"
	EventFitDone       = "fit_done"
	EventFitFailed     = "fit_failed"
	EventModelLoaded   = "model_loaded"
	EventModelUnloaded = "model_unloaded"
	EventModelRemoved  = "model_removed"
	EventModelsCleared = "models_cleared"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(types.Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(types.Event) {}

func (m *Manager) publish(name, model string, fields map[string]any) {
	m.publisher.Publish(types.Event{Name: name, Model: model, Time: time.Now().UTC(), Fields: fields})
}
