package manager

import (
	"context"
	"errors"

	"fitd/internal/estimator"
	"fitd/internal/store"
)

func checkName(name string) error {
	if err := store.ValidName(name); err != nil {
		return invalidInputError{err: err}
	}
	return nil
}

// Load makes a persisted model resident. Loading a resident model is a no-op
// that reports StatusAlreadyLoaded.
func (m *Manager) Load(name string) (LoadStatus, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	st, err := m.cache.load(name, m.readModel)
	if err != nil {
		return "", err
	}
	if st == StatusLoaded {
		m.loadsTotal.Add(1)
		modelLoadsTotal.Inc()
		m.publish(EventModelLoaded, name, nil)
		m.log.Info().Str("model", name).Msg("model loaded")
	}
	return st, nil
}

func (m *Manager) readModel(name string) (estimator.Estimator, error) {
	est, err := m.store.Load(name)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError{name: name}
	}
	return est, err
}

// Unload drops a resident model. Storage is untouched.
func (m *Manager) Unload(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if !m.cache.unload(name) {
		return notFoundError{name: name}
	}
	m.publish(EventModelUnloaded, name, nil)
	m.log.Info().Str("model", name).Msg("model unloaded")
	return nil
}

// Predict runs the resident model on X. Outputs are ordered like the rows of X.
func (m *Manager) Predict(name string, X [][]float64) ([]any, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	e, ok := m.cache.get(name)
	if !ok {
		return nil, notLoadedError{name: name}
	}
	out, err := e.est.Predict(X)
	if err != nil {
		if errors.Is(err, estimator.ErrInvalidInput) {
			return nil, invalidInputError{err: err}
		}
		return nil, err
	}
	e.predictions.Add(uint64(len(out)))
	predictionsTotal.Add(float64(len(out)))
	return out, nil
}

// Remove deletes the persisted model, evicts it from the cache and drops its
// job record.
func (m *Manager) Remove(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := m.store.Remove(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError{name: name}
		}
		return err
	}
	evicted := m.cache.evict(name)
	m.dropJob(name)
	m.publish(EventModelRemoved, name, map[string]any{"evicted": evicted})
	m.log.Info().Str("model", name).Bool("evicted", evicted).Msg("model removed")
	return nil
}

// RemoveAll deletes every persisted model and clears the cache. Job records of
// models still training are kept.
func (m *Manager) RemoveAll() (int, error) {
	n, err := m.store.RemoveAll()
	evicted := m.cache.clear()

	records, lerr := m.jobs.List()
	if lerr != nil {
		m.log.Warn().Err(lerr).Msg("failed to list job records")
	}
	m.mu.Lock()
	for _, j := range records {
		if _, busy := m.inflight[j.Name]; !busy {
			m.dropJobLocked(j.Name)
		}
	}
	m.mu.Unlock()

	m.publish(EventModelsCleared, "", map[string]any{"removed": n, "evicted": evicted})
	m.log.Info().Int("removed", n).Int("evicted", evicted).Msg("all models removed")
	return n, err
}

func (m *Manager) dropJob(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[name]; busy {
		return
	}
	m.dropJobLocked(name)
}

func (m *Manager) dropJobLocked(name string) {
	if err := m.jobs.Delete(name); err != nil {
		m.log.Warn().Err(err).Str("model", name).Msg("failed to delete job record")
	}
}

// Preload loads each named model, logging failures. It returns the number of
// models made resident.
func (m *Manager) Preload(ctx context.Context, names []string) int {
	n := 0
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		st, err := m.Load(name)
		if err != nil {
			m.log.Warn().Err(err).Str("model", name).Msg("preload failed")
			continue
		}
		if st == StatusLoaded {
			n++
		}
	}
	return n
}
