package manager

import (
	"fmt"
	"runtime/debug"

	"fitd/internal/estimator"
	"fitd/internal/jobs"
	"fitd/internal/store"
	"fitd/pkg/types"
)

// Fit validates the request, reserves a training slot and trains in the
// background. It returns the job ID as soon as the job is admitted. The
// artifact appears under name once training succeeds; failures are recorded
// in the job status.
func (m *Manager) Fit(name string, X [][]float64, y []any, kind string, params map[string]any) (string, error) {
	k, est, err := prepareFit(name, X, y, kind, params)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", shuttingDownError{}
	}
	release, ok := m.adm.reserve()
	if !ok {
		m.mu.Unlock()
		fitJobsTotal.WithLabelValues("rejected").Inc()
		return "", capacityExceededError{resource: "training jobs", limit: m.adm.Max()}
	}
	if _, busy := m.inflight[name]; busy || m.store.Exists(name) {
		m.mu.Unlock()
		release()
		return "", nameCollisionError{name: name}
	}
	m.inflight[name] = struct{}{}
	m.wg.Add(1)
	m.mu.Unlock()

	job := m.recordJob(newJob(name, k, X))
	m.fitsStarted.Add(1)
	m.publish(EventFitStarted, name, map[string]any{"job_id": job.ID, "kind": string(k), "rows": len(X)})
	m.log.Info().Str("model", name).Str("kind", string(k)).Str("job_id", job.ID).Int("rows", len(X)).Msg("training started")

	go m.train(job, est, X, y, release)
	return job.ID, nil
}

// prepareFit performs every check that can be done without side effects.
func prepareFit(name string, X [][]float64, y []any, kind string, params map[string]any) (estimator.Kind, estimator.Estimator, error) {
	if err := store.ValidName(name); err != nil {
		return "", nil, invalidInputError{err: err}
	}
	k, err := estimator.ParseKind(kind)
	if err != nil {
		return "", nil, invalidModelKindError{kind: kind}
	}
	est, err := estimator.New(k, params)
	if err != nil {
		return "", nil, invalidInputError{err: err}
	}
	if err := estimator.CheckXY(X, y); err != nil {
		return "", nil, invalidInputError{err: err}
	}
	if err := estimator.CheckTargets(k, y); err != nil {
		return "", nil, invalidInputError{err: err}
	}
	return k, est, nil
}

// train runs on its own goroutine. The slot is released and the name leaves
// the in-flight set on every exit path, after the artifact is written.
func (m *Manager) train(job types.JobStatus, est estimator.Estimator, X [][]float64, y []any, release func()) {
	defer m.wg.Done()
	defer release()
	defer func() {
		m.mu.Lock()
		delete(m.inflight, job.Name)
		m.mu.Unlock()
	}()

	job.State = types.JobRunning
	job.StartedAt = timeNow().UTC()
	job = m.recordJob(job)

	err := m.fitAndSave(job.Name, est, X, y)

	job.FinishedAt = timeNow().UTC()
	if err != nil {
		job.State = types.JobFailed
		job.Error = err.Error()
		m.recordJob(job)
		m.fitsFailed.Add(1)
		fitJobsTotal.WithLabelValues("failed").Inc()
		m.publish(EventFitFailed, job.Name, map[string]any{"job_id": job.ID, "error": err.Error()})
		m.log.Error().Err(err).Str("model", job.Name).Str("job_id", job.ID).Msg("training failed")
		return
	}
	job.State = types.JobDone
	m.recordJob(job)
	fitJobsTotal.WithLabelValues("done").Inc()
	dur := job.FinishedAt.Sub(job.StartedAt)
	m.publish(EventFitDone, job.Name, map[string]any{"job_id": job.ID, "duration_ms": dur.Milliseconds()})
	m.log.Info().Str("model", job.Name).Str("job_id", job.ID).Dur("duration", dur).Msg("training done")
}

func (m *Manager) fitAndSave(name string, est estimator.Estimator, X [][]float64, y []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("model", name).Bytes("stack", debug.Stack()).Msg("panic during training")
			err = fmt.Errorf("panic during training: %v", r)
		}
	}()
	if m.beforeFit != nil {
		m.beforeFit(name)
	}
	if err := est.Fit(X, y); err != nil {
		return err
	}
	return m.store.Save(name, est)
}

func newJob(name string, k estimator.Kind, X [][]float64) types.JobStatus {
	features := 0
	if len(X) > 0 {
		features = len(X[0])
	}
	return jobs.NewRecord(name, string(k), len(X), features)
}

// recordJob stores the job status. A failed write is logged and does not
// affect training.
func (m *Manager) recordJob(job types.JobStatus) types.JobStatus {
	if err := m.jobs.Put(job); err != nil {
		m.log.Warn().Err(err).Str("model", job.Name).Str("state", string(job.State)).Msg("failed to record job status")
	}
	return job
}
