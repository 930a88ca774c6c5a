// Package jobs records the status of background training jobs, keyed by model
// name. Only the latest job per name is kept.
package jobs

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fitd/pkg/types"
)

// ErrInterrupted is the error recorded for jobs that were still pending or
// running when the previous process exited.
var ErrInterrupted = errors.New("interrupted: server stopped before the job finished")

// Store persists job status records.
type Store interface {
	Put(job types.JobStatus) error
	// Get returns the record for name; ok is false when there is none.
	Get(name string) (job types.JobStatus, ok bool, err error)
	List() ([]types.JobStatus, error)
	Delete(name string) error
	DeleteAll() error
	Close() error
}

// NewRecord returns a pending record with a fresh ID.
func NewRecord(name, kind string, rows, features int) types.JobStatus {
	return types.JobStatus{
		ID:        uuid.NewString(),
		Name:      name,
		Kind:      kind,
		State:     types.JobPending,
		Rows:      rows,
		Features:  features,
		CreatedAt: time.Now().UTC(),
	}
}

// RecoverInterrupted marks every non-terminal record as failed and returns how
// many it changed.
func RecoverInterrupted(s Store) (int, error) {
	all, err := s.List()
	if err != nil {
		return 0, err
	}
	n := 0
	now := time.Now().UTC()
	for _, j := range all {
		if j.Terminal() {
			continue
		}
		j.State = types.JobFailed
		j.Error = ErrInterrupted.Error()
		j.FinishedAt = now
		if err := s.Put(j); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func sortJobs(js []types.JobStatus) {
	sort.Slice(js, func(i, j int) bool { return js[i].Name < js[j].Name })
}

// MemoryStore is an in-process Store used by tests and when no database path
// is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]types.JobStatus
}

func NewMemory() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]types.JobStatus)}
}

func (m *MemoryStore) Put(job types.JobStatus) error {
	m.mu.Lock()
	m.jobs[job.Name] = job
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(name string) (types.JobStatus, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[name]
	return j, ok, nil
}

func (m *MemoryStore) List() ([]types.JobStatus, error) {
	m.mu.RLock()
	out := make([]types.JobStatus, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	m.mu.RUnlock()
	sortJobs(out)
	return out, nil
}

func (m *MemoryStore) Delete(name string) error {
	m.mu.Lock()
	delete(m.jobs, name)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeleteAll() error {
	m.mu.Lock()
	m.jobs = make(map[string]types.JobStatus)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
