package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"fitd/internal/estimator"
	"fitd/internal/jobs"
	"fitd/pkg/types"
)

var timeNow = time.Now

// ModelStore is the persistence contract the manager needs. *store.Store
// implements it.
type ModelStore interface {
	Save(name string, est estimator.Estimator) error
	Load(name string) (estimator.Estimator, error)
	Exists(name string) bool
	Remove(name string) error
	RemoveAll() (int, error)
	List() ([]types.ModelInfo, error)
	Writable() error
	Root() string
}

type Manager struct {
	// mu serialises fit admission against the in-flight name set.
	mu       sync.Mutex
	inflight map[string]struct{}
	closed   bool
	wg       sync.WaitGroup

	store     ModelStore
	jobs      jobs.Store
	adm       *admission
	cache     *cache
	log       zerolog.Logger
	publisher EventPublisher

	startTime   time.Time
	fitsStarted atomic.Uint64
	fitsFailed  atomic.Uint64
	loadsTotal  atomic.Uint64

	// beforeFit, when set, runs on the training goroutine before Fit.
	beforeFit func(name string)
}

// New constructs a Manager with the given limits and default collaborators.
func New(st ModelStore, maxProcesses, maxLoaded int) (*Manager, error) {
	return NewWithConfig(Config{
		Store:        st,
		MaxProcesses: maxProcesses,
		MaxLoaded:    maxLoaded,
		Logger:       zerolog.Nop(),
	})
}

// SetEventPublisher replaces the event sink. Passing nil restores the no-op.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// Close stops admitting training jobs and waits for running ones to finish or
// for ctx to end. It does not close the jobs store.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		m.log.Warn().Int("active_jobs", m.adm.Active()).Msg("shutdown deadline reached with training jobs running")
		return ctx.Err()
	}
}
