package manager

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"fitd/internal/store"
	"fitd/pkg/types"
)

func newTestManager(t *testing.T, maxProcesses, maxLoaded int) *Manager {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "models"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	m, err := New(st, maxProcesses, maxLoaded)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

// waitJob polls until the job for name reaches a terminal state.
func waitJob(t *testing.T, m *Manager, name string) types.JobStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		j, err := m.Job(name)
		if err == nil && j.Terminal() {
			// the in-flight entry is dropped right after the final record
			for m.isInflight(name) && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			return j
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %q did not finish in time", name)
	return types.JobStatus{}
}

// fitModel trains a small linear model under name and waits for it.
func fitModel(t *testing.T, m *Manager, name string) {
	t.Helper()
	if _, err := m.Fit(name, [][]float64{{0}, {1}, {2}}, []any{1, 3, 5}, "lr", nil); err != nil {
		t.Fatalf("fit %s: %v", name, err)
	}
	if j := waitJob(t, m, name); j.State != types.JobDone {
		t.Fatalf("fit %s: job %+v", name, j)
	}
}

func (m *Manager) isInflight(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inflight[name]
	return ok
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}
