package manager

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// admission bounds the number of concurrent training jobs. It never queues:
// a reservation either succeeds immediately or fails.
type admission struct {
	max    int
	sem    *semaphore.Weighted
	active atomic.Int64
}

func newAdmission(max int) *admission {
	return &admission{max: max, sem: semaphore.NewWeighted(int64(max))}
}

// reserve claims a slot. The returned release is idempotent.
func (a *admission) reserve() (release func(), ok bool) {
	if !a.sem.TryAcquire(1) {
		return func() {}, false
	}
	a.active.Add(1)
	fitJobsActive.Inc()
	var once sync.Once
	return func() {
		once.Do(func() {
			a.active.Add(-1)
			fitJobsActive.Dec()
			a.sem.Release(1)
		})
	}, true
}

// Active returns the number of reserved slots.
func (a *admission) Active() int { return int(a.active.Load()) }

func (a *admission) Max() int { return a.max }
