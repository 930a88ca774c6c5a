package manager

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"fitd/internal/estimator"
	"fitd/pkg/types"
)

// LoadStatus is the outcome of a successful Load.
type LoadStatus string

const (
	StatusLoaded        LoadStatus = "loaded"
	StatusAlreadyLoaded LoadStatus = "already_loaded"
)

// entry is a cache slot. While ready is open the slot is a placeholder held
// by an in-progress load; est and err are written once before ready closes.
type entry struct {
	ready       chan struct{}
	est         estimator.Estimator
	err         error
	loadedAt    time.Time
	predictions atomic.Uint64
}

func (e *entry) isReady() bool {
	select {
	case <-e.ready:
		return e.err == nil
	default:
		return false
	}
}

// cache holds at most max entries, placeholders included. It never evicts on
// its own.
type cache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*entry
}

func newCache(max int) *cache {
	return &cache{max: max, entries: make(map[string]*entry)}
}

// load makes name resident, calling read outside the lock. Concurrent loads of
// the same name share one read.
func (c *cache) load(name string, read func(string) (estimator.Estimator, error)) (LoadStatus, error) {
	c.mu.Lock()
	if e, ok := c.entries[name]; ok {
		c.mu.Unlock()
		<-e.ready
		if e.err != nil {
			return "", e.err
		}
		return StatusAlreadyLoaded, nil
	}
	if len(c.entries) >= c.max {
		c.mu.Unlock()
		return "", capacityExceededError{resource: "loaded models", limit: c.max}
	}
	e := &entry{ready: make(chan struct{})}
	c.entries[name] = e
	c.mu.Unlock()

	est, err := read(name)

	c.mu.Lock()
	if err == nil && c.entries[name] != e {
		// evicted by remove while the artifact was being read
		err = notFoundError{name: name}
	}
	if err != nil {
		if c.entries[name] == e {
			delete(c.entries, name)
		}
	} else {
		e.est = est
		e.loadedAt = time.Now()
	}
	e.err = err
	close(e.ready)
	c.mu.Unlock()
	if err != nil {
		return "", err
	}
	loadedModels.Inc()
	return StatusLoaded, nil
}

// get returns a ready entry.
func (c *cache) get(name string) (*entry, bool) {
	c.mu.Lock()
	e, ok := c.entries[name]
	c.mu.Unlock()
	if !ok || !e.isReady() {
		return nil, false
	}
	return e, true
}

// unload drops a ready entry. Placeholders are not resident yet and count as
// absent.
func (c *cache) unload(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok || !e.isReady() {
		return false
	}
	delete(c.entries, name)
	loadedModels.Dec()
	return true
}

// evict drops name whatever its state and reports whether a ready entry went.
func (c *cache) evict(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[name]
	if !ok {
		return false
	}
	delete(c.entries, name)
	if e.isReady() {
		loadedModels.Dec()
		return true
	}
	return false
}

// clear drops every entry and returns how many were resident.
func (c *cache) clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.entries {
		if e.isReady() {
			n++
		}
	}
	c.entries = make(map[string]*entry)
	loadedModels.Sub(float64(n))
	return n
}

func (c *cache) resident() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]bool, len(c.entries))
	for name, e := range c.entries {
		if e.isReady() {
			out[name] = true
		}
	}
	return out
}

func (c *cache) snapshot() []types.LoadedModel {
	c.mu.Lock()
	out := make([]types.LoadedModel, 0, len(c.entries))
	for name, e := range c.entries {
		if !e.isReady() {
			continue
		}
		out = append(out, types.LoadedModel{
			Name:        name,
			Kind:        string(e.est.Kind()),
			LoadedAt:    e.loadedAt.Unix(),
			Predictions: e.predictions.Load(),
		})
	}
	c.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *cache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
