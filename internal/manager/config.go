package manager

import (
	"errors"

	"github.com/rs/zerolog"

	"fitd/internal/jobs"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxProcesses = 4
	defaultMaxLoaded    = 8
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// Store persists artifacts. Required.
	Store ModelStore
	// Jobs records training status. Defaults to an in-memory store.
	Jobs jobs.Store
	// MaxProcesses caps concurrent training jobs.
	MaxProcesses int
	// MaxLoaded caps resident models.
	MaxLoaded int
	Logger    zerolog.Logger
	Publisher EventPublisher
}

// NewWithConfig constructs a Manager from Config. Stale job records left by a
// previous process are marked failed.
func NewWithConfig(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("manager: store is required")
	}
	if cfg.MaxProcesses <= 0 {
		cfg.MaxProcesses = defaultMaxProcesses
	}
	if cfg.MaxLoaded <= 0 {
		cfg.MaxLoaded = defaultMaxLoaded
	}
	if cfg.Jobs == nil {
		cfg.Jobs = jobs.NewMemory()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	m := &Manager{
		store:     cfg.Store,
		jobs:      cfg.Jobs,
		adm:       newAdmission(cfg.MaxProcesses),
		cache:     newCache(cfg.MaxLoaded),
		log:       cfg.Logger.With().Str("component", "manager").Logger(),
		publisher: cfg.Publisher,
		inflight:  make(map[string]struct{}),
	}
	n, err := jobs.RecoverInterrupted(m.jobs)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		m.log.Warn().Int("jobs", n).Msg("marked interrupted training jobs as failed")
	}
	m.startTime = timeNow()
	return m, nil
}
