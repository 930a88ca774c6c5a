package manager

import (
	"fitd/pkg/types"
)

// Status builds the response for /status.
func (m *Manager) Status() types.StatusResponse {
	now := timeNow()
	return types.StatusResponse{
		ActiveJobs:     m.adm.Active(),
		MaxProcesses:   m.adm.Max(),
		Loaded:         m.cache.snapshot(),
		MaxLoaded:      m.cache.max,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		FitsStarted:    m.fitsStarted.Load(),
		FitsFailed:     m.fitsFailed.Load(),
		LoadsTotal:     m.loadsTotal.Load(),
	}
}

// ActiveJobs returns the number of training jobs holding a slot.
func (m *Manager) ActiveJobs() int { return m.adm.Active() }

// ListModels returns the persisted models, flagging resident ones.
func (m *Manager) ListModels() ([]types.ModelInfo, error) {
	list, err := m.store.List()
	if err != nil {
		return nil, err
	}
	resident := m.cache.resident()
	for i := range list {
		list[i].Loaded = resident[list[i].Name]
	}
	if list == nil {
		list = []types.ModelInfo{}
	}
	return list, nil
}

// Jobs returns the latest job record of every model name.
func (m *Manager) Jobs() ([]types.JobStatus, error) {
	out, err := m.jobs.List()
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []types.JobStatus{}
	}
	return out, nil
}

// Job returns the latest job record for name.
func (m *Manager) Job(name string) (types.JobStatus, error) {
	if err := checkName(name); err != nil {
		return types.JobStatus{}, err
	}
	j, ok, err := m.jobs.Get(name)
	if err != nil {
		return types.JobStatus{}, err
	}
	if !ok {
		return types.JobStatus{}, notFoundError{name: name}
	}
	return j, nil
}
