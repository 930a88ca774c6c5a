package manager

// SanityReport describes runtime checks for the storage root.
type SanityReport struct {
	StoreRoot string `json:"store_root"`
	Writable  bool   `json:"writable"`
	Error     string `json:"error,omitempty"`
}

// SanityCheck verifies that artifacts can be written under the store root,
// creating it if needed. It does not touch existing artifacts.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{StoreRoot: m.store.Root()}
	if err := m.store.Writable(); err != nil {
		r.Error = err.Error()
		return r
	}
	r.Writable = true
	return r
}

// Ready reports whether the manager can serve every operation.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	closed := m.closed
	m.mu.Unlock()
	return !closed && m.SanityCheck().Writable
}
