package health

import (
	"sync"
	"time"
)

// NERStatus records the outcome of the periodic entity-linking probe. It is
// written by the scheduler and read by the health endpoint.
type NERStatus struct {
	enabled  bool
	interval time.Duration

	mu          sync.RWMutex
	lastCheck   time.Time
	lastSuccess time.Time
	downSince   time.Time
	lastError   string
}

// NERSnapshot is a consistent copy of NERStatus.
type NERSnapshot struct {
	Enabled     bool
	Checked     bool
	Healthy     bool
	LastCheck   time.Time
	LastSuccess time.Time
	DownSince   time.Time
	LastError   string
	NextCheck   time.Time
}

// NewNERStatus creates the status for a probe run every interval. A
// disabled status never becomes healthy.
func NewNERStatus(enabled bool, interval time.Duration) *NERStatus {
	return &NERStatus{enabled: enabled, interval: interval}
}

// Record stores a probe result taken at the given time.
func (s *NERStatus) Record(err error, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCheck = at
	if err == nil {
		s.lastSuccess = at
		s.downSince = time.Time{}
		s.lastError = ""
		return
	}
	if s.downSince.IsZero() {
		s.downSince = at
	}
	s.lastError = err.Error()
}

// Snapshot returns the current state.
func (s *NERStatus) Snapshot() NERSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := NERSnapshot{
		Enabled:     s.enabled,
		Checked:     !s.lastCheck.IsZero(),
		LastCheck:   s.lastCheck,
		LastSuccess: s.lastSuccess,
		DownSince:   s.downSince,
		LastError:   s.lastError,
	}
	snap.Healthy = s.enabled && snap.Checked && s.downSince.IsZero()
	if snap.Checked && s.interval > 0 {
		snap.NextCheck = s.lastCheck.Add(s.interval)
	}
	return snap
}

// DownFor returns how long the service has been failing as of now, or 0.
func (s NERSnapshot) DownFor(now time.Time) time.Duration {
	if s.DownSince.IsZero() {
		return 0
	}
	return now.Sub(s.DownSince)
}
