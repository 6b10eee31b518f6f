package state

import (
	"sync"
	"time"
)

// Store is the single shared health store. The target monitor and heartbeat
// emitter write through it; the HTTP surface reads from it. All writes are
// full-value replacements and Snapshot is consistent at a single instant.
type Store struct {
	identity Identity

	mu            sync.RWMutex
	lastHeartbeat time.Time
	targets       map[string]TargetStatus
}

// NewStore creates a store for the given identity. Target entries appear
// only after their first completed probe.
func NewStore(identity Identity) *Store {
	return &Store{
		identity: identity,
		targets:  make(map[string]TargetStatus),
	}
}

// Identity returns the agent identity the store was created with.
func (s *Store) Identity() Identity {
	return s.identity
}

// UpdateTarget atomically replaces the status for one target.
func (s *Store) UpdateTarget(name string, ts TargetStatus) {
	s.mu.Lock()
	s.targets[name] = ts
	s.mu.Unlock()
}

// UpdateHeartbeat records the time of the latest heartbeat emission.
func (s *Store) UpdateHeartbeat(t time.Time) {
	s.mu.Lock()
	s.lastHeartbeat = t
	s.mu.Unlock()
}

// Snapshot returns an immutable copy of the current state. The target map
// is deep-copied so callers can hold the snapshot across later updates.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := make(map[string]TargetStatus, len(s.targets))
	for name, ts := range s.targets {
		if ts.ResponseTime != nil {
			rt := *ts.ResponseTime
			ts.ResponseTime = &rt
		}
		targets[name] = ts
	}

	return Snapshot{
		Identity:      s.identity,
		LastHeartbeat: s.lastHeartbeat,
		Targets:       targets,
		TakenAt:       time.Now(),
	}
}
