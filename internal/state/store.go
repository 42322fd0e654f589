package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/lumen/internal/imgapi"
)

// Snapshot represents the latest server health known to the UI.
type Snapshot struct {
	Health              imgapi.Health
	HasHealth           bool
	Latency             time.Duration
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Ready reports whether the server answered and has its models loaded.
func (s Snapshot) Ready() bool {
	return s.HasHealth && s.Health.Healthy() && s.Health.ModelsLoaded && !s.IsOffline()
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update records one health poll. When err is non-nil the previous payload is
// kept but the error is recorded for visibility.
func (s *Store) Update(health *imgapi.Health, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.ConsecutiveFailures++
		return
	}

	if health != nil {
		s.snapshot.Health = *health
		s.snapshot.HasHealth = true
	} else {
		s.snapshot.HasHealth = false
	}
	s.snapshot.Latency = latency
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
