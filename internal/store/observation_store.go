// Package store keeps the latest observation per anchor.
package store

import (
	"ble-linepos/internal/models"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// UpdateFunc is called after every applied update, on the writer's goroutine.
type UpdateFunc func(obs models.Observation)

// ObservationStore is a latest-value map keyed by anchor id. Writes are last
// write wins per key. Observations are stored and returned by value so a
// reader never sees a partially written entry.
type ObservationStore struct {
	mu        sync.RWMutex
	latest    map[models.AnchorID]models.Observation
	observers []UpdateFunc
	closed    bool
	dropped   atomic.Uint64
}

func NewObservationStore() *ObservationStore {
	return &ObservationStore{
		latest: make(map[models.AnchorID]models.Observation),
	}
}

// OnUpdate registers fn to run after each update. Observers run in
// registration order, outside the store lock.
func (s *ObservationStore) OnUpdate(fn UpdateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Update upserts the observation for id. Updates after Close are dropped.
func (s *ObservationStore) Update(id models.AnchorID, rssi int, timestamp time.Time) {
	obs := models.Observation{AnchorID: id, RSSI: rssi, Timestamp: timestamp}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.dropped.Add(1)
		return
	}
	s.latest[id] = obs
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(obs)
	}
}

func (s *ObservationStore) Get(id models.AnchorID) (models.Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obs, ok := s.latest[id]
	return obs, ok
}

// SnapshotRequired returns the observations for both ids, or false when
// either has never been observed.
func (s *ObservationStore) SnapshotRequired(ids [2]models.AnchorID) ([2]models.Observation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out [2]models.Observation
	for i, id := range ids {
		obs, ok := s.latest[id]
		if !ok {
			return [2]models.Observation{}, false
		}
		out[i] = obs
	}
	return out, true
}

// Snapshot copies every stored observation, ordered by anchor id.
func (s *ObservationStore) Snapshot() []models.Observation {
	s.mu.RLock()
	out := make([]models.Observation, 0, len(s.latest))
	for _, obs := range s.latest {
		out = append(out, obs)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].AnchorID < out[j].AnchorID })
	return out
}

func (s *ObservationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.latest)
}

// Close tears the store down. Stored observations are discarded and further
// updates are counted as dropped.
func (s *ObservationStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.latest = make(map[models.AnchorID]models.Observation)
	s.observers = nil
}

func (s *ObservationStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Dropped is the number of updates rejected after Close.
func (s *ObservationStore) Dropped() uint64 {
	return s.dropped.Load()
}
