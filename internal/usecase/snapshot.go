package usecase

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/V4T54L/kyb-watch/internal/domain"
)

// Snapshot is one complete, immutable batch as served to readers. Records are
// valid and ordered newest first. Callers must not modify the slices.
type Snapshot struct {
	Generation uint64
	FetchedAt  time.Time
	Records    []domain.LogRecord
	Skipped    []domain.SkippedRecord
}

// SnapshotStore holds the current batch. Each refresh replaces the whole
// batch; results of a fetch that was overtaken by a newer one are dropped.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]

	mu        sync.Mutex
	issued    uint64
	committed uint64
	listeners []func(*Snapshot)
}

// NewSnapshotStore creates a store holding an empty generation-0 snapshot.
func NewSnapshotStore() *SnapshotStore {
	s := &SnapshotStore{}
	s.current.Store(&Snapshot{})
	return s
}

// Begin reserves a ticket for a fetch that is about to start.
func (s *SnapshotStore) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit installs snap under ticket unless a fetch that started later has
// already committed. It reports whether snap became current.
func (s *SnapshotStore) Commit(ticket uint64, snap Snapshot) bool {
	s.mu.Lock()
	if ticket <= s.committed {
		s.mu.Unlock()
		return false
	}
	s.committed = ticket
	snap.Generation = ticket
	installed := &snap
	s.current.Store(installed)
	listeners := append([]func(*Snapshot){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(installed)
	}
	return true
}

// Current returns the latest committed snapshot. It never returns nil.
func (s *SnapshotStore) Current() *Snapshot {
	return s.current.Load()
}

// OnCommit registers fn to be called after every successful Commit.
func (s *SnapshotStore) OnCommit(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}
