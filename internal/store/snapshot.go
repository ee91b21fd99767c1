package store

import (
	"sync"
	"time"

	"github.com/allattain/opsdash/internal/models"
)

// SnapshotStore holds the latest canonical dataset. The whole snapshot is
// replaced on refresh; readers only ever see a fully-built one.
type SnapshotStore struct {
	mu        sync.RWMutex
	rows      []models.Row
	diags     []models.Diagnostic
	fetchedAt time.Time
	builtAt   time.Time
}

func NewSnapshotStore() *SnapshotStore { return &SnapshotStore{} }

func (s *SnapshotStore) Replace(rows []models.Row, diags []models.Diagnostic, fetchedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
	s.diags = diags
	s.fetchedAt = fetchedAt
	s.builtAt = time.Now()
}

func (s *SnapshotStore) Rows() []models.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

func (s *SnapshotStore) Diagnostics() []models.Diagnostic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.diags
}

func (s *SnapshotStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.builtAt.IsZero()
}

func (s *SnapshotStore) Info() (fetchedAt, builtAt time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt, s.builtAt
}
