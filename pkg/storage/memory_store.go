package storage

import (
	"fmt"
	"sync"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// MemoryStore keeps the history in RAM, thread-safe. Suited to tests and
// single-session demos; everything is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*models.ScoreRecord // oldest first
}

// NewMemoryStore creates an empty in-memory history.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append adds the record to the end of the history.
func (m *MemoryStore) Append(record *models.ScoreRecord) error {
	if record == nil {
		return ErrNilRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, record)
	return nil
}

// Recent returns up to limit records, newest first.
func (m *MemoryStore) Recent(limit int) ([]*models.ScoreRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 {
		return []*models.ScoreRecord{}, nil
	}
	if limit > len(m.records) {
		limit = len(m.records)
	}

	out := make([]*models.ScoreRecord, 0, limit)
	for i := len(m.records) - 1; i >= len(m.records)-limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

// Len reports the number of stored records.
func (m *MemoryStore) Len() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

// Prune drops the oldest records until at most keep remain.
func (m *MemoryStore) Prune(keep int) error {
	if keep < 0 {
		return fmt.Errorf("keep must not be negative, got %d", keep)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if keep >= len(m.records) {
		return nil
	}

	kept := make([]*models.ScoreRecord, keep)
	copy(kept, m.records[len(m.records)-keep:])
	m.records = kept
	return nil
}
