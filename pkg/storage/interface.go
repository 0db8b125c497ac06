package storage

import (
	"errors"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// ErrNilRecord is returned when a nil record is offered for persistence.
var ErrNilRecord = errors.New("score record cannot be nil")

// HistoryStore defines the interface for persisting score history.
// Implementations can use any backend: in-memory, SQLite, Redis, etc.
//
// Ordering Guarantee:
// The engine serializes appends and stamps records with strictly increasing
// timestamps, so insertion order is chronological order. Implementations
// only need to preserve it.
type HistoryStore interface {
	// Append persists a new record at the end of the history.
	// Records are immutable once appended.
	Append(record *models.ScoreRecord) error

	// Recent returns up to limit records, newest first. A limit larger
	// than the stored history returns everything; a limit of zero or
	// less returns an empty slice.
	Recent(limit int) ([]*models.ScoreRecord, error)

	// Len reports how many records the history holds.
	Len() (int, error)

	// Prune drops the oldest records until at most keep remain.
	Prune(keep int) error
}
