package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/halcyonlabs/go-privmeter/pkg/models"
)

// schema creates the history table. seq mirrors insertion order, which the
// engine keeps chronological; all reads order by it.
const schema = `
CREATE TABLE IF NOT EXISTS score_records (
    seq             INTEGER PRIMARY KEY AUTOINCREMENT,
    id              TEXT NOT NULL UNIQUE,
    created_at      TEXT NOT NULL,
    overall         INTEGER NOT NULL,
    components      TEXT NOT NULL,
    recommendations TEXT NOT NULL
);
`

// SQLiteStore persists the history in a local SQLite database, so scores
// survive restarts and stay inspectable with standard tooling.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the
// schema exists. Use ":memory:" for a throwaway store in tests.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps seq
	// assignment aligned with append order.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts the record at the end of the history.
func (s *SQLiteStore) Append(record *models.ScoreRecord) error {
	if record == nil {
		return ErrNilRecord
	}

	components, err := json.Marshal(record.Components)
	if err != nil {
		return fmt.Errorf("marshal components: %w", err)
	}
	recommendations, err := json.Marshal(record.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO score_records (id, created_at, overall, components, recommendations)
		 VALUES (?, ?, ?, ?, ?)`,
		record.ID.String(),
		record.Timestamp.UTC().Format(time.RFC3339Nano),
		record.Overall,
		string(components),
		string(recommendations),
	)
	if err != nil {
		return fmt.Errorf("insert score record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (s *SQLiteStore) Recent(limit int) ([]*models.ScoreRecord, error) {
	if limit <= 0 {
		return []*models.ScoreRecord{}, nil
	}

	rows, err := s.db.Query(
		`SELECT id, created_at, overall, components, recommendations
		 FROM score_records ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query score records: %w", err)
	}
	defer rows.Close()

	// The limit bounds the query, not the allocation: it may far exceed
	// the stored row count.
	records := make([]*models.ScoreRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Len reports the number of stored records.
func (s *SQLiteStore) Len() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM score_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count score records: %w", err)
	}
	return count, nil
}

// Prune drops the oldest records until at most keep remain.
func (s *SQLiteStore) Prune(keep int) error {
	if keep < 0 {
		return fmt.Errorf("keep must not be negative, got %d", keep)
	}

	_, err := s.db.Exec(
		`DELETE FROM score_records WHERE seq NOT IN
		 (SELECT seq FROM score_records ORDER BY seq DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("prune score records: %w", err)
	}
	return nil
}

func scanRecord(rows *sql.Rows) (*models.ScoreRecord, error) {
	var (
		idStr           string
		createdAt       string
		overall         int
		components      string
		recommendations string
	)
	if err := rows.Scan(&idStr, &createdAt, &overall, &components, &recommendations); err != nil {
		return nil, fmt.Errorf("scan score record: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse record id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse record timestamp: %w", err)
	}

	record := &models.ScoreRecord{
		ID:        id,
		Timestamp: ts,
		Overall:   overall,
	}
	if err := json.Unmarshal([]byte(components), &record.Components); err != nil {
		return nil, fmt.Errorf("unmarshal components: %w", err)
	}
	if err := json.Unmarshal([]byte(recommendations), &record.Recommendations); err != nil {
		return nil, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	return record, nil
}
