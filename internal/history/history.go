// Package history persists usage snapshots collected by watch mode.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite snapshot database
type Store struct {
	db *sql.DB
}

// Snapshot is one recorded usage reading.
type Snapshot struct {
	ID               int64
	TakenAt          time.Time
	Email            string
	MonthlyCredits   float64
	AvailableCredits float64
	UsedPercent      int
	ModelsJSON       string
}

// Open opens (creating if needed) the snapshot database
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode so a foreground status run can read while the
	// watch service writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		taken_at TIMESTAMP NOT NULL,
		email TEXT,
		monthly_credits REAL,
		available_credits REAL,
		used_percent INTEGER,
		models_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_taken_at ON snapshots(taken_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Insert records one snapshot
func (s *Store) Insert(snap Snapshot) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots (taken_at, email, monthly_credits, available_credits, used_percent, models_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.TakenAt.UTC(), snap.Email, snap.MonthlyCredits, snap.AvailableCredits,
		snap.UsedPercent, snap.ModelsJSON)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// Recent returns up to limit snapshots, newest first
func (s *Store) Recent(limit int) ([]Snapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, taken_at, email, monthly_credits, available_credits, used_percent, models_json
		FROM snapshots
		ORDER BY taken_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.TakenAt, &snap.Email, &snap.MonthlyCredits,
			&snap.AvailableCredits, &snap.UsedPercent, &snap.ModelsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
