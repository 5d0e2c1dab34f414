package snapshot

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const storeSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	schema_version INTEGER NOT NULL,
	saved_at DATETIME NOT NULL,
	payload TEXT NOT NULL
);
`

// Store keeps snapshot records in a local SQLite table, append-only with
// latest-wins on load.
type Store struct {
	db *sql.DB
}

func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(storeSchema); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO snapshots (schema_version, saved_at, payload) VALUES (?, ?, ?)`,
		rec.SchemaVersion, rec.SavedAt.UTC(), string(payload),
	)
	return err
}

// LoadLatest returns the newest record, migrated to the current schema.
// The boolean is false when the store is empty.
func (s *Store) LoadLatest() (Record, bool, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT payload FROM snapshots ORDER BY id DESC LIMIT 1`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return Record{}, false, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := Migrate(&rec); err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *Store) Close() error { return s.db.Close() }
