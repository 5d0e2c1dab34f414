// Package snapshot persists the whole account + order book + trade log
// state as one versioned record, so a host can close and reopen a
// session without losing it. Loading runs a documented migration: older
// schema versions are backfilled field by field, and a record with an
// empty trade log is seeded with a deterministic demo history so the
// downstream analysis collaborator always has rows to work with.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rustyeddy/papertrade/engine"
	"github.com/rustyeddy/papertrade/journal"
)

// SchemaVersion history:
//
//	1 — account/orders/fills/notes
//	2 — adds the watchlist, kept outside the account aggregate
const SchemaVersion = 2

type Record struct {
	SchemaVersion int          `json:"schema_version"`
	SavedAt       time.Time    `json:"saved_at"`
	Watchlist     []string     `json:"watchlist"`
	State         engine.State `json:"state"`
}

// NewRecord stamps the current schema version.
func NewRecord(st engine.State, watchlist []string, savedAt time.Time) Record {
	return Record{
		SchemaVersion: SchemaVersion,
		SavedAt:       savedAt,
		Watchlist:     watchlist,
		State:         st,
	}
}

// Migrate upgrades a loaded record in place to the current schema.
func Migrate(rec *Record) error {
	if rec.SchemaVersion > SchemaVersion {
		return fmt.Errorf("snapshot schema %d is newer than supported %d", rec.SchemaVersion, SchemaVersion)
	}
	if rec.SchemaVersion < 2 && rec.Watchlist == nil {
		rec.Watchlist = []string{}
	}
	if len(rec.State.Fills) == 0 {
		rec.State.Fills = DemoFills()
	}
	if rec.State.Notes == nil {
		rec.State.Notes = make(map[string]journal.Note)
	}
	rec.SchemaVersion = SchemaVersion
	return nil
}

// SaveFile writes the record as indented JSON, mirroring the config
// file round-trip.
func SaveFile(path string, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// LoadFile reads and migrates a record written by SaveFile.
func LoadFile(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("read snapshot: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if err := Migrate(&rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}
