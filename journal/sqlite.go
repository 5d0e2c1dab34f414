package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/book"
)

// SQLite persists the trade log locally. Prices are stored as TEXT to
// keep decimal values exact.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(f Fill) error {
	_, err := j.db.Exec(`
		INSERT INTO fills
		(fill_id, order_id, symbol, side, quantity, price, total, time)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.OrderID, f.Symbol, string(f.Side), f.Quantity,
		f.Price.String(), f.Total.String(), f.Time.UTC(),
	)
	return err
}

func (j *SQLite) AttachNote(fillID string, n Note) error {
	_, err := j.db.Exec(`
		INSERT INTO notes (fill_id, text, transcript) VALUES (?, ?, ?)
		ON CONFLICT(fill_id) DO UPDATE SET text=excluded.text, transcript=excluded.transcript`,
		fillID, n.Text, n.Transcript,
	)
	return err
}

func (j *SQLite) Fills() ([]Fill, error) {
	rows, err := j.db.Query(`
		SELECT fill_id, order_id, symbol, side, quantity, price, total, time
		FROM fills ORDER BY time, fill_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Fill
	for rows.Next() {
		var f Fill
		var side, price, total string
		var ts time.Time
		if err := rows.Scan(&f.ID, &f.OrderID, &f.Symbol, &side, &f.Quantity, &price, &total, &ts); err != nil {
			return nil, err
		}
		f.Side = book.Side(side)
		f.Time = ts
		if f.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("fill %s: bad price %q: %w", f.ID, price, err)
		}
		if f.Total, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("fill %s: bad total %q: %w", f.ID, total, err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (j *SQLite) Notes() (map[string]Note, error) {
	rows, err := j.db.Query(`SELECT fill_id, text, transcript FROM notes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]Note)
	for rows.Next() {
		var id string
		var n Note
		if err := rows.Scan(&id, &n.Text, &n.Transcript); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (j *SQLite) Reset() error {
	if _, err := j.db.Exec(`DELETE FROM fills`); err != nil {
		return err
	}
	_, err := j.db.Exec(`DELETE FROM notes`)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
