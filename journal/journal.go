// Package journal is the trade log: an append-only record of every fill.
// Entries are never mutated after the fact; the only post-hoc write is
// attaching a note/transcript, which lives in a sparse side-table keyed
// by fill id so the accounting fields stay immutable.
package journal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/book"
)

// Fill is one executed trade, market-immediate or conditional-triggered.
type Fill struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id,omitempty"`
	Symbol   string          `json:"symbol"`
	Side     book.Side       `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`
	Time     time.Time       `json:"time"`
}

// Note is a free-text or voice annotation attached to a fill.
type Note struct {
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}

func (n Note) Empty() bool { return n.Text == "" && n.Transcript == "" }

type Journal interface {
	RecordFill(Fill) error
	AttachNote(fillID string, n Note) error

	// Fills returns every recorded fill, oldest first.
	Fills() ([]Fill, error)
	Notes() (map[string]Note, error)

	// Reset drops all fills and notes.
	Reset() error
	Close() error
}
