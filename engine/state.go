package engine

import (
	"fmt"

	"github.com/rustyeddy/papertrade/book"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
)

// State is the full account + book + trade log state, the unit the
// snapshot store persists and restores.
type State struct {
	Account ledger.Account          `json:"account"`
	Orders  []book.Order            `json:"orders"`
	Fills   []journal.Fill          `json:"fills"`
	Notes   map[string]journal.Note `json:"notes"`
}

// State captures a deep copy of the engine's current state.
func (e *Engine) State() (State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fills, err := e.jrnl.Fills()
	if err != nil {
		return State{}, fmt.Errorf("journal fills: %w", err)
	}
	notes, err := e.jrnl.Notes()
	if err != nil {
		return State{}, fmt.Errorf("journal notes: %w", err)
	}

	acct := ledger.Account{
		Cash:      e.acct.Cash,
		Positions: make(map[string]*ledger.Position, len(e.acct.Positions)),
	}
	for sym, p := range e.acct.Positions {
		cp := *p
		acct.Positions[sym] = &cp
	}

	return State{
		Account: acct,
		Orders:  e.book.Orders(),
		Fills:   fills,
		Notes:   notes,
	}, nil
}

// Restore replaces the engine's state wholesale, replaying fills and
// notes into the journal so a durable journal backend ends up aligned
// with the restored account.
func (e *Engine) Restore(st State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.jrnl.Reset(); err != nil {
		return err
	}
	for _, f := range st.Fills {
		if err := e.jrnl.RecordFill(f); err != nil {
			return fmt.Errorf("restore fill %s: %w", f.ID, err)
		}
	}
	for fid, n := range st.Notes {
		if err := e.jrnl.AttachNote(fid, n); err != nil {
			return fmt.Errorf("restore note %s: %w", fid, err)
		}
	}

	acct := ledger.NewAccount(st.Account.Cash)
	for sym, p := range st.Account.Positions {
		cp := *p
		acct.Positions[sym] = &cp
	}
	e.acct = acct
	e.book.Load(st.Orders)
	return nil
}
