package ledger

import (
	"github.com/google/uuid"
)

// Book owns one Ledger per Asset, generalizing RumoClaro's flat per-call
// purchase-lot slices into a long-lived map the pipeline dispatches events
// against one at a time (spec.md §5: "per-asset ledgers... no locking is
// specified because no concurrency is specified").
type Book struct {
	ledgers map[uuid.UUID]*Ledger
}

// NewBook builds an empty Book.
func NewBook() *Book {
	return &Book{ledgers: make(map[uuid.UUID]*Ledger)}
}

// For returns the Ledger for assetID, creating an empty one on first use.
func (b *Book) For(assetID uuid.UUID) *Ledger {
	l, ok := b.ledgers[assetID]
	if !ok {
		l = New(assetID)
		b.ledgers[assetID] = l
	}
	return l
}

// All returns every ledger currently tracked, for EOY validation sweeps.
func (b *Book) All() map[uuid.UUID]*Ledger {
	return b.ledgers
}
