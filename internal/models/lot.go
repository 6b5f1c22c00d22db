package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SOYSimulated / SOYFallback are the synthetic source-transaction-id markers
// spec.md §4.4 assigns to lots created by start-of-year reconstruction
// instead of a real broker transaction.
const (
	SOYSimulated = "SOY_SIMULATED"
	SOYFallback  = "SOY_FALLBACK"
)

// FifoLot is a long-position acquisition record (spec.md §3).
type FifoLot struct {
	AcquisitionDate     time.Time
	RemainingQuantity   decimal.Decimal
	UnitCostEUR         decimal.Decimal
	TotalCostEUR        decimal.Decimal
	SourceTransactionID string
}

// Rebase recomputes TotalCostEUR from RemainingQuantity*UnitCostEUR, per
// spec.md §4.4's consistency-check rule: "the per-unit cost is the
// invariant, not the remembered total."
func (l *FifoLot) Rebase() {
	l.TotalCostEUR = l.RemainingQuantity.Mul(l.UnitCostEUR)
}

// ShortFifoLot is a short-position opening record (spec.md §3).
type ShortFifoLot struct {
	OpeningDate          time.Time
	RemainingQuantity    decimal.Decimal // positive magnitude
	UnitProceedsEUR      decimal.Decimal
	TotalProceedsEUR     decimal.Decimal
	SourceTransactionID  string
}

// Rebase recomputes TotalProceedsEUR the same way FifoLot.Rebase does.
func (l *ShortFifoLot) Rebase() {
	l.TotalProceedsEUR = l.RemainingQuantity.Mul(l.UnitProceedsEUR)
}
