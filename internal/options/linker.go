// Package options implements spec.md §4.5: the two-step option-to-stock
// trade linker. Step A (candidate matching) generalizes RumoClaro's
// option_sales_processor.go groupTransactionsByProduct + FIFO-matching loop
// from "match within the same option product" to "match an
// exercise/assignment event against the stock trade it triggered by
// (date, underlying_conid, |qty|)". Step B (premium folding) has no
// RumoClaro analogue — OptionSaleDetail.Delta only ever nets an option's own
// open/close — and is built directly from spec.md §4.5's fold table.
package options

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
)

// candidateKey is (event_date, underlying_conid, |expected_stock_qty|),
// spec.md §4.5 Step A.3.
type candidateKey struct {
	date            string
	underlyingConID string
	absQty          string
}

func keyOf(date time.Time, underlyingConID string, qty decimal.Decimal) candidateKey {
	return candidateKey{date: date.Format("2006-01-02"), underlyingConID: underlyingConID, absQty: qty.Abs().StringFixed(6)}
}

// OptionCandidate is one OPTION_EXERCISE/OPTION_ASSIGNMENT event awaiting a
// matching stock trade.
type OptionCandidate struct {
	EventID         uuid.UUID
	Date            time.Time
	UnderlyingConID string
	ContractQty     decimal.Decimal // contracts, not shares
	Multiplier      decimal.Decimal
}

// StockCandidate is one TRADE_* event whose notes/codes flagged it as an
// exercise/assignment-triggered trade (spec.md §4.5 Step A.2).
type StockCandidate struct {
	EventID  uuid.UUID
	Date     time.Time
	ConID    string
	Quantity decimal.Decimal // signed or unsigned, only magnitude matters
}

// Linker performs Step A matching and holds the resulting event-id links,
// plus Step B's pending premium adjustments keyed by option event id.
type Linker struct {
	pendingAdjustments map[uuid.UUID]decimal.Decimal
	stockToOption      map[uuid.UUID]uuid.UUID
}

// New builds an empty Linker.
func New() *Linker {
	return &Linker{
		pendingAdjustments: make(map[uuid.UUID]decimal.Decimal),
		stockToOption:      make(map[uuid.UUID]uuid.UUID),
	}
}

// Link implements spec.md §4.5 Step A: build the keyed map from option
// candidates (warning and keeping the later entry on key collision), then
// resolve each stock candidate against it.
func (l *Linker) Link(options []OptionCandidate, stocks []StockCandidate, d *diag.Diagnostics) {
	byKey := make(map[candidateKey]OptionCandidate)
	for _, oc := range options {
		expectedQty := oc.ContractQty.Mul(oc.Multiplier)
		k := keyOf(oc.Date, oc.UnderlyingConID, expectedQty)
		if existing, ok := byKey[k]; ok {
			d.Addf(diag.LevelWarning, "option linker: duplicate key %v for events %s and %s, keeping later", k, existing.EventID, oc.EventID)
		}
		byKey[k] = oc
	}

	for _, sc := range stocks {
		k := keyOf(sc.Date, sc.ConID, sc.Quantity)
		oc, ok := byKey[k]
		if !ok {
			d.AddEvent(diag.LevelCritical, sc.EventID, uuid.Nil, "option linker: unmatched exercise/assignment-flagged stock trade")
			continue
		}
		l.stockToOption[sc.EventID] = oc.EventID
	}
}

// RelatedOption returns the option event id linked to stockEventID, if any.
func (l *Linker) RelatedOption(stockEventID uuid.UUID) (uuid.UUID, bool) {
	id, ok := l.stockToOption[stockEventID]
	return id, ok
}

// RecordConsumedPremium stores the total EUR premium of an option event's
// consumed lots for later folding into its linked stock trade (spec.md §4.5
// Step B, first bullet). totalPremiumEUR is the lots' total cost for a long
// exercise, or total proceeds for a short assignment.
func (l *Linker) RecordConsumedPremium(optionEventID uuid.UUID, totalPremiumEUR decimal.Decimal) {
	l.pendingAdjustments[optionEventID] = totalPremiumEUR
}

// TakePremium retrieves and consumes the pending adjustment for
// optionEventID, per spec.md §4.5 Step B ("retrieve and consume").
func (l *Linker) TakePremium(optionEventID uuid.UUID) (decimal.Decimal, bool) {
	premium, ok := l.pendingAdjustments[optionEventID]
	if ok {
		delete(l.pendingAdjustments, optionEventID)
	}
	return premium, ok
}

// StockSide is the four fold-table rows of spec.md §4.5 Step B.
type StockSide int

const (
	StockSideBuyLongExercise StockSide = iota
	StockSideBuyPutAssignment
	StockSideSellCallAssignment
	StockSideSellPutExercise
)

// FoldPremium applies the adjustment table of spec.md §4.5 Step B to a
// stock trade's net EUR value, given which row applies.
func FoldPremium(netEUR decimal.Decimal, side StockSide, premium decimal.Decimal) (decimal.Decimal, error) {
	switch side {
	case StockSideBuyLongExercise:
		return netEUR.Add(premium), nil // cost += premium_paid
	case StockSideBuyPutAssignment:
		return netEUR.Sub(premium), nil // cost -= premium_received
	case StockSideSellCallAssignment:
		return netEUR.Add(premium), nil // proceeds += premium_received
	case StockSideSellPutExercise:
		return netEUR.Sub(premium), nil // proceeds -= premium_paid
	default:
		return netEUR, fmt.Errorf("options: unknown stock side %d", side)
	}
}

// ClassifyStockSide derives the StockSide from the stock trade's event type
// and whether the linked option was a put or a call, per spec.md §4.5's
// table (buy+call-exercise, buy+put-assignment, sell+call-assignment,
// sell+put-exercise).
func ClassifyStockSide(stockEventType models.EventType, optionIsPut bool, optionEventType models.EventType) (StockSide, error) {
	isBuy := stockEventType == models.EventTradeBuyLong || stockEventType == models.EventTradeBuyShortCover
	switch {
	case isBuy && !optionIsPut && optionEventType == models.EventOptionExercise:
		return StockSideBuyLongExercise, nil
	case isBuy && optionIsPut && optionEventType == models.EventOptionAssignment:
		return StockSideBuyPutAssignment, nil
	case !isBuy && !optionIsPut && optionEventType == models.EventOptionAssignment:
		return StockSideSellCallAssignment, nil
	case !isBuy && optionIsPut && optionEventType == models.EventOptionExercise:
		return StockSideSellPutExercise, nil
	default:
		return 0, fmt.Errorf("options: no fold rule for stock=%s optionIsPut=%v option=%s", stockEventType, optionIsPut, optionEventType)
	}
}
