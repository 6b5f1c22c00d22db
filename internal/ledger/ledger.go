// Package ledger implements spec.md §4.4: the per-asset FIFO ledger for
// long and short positions, its corporate-action lot transforms, and the
// start-of-year reconstruction / end-of-year validation steps of §4.6. It
// replaces RumoClaro's flat single-pass matching
// (processors/stock_sales_processor.go's head-of-slice purchasePtrs[0]
// decrement-and-evict loop) with genuine mutable FifoLot/ShortFifoLot
// objects, because corporate actions must be able to mutate standing lots
// between a buy and a later sale — a step RumoClaro never performs.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/decimalx"
	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
)

// state is the long/short mutual-exclusion invariant of spec.md §4.4: at
// any instant either the long lots or the short lots are empty.
type state int

const (
	stateFlat state = iota
	stateLong
	stateShort
)

// Ledger is one Asset's FIFO lot book.
type Ledger struct {
	AssetID uuid.UUID

	longLots  []*models.FifoLot
	shortLots []*models.ShortFifoLot

	st state
}

// New builds an empty ledger for assetID.
func New(assetID uuid.UUID) *Ledger {
	return &Ledger{AssetID: assetID, st: stateFlat}
}

// NetQuantity returns the signed net quantity currently held: positive for
// a long position, negative for a short position, zero when flat.
func (l *Ledger) NetQuantity() decimal.Decimal {
	switch l.st {
	case stateLong:
		sum := decimal.Zero
		for _, lot := range l.longLots {
			sum = sum.Add(lot.RemainingQuantity)
		}
		return sum
	case stateShort:
		sum := decimal.Zero
		for _, lot := range l.shortLots {
			sum = sum.Add(lot.RemainingQuantity)
		}
		return sum.Neg()
	default:
		return decimal.Zero
	}
}

// Snapshot renders a compact textual description of the ledger's current
// state, attached to Fatal diagnostics per spec.md §7 ("ledger state
// snapshot").
func (l *Ledger) Snapshot() string {
	return fmt.Sprintf("asset=%s state=%d long_lots=%d short_lots=%d net_qty=%s",
		l.AssetID, l.st, len(l.longLots), len(l.shortLots), l.NetQuantity())
}

// AcquireLong appends a new long lot, per spec.md §4.4's Acquire rule. The
// caller (pipeline dispatch) guarantees this is only called while the
// ledger is flat or already long — a short-side acquire on a long ledger is
// a caller bug, not a recoverable condition.
func (l *Ledger) AcquireLong(date time.Time, quantity, netCostEUR decimal.Decimal, sourceTxID string) {
	unitCost := netCostEUR.DivRound(quantity, 34)
	l.longLots = append(l.longLots, &models.FifoLot{
		AcquisitionDate:     date,
		RemainingQuantity:   quantity,
		UnitCostEUR:         unitCost,
		TotalCostEUR:        netCostEUR,
		SourceTransactionID: sourceTxID,
	})
	l.st = stateLong
}

// AcquireShort appends a new short-opening lot.
func (l *Ledger) AcquireShort(date time.Time, quantity, netProceedsEUR decimal.Decimal, sourceTxID string) {
	unitProceeds := netProceedsEUR.DivRound(quantity, 34)
	l.shortLots = append(l.shortLots, &models.ShortFifoLot{
		OpeningDate:         date,
		RemainingQuantity:   quantity,
		UnitProceedsEUR:     unitProceeds,
		TotalProceedsEUR:    netProceedsEUR,
		SourceTransactionID: sourceTxID,
	})
	l.st = stateShort
}

// RealizeLong consumes from the head of the long-lot list for a sell-long
// event, splitting the incoming net realization value pro-rata by quantity
// across consumed lots per spec.md §4.4, and returns one RealizedGainLoss
// per consumed lot.
func (l *Ledger) RealizeLong(eventID uuid.UUID, assetCategory models.AssetCategory, date time.Time, quantity, netRealizationEUR decimal.Decimal, d *diag.Diagnostics) ([]models.RealizedGainLoss, error) {
	return l.realize(eventID, assetCategory, date, quantity, netRealizationEUR, models.RealizationLongSale, false, d)
}

// RealizeShortCover consumes from the head of the short-lot list for a
// buy-to-cover event.
func (l *Ledger) RealizeShortCover(eventID uuid.UUID, assetCategory models.AssetCategory, date time.Time, quantity, netCostEUR decimal.Decimal, d *diag.Diagnostics) ([]models.RealizedGainLoss, error) {
	return l.realize(eventID, assetCategory, date, quantity, netCostEUR, models.RealizationShortCover, true, d)
}

// RealizeLongWithType is RealizeLong with an explicit RealizationType,
// letting callers (the options package) tag a long-option-ledger close as
// OPTION_TRADE_CLOSE_LONG instead of the plain-stock LONG_POSITION_SALE.
func (l *Ledger) RealizeLongWithType(eventID uuid.UUID, assetCategory models.AssetCategory, date time.Time, quantity, netRealizationEUR decimal.Decimal, rtype models.RealizationType, d *diag.Diagnostics) ([]models.RealizedGainLoss, error) {
	return l.realize(eventID, assetCategory, date, quantity, netRealizationEUR, rtype, false, d)
}

// RealizeShortWithType is RealizeShortCover with an explicit RealizationType.
func (l *Ledger) RealizeShortWithType(eventID uuid.UUID, assetCategory models.AssetCategory, date time.Time, quantity, netCostEUR decimal.Decimal, rtype models.RealizationType, d *diag.Diagnostics) ([]models.RealizedGainLoss, error) {
	return l.realize(eventID, assetCategory, date, quantity, netCostEUR, rtype, true, d)
}

// LongLotsSnapshot returns the current long lots, for callers (option
// worthless-expiration) that need to consume every remaining lot directly
// rather than through the pro-rata Realize path.
func (l *Ledger) LongLotsSnapshot() []*models.FifoLot {
	return l.longLots
}

// ShortLotsSnapshot returns the current short lots, analogous to
// LongLotsSnapshot.
func (l *Ledger) ShortLotsSnapshot() []*models.ShortFifoLot {
	return l.shortLots
}

// Clear empties both lot slices and returns the ledger to the flat state,
// used by worthless-expiration processing once every lot has been realized.
func (l *Ledger) Clear() {
	l.longLots = nil
	l.shortLots = nil
	l.st = stateFlat
}

// ConsumeForPremium consumes quantity from the head of whichever lot side is
// open, without producing a RealizedGainLoss, and returns the summed
// cost/proceeds value of the consumed lots. It backs spec.md §4.5 Step B:
// an OPTION_EXERCISE/OPTION_ASSIGNMENT event closes out the option contract's
// own lot(s), and that consumed value folds into the linked stock trade's
// cost or proceeds rather than being reported as its own gain or loss.
func (l *Ledger) ConsumeForPremium(quantity decimal.Decimal) (decimal.Decimal, error) {
	remaining := quantity
	total := decimal.Zero

	for !remaining.IsZero() {
		switch l.st {
		case stateLong:
			if len(l.longLots) == 0 {
				return total, fmt.Errorf("ledger: premium-consume underflow on %s: %s remaining with no long lots left: %s",
					l.AssetID, remaining, l.Snapshot())
			}
			lot := l.longLots[0]
			consumed := remaining
			if lot.RemainingQuantity.LessThan(consumed) {
				consumed = lot.RemainingQuantity
			}
			total = total.Add(lot.UnitCostEUR.Mul(consumed))
			lot.RemainingQuantity = lot.RemainingQuantity.Sub(consumed)
			lot.Rebase()
			if lot.RemainingQuantity.IsZero() {
				l.longLots = l.longLots[1:]
			}
			remaining = remaining.Sub(consumed)
		case stateShort:
			if len(l.shortLots) == 0 {
				return total, fmt.Errorf("ledger: premium-consume underflow on %s: %s remaining with no short lots left: %s",
					l.AssetID, remaining, l.Snapshot())
			}
			lot := l.shortLots[0]
			consumed := remaining
			if lot.RemainingQuantity.LessThan(consumed) {
				consumed = lot.RemainingQuantity
			}
			total = total.Add(lot.UnitProceedsEUR.Mul(consumed))
			lot.RemainingQuantity = lot.RemainingQuantity.Sub(consumed)
			lot.Rebase()
			if lot.RemainingQuantity.IsZero() {
				l.shortLots = l.shortLots[1:]
			}
			remaining = remaining.Sub(consumed)
		default:
			return total, fmt.Errorf("ledger: premium-consume on flat ledger %s", l.AssetID)
		}
	}

	if len(l.longLots) == 0 && len(l.shortLots) == 0 {
		l.st = stateFlat
	}
	return total, nil
}

// realize implements the shared FIFO consumption loop for both the long-sale
// and short-cover directions; isShort selects which lot slice is consumed
// and how cost/realization fields are assigned.
func (l *Ledger) realize(eventID uuid.UUID, assetCategory models.AssetCategory, date time.Time, quantity, netValueEUR decimal.Decimal, rtype models.RealizationType, isShort bool, d *diag.Diagnostics) ([]models.RealizedGainLoss, error) {
	remaining := quantity
	var results []models.RealizedGainLoss

	for !remaining.IsZero() {
		var available decimal.Decimal
		if isShort {
			if len(l.shortLots) == 0 {
				return results, fmt.Errorf("ledger: FIFO underflow on %s: %s remaining with no short lots left: %s",
					l.AssetID, remaining, l.Snapshot())
			}
			available = l.shortLots[0].RemainingQuantity
		} else {
			if len(l.longLots) == 0 {
				return results, fmt.Errorf("ledger: FIFO underflow on %s: %s remaining with no long lots left: %s",
					l.AssetID, remaining, l.Snapshot())
			}
			available = l.longLots[0].RemainingQuantity
		}

		consumed := remaining
		if available.LessThan(consumed) {
			consumed = available
		}
		// Pro-rata slice of the incoming event's total net value for this
		// consumed quantity (spec.md §4.4: "commission is implicitly
		// allocated pro-rata").
		sliceValue := netValueEUR.Mul(consumed).DivRound(quantity, 34)

		var rgl models.RealizedGainLoss
		if isShort {
			lot := l.shortLots[0]
			rgl = models.RealizedGainLoss{
				OriginatingEventID:       eventID,
				AssetID:                  l.AssetID,
				AssetCategory:            assetCategory,
				AcquisitionDate:          lot.OpeningDate,
				RealizationDate:          date,
				Type:                     rtype,
				QuantityRealized:         consumed,
				UnitCostEUR:              sliceValue.DivRound(consumed, 34),
				UnitRealizationValueEUR:  lot.UnitProceedsEUR,
				TotalCostEUR:             sliceValue,
				TotalRealizationValueEUR: lot.UnitProceedsEUR.Mul(consumed),
			}
			lot.RemainingQuantity = lot.RemainingQuantity.Sub(consumed)
			lot.Rebase()
			if lot.RemainingQuantity.IsZero() {
				l.shortLots = l.shortLots[1:]
			}
		} else {
			lot := l.longLots[0]
			rgl = models.RealizedGainLoss{
				OriginatingEventID:       eventID,
				AssetID:                  l.AssetID,
				AssetCategory:            assetCategory,
				AcquisitionDate:          lot.AcquisitionDate,
				RealizationDate:          date,
				Type:                     rtype,
				QuantityRealized:         consumed,
				UnitCostEUR:              lot.UnitCostEUR,
				UnitRealizationValueEUR:  sliceValue.DivRound(consumed, 34),
				TotalCostEUR:             lot.UnitCostEUR.Mul(consumed),
				TotalRealizationValueEUR: sliceValue,
			}
			lot.RemainingQuantity = lot.RemainingQuantity.Sub(consumed)
			lot.Rebase()
			if lot.RemainingQuantity.IsZero() {
				l.longLots = l.longLots[1:]
			}
		}
		rgl.GrossGainLossEUR = rgl.TotalRealizationValueEUR.Sub(rgl.TotalCostEUR)
		rgl.HoldingPeriodDays = int(rgl.RealizationDate.Sub(rgl.AcquisitionDate).Hours() / 24)
		rgl.IsWithinSpeculationPeriod = rgl.HoldingPeriodDays <= 365

		results = append(results, rgl)
		remaining = remaining.Sub(consumed)
	}

	if len(l.longLots) == 0 && len(l.shortLots) == 0 {
		l.st = stateFlat
	}
	return results, nil
}

// QuantizeRGL applies final 2dp/6dp rounding to a RealizedGainLoss for
// reporting, per spec.md §4.7's "final quantization for reporting only".
// The FIFO layer itself never calls this — realize's callers keep full
// precision for the tax aggregator's running sums; only the audit-record
// sink (internal/store) quantizes on the way out.
func QuantizeRGL(r models.RealizedGainLoss) models.RealizedGainLoss {
	r.UnitCostEUR = decimalx.PerShare(r.UnitCostEUR)
	r.UnitRealizationValueEUR = decimalx.PerShare(r.UnitRealizationValueEUR)
	r.TotalCostEUR = decimalx.Amount(r.TotalCostEUR)
	r.TotalRealizationValueEUR = decimalx.Amount(r.TotalRealizationValueEUR)
	r.GrossGainLossEUR = decimalx.Amount(r.GrossGainLossEUR)
	return r
}
