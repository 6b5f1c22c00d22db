package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/models"
)

// SyntheticIncome is emitted by corporate-action lot transforms that
// generate taxable cash income with no backing FinancialEvent of their own
// (spec.md §4.4's stock-dividend FMV income and capital-repayment excess),
// for the tax aggregator to fold into kap_other_income_positive.
type SyntheticIncome struct {
	AssetID   uuid.UUID
	Date      time.Time
	AmountEUR decimal.Decimal
	Reason    string
}

// ApplySplit implements spec.md §4.4's forward split: every lot's quantity
// is multiplied by ratio and its unit cost divided by ratio; total cost is
// unchanged. Non-taxable, so it returns nothing.
func (l *Ledger) ApplySplit(ratio decimal.Decimal) {
	for _, lot := range l.longLots {
		lot.RemainingQuantity = lot.RemainingQuantity.Mul(ratio)
		lot.UnitCostEUR = lot.UnitCostEUR.DivRound(ratio, 34)
	}
	for _, lot := range l.shortLots {
		lot.RemainingQuantity = lot.RemainingQuantity.Mul(ratio)
		lot.UnitProceedsEUR = lot.UnitProceedsEUR.DivRound(ratio, 34)
	}
}

// ApplyCashMerger implements spec.md §4.4's cash merger: every long lot is
// treated as sold at cashPerShareEUR per unit, realization-type
// CASH_MERGER_PROCEEDS, then the ledger is cleared. Short lots are dropped
// with the rest of the ledger; no realization is produced for them.
func (l *Ledger) ApplyCashMerger(eventID uuid.UUID, assetCategory models.AssetCategory, date time.Time, cashPerShareEUR decimal.Decimal) []models.RealizedGainLoss {
	var out []models.RealizedGainLoss
	for _, lot := range l.longLots {
		total := cashPerShareEUR.Mul(lot.RemainingQuantity)
		rgl := models.RealizedGainLoss{
			OriginatingEventID:       eventID,
			AssetID:                  l.AssetID,
			AssetCategory:            assetCategory,
			AcquisitionDate:          lot.AcquisitionDate,
			RealizationDate:          date,
			Type:                     models.RealizationCashMergerProceeds,
			QuantityRealized:         lot.RemainingQuantity,
			UnitCostEUR:              lot.UnitCostEUR,
			UnitRealizationValueEUR:  cashPerShareEUR,
			TotalCostEUR:             lot.TotalCostEUR,
			TotalRealizationValueEUR: total,
		}
		rgl.GrossGainLossEUR = rgl.TotalRealizationValueEUR.Sub(rgl.TotalCostEUR)
		rgl.HoldingPeriodDays = int(date.Sub(lot.AcquisitionDate).Hours() / 24)
		rgl.IsWithinSpeculationPeriod = rgl.HoldingPeriodDays <= 365
		out = append(out, rgl)
	}
	l.longLots = nil
	l.shortLots = nil
	l.st = stateFlat
	return out
}

// ApplyStockDividend implements spec.md §4.4's stock dividend: a new long
// lot of qtyNew shares at unit cost fmvEUR is appended, and
// qtyNew*fmvEUR is returned as synthetic taxable income. IsReceivableSymbol
// lets the caller skip broker-internal receivable rows (".REC") before
// calling this at all, per spec.md.
func (l *Ledger) ApplyStockDividend(date time.Time, qtyNew, fmvEUR decimal.Decimal, sourceTxID string) SyntheticIncome {
	l.longLots = append(l.longLots, &models.FifoLot{
		AcquisitionDate:     date,
		RemainingQuantity:   qtyNew,
		UnitCostEUR:         fmvEUR,
		TotalCostEUR:        qtyNew.Mul(fmvEUR),
		SourceTransactionID: sourceTxID,
	})
	l.st = stateLong
	return SyntheticIncome{AssetID: l.AssetID, Date: date, AmountEUR: qtyNew.Mul(fmvEUR), Reason: "stock_dividend_fmv"}
}

// IsReceivableSymbol reports whether symbol carries the broker-internal
// receivable suffix spec.md §4.4 says to skip for stock-dividend lot
// creation.
func IsReceivableSymbol(symbol string) bool {
	return strings.HasSuffix(symbol, ".REC")
}

// ApplyCapitalRepayment implements spec.md §4.4's capital repayment:
// amountEUR reduces the oldest lots' total cost (unit cost shrinks toward
// zero before moving to the next lot); any excess over the sum of
// remaining costs becomes taxable income at the event date.
func (l *Ledger) ApplyCapitalRepayment(date time.Time, amountEUR decimal.Decimal) *SyntheticIncome {
	remaining := amountEUR
	for _, lot := range l.longLots {
		if remaining.IsZero() {
			break
		}
		if lot.TotalCostEUR.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(lot.TotalCostEUR)
			lot.TotalCostEUR = decimal.Zero
			lot.UnitCostEUR = decimal.Zero
		} else {
			lot.TotalCostEUR = lot.TotalCostEUR.Sub(remaining)
			if !lot.RemainingQuantity.IsZero() {
				lot.UnitCostEUR = lot.TotalCostEUR.DivRound(lot.RemainingQuantity, 34)
			}
			remaining = decimal.Zero
		}
	}
	if remaining.IsPositive() {
		return &SyntheticIncome{AssetID: l.AssetID, Date: date, AmountEUR: remaining, Reason: "capital_repayment_excess"}
	}
	return nil
}
