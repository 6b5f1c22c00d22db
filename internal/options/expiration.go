package options

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/ledger"
	"github.com/steuerkern/engine/internal/models"
)

// ExpireWorthless implements spec.md §4.5's worthless-expiration rule:
// consume every remaining lot on the option's own ledger and emit one
// RealizedGainLoss per lot, long expirations realizing a loss
// (OPTION_EXPIRED_LONG) and short expirations realizing Stillhalter income
// (OPTION_EXPIRED_SHORT, is_stillhalter_income=true).
func ExpireWorthless(eventID uuid.UUID, optionLedger *ledger.Ledger, date time.Time) []models.RealizedGainLoss {
	var out []models.RealizedGainLoss
	for _, lot := range optionLedger.LongLotsSnapshot() {
		rgl := models.RealizedGainLoss{
			OriginatingEventID:       eventID,
			AssetID:                  optionLedger.AssetID,
			AssetCategory:            models.CategoryOption,
			AcquisitionDate:          lot.AcquisitionDate,
			RealizationDate:          date,
			Type:                     models.RealizationOptionExpiredLong,
			QuantityRealized:         lot.RemainingQuantity,
			UnitCostEUR:              lot.UnitCostEUR,
			UnitRealizationValueEUR:  decimal.Zero,
			TotalCostEUR:             lot.TotalCostEUR,
			TotalRealizationValueEUR: decimal.Zero,
		}
		rgl.GrossGainLossEUR = rgl.TotalRealizationValueEUR.Sub(rgl.TotalCostEUR)
		rgl.HoldingPeriodDays = int(date.Sub(lot.AcquisitionDate).Hours() / 24)
		rgl.IsWithinSpeculationPeriod = rgl.HoldingPeriodDays <= 365
		out = append(out, rgl)
	}
	for _, lot := range optionLedger.ShortLotsSnapshot() {
		rgl := models.RealizedGainLoss{
			OriginatingEventID:       eventID,
			AssetID:                  optionLedger.AssetID,
			AssetCategory:            models.CategoryOption,
			AcquisitionDate:          lot.OpeningDate,
			RealizationDate:          date,
			Type:                     models.RealizationOptionExpiredShort,
			QuantityRealized:         lot.RemainingQuantity,
			UnitCostEUR:              decimal.Zero,
			UnitRealizationValueEUR:  lot.UnitProceedsEUR,
			TotalCostEUR:             decimal.Zero,
			TotalRealizationValueEUR: lot.TotalProceedsEUR,
			IsStillhalterIncome:      true,
		}
		rgl.GrossGainLossEUR = rgl.TotalRealizationValueEUR.Sub(rgl.TotalCostEUR)
		rgl.HoldingPeriodDays = int(date.Sub(lot.OpeningDate).Hours() / 24)
		rgl.IsWithinSpeculationPeriod = rgl.HoldingPeriodDays <= 365
		out = append(out, rgl)
	}
	optionLedger.Clear()
	return out
}
