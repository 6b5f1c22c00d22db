package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RealizationType is the variant spec.md §3 names for RealizedGainLoss.
type RealizationType string

const (
	RealizationLongSale           RealizationType = "LONG_POSITION_SALE"
	RealizationShortCover         RealizationType = "SHORT_POSITION_COVER"
	RealizationCashMergerProceeds RealizationType = "CASH_MERGER_PROCEEDS"
	RealizationOptionExpiredLong  RealizationType = "OPTION_EXPIRED_LONG"
	RealizationOptionExpiredShort RealizationType = "OPTION_EXPIRED_SHORT"
	RealizationOptionCloseLong    RealizationType = "OPTION_TRADE_CLOSE_LONG"
	RealizationOptionCloseShort   RealizationType = "OPTION_TRADE_CLOSE_SHORT"
)

// TaxCategory is the form-line bucket a RealizedGainLoss (or income event)
// is tagged into by the aggregator (spec.md §4.7).
type TaxCategory string

const (
	TaxCategoryStock              TaxCategory = "STOCK"
	TaxCategoryDerivative         TaxCategory = "DERIVATIVE"
	TaxCategoryFund               TaxCategory = "FUND"
	TaxCategoryOtherKAP           TaxCategory = "OTHER_KAP"
	TaxCategorySection23Taxable   TaxCategory = "SECTION_23_ESTG_TAXABLE_GAIN"
	TaxCategorySection23Exempt    TaxCategory = "SECTION_23_ESTG_EXEMPT"
)

// Teilfreistellung is the partial-exemption breakdown attached to fund
// realizations/income (spec.md §3).
type Teilfreistellung struct {
	Rate      decimal.Decimal
	Amount    decimal.Decimal
	NetAfter  decimal.Decimal
}

// RealizedGainLoss is the per-event audit output record of spec.md §3.
type RealizedGainLoss struct {
	OriginatingEventID uuid.UUID
	AssetID            uuid.UUID
	AssetCategory      AssetCategory

	AcquisitionDate  time.Time
	RealizationDate  time.Time
	Type             RealizationType

	QuantityRealized      decimal.Decimal
	UnitCostEUR           decimal.Decimal
	UnitRealizationValueEUR decimal.Decimal
	TotalCostEUR          decimal.Decimal
	TotalRealizationValueEUR decimal.Decimal
	GrossGainLossEUR      decimal.Decimal

	HoldingPeriodDays       int
	IsWithinSpeculationPeriod bool

	TaxCategory      TaxCategory
	FundTeilfreistellung *Teilfreistellung
	IsStillhalterIncome bool
}

// VorabpauschaleData is the per-fund, per-year advance lump-sum taxation
// record of spec.md §3. All figures are zero for the tax year this engine
// was validated against (spec.md Glossary), but the shape exists so a later
// tax year can populate it without a breaking change.
type VorabpauschaleData struct {
	AssetID uuid.UUID
	Year    int
	Rate    decimal.Decimal
	Amount  decimal.Decimal
}
