// Package tax implements spec.md §4.7: realization categorization and the
// loss-offsetting aggregator that produces Anlage KAP / KAP-INV / SO
// form-line output. It replaces RumoClaro's per-concern processors
// (dividend_processor.go, fee_processor.go, cash_movement_processor.go),
// which only ever grouped income by year/country for a Portuguese IRS
// annex, keeping their "accumulate into a result map keyed by year" shape
// but re-keying by German tax category instead of by country.
package tax

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/decimalx"
	"github.com/steuerkern/engine/internal/models"
)

// Aggregator accumulates RealizedGainLoss records and income amounts for a
// single tax year into the pools spec.md §4.7 names.
type Aggregator struct {
	TaxYear int

	stockGainsGross   decimal.Decimal
	stockLossesAbs    decimal.Decimal
	derivGainsGross   decimal.Decimal
	derivLossesAbs    decimal.Decimal
	kapOtherIncomePos decimal.Decimal
	kapOtherLossesAbs decimal.Decimal
	fundIncomeNet     decimal.Decimal
	section23Net      decimal.Decimal
	withholdingTax    decimal.Decimal

	kapInv   map[models.FundType]*kapInvBucket
	so       []SOLine
	records  []models.RealizedGainLoss
}

// Records returns every in-year RealizedGainLoss this aggregator has
// accepted, full precision and unquantized, for the audit-record sink
// (internal/store) to persist alongside the quantized form-line report.
func (a *Aggregator) Records() []models.RealizedGainLoss {
	return a.records
}

type kapInvBucket struct {
	DistributionsGross decimal.Decimal
	SaleGainLossGross  decimal.Decimal
}

// New builds an empty Aggregator for taxYear.
func New(taxYear int) *Aggregator {
	return &Aggregator{
		TaxYear: taxYear,
		kapInv:  make(map[models.FundType]*kapInvBucket),
	}
}

func (a *Aggregator) inYear(t time.Time) bool {
	return t.Year() == a.TaxYear
}

func (a *Aggregator) bucket(ft models.FundType) *kapInvBucket {
	b, ok := a.kapInv[ft]
	if !ok {
		b = &kapInvBucket{DistributionsGross: decimal.Zero, SaleGainLossGross: decimal.Zero}
		a.kapInv[ft] = b
	}
	return b
}

// AddRealization folds one RealizedGainLoss into the appropriate pool per
// spec.md §4.7's category table. fundType only matters when
// rgl.TaxCategory == TaxCategoryFund.
func (a *Aggregator) AddRealization(rgl models.RealizedGainLoss, fundType models.FundType) {
	if !a.inYear(rgl.RealizationDate) {
		return
	}
	a.records = append(a.records, rgl)

	switch rgl.TaxCategory {
	case models.TaxCategoryStock:
		if rgl.GrossGainLossEUR.IsPositive() {
			a.stockGainsGross = a.stockGainsGross.Add(rgl.GrossGainLossEUR)
		} else {
			a.stockLossesAbs = a.stockLossesAbs.Add(rgl.GrossGainLossEUR.Abs())
		}
	case models.TaxCategoryDerivative:
		if rgl.GrossGainLossEUR.IsPositive() {
			a.derivGainsGross = a.derivGainsGross.Add(rgl.GrossGainLossEUR)
		} else {
			a.derivLossesAbs = a.derivLossesAbs.Add(rgl.GrossGainLossEUR.Abs())
		}
	case models.TaxCategoryFund:
		rate := fundType.Teilfreistellung()
		netTaxable := rgl.GrossGainLossEUR.Mul(decimal.NewFromInt(1).Sub(rate))
		a.fundIncomeNet = a.fundIncomeNet.Add(netTaxable)
		b := a.bucket(fundType)
		b.SaleGainLossGross = b.SaleGainLossGross.Add(rgl.GrossGainLossEUR)
	case models.TaxCategoryOtherKAP:
		if rgl.GrossGainLossEUR.IsPositive() {
			a.kapOtherIncomePos = a.kapOtherIncomePos.Add(rgl.GrossGainLossEUR)
		} else {
			a.kapOtherLossesAbs = a.kapOtherLossesAbs.Add(rgl.GrossGainLossEUR.Abs())
		}
	case models.TaxCategorySection23Taxable:
		a.section23Net = a.section23Net.Add(rgl.GrossGainLossEUR)
		a.so = append(a.so, SOLine{
			AssetID:         rgl.AssetID,
			AcquisitionDate: rgl.AcquisitionDate,
			RealizationDate: rgl.RealizationDate,
			GainLossEUR:     rgl.GrossGainLossEUR,
			LossExempt:      false,
		})
	case models.TaxCategorySection23Exempt:
		a.so = append(a.so, SOLine{
			AssetID:         rgl.AssetID,
			AcquisitionDate: rgl.AcquisitionDate,
			RealizationDate: rgl.RealizationDate,
			GainLossEUR:     rgl.GrossGainLossEUR,
			LossExempt:      true,
		})
	}
}

// AddIncome folds a plain cash-income amount (dividend, interest,
// Stueckzinsen, capital-repayment excess, stock-dividend FMV) into
// kap_other_income_positive / kap_other_losses_abs, per spec.md §4.7.
func (a *Aggregator) AddIncome(date time.Time, amountEUR decimal.Decimal) {
	if !a.inYear(date) {
		return
	}
	if amountEUR.IsPositive() {
		a.kapOtherIncomePos = a.kapOtherIncomePos.Add(amountEUR)
	} else {
		a.kapOtherLossesAbs = a.kapOtherLossesAbs.Add(amountEUR.Abs())
	}
}

// AddFundDistribution folds a fund distribution event into the fund pools:
// full Teilfreistellung-adjusted amount into fund_income_net_taxable, and
// the gross figure into the KAP-INV distributions bucket for fundType.
func (a *Aggregator) AddFundDistribution(date time.Time, grossEUR decimal.Decimal, fundType models.FundType) {
	if !a.inYear(date) {
		return
	}
	rate := fundType.Teilfreistellung()
	a.fundIncomeNet = a.fundIncomeNet.Add(grossEUR.Mul(decimal.NewFromInt(1).Sub(rate)))
	a.bucket(fundType).DistributionsGross = a.bucket(fundType).DistributionsGross.Add(grossEUR)
}

// AddVorabpauschale folds a Vorabpauschale amount into
// fund_income_net_taxable, per spec.md §4.7. All-zero for the validated tax
// year (spec.md Glossary) but implemented for forward compatibility.
func (a *Aggregator) AddVorabpauschale(v models.VorabpauschaleData) {
	if v.Year != a.TaxYear {
		return
	}
	rate := v.Rate
	a.fundIncomeNet = a.fundIncomeNet.Add(v.Amount.Mul(decimal.NewFromInt(1).Sub(rate)))
}

// AddWithholdingTax accumulates a WITHHOLDING_TAX event's gross EUR amount
// for Zeile 41.
func (a *Aggregator) AddWithholdingTax(date time.Time, grossEUR decimal.Decimal) {
	if !a.inYear(date) {
		return
	}
	a.withholdingTax = a.withholdingTax.Add(grossEUR)
}

// decimalAmount rounds a final pool value to 2 decimals, ROUND_HALF_UP,
// per spec.md §4.7's "final quantization for reporting only".
func (a *Aggregator) decimalAmount(d decimal.Decimal) decimal.Decimal {
	return decimalx.Amount(d)
}
