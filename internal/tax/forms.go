package tax

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/models"
)

// KAPForm is Anlage KAP's Zeilen 19-24 and 41, per spec.md §4.7/§6.
type KAPForm struct {
	Zeile19 decimal.Decimal
	Zeile20 decimal.Decimal
	Zeile21 decimal.Decimal
	Zeile22 decimal.Decimal
	Zeile23 decimal.Decimal
	Zeile24 decimal.Decimal
	Zeile41 decimal.Decimal
}

// KAPInvLine is one fund-type's distribution/sale-G&L line pair for Anlage
// KAP-INV.
type KAPInvLine struct {
	FundType           models.FundType
	DistributionsGross decimal.Decimal
	SaleGainLossGross  decimal.Decimal
}

// SOLine is one Anlage SO per-transaction entry (Zeilen 42-53), plus the
// loss-exempt flag that excludes >365-day holdings from Zeile 54's total.
type SOLine struct {
	AssetID         uuid.UUID
	AcquisitionDate time.Time
	RealizationDate time.Time
	GainLossEUR     decimal.Decimal
	LossExempt      bool
}

// SOForm is Anlage SO's per-transaction list plus Zeile 54's net total.
type SOForm struct {
	Lines   []SOLine
	Zeile54 decimal.Decimal
}

// Report is the full form-line output of one pipeline run.
type Report struct {
	KAP    KAPForm
	KAPInv []KAPInvLine
	SO     SOForm
}

// Build computes the Zeile 19-24/41 formulas of spec.md §4.7 and renders
// the KAP-INV/SO outputs, applying final 2-decimal ROUND_HALF_UP
// quantization.
func (a *Aggregator) Build() Report {
	zeile19 := a.stockGainsGross.
		Add(a.derivGainsGross).
		Add(a.kapOtherIncomePos).
		Sub(a.stockLossesAbs).
		Sub(a.kapOtherLossesAbs)

	kap := KAPForm{
		Zeile19: a.decimalAmount(zeile19),
		Zeile20: a.decimalAmount(a.stockGainsGross),
		Zeile21: a.decimalAmount(a.derivGainsGross),
		Zeile22: a.decimalAmount(a.kapOtherLossesAbs),
		Zeile23: a.decimalAmount(a.stockLossesAbs),
		Zeile24: a.decimalAmount(a.derivLossesAbs),
		Zeile41: a.decimalAmount(a.withholdingTax),
	}

	var kapInv []KAPInvLine
	for _, ft := range []models.FundType{
		models.FundAktien, models.FundMisch, models.FundImmobilien,
		models.FundAuslandsImmobilien, models.FundSonstige, models.FundNone,
	} {
		b, ok := a.kapInv[ft]
		if !ok {
			continue
		}
		kapInv = append(kapInv, KAPInvLine{
			FundType:           ft,
			DistributionsGross: a.decimalAmount(b.DistributionsGross),
			SaleGainLossGross:  a.decimalAmount(b.SaleGainLossGross),
		})
	}

	zeile54 := decimal.Zero
	lines := make([]SOLine, len(a.so))
	for i, line := range a.so {
		line.GainLossEUR = a.decimalAmount(line.GainLossEUR)
		if !line.LossExempt {
			zeile54 = zeile54.Add(line.GainLossEUR)
		}
		lines[i] = line
	}

	return Report{
		KAP:    kap,
		KAPInv: kapInv,
		SO: SOForm{
			Lines:   lines,
			Zeile54: a.decimalAmount(zeile54),
		},
	}
}
