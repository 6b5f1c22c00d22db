package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/fx"
	"github.com/steuerkern/engine/internal/models"
)

// SimResult is the outcome of replaying an asset's pre-tax-year history
// through a scratch ledger, per spec.md §4.6 step 1.
type SimResult struct {
	Ledger    *Ledger
	Underflow bool
}

// Simulate replays events (already sorted, already filtered to
// date < first day of tax year) through a fresh scratch Ledger. Callers
// build steps as a []func(*Ledger) error closure sequence so this package
// stays decoupled from the pipeline's event-dispatch switch; see
// pipeline.reconstructSOY for the concrete construction.
func Simulate(assetID uuid.UUID, steps []func(*Ledger) error) SimResult {
	l := New(assetID)
	for _, step := range steps {
		if err := step(l); err != nil {
			return SimResult{Ledger: l, Underflow: true}
		}
	}
	return SimResult{Ledger: l, Underflow: false}
}

// AcceptSimulation implements spec.md §4.6's three acceptance conditions:
// (a) no underflow, (b) simulated net quantity sign matches the SOY
// quantity's sign, (c) |simulated| >= |soy quantity|.
func AcceptSimulation(result SimResult, soyQuantity decimal.Decimal) bool {
	if result.Underflow {
		return false
	}
	simQty := result.Ledger.NetQuantity()
	if simQty.Sign() != soyQuantity.Sign() && !soyQuantity.IsZero() {
		return false
	}
	return simQty.Abs().GreaterThanOrEqual(soyQuantity.Abs())
}

// FallbackSOYLot builds the synthetic start-of-year lot of spec.md §4.6
// step 2 when historical simulation is rejected or unavailable: a single
// lot dated (taxYear-1)-12-31, quantity = soy.Quantity, unit cost derived
// from soy.CostBasisAmount/soy.Quantity converted to EUR at that date's
// rate, or zero with a warning if the cost basis is missing.
func FallbackSOYLot(taxYear int, soy models.SOYSnapshot, provider fx.Provider, d *diag.Diagnostics, assetID uuid.UUID) *models.FifoLot {
	asOf := time.Date(taxYear-1, time.December, 31, 0, 0, 0, 0, time.UTC)

	unitCost := decimal.Zero
	if soy.CostBasisAmount.Valid && !soy.Quantity.IsZero() {
		rate, err := soyRate(asOf, soy.CostBasisCurrency, provider)
		if err == nil {
			costEUR := soy.CostBasisAmount.Decimal.DivRound(rate, 34)
			unitCost = costEUR.DivRound(soy.Quantity.Abs(), 34)
		} else {
			d.Addf(diag.LevelWarning, "SOY fallback for %s: could not convert cost basis currency %s: %v", assetID, soy.CostBasisCurrency, err)
		}
	} else {
		d.Addf(diag.LevelWarning, "SOY fallback for %s: missing cost basis, unit cost set to zero", assetID)
	}

	return &models.FifoLot{
		AcquisitionDate:     asOf,
		RemainingQuantity:   soy.Quantity.Abs(),
		UnitCostEUR:         unitCost,
		TotalCostEUR:        unitCost.Mul(soy.Quantity.Abs()),
		SourceTransactionID: models.SOYFallback,
	}
}

// soyRate mirrors enrich.rateFor's EUR-identity short-circuit: an
// EUR-denominated SOY cost basis must never depend on the injected provider
// carrying an explicit "EUR" entry.
func soyRate(day time.Time, ccy string, provider fx.Provider) (decimal.Decimal, error) {
	if ccy == "EUR" {
		return decimal.NewFromInt(1), nil
	}
	return provider.Rate(day, ccy)
}
