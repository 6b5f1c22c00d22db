// Package enrich implements spec.md §4.3: converting each event's foreign
// gross amount into EUR and deriving trade-specific net cost/proceeds under
// the buy/sell sign convention. It is the generalized, decimal-safe
// descendant of RumoClaro's TransactionProcessor.Process
// (processors/transaction_processor.go), which applied the same "±
// commission, sign depends on Buy/Sell" rule over float64 instead of an
// injected rate provider and Decimal arithmetic.
package enrich

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/fx"
	"github.com/steuerkern/engine/internal/models"
)

// internalPrecision is the working decimal precision spec.md §4.3/§9
// requires ("internal precision ≥28 digits"); ROUND_HALF_UP is applied only
// at final quantization via internal/decimalx, never mid-calculation.
const internalPrecision = 34

func init() {
	decimal.DivisionPrecision = internalPrecision
}

// costSign reports whether a trade type is cost-like (true) or
// proceeds-like (false) per spec.md §4.3's sign convention table.
func costSign(t models.EventType) (isCost bool, ok bool) {
	switch t {
	case models.EventTradeBuyLong, models.EventTradeBuyShortCover:
		return true, true
	case models.EventTradeSellLong, models.EventTradeSellShortOpen:
		return false, true
	default:
		return false, false
	}
}

// Enrich converts e's foreign gross amount to EUR and, for trade events,
// derives the signed net cost-basis/proceeds figure into TradeDetail.NetEUR.
// provider is the FxRateProvider collaborator spec.md §4.3 names — enrich
// never constructs one itself, per spec.md §9.
func Enrich(e *models.FinancialEvent, provider fx.Provider) error {
	rate, err := rateFor(e.Date, e.Currency, provider)
	if err != nil {
		return fmt.Errorf("enrich: %s event %s: %w", e.Type, e.ID, err)
	}
	e.GrossAmountEUR = convert(e.GrossAmountForeign, rate)

	if !e.Type.IsTrade() {
		return nil
	}
	td := e.Trade()

	priceTimesQty := td.Quantity.Mul(td.UnitPriceForeign).Abs()
	grossEUR := convert(priceTimesQty, rate)

	commissionEUR := decimal.Zero
	if !td.CommissionForeign.IsZero() {
		commissionCcy := td.CommissionCurrency
		if commissionCcy == "" {
			commissionCcy = e.Currency
		}
		commissionRate := rate
		if commissionCcy != e.Currency {
			commissionRate, err = rateFor(e.Date, commissionCcy, provider)
			if err != nil {
				return fmt.Errorf("enrich: %s event %s commission currency %s: %w", e.Type, e.ID, commissionCcy, err)
			}
		}
		commissionEUR = convert(td.CommissionForeign.Abs(), commissionRate)
	}

	isCost, ok := costSign(e.Type)
	if !ok {
		// Option exercise/assignment and other trade-tiered events are not
		// priced here; the options linker derives their economics from the
		// stock leg plus pending premium adjustment (spec.md §4.5).
		return nil
	}
	if isCost {
		td.NetEUR = grossEUR.Add(commissionEUR)
	} else {
		td.NetEUR = grossEUR.Sub(commissionEUR)
	}
	return nil
}

// rateFor returns 1 for EUR (identity, per spec.md §4.3) or defers to the
// provider otherwise.
func rateFor(day time.Time, ccy string, provider fx.Provider) (decimal.Decimal, error) {
	if ccy == "EUR" {
		return decimal.NewFromInt(1), nil
	}
	return provider.Rate(day, ccy)
}

// convert applies gross_amount_eur = gross_amount_foreign / rate, per
// spec.md §4.3.
func convert(foreignAmount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return foreignAmount.DivRound(rate, internalPrecision)
}
