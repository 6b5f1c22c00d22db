// Package events implements spec.md §4.2: the row -> event construction
// step. This is the generalized, decimal-safe descendant of RumoClaro's
// processTrade (parsers/ibkr/parser.go) and TransactionProcessor.Process
// (processors/transaction_processor.go), which built a single
// ProcessedTransaction via BuySell + float math; here each row produces a
// typed models.FinancialEvent variant and every numeric field is parsed
// straight from the source string (spec.md §4.2: "All Decimals are
// constructed from the raw input string... never via floating-point").
package events

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/rows"
)

// dec parses a raw column string into a Decimal, treating "" as zero.
func dec(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}

func mustDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// containsCode reports whether notes contains code as a case-sensitive
// substring match, the way spec.md §4.2 describes option-assignment
// detection ("notes containing 'A' (but not 'IA')").
func containsCode(notes, code string) bool {
	return strings.Contains(notes, code)
}

// isOptionExercise / isOptionAssignment implement spec.md §4.2's option
// notes-code table.
func isOptionExercise(notes string) bool {
	return containsCode(notes, "Ex")
}

func isOptionAssignment(notes string) bool {
	return containsCode(notes, "A") && !containsCode(notes, "IA")
}

// BuildFromTrade maps a TradeRow to a FinancialEvent, implementing the
// Buy/Sell x Open/Close table of spec.md §4.2 for financial-instrument
// trades, the option Ex/A(not IA) override, and the FX-pair single-event
// carve-out.
func BuildFromTrade(r rows.TradeRow, assetID uuid.UUID, isOption bool, d *diag.Diagnostics) (*models.FinancialEvent, error) {
	date, err := mustDate(r.TradeDate)
	if err != nil {
		return nil, fmt.Errorf("events: unparseable trade date %q: %w", r.TradeDate, err)
	}

	if r.IsFXPair() {
		return buildCurrencyConversion(r, assetID, date)
	}

	qty, err := dec(r.Quantity)
	if err != nil {
		return nil, fmt.Errorf("events: invalid quantity %q: %w", r.Quantity, err)
	}
	price, err := dec(r.TradePrice)
	if err != nil {
		return nil, fmt.Errorf("events: invalid trade price %q: %w", r.TradePrice, err)
	}
	commission, err := dec(r.Commission)
	if err != nil {
		return nil, fmt.Errorf("events: invalid commission %q: %w", r.Commission, err)
	}
	commissionCcy := r.CommissionCurrency
	if commissionCcy == "" {
		commissionCcy = r.Currency
	}

	evType, err := classifyTrade(r, isOption)
	if err != nil {
		return nil, err
	}

	e := &models.FinancialEvent{
		ID:                  uuid.New(),
		AssetID:             assetID,
		Date:                date,
		Type:                evType,
		GrossAmountForeign:  qty.Mul(price).Abs(),
		Currency:            r.Currency,
		BrokerTransactionID: r.BrokerTransactionID,
		Notes:               r.NotesCodes,
		Detail: &models.TradeDetail{
			Quantity:           qty.Abs(),
			UnitPriceForeign:   price,
			CommissionForeign:  commission.Abs(),
			CommissionCurrency: commissionCcy,
			NotesCodes:         r.NotesCodes,
		},
	}
	return e, nil
}

// classifyTrade implements the Buy/Sell x Open/Close table and the option
// Ex/A override of spec.md §4.2.
func classifyTrade(r rows.TradeRow, isOption bool) (models.EventType, error) {
	if isOption {
		switch {
		case isOptionExercise(r.NotesCodes):
			return models.EventOptionExercise, nil
		case isOptionAssignment(r.NotesCodes):
			return models.EventOptionAssignment, nil
		}
	}

	switch r.OpenClose {
	case "O":
		if r.BuySell == "BUY" {
			return models.EventTradeBuyLong, nil
		}
		return models.EventTradeSellShortOpen, nil
	case "C":
		if r.BuySell == "BUY" {
			return models.EventTradeBuyShortCover, nil
		}
		return models.EventTradeSellLong, nil
	default:
		return "", fmt.Errorf("events: missing/unknown open-close indicator %q on trade (order %s) — fatal per spec", r.OpenClose, r.BrokerTransactionID)
	}
}

func buildCurrencyConversion(r rows.TradeRow, assetID uuid.UUID, date time.Time) (*models.FinancialEvent, error) {
	qty, err := dec(r.Quantity)
	if err != nil {
		return nil, err
	}
	price, err := dec(r.TradePrice)
	if err != nil {
		return nil, err
	}
	legs := strings.SplitN(r.Symbol, ".", 2)
	fromCcy, toCcy := r.Currency, r.Currency
	if len(legs) == 2 {
		fromCcy, toCcy = legs[0], legs[1]
	}
	fromAmount := qty.Abs()
	toAmount := qty.Abs().Mul(price)

	return &models.FinancialEvent{
		ID:                  uuid.New(),
		AssetID:             assetID,
		Date:                date,
		Type:                models.EventCurrencyConversion,
		GrossAmountForeign:  toAmount,
		Currency:            toCcy,
		BrokerTransactionID: r.BrokerTransactionID,
		Notes:               r.NotesCodes,
		Detail: &models.CurrencyConversionDetail{
			FromAmount:   fromAmount,
			FromCurrency: fromCcy,
			ToAmount:     toAmount,
			ToCurrency:   toCcy,
		},
	}, nil
}

// BuildFromCashTx maps a CashTxRow to a FinancialEvent, dispatching on the
// type strings spec.md §6 lists. isFund tells a "Dividends"/"Payment In Lieu
// Of Dividends" row apart from an ordinary equity dividend: the resolver
// already knows by this point whether the row's asset is a
// CategoryInvestmentFund, and a fund's distribution belongs in
// DISTRIBUTION_FUND (Anlage KAP-INV), not DIVIDEND_CASH (Anlage KAP).
func BuildFromCashTx(r rows.CashTxRow, assetID uuid.UUID, isFund bool, countryCode string) (*models.FinancialEvent, error) {
	date, err := mustDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("events: unparseable cash tx date %q: %w", r.Date, err)
	}
	amount, err := dec(r.Amount)
	if err != nil {
		return nil, fmt.Errorf("events: invalid cash tx amount %q: %w", r.Amount, err)
	}

	base := &models.FinancialEvent{
		ID:       uuid.New(),
		AssetID:  assetID,
		Date:     date,
		Currency: r.Currency,
		Notes:    r.Description,
	}

	switch r.Type {
	case "Dividends", "Payment In Lieu Of Dividends":
		base.GrossAmountForeign = amount.Abs()
		if isFund {
			base.Type = models.EventDistributionFund
		} else {
			base.Type = models.EventDividendCash
		}
		base.Detail = &models.IncomeDetail{SourceCountry: countryCode}
	case "Withholding Tax":
		base.GrossAmountForeign = amount.Abs()
		base.Type = models.EventWithholdingTax
		base.Detail = &models.WithholdingTaxDetail{SourceCountry: countryCode}
	case "Broker Interest Received":
		base.GrossAmountForeign = amount.Abs()
		base.Type = models.EventInterestReceived
		base.Detail = &models.IncomeDetail{SourceCountry: countryCode}
	case "Capital Repayment":
		base.GrossAmountForeign = amount.Abs()
		base.Type = models.EventCapitalRepayment
		base.Detail = &models.CapitalRepaymentDetail{}
	case "Exempt From Withholding":
		// Stückzinsen (accrued interest): the raw amount is signed — positive
		// when received, negative when paid — per spec.md §4.7's net
		// Stückzinsen pool (kap_other_income_positive/kap_other_losses_abs).
		// Collapsing it to a magnitude here would turn a paid amount into
		// taxable income instead of a loss.
		base.GrossAmountForeign = amount
		base.Type = models.EventInterestPaidStueckzinsen
		base.Detail = &models.IncomeDetail{SourceCountry: countryCode}
	default:
		return nil, fmt.Errorf("events: unrecognized cash transaction type %q", r.Type)
	}
	return base, nil
}

// Position rows produce no FinancialEvent — they feed the SOY/EOY snapshot
// fields on the Asset directly (see applySOYSnapshot/applyEOYSnapshot in
// internal/pipeline), per spec.md §3.
