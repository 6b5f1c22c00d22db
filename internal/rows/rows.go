// Package rows defines the four input row schemas of spec.md §6 ("Input row
// schemas") as dialect-neutral Go structs, validated with go-playground's
// validator (the same struct-tag validation RumoClaro never had — its
// RawTransaction/IBKR XML structs are trusted blindly). CSV/XML decoding
// itself is a host concern (spec.md §1 Non-goals); these structs are the
// contract a decoder must produce.
package rows

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// TradeRow is a single trade/execution row (spec.md §6).
type TradeRow struct {
	AccountID             string `validate:"required"`
	Currency              string `validate:"required,len=3"`
	AssetClass            string `validate:"required"`
	SubCategory           string
	Symbol                string
	Description           string
	ISIN                  string
	ConID                 string
	Quantity              string `validate:"required"` // signed, raw decimal text
	TradePrice            string `validate:"required"`
	Commission            string
	CommissionCurrency    string
	BuySell               string `validate:"required,oneof=BUY SELL"`
	OpenClose             string `validate:"omitempty,oneof=O C"`
	TradeDate             string `validate:"required,datetime=2006-01-02"`
	TradeTime             string
	BrokerTransactionID   string
	NotesCodes            string
	UnderlyingSymbol      string
	UnderlyingConID       string
	Multiplier            string
	PutCall               string `validate:"omitempty,oneof=P C"`
	Strike                string
	Expiry                string
}

// Validate runs struct-tag validation over the row.
func (r TradeRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rows: invalid trade row (order %s): %w", r.BrokerTransactionID, err)
	}
	return nil
}

// fxPairSymbol matches IBKR's "XXX.YYY" currency-pair symbol shape, used by
// spec.md §4.1's FX-pair exclusion rule.
var fxPairSymbol = regexp.MustCompile(`^[A-Z]{3}\.[A-Z]{3}$`)

// IsFXPair implements spec.md §4.1: "an instrument whose symbol is of form
// XXX.YYY with IBKR asset class 'CASH' must not become a CashBalance Asset".
func (r TradeRow) IsFXPair() bool {
	return strings.ToUpper(r.AssetClass) == "CASH" && fxPairSymbol.MatchString(strings.ToUpper(r.Symbol))
}

// CashTxRow is a cash-transaction row (spec.md §6).
type CashTxRow struct {
	Date        string `validate:"required,datetime=2006-01-02"`
	ISIN        string
	ConID       string
	Symbol      string
	Type        string `validate:"required,oneof=Dividends 'Withholding Tax' 'Broker Interest Received' 'Payment In Lieu Of Dividends' 'Capital Repayment' 'Exempt From Withholding'"`
	Amount      string `validate:"required"`
	Currency    string `validate:"required,len=3"`
	Description string
}

// Validate runs struct-tag validation over the row.
func (r CashTxRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rows: invalid cash tx row (%s on %s): %w", r.Type, r.Date, err)
	}
	return nil
}

// PositionRow is a start/end-of-year position snapshot row (spec.md §6).
type PositionRow struct {
	ISIN               string
	ConID              string
	Symbol             string
	Quantity           string `validate:"required"`
	CostBasisAmount    string
	CostBasisCurrency  string
	MarketPrice        string
	Currency           string `validate:"required,len=3"`
}

// Validate runs struct-tag validation over the row.
func (r PositionRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rows: invalid position row (%s): %w", r.Symbol, err)
	}
	return nil
}

// CorpActionRow is a corporate-action row (spec.md §6).
type CorpActionRow struct {
	Date         string `validate:"required,datetime=2006-01-02"`
	ISIN         string
	ConID        string
	Symbol       string
	Type         string `validate:"required,oneof=FS TC HI SD DI ED"`
	Ratio        string
	CashPerShare string
	NewShares    string
	CAActionID   string `validate:"required"`
	Description  string
}

// Validate runs struct-tag validation over the row.
func (r CorpActionRow) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("rows: invalid corporate action row (%s %s): %w", r.Type, r.CAActionID, err)
	}
	return nil
}

// Aliases builds the resolver's alias set for a trade row (spec.md §4.1).
func (r TradeRow) Aliases() []string {
	return buildAliases(r.ISIN, r.ConID, r.Symbol)
}

// Aliases builds the resolver's alias set for a cash-transaction row.
func (r CashTxRow) Aliases() []string {
	return buildAliases(r.ISIN, r.ConID, r.Symbol)
}

// Aliases builds the resolver's alias set for a position row.
func (r PositionRow) Aliases() []string {
	return buildAliases(r.ISIN, r.ConID, r.Symbol)
}

// Aliases builds the resolver's alias set for a corporate-action row.
func (r CorpActionRow) Aliases() []string {
	return buildAliases(r.ISIN, r.ConID, r.Symbol)
}

func buildAliases(isin, conID, symbol string) []string {
	var aliases []string
	if isin != "" {
		aliases = append(aliases, "ISIN:"+isin)
	}
	if conID != "" {
		aliases = append(aliases, "CONID:"+conID)
	}
	if symbol != "" {
		aliases = append(aliases, "SYMBOL:"+symbol)
	}
	return aliases
}

// CashBalanceAlias builds the synthetic alias for a cash-balance asset in
// the given currency (spec.md §3: "CASH_BALANCE:EUR").
func CashBalanceAlias(currency string) string {
	return "CASH_BALANCE:" + strings.ToUpper(currency)
}
