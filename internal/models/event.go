package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType is the tagged-variant discriminator for FinancialEvent, per
// spec.md §9 Design Notes ("use a tagged variant (sum type) per event
// category rather than inheritance").
type EventType string

const (
	EventTradeBuyLong        EventType = "TRADE_BUY_LONG"
	EventTradeSellLong       EventType = "TRADE_SELL_LONG"
	EventTradeSellShortOpen  EventType = "TRADE_SELL_SHORT_OPEN"
	EventTradeBuyShortCover  EventType = "TRADE_BUY_SHORT_COVER"

	EventDividendCash             EventType = "DIVIDEND_CASH"
	EventInterestReceived         EventType = "INTEREST_RECEIVED"
	EventInterestPaidStueckzinsen EventType = "INTEREST_PAID_STUECKZINSEN"
	EventCapitalRepayment         EventType = "CAPITAL_REPAYMENT"
	EventDistributionFund         EventType = "DISTRIBUTION_FUND"
	EventFeeTransaction           EventType = "FEE_TRANSACTION"
	EventWithholdingTax           EventType = "WITHHOLDING_TAX"

	EventCorpSplitForward          EventType = "CORP_SPLIT_FORWARD"
	EventCorpMergerCash            EventType = "CORP_MERGER_CASH"
	EventCorpMergerStock           EventType = "CORP_MERGER_STOCK"
	EventCorpStockDividend         EventType = "CORP_STOCK_DIVIDEND"
	EventCorpExpireDividendRights  EventType = "CORP_EXPIRE_DIVIDEND_RIGHTS"

	EventOptionExercise            EventType = "OPTION_EXERCISE"
	EventOptionAssignment          EventType = "OPTION_ASSIGNMENT"
	EventOptionExpirationWorthless EventType = "OPTION_EXPIRATION_WORTHLESS"

	EventCurrencyConversion EventType = "CURRENCY_CONVERSION"
)

// TypeTier groups event types for the sort key of spec.md §5: corporate
// actions first, then trades/option lifecycle, then cash flows, then
// enrichment-only events.
func (t EventType) TypeTier() int {
	switch t {
	case EventCorpSplitForward, EventCorpMergerCash, EventCorpMergerStock,
		EventCorpStockDividend, EventCorpExpireDividendRights:
		return 0
	case EventTradeBuyLong, EventTradeSellLong, EventTradeSellShortOpen, EventTradeBuyShortCover,
		EventOptionExercise, EventOptionAssignment, EventOptionExpirationWorthless,
		EventCurrencyConversion:
		return 1
	case EventDividendCash, EventInterestReceived, EventInterestPaidStueckzinsen,
		EventCapitalRepayment, EventDistributionFund, EventFeeTransaction, EventWithholdingTax:
		return 2
	default:
		return 3
	}
}

// IsTrade reports whether t is one of the four stock/option trade variants.
func (t EventType) IsTrade() bool {
	switch t {
	case EventTradeBuyLong, EventTradeSellLong, EventTradeSellShortOpen, EventTradeBuyShortCover:
		return true
	}
	return false
}

// TradeDetail carries the extra fields spec.md §3 lists for TRADE_* events.
type TradeDetail struct {
	Quantity             decimal.Decimal
	UnitPriceForeign     decimal.Decimal
	CommissionForeign    decimal.Decimal
	CommissionCurrency   string
	NetEUR               decimal.Decimal // populated by enrichment, price*qty +/- commission
	RelatedOptionEventID *uuid.UUID
	NotesCodes           string
}

// IncomeDetail carries the source-country and related fields for the plain
// cash-income event variants (dividend, interest, capital repayment, fund
// distribution, fee).
type IncomeDetail struct {
	SourceCountry string
}

// WithholdingTaxDetail links a withholding-tax event to the income event it
// taxes.
type WithholdingTaxDetail struct {
	SourceCountry      string
	RelatedIncomeEventID *uuid.UUID
}

// SplitDetail is the ratio (new/old) for a forward split.
type SplitDetail struct {
	Ratio decimal.Decimal
}

// CashMergerDetail is the cash-per-share paid on a cash merger.
type CashMergerDetail struct {
	CashPerShare decimal.Decimal
}

// StockMergerDetail names the replacement asset; lot conversion is out of
// scope per spec.md §1/§4.4.
type StockMergerDetail struct {
	NewAssetID uuid.UUID
}

// StockDividendDetail is the new-shares-per-existing-share ratio and FMV.
type StockDividendDetail struct {
	NewSharesPerExisting decimal.Decimal
	FMVPerNewShare       decimal.Decimal
}

// CapitalRepaymentDetail is attached to capital-repayment events. The event
// builders leave AmountEUR zero; the repaid amount travels in the event's
// GrossAmountForeign/GrossAmountEUR, which is what dispatch applies.
type CapitalRepaymentDetail struct {
	AmountEUR decimal.Decimal
}

// ExpireDividendRightsDetail pairs a DI (rights issued) event with its
// matching ED (rights expired) event, per spec.md §4.4.
type ExpireDividendRightsDetail struct {
	IsIssuance           bool // true=DI, false=ED
	UnderlyingIdentifier string
	CAActionID           string
	// CashAmountEUR is the ED event's total cash amount (taken from the row's
	// CashPerShare column and applied as one total, not per right), already in EUR
	// (broker corporate-action reports render CA cash fields in the
	// account's base currency; see DESIGN.md's Open Question resolution on
	// corporate-action currency handling). Zero/unused for DI (issuance).
	CashAmountEUR decimal.Decimal
}

// OptionLifecycleDetail carries the contract quantity for exercise/assignment/
// worthless-expiration events.
type OptionLifecycleDetail struct {
	ContractQuantity decimal.Decimal
}

// CurrencyConversionDetail carries both legs of an FX-pair trade row.
type CurrencyConversionDetail struct {
	FromAmount   decimal.Decimal
	FromCurrency string
	ToAmount     decimal.Decimal
	ToCurrency   string
}

// FinancialEvent is the abstract event spec.md §3 describes: common fields
// plus a type-tagged Detail payload. Consumers type-switch on EventType to
// recover the concrete Detail struct.
type FinancialEvent struct {
	ID                  uuid.UUID
	AssetID             uuid.UUID
	Date                time.Time
	Type                EventType
	GrossAmountForeign  decimal.Decimal
	Currency            string
	GrossAmountEUR      decimal.Decimal // populated by enrichment
	BrokerTransactionID string
	Notes               string

	Detail any
}

// Trade returns the event's TradeDetail, panicking if Type is not a trade
// variant — callers are expected to dispatch on Type before calling this.
func (e *FinancialEvent) Trade() *TradeDetail {
	return e.Detail.(*TradeDetail)
}
