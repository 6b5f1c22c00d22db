// Package models holds the engine's core data model: Asset, FinancialEvent,
// FifoLot/ShortFifoLot, RealizedGainLoss and VorabpauschaleData, as described
// in spec.md §3. CanonicalTransaction-style "build it up field by field" shape
// is kept from RumoClaro's models/canonical.go, generalized to the full
// alias/category/fund-type/option model the German forms need.
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AssetCategory is the variant spec.md §3 names for Asset.category.
type AssetCategory string

const (
	CategoryStock            AssetCategory = "STOCK"
	CategoryBond              AssetCategory = "BOND"
	CategoryInvestmentFund    AssetCategory = "INVESTMENT_FUND"
	CategoryOption            AssetCategory = "OPTION"
	CategoryCFD               AssetCategory = "CFD"
	CategoryPrivateSaleAsset  AssetCategory = "PRIVATE_SALE_ASSET"
	CategoryCashBalance       AssetCategory = "CASH_BALANCE"
	CategoryUnknown           AssetCategory = "UNKNOWN"
)

// concreteness orders categories from "more specific" to "more generic" for
// the resolver's merge-survivor rule (spec.md §4.1: "more concrete subtype >
// generic").
var concreteness = map[AssetCategory]int{
	CategoryOption:           6,
	CategoryInvestmentFund:   5,
	CategoryBond:             4,
	CategoryCFD:              4,
	CategoryStock:            3,
	CategoryPrivateSaleAsset: 3,
	CategoryCashBalance:      2,
	CategoryUnknown:          0,
}

// MoreConcreteThan implements spec.md §4.1's merge-survivor tiebreak (a).
func (c AssetCategory) MoreConcreteThan(other AssetCategory) bool {
	return concreteness[c] > concreteness[other]
}

// FundType is the fund-type extension for CategoryInvestmentFund assets.
type FundType string

const (
	FundAktien            FundType = "AKTIEN"
	FundMisch             FundType = "MISCH"
	FundImmobilien        FundType = "IMMOBILIEN"
	FundAuslandsImmobilien FundType = "AUSLANDS_IMMOBILIEN"
	FundSonstige          FundType = "SONSTIGE"
	FundNone              FundType = "NONE"
)

// Teilfreistellung returns the partial-exemption rate for this fund type
// (spec.md §4.7).
func (f FundType) Teilfreistellung() decimal.Decimal {
	switch f {
	case FundAktien:
		return decimal.NewFromFloat(0.30)
	case FundMisch:
		return decimal.NewFromFloat(0.15)
	case FundImmobilien:
		return decimal.NewFromFloat(0.60)
	case FundAuslandsImmobilien:
		return decimal.NewFromFloat(0.80)
	default:
		return decimal.Zero
	}
}

// SourceKind is the provenance of a row feeding the resolver's description
// source-precedence rule (spec.md §4.1: "trade ≥ position > corp_act > cash_tx").
type SourceKind int

const (
	SourceTrade SourceKind = iota
	SourcePosition
	SourceCorpAction
	SourceCashTx
)

// precedence is higher-is-stronger; cash_tx (0) never overwrites anything.
func (s SourceKind) precedence() int {
	switch s {
	case SourceTrade, SourcePosition:
		return 2
	case SourceCorpAction:
		return 1
	default:
		return 0
	}
}

// SOYSnapshot is the start-of-year position data for an Asset (spec.md §3).
type SOYSnapshot struct {
	Quantity           decimal.Decimal
	CostBasisAmount    decimal.NullDecimal
	CostBasisCurrency  string
}

// EOYSnapshot is the end-of-year position data for an Asset (spec.md §3).
type EOYSnapshot struct {
	Quantity     decimal.Decimal
	MarketPrice  decimal.Decimal
	Present      bool
}

// OptionExtension carries the strike/expiry/put-or-call/multiplier/underlying
// fields spec.md §3 lists for CategoryOption assets.
type OptionExtension struct {
	Strike             decimal.Decimal
	Expiry             time.Time
	IsPut              bool
	Multiplier         decimal.Decimal
	UnderlyingAssetID  uuid.UUID
	UnderlyingConID    string
}

// Asset is the canonical instrument spec.md §3 describes: a stable identity
// behind a set of broker-specific aliases.
type Asset struct {
	ID          uuid.UUID
	Aliases     map[string]struct{}
	Description string
	descSource  SourceKind
	Currency    string
	Category    AssetCategory
	FundType    FundType

	Option *OptionExtension

	// DerivativeUnderlyingAssetID links a CFD/derivative to its underlying,
	// analogous to OptionExtension.UnderlyingAssetID but for non-option
	// derivatives.
	DerivativeUnderlyingAssetID uuid.UUID

	SOY SOYSnapshot
	EOY EOYSnapshot
}

// NewAsset allocates a fresh canonical Asset with a stable, process-unique id.
func NewAsset() *Asset {
	return &Asset{
		ID:      uuid.New(),
		Aliases: make(map[string]struct{}),
	}
}

// AddAlias records alias as resolving to this Asset.
func (a *Asset) AddAlias(alias string) {
	a.Aliases[alias] = struct{}{}
}

// HasAlias reports whether alias is one of this Asset's known aliases.
func (a *Asset) HasAlias(alias string) bool {
	_, ok := a.Aliases[alias]
	return ok
}

// UpdateDescription applies spec.md §4.1's source-precedence rule: trade/position
// beats corp_act beats cash_tx, and cash_tx never overwrites an existing value.
func (a *Asset) UpdateDescription(desc string, source SourceKind) {
	if desc == "" {
		return
	}
	if a.Description == "" {
		a.Description = desc
		a.descSource = source
		return
	}
	if source.precedence() >= a.descSource.precedence() && source != SourceCashTx {
		a.Description = desc
		a.descSource = source
	}
}

// UpgradeCategory replaces the asset's category only if candidate is strictly
// more concrete than the current one (spec.md §4.1).
func (a *Asset) UpgradeCategory(candidate AssetCategory) {
	if candidate.MoreConcreteThan(a.Category) {
		a.Category = candidate
	}
}
