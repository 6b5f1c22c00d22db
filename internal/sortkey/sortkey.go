// Package sortkey builds the fully-defined event ordering key of spec.md §5,
// generalizing RumoClaro's per-product sort (option_sales_processor.go's
// sortTransactionsByDate, which broke date ties on OrderID) into the single
// global comparator the whole pipeline dispatches from.
package sortkey

import (
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/models"
)

// Key is the ordering tuple spec.md §5 defines:
// (event_date, type_tier, ibkr_transaction_id_or_symbol, secondary, event_id).
type Key struct {
	DateUnix  int64
	TypeTier  int
	Primary   string // broker transaction id; the asset symbol for corporate actions
	Secondary string // type-dependent secondary field, pre-formatted for comparison
	EventID   string
}

// Less implements the total order spec.md §5 requires.
func Less(a, b Key) bool {
	if a.DateUnix != b.DateUnix {
		return a.DateUnix < b.DateUnix
	}
	if a.TypeTier != b.TypeTier {
		return a.TypeTier < b.TypeTier
	}
	if a.Primary != b.Primary {
		return a.Primary < b.Primary
	}
	if a.Secondary != b.Secondary {
		return a.Secondary < b.Secondary
	}
	return a.EventID < b.EventID
}

// Build computes the sort Key for one event. assetSymbol/assetCategory are
// resolved asset attributes the caller looks up once per event; caActionID
// feeds the corporate-action secondary slot. The cash-flow/WHT/fee secondary
// slot also takes the event's foreign gross amount (e.GrossAmountForeign).
func Build(e *models.FinancialEvent, assetSymbol string, assetCategory models.AssetCategory, caActionID string) Key {
	k := Key{
		DateUnix: e.Date.Unix(),
		TypeTier: e.Type.TypeTier(),
		EventID:  e.ID.String(),
	}

	switch e.Type.TypeTier() {
	case 0: // corporate actions: (symbol, ca_action_id, description)
		k.Primary = assetSymbol
		k.Secondary = caActionID + "|" + e.Notes
	case 1: // trades, option lifecycle, FX conversion: (broker id, category)
		k.Primary = e.BrokerTransactionID
		k.Secondary = string(assetCategory)
	case 2: // cash-flow / WHT / fee: (broker id, category, amount)
		k.Primary = e.BrokerTransactionID
		k.Secondary = string(assetCategory) + "|" + decimalKey(e.GrossAmountForeign)
	default:
		k.Primary = e.BrokerTransactionID
	}

	return k
}

// decimalKey renders a decimal with six fixed decimal places so it can sit in
// a string Secondary slot alongside the category tag. The width grows with
// the integer part, so string order follows numeric order only between
// non-negative amounts with the same number of integer digits.
func decimalKey(d decimal.Decimal) string {
	return d.StringFixed(6)
}
