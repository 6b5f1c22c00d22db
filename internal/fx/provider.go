// Package fx defines the FxRateProvider collaborator of spec.md §4.3 and
// ships reference implementations the core never constructs itself
// (spec.md §9: "FX provider as a capability: passed in by the host; the
// core never constructs one"). The reference implementations generalize
// RumoClaro's in-process rate cache (main.go's patrickmn/go-cache usage) and
// its ECB-rate lookup shape (processors/exchange_rate_processor.go).
package fx

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// CNHAlias maps CNH to CNY per spec.md §4.3: "CNH is mapped to CNY (and any
// other equivalent mappings are the provider's concern)".
var CNHAlias = map[string]string{
	"CNH": "CNY",
}

// Provider is the FxRateProvider contract of spec.md §4.3: "foreign units
// per 1 EUR" on a given day, falling back up to MaxFallbackDays calendar
// days earlier if the exact day is missing.
type Provider interface {
	Rate(day time.Time, currency string) (decimal.Decimal, error)
}

// ErrRateUnavailable is returned when no rate can be found within the
// fallback window — spec.md §7 marks this Fatal.
type ErrRateUnavailable struct {
	Currency string
	Day      time.Time
	Window   int
}

func (e *ErrRateUnavailable) Error() string {
	return "fx: no rate for " + e.Currency + " within " + strconv.Itoa(e.Window) + " days before " + e.Day.Format("2006-01-02")
}

// normalize applies the CNH->CNY mapping; any other code is returned unchanged.
func normalize(ccy string) string {
	if mapped, ok := CNHAlias[ccy]; ok {
		return mapped
	}
	return ccy
}
