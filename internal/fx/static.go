package fx

import (
	"time"

	"github.com/shopspring/decimal"
)

// StaticProvider is a deterministic in-memory rate table for unit and
// property tests (spec.md §9: "Tests inject a deterministic in-memory
// provider"). Keys are "CCY|YYYY-MM-DD".
type StaticProvider struct {
	rates         map[string]decimal.Decimal
	maxFallback   int
}

// NewStaticProvider builds a StaticProvider with the given fallback window.
func NewStaticProvider(maxFallbackDays int) *StaticProvider {
	return &StaticProvider{rates: make(map[string]decimal.Decimal), maxFallback: maxFallbackDays}
}

// Set installs the rate for ccy on day (exact-day lookup key).
func (p *StaticProvider) Set(day time.Time, ccy string, rate decimal.Decimal) {
	p.rates[key(ccy, day)] = rate
}

func key(ccy string, day time.Time) string {
	return ccy + "|" + day.Format("2006-01-02")
}

// Rate implements Provider, falling back up to maxFallback calendar days
// earlier per spec.md §4.3.
func (p *StaticProvider) Rate(day time.Time, ccy string) (decimal.Decimal, error) {
	ccy = normalize(ccy)
	if ccy == "EUR" {
		return decimal.NewFromInt(1), nil
	}
	for i := 0; i <= p.maxFallback; i++ {
		candidate := day.AddDate(0, 0, -i)
		if r, ok := p.rates[key(ccy, candidate)]; ok {
			return r, nil
		}
	}
	return decimal.Zero, &ErrRateUnavailable{Currency: ccy, Day: day, Window: p.maxFallback}
}
