package pipeline

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/config"
	"github.com/steuerkern/engine/internal/fx"
	"github.com/steuerkern/engine/internal/rows"
)

func tradeRow(accountID, buySell, openClose, tradeDate, quantity, price, commission string) rows.TradeRow {
	return rows.TradeRow{
		AccountID:  accountID,
		Currency:   "EUR",
		AssetClass: "STK",
		Symbol:     "ACME",
		ISIN:       "DE000ACME001",
		Quantity:   quantity,
		TradePrice: price,
		Commission: commission,
		BuySell:    buySell,
		OpenClose:  openClose,
		TradeDate:  tradeDate,
	}
}

// TestRunEndToEndBuyThenFullSale exercises the full dataflow (resolve ->
// build events -> enrich -> sort -> dispatch/FIFO -> EOY validate ->
// aggregate) over a single-asset buy-then-sell, all in EUR so FX enrichment
// never touches the provider (spec.md §4.3: EUR is rate 1 identity).
func TestRunEndToEndBuyThenFullSale(t *testing.T) {
	cfg := config.EngineConfig{
		TaxYear:              2023,
		EOYQuantityTolerance: decimal.New(1, -6),
	}

	in := Input{
		Trades: []rows.TradeRow{
			tradeRow("U1", "BUY", "O", "2023-03-01", "10", "100.00", "1"),
			tradeRow("U1", "SELL", "C", "2023-06-01", "10", "120.00", "1"),
		},
	}

	provider := fx.NewStaticProvider(7)

	report, records, diagnostics, err := Run(cfg, in, provider)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, e := range diagnostics.Entries() {
		t.Logf("diagnostic: %s", e.String())
	}

	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	// Cost 10*100+1=1001, proceeds 10*120-1=1199, gain = 198.
	want := decimal.NewFromInt(198)
	if !records[0].GrossGainLossEUR.Equal(want) {
		t.Errorf("GrossGainLossEUR = %s, want %s", records[0].GrossGainLossEUR, want)
	}

	if !report.KAP.Zeile20.Equal(want) {
		t.Errorf("Zeile20 = %s, want %s (stock gains gross)", report.KAP.Zeile20, want)
	}
}

// TestRunTaxYearFilter is spec.md §8 invariant 7: a realization dated
// outside the configured tax year must not contribute to any aggregate.
func TestRunTaxYearFilter(t *testing.T) {
	cfg := config.EngineConfig{
		TaxYear:              2023,
		EOYQuantityTolerance: decimal.New(1, -6),
	}

	in := Input{
		Trades: []rows.TradeRow{
			tradeRow("U1", "BUY", "O", "2022-03-01", "10", "100.00", "0"),
			tradeRow("U1", "SELL", "C", "2022-06-01", "10", "120.00", "0"),
		},
	}

	report, records, _, err := Run(cfg, in, fx.NewStaticProvider(7))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0 (2022 realization must not be aggregated in tax year 2023)", len(records))
	}
	if !report.KAP.Zeile20.IsZero() {
		t.Errorf("Zeile20 = %s, want 0", report.KAP.Zeile20)
	}
}
