package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q): %v", s, err)
	}
	return d
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("time.Parse(%q): %v", s, err)
	}
	return d
}

// TestRealizeLongMultiLotPartialSale is spec.md §8 Scenario A: buy 10@100,
// buy 10@110, sell 15, commission 1 EUR each, verifies the pro-rata split
// across both consumed lots and the remainder left on the second lot.
func TestRealizeLongMultiLotPartialSale(t *testing.T) {
	l := New(uuid.New())
	d := &diag.Diagnostics{}

	l.AcquireLong(date(t, "2023-03-01"), mustDecimal(t, "10"), mustDecimal(t, "1001.00"), "buy1")
	l.AcquireLong(date(t, "2023-04-01"), mustDecimal(t, "10"), mustDecimal(t, "1101.00"), "buy2")

	rgls, err := l.RealizeLong(uuid.New(), models.CategoryStock, date(t, "2023-06-01"), mustDecimal(t, "15"), mustDecimal(t, "1799.00"), d)
	if err != nil {
		t.Fatalf("RealizeLong: %v", err)
	}
	if len(rgls) != 2 {
		t.Fatalf("len(rgls) = %d, want 2", len(rgls))
	}

	first, second := rgls[0], rgls[1]
	if !first.QuantityRealized.Equal(mustDecimal(t, "10")) {
		t.Errorf("first.QuantityRealized = %s, want 10", first.QuantityRealized)
	}
	if !first.TotalCostEUR.Equal(mustDecimal(t, "1001.00")) {
		t.Errorf("first.TotalCostEUR = %s, want 1001.00", first.TotalCostEUR)
	}
	wantFirstGain := mustDecimal(t, "198.33")
	if diffAbs(first.GrossGainLossEUR, wantFirstGain).GreaterThan(mustDecimal(t, "0.01")) {
		t.Errorf("first.GrossGainLossEUR = %s, want ~%s", first.GrossGainLossEUR, wantFirstGain)
	}

	if !second.QuantityRealized.Equal(mustDecimal(t, "5")) {
		t.Errorf("second.QuantityRealized = %s, want 5", second.QuantityRealized)
	}
	if !second.TotalCostEUR.Equal(mustDecimal(t, "550.50")) {
		t.Errorf("second.TotalCostEUR = %s, want 550.50", second.TotalCostEUR)
	}
	wantSecondGain := mustDecimal(t, "49.17")
	if diffAbs(second.GrossGainLossEUR, wantSecondGain).GreaterThan(mustDecimal(t, "0.01")) {
		t.Errorf("second.GrossGainLossEUR = %s, want ~%s", second.GrossGainLossEUR, wantSecondGain)
	}

	// Invariant 6 (pro-rata split): quantities sum to the event quantity and
	// total realization value sums to net EUR within 1e-2.
	sumQty := first.QuantityRealized.Add(second.QuantityRealized)
	if !sumQty.Equal(mustDecimal(t, "15")) {
		t.Errorf("sum of realized quantities = %s, want 15", sumQty)
	}
	sumRealization := first.TotalRealizationValueEUR.Add(second.TotalRealizationValueEUR)
	if diffAbs(sumRealization, mustDecimal(t, "1799.00")).GreaterThan(mustDecimal(t, "0.01")) {
		t.Errorf("sum of realization values = %s, want ~1799.00", sumRealization)
	}

	// Remaining lot: 5 @ unit cost 1101.00/10 = 110.10, total cost 550.50.
	remaining := l.LongLotsSnapshot()
	if len(remaining) != 1 {
		t.Fatalf("remaining lots = %d, want 1", len(remaining))
	}
	if !remaining[0].RemainingQuantity.Equal(mustDecimal(t, "5")) {
		t.Errorf("remaining quantity = %s, want 5", remaining[0].RemainingQuantity)
	}
	if !remaining[0].TotalCostEUR.Equal(mustDecimal(t, "550.50")) {
		t.Errorf("remaining total cost = %s, want 550.50", remaining[0].TotalCostEUR)
	}
}

// TestMutualExclusionOfLongAndShort is invariant 4: a ledger never holds
// both long and short lots at once.
func TestMutualExclusionOfLongAndShort(t *testing.T) {
	l := New(uuid.New())
	l.AcquireLong(date(t, "2023-01-01"), mustDecimal(t, "10"), mustDecimal(t, "1000"), "buy1")
	if len(l.LongLotsSnapshot()) == 0 {
		t.Fatalf("expected long lots after AcquireLong")
	}
	if len(l.ShortLotsSnapshot()) != 0 {
		t.Fatalf("expected no short lots after AcquireLong")
	}

	d := &diag.Diagnostics{}
	if _, err := l.RealizeLong(uuid.New(), models.CategoryStock, date(t, "2023-02-01"), mustDecimal(t, "10"), mustDecimal(t, "1200"), d); err != nil {
		t.Fatalf("RealizeLong: %v", err)
	}
	if len(l.LongLotsSnapshot()) != 0 {
		t.Fatalf("expected flat ledger after fully closing the long position")
	}

	l.AcquireShort(date(t, "2023-03-01"), mustDecimal(t, "5"), mustDecimal(t, "500"), "short1")
	if len(l.LongLotsSnapshot()) != 0 || len(l.ShortLotsSnapshot()) == 0 {
		t.Fatalf("expected short-only state after AcquireShort")
	}
}

// TestConservationUnderSplit is invariant 3: a forward split of ratio r
// rescales quantity and unit cost inversely, leaving total cost unchanged.
func TestConservationUnderSplit(t *testing.T) {
	l := New(uuid.New())
	l.AcquireLong(date(t, "2023-01-01"), mustDecimal(t, "10"), mustDecimal(t, "1000"), "buy1")

	l.ApplySplit(mustDecimal(t, "2"))

	lots := l.LongLotsSnapshot()
	if len(lots) != 1 {
		t.Fatalf("lots = %d, want 1", len(lots))
	}
	if !lots[0].RemainingQuantity.Equal(mustDecimal(t, "20")) {
		t.Errorf("quantity after 2:1 split = %s, want 20", lots[0].RemainingQuantity)
	}
	if !lots[0].TotalCostEUR.Equal(mustDecimal(t, "1000")) {
		t.Errorf("total cost after split = %s, want unchanged at 1000", lots[0].TotalCostEUR)
	}
}

// TestLotInvariantUnitCostTimesQuantity is invariant 2: unit_cost *
// remaining_qty stays within tolerance of total_cost after a partial sale.
func TestLotInvariantUnitCostTimesQuantity(t *testing.T) {
	l := New(uuid.New())
	d := &diag.Diagnostics{}
	l.AcquireLong(date(t, "2023-01-01"), mustDecimal(t, "7"), mustDecimal(t, "700"), "buy1")

	if _, err := l.RealizeLong(uuid.New(), models.CategoryStock, date(t, "2023-02-01"), mustDecimal(t, "3"), mustDecimal(t, "350"), d); err != nil {
		t.Fatalf("RealizeLong: %v", err)
	}

	lots := l.LongLotsSnapshot()
	if len(lots) != 1 {
		t.Fatalf("lots = %d, want 1", len(lots))
	}
	lot := lots[0]
	unitCost := lot.TotalCostEUR.Div(lot.RemainingQuantity)
	recomputedTotal := unitCost.Mul(lot.RemainingQuantity)
	tolerance := decimal.Max(mustDecimal(t, "1"), lot.RemainingQuantity).Mul(mustDecimal(t, "0.000001"))
	if diffAbs(recomputedTotal, lot.TotalCostEUR).GreaterThan(tolerance) {
		t.Errorf("|unit_cost * remaining_qty - total_cost| exceeds tolerance: got %s vs %s", recomputedTotal, lot.TotalCostEUR)
	}
}

func diffAbs(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs()
}
