package tax

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/models"
)

func amt(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal.NewFromString(%q): %v", s, err)
	}
	return d
}

func realization(category models.TaxCategory, gainLoss decimal.Decimal, taxYear int) models.RealizedGainLoss {
	return models.RealizedGainLoss{
		OriginatingEventID: uuid.New(),
		AssetID:            uuid.New(),
		RealizationDate:    time.Date(taxYear, time.June, 1, 0, 0, 0, 0, time.UTC),
		GrossGainLossEUR:   gainLoss,
		TaxCategory:        category,
	}
}

// TestLossOffsettingFormLines is spec.md §8 Scenario D: stock gains 2000,
// stock losses 500, derivative gains 3000, derivative losses 4000, other
// income 1000, other losses 1500 -> Z19=4000, Z20=2000, Z21=3000, Z22=1500,
// Z23=500, Z24=4000.
func TestLossOffsettingFormLines(t *testing.T) {
	a := New(2023)

	a.AddRealization(realization(models.TaxCategoryStock, amt(t, "2000"), 2023), models.FundNone)
	a.AddRealization(realization(models.TaxCategoryStock, amt(t, "-500"), 2023), models.FundNone)
	a.AddRealization(realization(models.TaxCategoryDerivative, amt(t, "3000"), 2023), models.FundNone)
	a.AddRealization(realization(models.TaxCategoryDerivative, amt(t, "-4000"), 2023), models.FundNone)
	a.AddIncome(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), amt(t, "1000"))
	a.AddIncome(time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC), amt(t, "-1500"))

	report := a.Build()

	cases := []struct {
		name string
		got  decimal.Decimal
		want string
	}{
		{"Zeile19", report.KAP.Zeile19, "4000"},
		{"Zeile20", report.KAP.Zeile20, "2000"},
		{"Zeile21", report.KAP.Zeile21, "3000"},
		{"Zeile22", report.KAP.Zeile22, "1500"},
		{"Zeile23", report.KAP.Zeile23, "500"},
		{"Zeile24", report.KAP.Zeile24, "4000"},
	}
	for _, c := range cases {
		if !c.got.Equal(amt(t, c.want)) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

// TestRecordsCollectsOnlyInYearRealizations verifies the audit-record sink
// (Records) only retains realizations inside the configured tax year, the
// same filter AddRealization applies to its own running sums.
func TestRecordsCollectsOnlyInYearRealizations(t *testing.T) {
	a := New(2023)
	a.AddRealization(realization(models.TaxCategoryStock, amt(t, "100"), 2023), models.FundNone)
	a.AddRealization(realization(models.TaxCategoryStock, amt(t, "200"), 2022), models.FundNone)

	records := a.Records()
	if len(records) != 1 {
		t.Fatalf("len(Records()) = %d, want 1 (out-of-year realization must be dropped)", len(records))
	}
	if !records[0].GrossGainLossEUR.Equal(amt(t, "100")) {
		t.Errorf("retained record gain = %s, want 100", records[0].GrossGainLossEUR)
	}
}

// TestSection23BoundaryExemptVsTaxable is spec.md §8 Scenario F: a
// speculation-period holding of exactly 365 days is taxable; 366 days is
// exempt but still listed.
func TestSection23BoundaryExemptVsTaxable(t *testing.T) {
	a := New(2023)

	taxable := models.RealizedGainLoss{
		AssetID:                   uuid.New(),
		AcquisitionDate:           time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC),
		RealizationDate:           time.Date(2023, 3, 15, 0, 0, 0, 0, time.UTC),
		GrossGainLossEUR:          amt(t, "50"),
		TaxCategory:               models.TaxCategorySection23Taxable,
		HoldingPeriodDays:         365,
		IsWithinSpeculationPeriod: true,
	}
	exempt := models.RealizedGainLoss{
		AssetID:                   uuid.New(),
		AcquisitionDate:           time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC),
		RealizationDate:           time.Date(2023, 3, 16, 0, 0, 0, 0, time.UTC),
		GrossGainLossEUR:          amt(t, "50"),
		TaxCategory:               models.TaxCategorySection23Exempt,
		HoldingPeriodDays:         366,
		IsWithinSpeculationPeriod: false,
	}

	a.AddRealization(taxable, models.FundNone)
	a.AddRealization(exempt, models.FundNone)

	report := a.Build()
	if !report.SO.Zeile54.Equal(amt(t, "50")) {
		t.Errorf("Zeile54 = %s, want 50 (only the taxable leg contributes)", report.SO.Zeile54)
	}
	if len(report.SO.Lines) != 2 {
		t.Fatalf("len(SO.Lines) = %d, want 2 (exempt leg still listed)", len(report.SO.Lines))
	}
}
