package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/tax"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	migrationsDir, err := filepath.Abs(filepath.Join("..", "..", "db", "migrations"))
	if err != nil {
		t.Fatalf("resolve migrations dir: %v", err)
	}
	if err := s.RunMigrations(migrationsDir); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	return s
}

func TestStorePersistAndRerun(t *testing.T) {
	s := openTestStore(t)

	report := tax.Report{
		KAP: tax.KAPForm{
			Zeile19: decimal.NewFromInt(100),
			Zeile20: decimal.NewFromInt(100),
		},
		SO: tax.SOForm{
			Lines: []tax.SOLine{
				{
					AssetID:         uuid.New(),
					AcquisitionDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
					RealizationDate: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
					GainLossEUR:     decimal.NewFromInt(50),
					LossExempt:      false,
				},
			},
			Zeile54: decimal.NewFromInt(50),
		},
	}

	records := []models.RealizedGainLoss{
		{
			OriginatingEventID: uuid.New(),
			AssetID:            uuid.New(),
			AssetCategory:      models.CategoryStock,
			AcquisitionDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			RealizationDate:    time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC),
			Type:               models.RealizationLongSale,
			QuantityRealized:   decimal.NewFromInt(10),
			GrossGainLossEUR:   decimal.NewFromFloat(123.456789),
			TaxCategory:        models.TaxCategoryStock,
		},
	}

	diagnostics := []diag.Entry{
		{Level: diag.LevelWarning, Message: "test diagnostic"},
	}

	if err := s.Persist(2023, report, records, diagnostics); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	// Persisting again for the same year must replace, not duplicate, the
	// per-year child rows (kap_inv_line/so_line/realized_gain_loss/diagnostics).
	if err := s.Persist(2023, report, records, diagnostics); err != nil {
		t.Fatalf("second Persist: %v", err)
	}

	var rglCount int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM realized_gain_loss WHERE tax_year = ?`, 2023).Scan(&rglCount); err != nil {
		t.Fatalf("count realized_gain_loss: %v", err)
	}
	if rglCount != 1 {
		t.Errorf("realized_gain_loss rows = %d, want 1 (re-persist should replace)", rglCount)
	}

	var gainLossStr string
	if err := s.db.QueryRow(`SELECT gross_gain_loss_eur FROM realized_gain_loss WHERE tax_year = ?`, 2023).Scan(&gainLossStr); err != nil {
		t.Fatalf("read gross_gain_loss_eur: %v", err)
	}
	got, err := decimal.NewFromString(gainLossStr)
	if err != nil {
		t.Fatalf("parse stored amount: %v", err)
	}
	if !got.Equal(decimal.NewFromFloat(123.46)) {
		t.Errorf("gross_gain_loss_eur = %s, want 123.46 (quantized on the way in)", got)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	migrationsDir, _ := filepath.Abs(filepath.Join("..", "..", "db", "migrations"))
	if err := s.RunMigrations(migrationsDir); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}
