// Package store persists one engine run's audit trail — the realized
// gain/loss records, diagnostics, and final form-line report spec.md §3/§7
// name as the engine's output — into a local sqlite database. It generalizes
// RumoClaro's database/database.go, which opens a single package-level
// *sql.DB and runs golang-migrate migrations against it on process start; here
// the same InitDB/RunMigrations shape is kept but wrapped in a Store value
// instead of a package global, since an engine library should not force a
// single process-wide database onto every caller.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/ledger"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/tax"
)

// Store wraps the sqlite connection backing one engine deployment's audit
// trail.
type Store struct {
	db *sql.DB
}

// Open connects to (creating if absent) the sqlite database at databasePath.
func Open(databasePath string) (*Store, error) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", databasePath, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", databasePath, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunMigrations applies every migration under migrationsDir (db/migrations in
// this repo's layout) that has not yet run against this database.
func (s *Store) RunMigrations(migrationsDir string) error {
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("store: sqlite migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsDir,
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("store: migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("store: apply migrations: %w", err)
	}
	return nil
}

// Persist writes one tax year's full audit trail: the final form-line
// report, every accepted RealizedGainLoss record (each quantized on its own
// via ledger.QuantizeRGL, while the report's lines are rounded after
// summing), and every diagnostic the run raised. All tables
// are written in a single transaction so a run's audit trail never appears
// partially committed.
func (s *Store) Persist(taxYear int, report tax.Report, records []models.RealizedGainLoss, diagnostics []diag.Entry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if err := persistReport(tx, taxYear, report); err != nil {
		return err
	}
	if err := persistRecords(tx, taxYear, records); err != nil {
		return err
	}
	if err := persistDiagnostics(tx, taxYear, diagnostics); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func persistReport(tx *sql.Tx, taxYear int, report tax.Report) error {
	_, err := tx.Exec(`
		INSERT INTO tax_report (tax_year, zeile19, zeile20, zeile21, zeile22, zeile23, zeile24, zeile41, zeile54)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tax_year) DO UPDATE SET
			zeile19=excluded.zeile19, zeile20=excluded.zeile20, zeile21=excluded.zeile21,
			zeile22=excluded.zeile22, zeile23=excluded.zeile23, zeile24=excluded.zeile24,
			zeile41=excluded.zeile41, zeile54=excluded.zeile54`,
		taxYear,
		report.KAP.Zeile19.String(), report.KAP.Zeile20.String(), report.KAP.Zeile21.String(),
		report.KAP.Zeile22.String(), report.KAP.Zeile23.String(), report.KAP.Zeile24.String(),
		report.KAP.Zeile41.String(), report.SO.Zeile54.String(),
	)
	if err != nil {
		return fmt.Errorf("store: insert tax_report: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM kap_inv_line WHERE tax_year = ?`, taxYear); err != nil {
		return fmt.Errorf("store: clear kap_inv_line: %w", err)
	}
	for _, line := range report.KAPInv {
		_, err := tx.Exec(`
			INSERT INTO kap_inv_line (tax_year, fund_type, distributions_gross, sale_gain_loss_gross)
			VALUES (?, ?, ?, ?)`,
			taxYear, string(line.FundType), line.DistributionsGross.String(), line.SaleGainLossGross.String(),
		)
		if err != nil {
			return fmt.Errorf("store: insert kap_inv_line: %w", err)
		}
	}

	if _, err := tx.Exec(`DELETE FROM so_line WHERE tax_year = ?`, taxYear); err != nil {
		return fmt.Errorf("store: clear so_line: %w", err)
	}
	for _, line := range report.SO.Lines {
		_, err := tx.Exec(`
			INSERT INTO so_line (tax_year, asset_id, acquisition_date, realization_date, gain_loss_eur, loss_exempt)
			VALUES (?, ?, ?, ?, ?, ?)`,
			taxYear, line.AssetID.String(), line.AcquisitionDate.Format("2006-01-02"),
			line.RealizationDate.Format("2006-01-02"), line.GainLossEUR.String(), boolInt(line.LossExempt),
		)
		if err != nil {
			return fmt.Errorf("store: insert so_line: %w", err)
		}
	}
	return nil
}

func persistRecords(tx *sql.Tx, taxYear int, records []models.RealizedGainLoss) error {
	if _, err := tx.Exec(`DELETE FROM realized_gain_loss WHERE tax_year = ?`, taxYear); err != nil {
		return fmt.Errorf("store: clear realized_gain_loss: %w", err)
	}
	for _, r := range records {
		q := ledger.QuantizeRGL(r)
		_, err := tx.Exec(`
			INSERT INTO realized_gain_loss (
				tax_year, originating_event_id, asset_id, asset_category,
				acquisition_date, realization_date, realization_type,
				quantity_realized, unit_cost_eur, unit_realization_value_eur,
				total_cost_eur, total_realization_value_eur, gross_gain_loss_eur,
				holding_period_days, within_speculation_period, tax_category, is_stillhalter_income
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			taxYear, q.OriginatingEventID.String(), q.AssetID.String(), string(q.AssetCategory),
			q.AcquisitionDate.Format("2006-01-02"), q.RealizationDate.Format("2006-01-02"), string(q.Type),
			q.QuantityRealized.String(), q.UnitCostEUR.String(), q.UnitRealizationValueEUR.String(),
			q.TotalCostEUR.String(), q.TotalRealizationValueEUR.String(), q.GrossGainLossEUR.String(),
			q.HoldingPeriodDays, boolInt(q.IsWithinSpeculationPeriod), string(q.TaxCategory), boolInt(q.IsStillhalterIncome),
		)
		if err != nil {
			return fmt.Errorf("store: insert realized_gain_loss: %w", err)
		}
	}
	return nil
}

func persistDiagnostics(tx *sql.Tx, taxYear int, entries []diag.Entry) error {
	if _, err := tx.Exec(`DELETE FROM diagnostics WHERE tax_year = ?`, taxYear); err != nil {
		return fmt.Errorf("store: clear diagnostics: %w", err)
	}
	for _, e := range entries {
		var eventID, assetID any
		if e.EventID != nil {
			eventID = e.EventID.String()
		}
		if e.AssetID != nil {
			assetID = e.AssetID.String()
		}
		_, err := tx.Exec(`
			INSERT INTO diagnostics (tax_year, level, message, event_id, asset_id, ledger_snapshot)
			VALUES (?, ?, ?, ?, ?, ?)`,
			taxYear, string(e.Level), e.Message, eventID, assetID, e.LedgerSnapshot,
		)
		if err != nil {
			return fmt.Errorf("store: insert diagnostics: %w", err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
