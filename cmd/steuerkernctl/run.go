package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/steuerkern/engine/internal/config"
	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/fx"
	"github.com/steuerkern/engine/internal/logger"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/pipeline"
	"github.com/steuerkern/engine/internal/rows"
	"github.com/steuerkern/engine/internal/store"
	"github.com/steuerkern/engine/internal/tax"
)

type runFlags struct {
	trades      string
	cash        string
	corpActions string
	soyPos      string
	eoyPos      string
	fxRates     string
	taxYear     int
	storePath   string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine against a set of CSV exports for one tax year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(f)
		},
	}

	cmd.Flags().StringVar(&f.trades, "trades", "", "path to the trade rows CSV (required)")
	cmd.Flags().StringVar(&f.cash, "cash", "", "path to the cash transaction rows CSV (required)")
	cmd.Flags().StringVar(&f.corpActions, "corp-actions", "", "path to the corporate action rows CSV (required)")
	cmd.Flags().StringVar(&f.soyPos, "positions-soy", "", "path to the start-of-year position snapshot CSV (required)")
	cmd.Flags().StringVar(&f.eoyPos, "positions-eoy", "", "path to the end-of-year position snapshot CSV (required)")
	cmd.Flags().StringVar(&f.fxRates, "fx-rates", "", "path to a Date,Currency,Rate CSV seeding the static FX rate table")
	cmd.Flags().IntVar(&f.taxYear, "tax-year", 0, "the tax year to compute (required)")
	cmd.Flags().StringVar(&f.storePath, "store", "", "optional sqlite path to persist this run's audit trail")

	for _, name := range []string{"trades", "cash", "corp-actions", "positions-soy", "positions-eoy", "tax-year"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

// runPipeline wires the five CSV inputs, an FX provider, and an optional
// audit store around pipeline.Run — the same "parse args, build inputs, call
// the engine, print the result" shape RumoClaro's main.go uses over its
// processors package, generalized from one hardcoded transaction file to the
// engine's four dialect-neutral row schemas.
func runPipeline(f runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("steuerkernctl: load config: %w", err)
	}
	cfg.TaxYear = f.taxYear
	logger.Init(cfg.LogLevel)

	trades, err := decodeFile[rows.TradeRow](f.trades)
	if err != nil {
		return err
	}
	cashTx, err := decodeFile[rows.CashTxRow](f.cash)
	if err != nil {
		return err
	}
	corpActions, err := decodeFile[rows.CorpActionRow](f.corpActions)
	if err != nil {
		return err
	}
	soyPositions, err := decodeFile[rows.PositionRow](f.soyPos)
	if err != nil {
		return err
	}
	eoyPositions, err := decodeFile[rows.PositionRow](f.eoyPos)
	if err != nil {
		return err
	}

	provider, err := loadFxProvider(f.fxRates, cfg.MaxFxFallbackDays)
	if err != nil {
		return err
	}

	in := pipeline.Input{
		Trades:       trades,
		CashTx:       cashTx,
		CorpActions:  corpActions,
		SOYPositions: soyPositions,
		EOYPositions: eoyPositions,
	}

	report, records, diagnostics, err := pipeline.Run(*cfg, in, provider)
	if err != nil {
		// spec.md §6's exit-code contract: a FatalError propagates to main,
		// which translates it into os.Exit(1). Any other condition is
		// reported via the non-fatal diagnostics below and exits 0.
		return err
	}

	for _, entry := range diagnostics.Entries() {
		fmt.Fprintln(os.Stderr, entry.String())
	}

	if f.storePath != "" {
		if err := persistRun(f.storePath, cfg.TaxYear, report, records, diagnostics); err != nil {
			return fmt.Errorf("steuerkernctl: persist run: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func decodeFile[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("steuerkernctl: open %s: %w", path, err)
	}
	defer file.Close()

	out, err := rows.DecodeCSV[T](file)
	if err != nil {
		return nil, fmt.Errorf("steuerkernctl: decode %s: %w", path, err)
	}
	return out, nil
}

// fxRateRow is the flat CSV shape --fx-rates reads into a fx.StaticProvider:
// one "foreign units per 1 EUR" rate per (date, currency).
type fxRateRow struct {
	Date     string
	Currency string
	Rate     string
}

func loadFxProvider(path string, maxFallbackDays int) (fx.Provider, error) {
	provider := fx.NewStaticProvider(maxFallbackDays)
	if path == "" {
		return provider, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("steuerkernctl: open %s: %w", path, err)
	}
	defer file.Close()

	entries, err := rows.DecodeCSV[fxRateRow](file)
	if err != nil {
		return nil, fmt.Errorf("steuerkernctl: decode %s: %w", path, err)
	}
	for _, e := range entries {
		day, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return nil, fmt.Errorf("steuerkernctl: fx rate row %q: %w", e.Date, err)
		}
		rate, err := decimal.NewFromString(e.Rate)
		if err != nil {
			return nil, fmt.Errorf("steuerkernctl: fx rate row %s/%s: %w", e.Date, e.Currency, err)
		}
		provider.Set(day, e.Currency, rate)
	}
	return provider, nil
}

func persistRun(path string, taxYear int, report tax.Report, records []models.RealizedGainLoss, diagnostics *diag.Diagnostics) error {
	s, err := store.Open(path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.RunMigrations(migrationsDir()); err != nil {
		return err
	}
	return s.Persist(taxYear, report, records, diagnostics.Entries())
}

// migrationsDir resolves db/migrations relative to the binary's working
// directory, the same layout RumoClaro's RunMigrations falls back to outside
// of its Docker/GO_ENV=PRO path.
func migrationsDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd + "/db/migrations"
	}
	return "db/migrations"
}
