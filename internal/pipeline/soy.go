package pipeline

import (
	"time"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/fx"
	"github.com/steuerkern/engine/internal/ledger"
	"github.com/steuerkern/engine/internal/models"
)

// reconstructSOY implements spec.md §4.6: replay a's pre-tax-year history
// through a scratch ledger; if the simulation is accepted, adopt its lots
// into the real per-asset ledger, otherwise install a single synthetic
// fallback lot dated (taxYear-1)-12-31.
func reconstructSOY(cfg Config, a *models.Asset, evs []taggedEvent, taxYearStart time.Time, book *ledger.Book, provider fx.Provider, d *diag.Diagnostics) {
	var steps []func(*ledger.Ledger) error
	for _, ev := range evs {
		if ev.event.AssetID != a.ID || !ev.event.Date.Before(taxYearStart) {
			continue
		}
		if step, ok := soyStep(ev, d); ok {
			steps = append(steps, step)
		}
	}

	result := ledger.Simulate(a.ID, steps)
	real := book.For(a.ID)

	if ledger.AcceptSimulation(result, a.SOY.Quantity) {
		adopt(real, result.Ledger)
		return
	}

	fallback := ledger.FallbackSOYLot(cfg.TaxYear, a.SOY, provider, d, a.ID)
	if a.SOY.Quantity.IsNegative() {
		real.AcquireShort(fallback.AcquisitionDate, fallback.RemainingQuantity, fallback.TotalCostEUR, fallback.SourceTransactionID)
	} else {
		real.AcquireLong(fallback.AcquisitionDate, fallback.RemainingQuantity, fallback.TotalCostEUR, fallback.SourceTransactionID)
	}
}

// soyStep translates one pre-tax-year event into a scratch-ledger mutation
// closure for spec.md §4.6 step 1's historical simulation. Dividend-rights
// DI/ED pairing and stock-for-stock mergers are cross-asset/out-of-scope
// concerns respectively and are skipped here; a SOY simulation rejected
// because of them falls back to FallbackSOYLot like any other rejection.
func soyStep(ev taggedEvent, d *diag.Diagnostics) (func(*ledger.Ledger) error, bool) {
	e := ev.event
	switch e.Type {
	case models.EventCorpSplitForward:
		detail := e.Detail.(*models.SplitDetail)
		return func(l *ledger.Ledger) error {
			l.ApplySplit(detail.Ratio)
			return nil
		}, true
	case models.EventCorpMergerCash:
		detail := e.Detail.(*models.CashMergerDetail)
		return func(l *ledger.Ledger) error {
			l.ApplyCashMerger(e.ID, ev.assetCategory, e.Date, detail.CashPerShare)
			return nil
		}, true
	case models.EventCorpStockDividend:
		detail := e.Detail.(*models.StockDividendDetail)
		if ledger.IsReceivableSymbol(ev.assetSymbol) {
			return nil, false
		}
		return func(l *ledger.Ledger) error {
			qtyNew := detail.NewSharesPerExisting.Mul(l.NetQuantity())
			l.ApplyStockDividend(e.Date, qtyNew, detail.FMVPerNewShare, "CORP:"+ev.caActionID)
			return nil
		}, true
	case models.EventTradeBuyLong:
		detail := e.Detail.(*models.TradeDetail)
		return func(l *ledger.Ledger) error {
			l.AcquireLong(e.Date, detail.Quantity, detail.NetEUR, e.BrokerTransactionID)
			return nil
		}, true
	case models.EventTradeSellShortOpen:
		detail := e.Detail.(*models.TradeDetail)
		return func(l *ledger.Ledger) error {
			l.AcquireShort(e.Date, detail.Quantity, detail.NetEUR, e.BrokerTransactionID)
			return nil
		}, true
	case models.EventTradeSellLong:
		detail := e.Detail.(*models.TradeDetail)
		return func(l *ledger.Ledger) error {
			_, err := l.RealizeLong(e.ID, ev.assetCategory, e.Date, detail.Quantity, detail.NetEUR, d)
			return err
		}, true
	case models.EventTradeBuyShortCover:
		detail := e.Detail.(*models.TradeDetail)
		return func(l *ledger.Ledger) error {
			_, err := l.RealizeShortCover(e.ID, ev.assetCategory, e.Date, detail.Quantity, detail.NetEUR, d)
			return err
		}, true
	case models.EventOptionExercise, models.EventOptionAssignment:
		detail := e.Detail.(*models.TradeDetail)
		return func(l *ledger.Ledger) error {
			_, err := l.ConsumeForPremium(detail.Quantity)
			return err
		}, true
	default:
		return nil, false
	}
}

// adopt copies a simulated scratch ledger's surviving lots into the real
// book ledger, which starts empty at this point in Run (spec.md §4.6 step 1:
// "if accepted, adopt the simulated lots as the asset's start-of-year
// state"). Adopted lots carry models.SOYSimulated as their source
// transaction id.
func adopt(real *ledger.Ledger, sim *ledger.Ledger) {
	for _, lot := range sim.LongLotsSnapshot() {
		real.AcquireLong(lot.AcquisitionDate, lot.RemainingQuantity, lot.TotalCostEUR, models.SOYSimulated)
	}
	for _, lot := range sim.ShortLotsSnapshot() {
		real.AcquireShort(lot.OpeningDate, lot.RemainingQuantity, lot.TotalProceedsEUR, models.SOYSimulated)
	}
}
