// Package pipeline orchestrates spec.md §2's dataflow end to end: asset
// resolution, event construction, FX enrichment, option linking, SOY
// reconstruction, chronological FIFO dispatch, EOY validation, and tax
// aggregation. It is the generalized descendant of RumoClaro's
// processors/transaction_processor.go Process loop, which drove a single
// flat pass over one transaction slice; here the same "loop once, build a
// result" shape is retained but fanned out across the richer event/ledger
// model spec.md requires.
package pipeline

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/steuerkern/engine/internal/assets"
	"github.com/steuerkern/engine/internal/config"
	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/events"
	"github.com/steuerkern/engine/internal/enrich"
	"github.com/steuerkern/engine/internal/fx"
	"github.com/steuerkern/engine/internal/ledger"
	"github.com/steuerkern/engine/internal/logger"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/options"
	"github.com/steuerkern/engine/internal/rows"
	"github.com/steuerkern/engine/internal/sortkey"
	"github.com/steuerkern/engine/internal/tax"
)

// Config is the pipeline's input configuration, reusing
// internal/config.EngineConfig verbatim — the full knob set spec.md §6
// names under "Environment / config surface" plus the ambient settings a
// host still needs (log level, audit database path).
type Config = config.EngineConfig

// Input bundles the four row slices spec.md §6 names as the engine's input
// row schemas, split into SOY and EOY position snapshots since one
// PositionRow shape serves both roles depending on which file it came from.
type Input struct {
	Trades       []rows.TradeRow
	CashTx       []rows.CashTxRow
	CorpActions  []rows.CorpActionRow
	SOYPositions []rows.PositionRow
	EOYPositions []rows.PositionRow
}

// FatalError wraps any condition spec.md §7 marks Fatal, for the CLI to
// translate into a non-zero exit code.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// Run executes the full dataflow of spec.md §2 and returns the tax report,
// the full-precision per-event RealizedGainLoss audit records the
// aggregator accepted (for a caller that wants to persist them, e.g.
// internal/store), and the run's accumulated diagnostics. provider is the
// FxRateProvider collaborator (spec.md §9: injected, never constructed by
// the core).
func Run(cfg Config, in Input, provider fx.Provider) (tax.Report, []models.RealizedGainLoss, *diag.Diagnostics, error) {
	d := &diag.Diagnostics{}
	resolver := assets.New(d)

	taxYearStart := time.Date(cfg.TaxYear, time.January, 1, 0, 0, 0, 0, time.UTC)

	evs, err := buildEvents(in, resolver, d)
	if err != nil {
		return tax.Report{}, nil, d, &FatalError{Err: err}
	}

	for i := range evs {
		if err := enrich.Enrich(evs[i].event, provider); err != nil {
			logger.L.WithError(err).WithField("event_id", evs[i].event.ID).Error("fx enrichment failed")
			return tax.Report{}, nil, d, &FatalError{Err: err}
		}
	}

	linker := options.New()
	linkOptions(evs, resolver, linker, d)

	sort.SliceStable(evs, func(i, j int) bool {
		return sortkey.Less(evs[i].key, evs[j].key)
	})

	book := ledger.NewBook()

	for _, a := range resolver.Assets() {
		if a.SOY.Quantity.IsZero() {
			continue
		}
		reconstructSOY(cfg, a, evs, taxYearStart, book, provider, d)
	}

	eventsByID := make(map[uuid.UUID]taggedEvent, len(evs))
	for _, ev := range evs {
		eventsByID[ev.event.ID] = ev
	}

	agg := tax.New(cfg.TaxYear)
	rights := ledger.NewRightsMatcher()

	for _, ev := range evs {
		if ev.event.Date.Before(taxYearStart) {
			continue
		}
		if err := dispatch(ev, resolver, book, linker, rights, eventsByID, agg, d); err != nil {
			return tax.Report{}, nil, d, &FatalError{Err: err}
		}
	}

	taxYearEnd := time.Date(cfg.TaxYear, time.December, 31, 0, 0, 0, 0, time.UTC)
	detectWorthlessExpirations(resolver, book, taxYearEnd, agg, d)

	for _, a := range resolver.Assets() {
		l := book.For(a.ID)
		ledger.ValidateEOY(a.ID, l, a.EOY, cfg.EOYQuantityTolerance, d)
	}

	return agg.Build(), agg.Records(), d, nil
}

// detectWorthlessExpirations implements spec.md §4.5's worthless-expiration
// rule for option assets the pipeline never saw an explicit exercise,
// assignment, or closing trade for: any option whose contract has expired by
// taxYearEnd but whose ledger still holds lots is expired worthless at its
// expiry date.
func detectWorthlessExpirations(resolver *assets.Resolver, book *ledger.Book, taxYearEnd time.Time, agg *tax.Aggregator, d *diag.Diagnostics) {
	for _, a := range resolver.Assets() {
		if a.Category != models.CategoryOption || a.Option == nil {
			continue
		}
		if a.Option.Expiry.IsZero() || a.Option.Expiry.After(taxYearEnd) {
			continue
		}
		l := book.For(a.ID)
		if l.NetQuantity().IsZero() {
			continue
		}
		rgls := options.ExpireWorthless(uuid.New(), l, a.Option.Expiry)
		addRealizations(agg, resolver, rgls, models.CategoryOption, a.ID)
	}
}

// taggedEvent carries a FinancialEvent alongside the asset-derived fields
// its sort key and dispatch need, so those lookups happen once per event
// rather than on every downstream pass.
type taggedEvent struct {
	event         *models.FinancialEvent
	key           sortkey.Key
	assetSymbol   string
	assetCategory models.AssetCategory
	caActionID    string
}

func buildEvents(in Input, resolver *assets.Resolver, d *diag.Diagnostics) ([]taggedEvent, error) {
	var out []taggedEvent

	for _, r := range in.Trades {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		category := categoryFromAssetClass(r.AssetClass, r.PutCall)
		asset := resolver.ResolveOrCreate(r.Aliases(), assets.RowHints{
			Description: r.Description,
			Source:      models.SourceTrade,
			Category:    category,
			Currency:    r.Currency,
		})
		if category == models.CategoryOption {
			ensureOptionExtension(asset, r, d)
		}
		e, err := events.BuildFromTrade(r, asset.ID, category == models.CategoryOption, d)
		if err != nil {
			return nil, err
		}
		out = append(out, wrap(e, asset, ""))
	}

	for _, r := range in.CashTx {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		asset := resolver.ResolveOrCreate(r.Aliases(), assets.RowHints{
			Description: r.Description,
			Source:      models.SourceCashTx,
			Currency:    r.Currency,
		})
		e, err := events.BuildFromCashTx(r, asset.ID, asset.Category == models.CategoryInvestmentFund, "")
		if err != nil {
			return nil, err
		}
		out = append(out, wrap(e, asset, ""))
	}

	for _, r := range in.CorpActions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		asset := resolver.ResolveOrCreate(r.Aliases(), assets.RowHints{
			Description: r.Description,
			Source:      models.SourceCorpAction,
		})
		e, err := events.BuildFromCorpAction(r, asset.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, wrap(e, asset, r.CAActionID))
	}

	for _, r := range in.SOYPositions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		asset := resolver.ResolveOrCreate(r.Aliases(), assets.RowHints{Currency: r.Currency})
		applySOYSnapshot(asset, r)
	}

	for _, r := range in.EOYPositions {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		asset := resolver.ResolveOrCreate(r.Aliases(), assets.RowHints{Currency: r.Currency})
		applyEOYSnapshot(asset, r)
	}

	retagMergedEvents(out, resolver)

	return out, nil
}

// retagMergedEvents re-points every already-built event whose AssetID was
// later folded into another asset's identity by resolver.merge (spec.md
// §4.1: "move ... all downstream references of the others to the
// survivor"). Events are built incrementally and capture AssetID by value,
// so a merge triggered by a later row would otherwise orphan earlier events
// onto a stale asset id, splitting one instrument's FIFO across two ledgers.
func retagMergedEvents(evs []taggedEvent, resolver *assets.Resolver) {
	for i := range evs {
		canonical := resolver.CanonicalAssetID(evs[i].event.AssetID)
		if canonical == evs[i].event.AssetID {
			continue
		}
		evs[i].event.AssetID = canonical
		if asset, ok := findAssetByID(resolver, canonical); ok {
			evs[i] = wrap(evs[i].event, asset, evs[i].caActionID)
		}
	}
}

// canonicalSymbol picks a deterministic tier-0 sort/receivable-check symbol
// for asset: the SYMBOL: alias if there is one (spec.md §4.4's ".REC" check
// only makes sense against the broker ticker), otherwise the
// lexicographically smallest alias of any kind, so the choice never depends
// on Go's randomized map iteration order (spec.md §8 invariant 5).
func canonicalSymbol(asset *models.Asset) string {
	if s := symbolOf(asset); s != "" {
		return s
	}
	var smallest string
	for alias := range asset.Aliases {
		if smallest == "" || alias < smallest {
			smallest = alias
		}
	}
	return smallest
}

func wrap(e *models.FinancialEvent, asset *models.Asset, caActionID string) taggedEvent {
	symbol := canonicalSymbol(asset)
	return taggedEvent{
		event:         e,
		assetSymbol:   symbol,
		assetCategory: asset.Category,
		caActionID:    caActionID,
		key:           sortkey.Build(e, symbol, asset.Category, caActionID),
	}
}

func categoryFromAssetClass(assetClass, putCall string) models.AssetCategory {
	switch assetClass {
	case "OPT", "FOP":
		return models.CategoryOption
	case "BOND":
		return models.CategoryBond
	case "FUND":
		return models.CategoryInvestmentFund
	case "CFD":
		return models.CategoryCFD
	case "STK":
		return models.CategoryStock
	default:
		return models.CategoryUnknown
	}
}

// ensureOptionExtension populates an option asset's extension fields on
// first sight (spec.md §3: "option strike/expiry/put-or-call/multiplier/
// underlying-link"). Unparseable strike/multiplier/expiry are warnings, not
// fatal — the worst case is a missing worthless-expiration detection for
// that contract, not an incorrect one.
func ensureOptionExtension(asset *models.Asset, r rows.TradeRow, d *diag.Diagnostics) {
	if asset.Option != nil {
		return
	}
	ext := &models.OptionExtension{
		IsPut:           r.PutCall == "P",
		UnderlyingConID: r.UnderlyingConID,
	}
	if strike, err := decStr(r.Strike); err == nil {
		ext.Strike = strike
	}
	if multiplier, err := decStr(r.Multiplier); err == nil {
		ext.Multiplier = multiplier
	}
	if r.Expiry != "" {
		if expiry, err := time.Parse("2006-01-02", r.Expiry); err == nil {
			ext.Expiry = expiry
		} else {
			d.Addf(diag.LevelWarning, "option %s: unparseable expiry %q", r.Symbol, r.Expiry)
		}
	}
	asset.Option = ext
}

func applySOYSnapshot(asset *models.Asset, r rows.PositionRow) {
	qty, _ := decStr(r.Quantity)
	asset.SOY.Quantity = qty
	if r.CostBasisAmount != "" {
		cb, err := decStr(r.CostBasisAmount)
		if err == nil {
			asset.SOY.CostBasisAmount.Decimal = cb
			asset.SOY.CostBasisAmount.Valid = true
			asset.SOY.CostBasisCurrency = r.CostBasisCurrency
		}
	}
}

func applyEOYSnapshot(asset *models.Asset, r rows.PositionRow) {
	qty, _ := decStr(r.Quantity)
	asset.EOY.Quantity = qty
	asset.EOY.Present = true
	if r.MarketPrice != "" {
		mp, err := decStr(r.MarketPrice)
		if err == nil {
			asset.EOY.MarketPrice = mp
		}
	}
}
