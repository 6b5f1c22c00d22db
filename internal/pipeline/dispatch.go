package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/steuerkern/engine/internal/assets"
	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/ledger"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/options"
	"github.com/steuerkern/engine/internal/tax"
)

// dispatch routes one in-tax-year event through its ledger mutation and, for
// realizations and plain income, into the tax aggregator. eventsByID lets the
// option-premium fold (spec.md §4.5 Step B) look up the put/call flag and
// event type of the option event a stock trade's related_option_event_id
// points at.
func dispatch(
	ev taggedEvent,
	resolver *assets.Resolver,
	book *ledger.Book,
	linker *options.Linker,
	rights *ledger.RightsMatcher,
	eventsByID map[uuid.UUID]taggedEvent,
	agg *tax.Aggregator,
	d *diag.Diagnostics,
) error {
	e := ev.event

	switch e.Type {
	case models.EventCorpSplitForward:
		detail := e.Detail.(*models.SplitDetail)
		book.For(e.AssetID).ApplySplit(detail.Ratio)

	case models.EventCorpMergerCash:
		detail := e.Detail.(*models.CashMergerDetail)
		l := book.For(e.AssetID)
		rgls := l.ApplyCashMerger(e.ID, ev.assetCategory, e.Date, detail.CashPerShare)
		addRealizations(agg, resolver, rgls, ev.assetCategory, e.AssetID)

	case models.EventCorpMergerStock:
		asset, _ := findAssetByID(resolver, e.AssetID)
		desc := ev.assetSymbol
		if asset != nil && asset.Description != "" {
			desc = asset.Description
		}
		ledger.StockMergerWarning(d, e.ID, e.AssetID, desc)

	case models.EventCorpStockDividend:
		detail := e.Detail.(*models.StockDividendDetail)
		if ledger.IsReceivableSymbol(ev.assetSymbol) {
			break
		}
		l := book.For(e.AssetID)
		qtyNew := detail.NewSharesPerExisting.Mul(l.NetQuantity())
		synth := l.ApplyStockDividend(e.Date, qtyNew, detail.FMVPerNewShare, "CORP:"+ev.caActionID)
		agg.AddIncome(synth.Date, synth.AmountEUR)

	case models.EventCorpExpireDividendRights:
		dispatchDividendRights(e, rights, resolver, book, agg, d)

	case models.EventTradeBuyLong, models.EventTradeSellLong, models.EventTradeSellShortOpen, models.EventTradeBuyShortCover:
		return dispatchTrade(ev, resolver, book, linker, eventsByID, agg, d)

	case models.EventOptionExercise, models.EventOptionAssignment:
		detail := e.Detail.(*models.TradeDetail)
		l := book.For(e.AssetID)
		premium, err := l.ConsumeForPremium(detail.Quantity)
		if err != nil {
			return diag.NewFatal(e.ID, e.AssetID, l.Snapshot(), "option premium consumption: %v", err)
		}
		linker.RecordConsumedPremium(e.ID, premium)

	case models.EventDividendCash, models.EventInterestReceived, models.EventInterestPaidStueckzinsen,
		models.EventFeeTransaction:
		agg.AddIncome(e.Date, e.GrossAmountEUR)

	case models.EventDistributionFund:
		asset, _ := findAssetByID(resolver, e.AssetID)
		fundType := models.FundNone
		if asset != nil {
			fundType = asset.FundType
		}
		agg.AddFundDistribution(e.Date, e.GrossAmountEUR, fundType)

	case models.EventCapitalRepayment:
		l := book.For(e.AssetID)
		synth := l.ApplyCapitalRepayment(e.Date, e.GrossAmountEUR)
		if synth != nil {
			agg.AddIncome(synth.Date, synth.AmountEUR)
		}

	case models.EventWithholdingTax:
		agg.AddWithholdingTax(e.Date, e.GrossAmountEUR)

	case models.EventCurrencyConversion:
		// Pure FX conversion of cash already held; no ledger or tax effect.

	default:
		d.AddEvent(diag.LevelWarning, e.ID, e.AssetID, fmt.Sprintf("pipeline: no dispatch rule for event type %s", e.Type))
	}

	return nil
}

// dispatchDividendRights implements spec.md §4.4's DI/ED pairing: DI records
// the pending right, ED matches it and re-attributes its cash to the
// underlying instrument's own ledger as a capital repayment.
func dispatchDividendRights(e *models.FinancialEvent, rights *ledger.RightsMatcher, resolver *assets.Resolver, book *ledger.Book, agg *tax.Aggregator, d *diag.Diagnostics) {
	detail := e.Detail.(*models.ExpireDividendRightsDetail)
	if detail.IsIssuance {
		rights.RecordIssued(detail.CAActionID, e.Notes, e.Date)
		return
	}

	right, ok := rights.MatchExpired(detail.CAActionID)
	if !ok {
		ledger.WarnUnmatchedExpiry(d, e.ID, e.AssetID, detail.CAActionID)
		agg.AddIncome(e.Date, detail.CashAmountEUR)
		return
	}

	underlying, ok := findAssetByAlias(resolver, right.UnderlyingIdentifier)
	if !ok {
		d.AddEvent(diag.LevelWarning, e.ID, e.AssetID,
			"dividend rights ED "+detail.CAActionID+": underlying "+right.UnderlyingIdentifier+" not found, cash left as ordinary income")
		agg.AddIncome(e.Date, detail.CashAmountEUR)
		return
	}

	underlyingLedger := book.For(underlying.ID)
	synth := ledger.ApplyExpiredRights(underlyingLedger, e.Date, detail.CashAmountEUR)
	if synth != nil {
		agg.AddIncome(synth.Date, synth.AmountEUR)
	}
}

// dispatchTrade implements spec.md §4.4's Acquire/Realize rules plus the
// §4.5 Step B premium fold for stock trades linked to an option
// exercise/assignment.
func dispatchTrade(ev taggedEvent, resolver *assets.Resolver, book *ledger.Book, linker *options.Linker, eventsByID map[uuid.UUID]taggedEvent, agg *tax.Aggregator, d *diag.Diagnostics) error {
	e := ev.event
	detail := e.Detail.(*models.TradeDetail)
	l := book.For(e.AssetID)
	netEUR := detail.NetEUR

	if detail.RelatedOptionEventID != nil {
		premium, ok := linker.TakePremium(*detail.RelatedOptionEventID)
		if ok {
			optionEv, found := eventsByID[*detail.RelatedOptionEventID]
			optionAsset, assetFound := findAssetByID(resolver, optionEv.event.AssetID)
			if !found || !assetFound || optionAsset.Option == nil {
				d.AddEvent(diag.LevelWarning, e.ID, e.AssetID, "option premium fold: missing option asset context, premium dropped")
			} else {
				side, err := options.ClassifyStockSide(e.Type, optionAsset.Option.IsPut, optionEv.event.Type)
				if err != nil {
					d.AddEvent(diag.LevelWarning, e.ID, e.AssetID, "option premium fold: "+err.Error())
				} else {
					netEUR, err = options.FoldPremium(netEUR, side, premium)
					if err != nil {
						return diag.NewFatal(e.ID, e.AssetID, l.Snapshot(), "option premium fold: %v", err)
					}
				}
			}
		}
	}

	isOptionLeg := ev.assetCategory == models.CategoryOption
	var err error
	switch e.Type {
	case models.EventTradeBuyLong:
		l.AcquireLong(e.Date, detail.Quantity, netEUR, e.BrokerTransactionID)
	case models.EventTradeSellShortOpen:
		l.AcquireShort(e.Date, detail.Quantity, netEUR, e.BrokerTransactionID)
	case models.EventTradeSellLong:
		rtype := models.RealizationLongSale
		if isOptionLeg {
			rtype = models.RealizationOptionCloseLong
		}
		var rgls []models.RealizedGainLoss
		rgls, err = l.RealizeLongWithType(e.ID, ev.assetCategory, e.Date, detail.Quantity, netEUR, rtype, d)
		addRealizations(agg, resolver, rgls, ev.assetCategory, e.AssetID)
	case models.EventTradeBuyShortCover:
		rtype := models.RealizationShortCover
		if isOptionLeg {
			rtype = models.RealizationOptionCloseShort
		}
		var rgls []models.RealizedGainLoss
		rgls, err = l.RealizeShortWithType(e.ID, ev.assetCategory, e.Date, detail.Quantity, netEUR, rtype, d)
		addRealizations(agg, resolver, rgls, ev.assetCategory, e.AssetID)
	}
	if err != nil {
		return diag.NewFatal(e.ID, e.AssetID, l.Snapshot(), "FIFO realization: %v", err)
	}
	return nil
}

// addRealizations categorizes and folds a batch of RealizedGainLoss records
// into the aggregator, resolving the fund type for TaxCategoryFund entries.
func addRealizations(agg *tax.Aggregator, resolver *assets.Resolver, rgls []models.RealizedGainLoss, category models.AssetCategory, assetID uuid.UUID) {
	if len(rgls) == 0 {
		return
	}
	fundType := models.FundNone
	if category == models.CategoryInvestmentFund {
		if asset, ok := findAssetByID(resolver, assetID); ok {
			fundType = asset.FundType
		}
	}
	for _, rgl := range rgls {
		categorizeRealization(&rgl, category)
		agg.AddRealization(rgl, fundType)
	}
}
