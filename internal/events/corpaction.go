package events

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/rows"
)

// firstToken returns the leading whitespace-delimited token of a
// corporate-action description, which broker DI rows use to name the
// underlying the issued rights attach to.
func firstToken(description string) string {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// BuildFromCorpAction maps a CorpActionRow to a FinancialEvent, dispatching
// on the FS/TC/HI/SD/DI/ED type codes spec.md §6 lists.
func BuildFromCorpAction(r rows.CorpActionRow, assetID uuid.UUID) (*models.FinancialEvent, error) {
	date, err := mustDate(r.Date)
	if err != nil {
		return nil, fmt.Errorf("events: unparseable corporate action date %q: %w", r.Date, err)
	}

	base := &models.FinancialEvent{
		ID:      uuid.New(),
		AssetID: assetID,
		Date:    date,
		Notes:   r.Description,
	}

	switch r.Type {
	case "FS": // forward split
		ratio, err := dec(r.Ratio)
		if err != nil {
			return nil, fmt.Errorf("events: invalid split ratio %q: %w", r.Ratio, err)
		}
		base.Type = models.EventCorpSplitForward
		base.Detail = &models.SplitDetail{Ratio: ratio}
	case "TC": // cash merger
		cashPerShare, err := dec(r.CashPerShare)
		if err != nil {
			return nil, fmt.Errorf("events: invalid cash-per-share %q: %w", r.CashPerShare, err)
		}
		base.Type = models.EventCorpMergerCash
		base.Detail = &models.CashMergerDetail{CashPerShare: cashPerShare}
	case "HI": // stock-for-stock merger — recognized, not transformed (spec.md §4.4/§9)
		base.Type = models.EventCorpMergerStock
		base.Detail = &models.StockMergerDetail{}
	case "SD": // stock dividend
		newShares, err := dec(r.NewShares)
		if err != nil {
			return nil, fmt.Errorf("events: invalid new-shares %q: %w", r.NewShares, err)
		}
		// CorpActionRow carries no distinct FMV column; broker stock-dividend
		// rows conventionally report the new shares' fair value in the same
		// per-unit cash field TC rows use for cash-per-share, so SD rows
		// repurpose CashPerShare as FMV-per-new-share.
		fmv, err := dec(r.CashPerShare)
		if err != nil {
			return nil, fmt.Errorf("events: invalid FMV-per-new-share %q: %w", r.CashPerShare, err)
		}
		base.Type = models.EventCorpStockDividend
		base.Detail = &models.StockDividendDetail{NewSharesPerExisting: newShares, FMVPerNewShare: fmv}
	case "DI": // dividend rights issued
		base.Type = models.EventCorpExpireDividendRights
		base.Detail = &models.ExpireDividendRightsDetail{IsIssuance: true, CAActionID: r.CAActionID, UnderlyingIdentifier: firstToken(r.Description)}
	case "ED": // dividend rights expired
		cashAmount, err := dec(r.CashPerShare)
		if err != nil {
			return nil, fmt.Errorf("events: invalid dividend-rights cash amount %q: %w", r.CashPerShare, err)
		}
		base.Type = models.EventCorpExpireDividendRights
		base.Detail = &models.ExpireDividendRightsDetail{IsIssuance: false, CAActionID: r.CAActionID, CashAmountEUR: cashAmount}
	default:
		return nil, fmt.Errorf("events: unrecognized corporate action type %q", r.Type)
	}
	return base, nil
}
