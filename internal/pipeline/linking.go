package pipeline

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/assets"
	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
	"github.com/steuerkern/engine/internal/options"
)

// linkOptions implements spec.md §4.5 Step A over the fully-built event
// slice: gather OPTION_EXERCISE/OPTION_ASSIGNMENT candidates and
// Ex/A(not IA)-flagged stock trades, match them, and stamp
// RelatedOptionEventID onto the matched stock trade's TradeDetail.
func linkOptions(evs []taggedEvent, resolver *assets.Resolver, linker *options.Linker, d *diag.Diagnostics) {
	var optionCandidates []options.OptionCandidate
	var stockCandidates []options.StockCandidate
	stockByEventID := make(map[string]*models.FinancialEvent)

	for _, te := range evs {
		e := te.event
		switch e.Type {
		case models.EventOptionExercise, models.EventOptionAssignment:
			asset, ok := findAssetByID(resolver, e.AssetID)
			if !ok || asset.Option == nil {
				continue
			}
			detail, ok := e.Detail.(*models.TradeDetail)
			contractQty := decimal.NewFromInt(1)
			if ok {
				contractQty = detail.Quantity
			}
			multiplier := asset.Option.Multiplier
			if multiplier.IsZero() {
				multiplier = decimal.NewFromInt(1)
			}
			optionCandidates = append(optionCandidates, options.OptionCandidate{
				EventID:         e.ID,
				Date:            e.Date,
				UnderlyingConID: asset.Option.UnderlyingConID,
				ContractQty:     contractQty,
				Multiplier:      multiplier,
			})
		default:
			if !e.Type.IsTrade() {
				continue
			}
			detail, ok := e.Detail.(*models.TradeDetail)
			if !ok || !isExerciseOrAssignmentFlagged(detail.NotesCodes) {
				continue
			}
			asset, ok := findAssetByID(resolver, e.AssetID)
			if !ok {
				continue
			}
			stockCandidates = append(stockCandidates, options.StockCandidate{
				EventID:  e.ID,
				Date:     e.Date,
				ConID:    conIDOf(asset),
				Quantity: detail.Quantity,
			})
			stockByEventID[e.ID.String()] = e
		}
	}

	linker.Link(optionCandidates, stockCandidates, d)

	for _, sc := range stockCandidates {
		optionEventID, ok := linker.RelatedOption(sc.EventID)
		if !ok {
			continue
		}
		e := stockByEventID[sc.EventID.String()]
		detail := e.Detail.(*models.TradeDetail)
		id := optionEventID
		detail.RelatedOptionEventID = &id
	}
}

func isExerciseOrAssignmentFlagged(notes string) bool {
	hasEx := strings.Contains(notes, "Ex")
	hasA := strings.Contains(notes, "A") && !strings.Contains(notes, "IA")
	return hasEx || hasA
}

func findAssetByID(resolver *assets.Resolver, id uuid.UUID) (*models.Asset, bool) {
	for _, a := range resolver.Assets() {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

func conIDOf(a *models.Asset) string {
	for alias := range a.Aliases {
		if strings.HasPrefix(alias, "CONID:") {
			return strings.TrimPrefix(alias, "CONID:")
		}
	}
	return ""
}

// symbolOf returns a's broker ticker alias, if it has one, for the
// receivable-suffix check and dividend-rights underlying lookups.
func symbolOf(a *models.Asset) string {
	for alias := range a.Aliases {
		if strings.HasPrefix(alias, "SYMBOL:") {
			return strings.TrimPrefix(alias, "SYMBOL:")
		}
	}
	return ""
}

// findAssetByAlias resolves a bare identifier (as extracted from a
// dividend-rights description, with no alias-kind prefix) against the
// resolver's ISIN/CONID/SYMBOL alias forms, in that precedence order.
func findAssetByAlias(resolver *assets.Resolver, identifier string) (*models.Asset, bool) {
	for _, prefix := range []string{"ISIN:", "CONID:", "SYMBOL:"} {
		if a, ok := resolver.Lookup(prefix + identifier); ok {
			return a, true
		}
	}
	return resolver.Lookup(identifier)
}
