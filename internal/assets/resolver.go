// Package assets implements the asset-identity resolver of spec.md §4.1: a
// union-find over alias strings with *models.Asset payloads at the roots
// (spec.md §9 Design Notes). Unlike RumoClaro's package-level
// historicalRates/countryMap globals (exchange_rate_processor.go,
// country_utils.go), Resolver is a plain struct so every run gets a fresh,
// independent alias map — required for spec.md §8's determinism property.
package assets

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
)

// RowHints carries the classification signals a row contributes, per
// spec.md §4.1: "hints from the row (IBKR asset class, sub-category,
// description, source kind)".
type RowHints struct {
	Description string
	Source      models.SourceKind
	Category    models.AssetCategory // zero value means "no opinion"
	Currency    string
	FundType    models.FundType
}

// Resolver maintains the process-wide alias -> Asset mapping for one run.
type Resolver struct {
	aliasToAsset map[string]*models.Asset
	mergedInto   map[uuid.UUID]uuid.UUID
	diag         *diag.Diagnostics
}

// New creates an empty Resolver. Pass the run's Diagnostics collector so
// resolve_or_create can log the "no usable identifiers" warning spec.md §4.1
// names without a package-level logger dependency.
func New(d *diag.Diagnostics) *Resolver {
	return &Resolver{
		aliasToAsset: make(map[string]*models.Asset),
		mergedInto:   make(map[uuid.UUID]uuid.UUID),
		diag:         d,
	}
}

// ResolveOrCreate implements spec.md §4.1's resolve_or_create operation.
func (r *Resolver) ResolveOrCreate(rowAliases []string, hints RowHints) *models.Asset {
	matched := r.distinctMatches(rowAliases)

	var asset *models.Asset
	switch len(matched) {
	case 0:
		asset = models.NewAsset()
		if len(rowAliases) == 0 {
			synthetic := fmt.Sprintf("SYNTHETIC:%s", asset.ID)
			rowAliases = []string{synthetic}
			r.diag.Warning("asset resolver: row had no usable identifiers, created synthetic alias %s", synthetic)
		}
	case 1:
		asset = matched[0]
	default:
		asset = r.merge(matched)
	}

	for _, alias := range rowAliases {
		asset.AddAlias(alias)
		r.aliasToAsset[alias] = asset
	}

	asset.UpdateDescription(hints.Description, hints.Source)
	if hints.Currency != "" && asset.Currency == "" {
		asset.Currency = hints.Currency
	}
	if hints.Category != "" {
		if asset.Category == "" {
			asset.Category = hints.Category
		} else {
			asset.UpgradeCategory(hints.Category)
		}
	}
	if hints.FundType != "" {
		asset.FundType = hints.FundType
	}

	return asset
}

// distinctMatches returns the distinct Assets already backing any of
// rowAliases, in first-seen order.
func (r *Resolver) distinctMatches(rowAliases []string) []*models.Asset {
	seen := make(map[*models.Asset]struct{})
	var matched []*models.Asset
	for _, alias := range rowAliases {
		asset, ok := r.aliasToAsset[alias]
		if !ok {
			continue
		}
		if _, dup := seen[asset]; dup {
			continue
		}
		seen[asset] = struct{}{}
		matched = append(matched, asset)
	}
	return matched
}

// merge implements spec.md §4.1's survivor rule: prefer (a) more concrete
// subtype, (b) more aliases, (c) lower id as a final, arbitrary-but-stable
// tiebreak (uuid.UUID does not have a natural "lower" order the way an
// incrementing int would, so we compare string representations, which is
// still stable and total).
func (r *Resolver) merge(candidates []*models.Asset) *models.Asset {
	survivor := candidates[0]
	for _, c := range candidates[1:] {
		if c.Category.MoreConcreteThan(survivor.Category) {
			survivor = c
			continue
		}
		if survivor.Category.MoreConcreteThan(c.Category) {
			continue
		}
		if len(c.Aliases) > len(survivor.Aliases) {
			survivor = c
			continue
		}
		if len(c.Aliases) < len(survivor.Aliases) {
			continue
		}
		if c.ID.String() < survivor.ID.String() {
			survivor = c
		}
	}

	for _, c := range candidates {
		if c == survivor {
			continue
		}
		for alias := range c.Aliases {
			survivor.AddAlias(alias)
			r.aliasToAsset[alias] = survivor
		}
		if survivor.Description == "" {
			survivor.Description = c.Description
		}
		if survivor.Currency == "" {
			survivor.Currency = c.Currency
		}
		r.mergedInto[c.ID] = survivor.ID
	}
	return survivor
}

// CanonicalAssetID follows merge lineage to the asset id currently backing
// id. A caller that captured an asset id before a later row merged that
// asset into another's identity (spec.md §4.1's survivor rule) uses this to
// re-point its own stale reference instead of silently addressing an asset
// that no longer exists in Assets().
func (r *Resolver) CanonicalAssetID(id uuid.UUID) uuid.UUID {
	for {
		next, ok := r.mergedInto[id]
		if !ok {
			return id
		}
		id = next
	}
}

// Lookup returns the Asset currently backing alias, if any.
func (r *Resolver) Lookup(alias string) (*models.Asset, bool) {
	a, ok := r.aliasToAsset[alias]
	return a, ok
}

// Assets returns every distinct Asset currently tracked by the resolver.
func (r *Resolver) Assets() []*models.Asset {
	seen := make(map[*models.Asset]struct{})
	var out []*models.Asset
	for _, a := range r.aliasToAsset {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
