package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
	"github.com/steuerkern/engine/internal/models"
)

// ValidateEOY implements spec.md §4.6's end-of-year check: the ledger's net
// quantity must equal the reported eoy_quantity within tolerance. Assets
// absent from the EOY snapshot have an authoritative eoy_quantity of zero
// (the caller passes models.EOYSnapshot{} for those). Discrepancies are
// Critical, not Fatal — they are recorded and processing continues.
func ValidateEOY(assetID uuid.UUID, l *Ledger, eoy models.EOYSnapshot, tolerance decimal.Decimal, d *diag.Diagnostics) {
	expected := decimal.Zero
	if eoy.Present {
		expected = eoy.Quantity
	}
	actual := l.NetQuantity()
	diff := actual.Sub(expected).Abs()
	if diff.GreaterThan(tolerance) {
		d.AddEvent(diag.LevelCritical, uuid.Nil, assetID,
			"EOY quantity mismatch: ledger holds "+actual.String()+" but reported EOY quantity is "+expected.String())
	}
}
