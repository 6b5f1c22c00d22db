package ledger

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/steuerkern/engine/internal/diag"
)

// PendingRight is a not-yet-matched DI (rights issued) event, keyed by its
// CAActionID, awaiting the later ED (rights expired) event per spec.md
// §4.4's "match the DI/ED pair" rule.
type PendingRight struct {
	CAActionID          string
	UnderlyingIdentifier string
	IssuedDate          time.Time
}

// RightsMatcher pairs DI/ED dividend-rights events across the whole run
// (they need not belong to the same asset the event arrived on) and
// re-attributes the ED's cash to the underlying instrument as a capital
// repayment, per spec.md §4.4.
type RightsMatcher struct {
	pending map[string]PendingRight
}

// NewRightsMatcher builds an empty matcher.
func NewRightsMatcher() *RightsMatcher {
	return &RightsMatcher{pending: make(map[string]PendingRight)}
}

// RecordIssued registers a DI event, extracting the underlying instrument
// identifier from its description (spec.md §4.4: "extract the underlying
// instrument from the DI description").
func (m *RightsMatcher) RecordIssued(caActionID, description string, date time.Time) {
	m.pending[caActionID] = PendingRight{
		CAActionID:           caActionID,
		UnderlyingIdentifier: extractUnderlying(description),
		IssuedDate:           date,
	}
}

// extractUnderlying pulls the first whitespace-delimited token out of a
// dividend-rights description, the common broker convention of leading
// with the underlying's ticker/ISIN before free text.
func extractUnderlying(description string) string {
	fields := strings.Fields(description)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// MatchExpired looks up the DI paired with caActionID. ok is false if no
// issuance was ever recorded (spec.md §7: a warning-level condition, not
// fatal — the ED cash falls back to ordinary income handling by the
// caller).
func (m *RightsMatcher) MatchExpired(caActionID string) (PendingRight, bool) {
	right, ok := m.pending[caActionID]
	if ok {
		delete(m.pending, caActionID)
	}
	return right, ok
}

// ApplyExpiredRights re-attributes an ED event's cash against the
// underlying's ledger as a capital repayment, dropping the phantom DI/ED
// pair from further lot creation (spec.md §4.4).
func ApplyExpiredRights(underlyingLedger *Ledger, date time.Time, cashEUR decimal.Decimal) *SyntheticIncome {
	return underlyingLedger.ApplyCapitalRepayment(date, cashEUR)
}

// WarnUnmatchedExpiry records the spec.md §7 warning for an ED event with
// no matching DI.
func WarnUnmatchedExpiry(d *diag.Diagnostics, eventID, assetID uuid.UUID, caActionID string) {
	d.AddEvent(diag.LevelWarning, eventID, assetID, "dividend rights ED "+caActionID+" has no matching DI issuance; cash left as ordinary income")
}

// StockMergerWarning records the spec.md §7/§4.4 critical entry for a
// recognized-but-unconverted stock-for-stock merger.
func StockMergerWarning(d *diag.Diagnostics, eventID, assetID uuid.UUID, assetDescription string) {
	d.AddEvent(diag.LevelCritical, eventID, assetID, "stock-for-stock merger on "+assetDescription+" recognized but lot conversion is out of scope; lots left unchanged")
}
