package pipeline

import (
	"strings"

	"github.com/shopspring/decimal"
)

// decStr parses a raw column string into a Decimal, treating blank as
// zero, mirroring internal/events' dec helper for the position-row fields
// that package doesn't itself touch.
func decStr(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(s))
}
