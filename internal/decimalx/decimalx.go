// Package decimalx holds the engine's two sanctioned rounding entry points.
// spec.md §9: "apply rounding only at final quantization" — every other
// arithmetic step works at internal precision and must not call these.
package decimalx

import "github.com/shopspring/decimal"

// RoundHalfUp quantizes d to the given number of decimal places using
// round-half-up, the only rounding spec.md's quantization step allows
// regardless of the configured internal precision.
func RoundHalfUp(d decimal.Decimal, places int32) decimal.Decimal {
	return d.RoundHalfUp(places) //nolint
}

// Amount quantizes a monetary total to spec.md §6's output_precision_amount (2 places).
func Amount(d decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(d, 2)
}

// PerShare quantizes a per-unit value to spec.md §6's output_precision_per_share (6 places).
func PerShare(d decimal.Decimal) decimal.Decimal {
	return RoundHalfUp(d, 6)
}
