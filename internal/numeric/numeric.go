// Package numeric centralizes the core's decimal-safe arithmetic:
// human-amount parsing into fixed-point integers, and the percentage
// normalization shared between the alert engine and the stop-loss
// engine (spec §9, "a single function normalizePct").
package numeric

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundMode controls how ParseAmount handles a string with more
// fractional digits than the target scale supports.
type RoundMode int

const (
	// RoundHuman rejects any precision the target scale cannot represent
	// exactly. This is the default for user-facing amount entry, where a
	// silently truncated amount would be a dangerous surprise.
	RoundHuman RoundMode = iota
	// RoundDown truncates extra precision toward zero.
	RoundDown
	// RoundNearest rounds extra precision to the nearest representable unit.
	RoundNearest
)

// ParseAmount parses a human-decimal string amount into a fixed-point
// integer with the given number of decimals, e.g. ParseAmount("0.1", 6,
// RoundHuman) == 100000. Under RoundHuman, a string with more fractional
// digits than `decimals` allows is rejected rather than silently rounded.
func ParseAmount(amount string, decimals int32, mode RoundMode) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", amount, err)
	}

	scale := -d.Exponent()
	if scale > decimals && mode == RoundHuman {
		return 0, fmt.Errorf("parse amount %q: %d decimal places exceeds max %d", amount, scale, decimals)
	}

	shifted := d.Shift(decimals)

	var rounded decimal.Decimal
	switch mode {
	case RoundDown:
		rounded = shifted.Truncate(0)
	default:
		rounded = shifted.Round(0)
	}

	if !rounded.IsInteger() {
		return 0, fmt.Errorf("parse amount %q: could not reduce to integer units", amount)
	}

	return rounded.IntPart(), nil
}

// NormalizePct resolves the alert/stop-loss ambiguity where a
// threshold or stop-loss percentage may be persisted either as a
// fraction (0.10) or as a whole percent (10). It returns both
// interpretations so callers can pick the one their formula needs:
// fraction is always in [0,1]-scale (0.10 == 10%), percent is always
// in [0,100]-scale (10 == 10%).
func NormalizePct(raw float64) (fraction float64, percent float64) {
	if raw <= 1 {
		return raw, raw * 100
	}
	return raw / 100, raw
}
