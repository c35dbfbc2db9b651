package venues

import (
	"strings"

	"github.com/marketwatch/agentcore/internal/domain"
)

// NormalizeKalshiPrice applies spec §4.C's Kalshi rule: prices are
// fractional if already ≤1, else they are a percent and must be
// divided by 100.
func NormalizeKalshiPrice(raw float64) float64 {
	if raw <= 1 {
		return raw
	}
	return raw / 100
}

// ManifoldNoPrice derives the NO-side price from a YES probability,
// clamped at zero (spec §4.C).
func ManifoldNoPrice(yesProb float64) float64 {
	p := 1 - yesProb
	if p < 0 {
		return 0
	}
	return p
}

// PerpCurrentPrice computes the synthetic mark price for a perpetual
// position from its entry price and unrealized pnl (spec §4.C).
func PerpCurrentPrice(entryPx, unrealizedPnl, size float64) float64 {
	if size > 0 {
		return entryPx + unrealizedPnl/size
	}
	return entryPx
}

// DeriveSideFromSigned maps a signed perp size to LONG/SHORT.
func DeriveSideFromSigned(signedSize float64) domain.Side {
	if signedSize >= 0 {
		return domain.SideLong
	}
	return domain.SideShort
}

// DeriveSideFromOutcomeText maps a non-perp outcome label to YES/NO,
// matching "NO" case-insensitively anywhere in the text (spec §4.C).
func DeriveSideFromOutcomeText(outcomeText string) domain.Side {
	if strings.Contains(strings.ToUpper(outcomeText), "NO") {
		return domain.SideNO
	}
	return domain.SideYES
}
