package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("0.1", 6, RoundHuman)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), got)

	_, err = ParseAmount("0.0000001", 6, RoundHuman)
	assert.Error(t, err)

	got, err = ParseAmount("1", 6, RoundHuman)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), got)

	got, err = ParseAmount("0.123456789", 6, RoundDown)
	require.NoError(t, err)
	assert.Equal(t, int64(123_456), got)
}

func TestNormalizePct(t *testing.T) {
	frac, pct := NormalizePct(5)
	assert.InDelta(t, 0.05, frac, 1e-9)
	assert.InDelta(t, 5, pct, 1e-9)

	frac, pct = NormalizePct(0.05)
	assert.InDelta(t, 0.05, frac, 1e-9)
	assert.InDelta(t, 5, pct, 1e-9)

	frac, pct = NormalizePct(10)
	assert.InDelta(t, 0.10, frac, 1e-9)
	assert.InDelta(t, 10, pct, 1e-9)
}
