package marketindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marketwatch/agentcore/internal/domain"
)

func TestContentHash_StableAcrossCalls(t *testing.T) {
	e := domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "m1", Question: "Will it rain?"}
	h1 := ContentHash(e)
	h2 := ContentHash(e)
	assert.Equal(t, h1, h2)
	assert.NotEmpty(t, h1)
}

func TestContentHash_ChangesWithQuestion(t *testing.T) {
	a := domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "m1", Question: "Will it rain?"}
	b := a
	b.Question = "Will it snow?"
	assert.NotEqual(t, ContentHash(a), ContentHash(b))
}

func TestContentHash_IgnoresUpdatedAt(t *testing.T) {
	a := domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "m1", UpdatedAt: 100}
	b := a
	b.UpdatedAt = 999999
	assert.Equal(t, ContentHash(a), ContentHash(b))
}

func TestLexicalBoost_CapsAt015(t *testing.T) {
	e := domain.MarketIndexEntry{Question: "alpha beta gamma delta epsilon zeta eta theta"}
	boost := lexicalBoost("alpha beta gamma delta epsilon zeta eta theta", e)
	assert.InDelta(t, 0.15, boost, 1e-9)
}

func TestLexicalBoost_IgnoresShortTerms(t *testing.T) {
	e := domain.MarketIndexEntry{Question: "to be or not to be"}
	boost := lexicalBoost("to be or", e)
	assert.Equal(t, 0.0, boost)
}

func TestCosineSimilarity_IdenticalVectorsScoreOne(t *testing.T) {
	v := []float32{1, 2, 3}
	assert.InDelta(t, 1.0, cosineSimilarity(v, v), 1e-6)
}

func TestCosineSimilarity_ZeroVectorIsZero(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
