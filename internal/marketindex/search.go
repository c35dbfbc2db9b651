package marketindex

import (
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/marketwatch/agentcore/internal/domain"
)

// SearchOptions configures one Search call (spec §4.D).
type SearchOptions struct {
	Query          string
	Platform       domain.Venue // empty means all platforms
	Limit          int
	MaxCandidates  int
	MinScore       *float64
	PlatformWeight map[domain.Venue]float64
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = 10
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = 1500
	}
	return o
}

// ScoredEntry is one Search result.
type ScoredEntry struct {
	Entry domain.MarketIndexEntry
	Score float64
}

// platformWeight returns the configured weight for v, defaulting to 1.
func platformWeight(weights map[domain.Venue]float64, v domain.Venue) float64 {
	if w, ok := weights[v]; ok {
		return w
	}
	return 1.0
}

// cosineSimilarity computes cosine similarity between two equal-length
// vectors using gonum/floats, returning 0 for degenerate (zero-norm)
// inputs instead of NaN.
func cosineSimilarity(a, b []float32) float64 {
	af := make([]float64, len(a))
	bf := make([]float64, len(b))
	for i := range a {
		af[i] = float64(a[i])
	}
	for i := range b {
		bf[i] = float64(b[i])
	}
	dot := floats.Dot(af, bf)
	na := floats.Norm(af, 2)
	nb := floats.Norm(bf, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// lexicalBoost counts >2-char query terms found in the entry's
// question/description/outcomes/tags, each worth 0.02, capped at 0.15
// (spec §4.D step 4).
func lexicalBoost(query string, e domain.MarketIndexEntry) float64 {
	haystack := strings.ToLower(e.Question + " " + e.Description + " " + e.OutcomesJSON + " " + e.TagsJSON)
	var boost float64
	for _, term := range tokenize(query) {
		if len(term) <= 2 {
			continue
		}
		if strings.Contains(haystack, term) {
			boost += 0.02
		}
	}
	if boost > 0.15 {
		boost = 0.15
	}
	return boost
}

// lexicalPreFilter narrows candidates to those containing at least one
// >2-char query term, applied only when the query has 3+ characters
// (spec §4.D step 1).
func lexicalPreFilter(query string, candidates []domain.MarketIndexEntry) []domain.MarketIndexEntry {
	if len(query) < 3 {
		return candidates
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return candidates
	}
	var out []domain.MarketIndexEntry
	for _, c := range candidates {
		haystack := strings.ToLower(c.Question + " " + c.Description + " " + c.TagsJSON)
		for _, term := range terms {
			if len(term) > 2 && strings.Contains(haystack, term) {
				out = append(out, c)
				break
			}
		}
	}
	return out
}
