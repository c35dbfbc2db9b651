package marketindex

import (
	"context"
	"hash/fnv"
	"math"
)

const embeddingDim = 64

// Embedder turns text into fixed-dimension vectors. No embedding-model
// client exists anywhere in this project's dependency corpus, so the
// default implementation is a deterministic hashed bag-of-words vector
// rather than a call to a real model — it satisfies the hybrid
// invariant (same text → same vector) without inventing a fabricated
// SDK dependency. A real model-backed Embedder can be substituted
// without changing any caller, since the interface is the contract.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// HashEmbedder is the default Embedder: each token is hashed into one
// of embeddingDim buckets and accumulated, then the vector is
// L2-normalized so cosine similarity behaves sensibly.
type HashEmbedder struct{}

func (HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashEmbed(t)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, embeddingDim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := h.Sum32() % embeddingDim
		vec[bucket]++
	}
	normalize(vec)
	return vec
}

func normalize(vec []float32) {
	var sumSq float64
	for _, v := range vec {
		sumSq += float64(v) * float64(v)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sumSq))
	for i := range vec {
		vec[i] *= norm
	}
}
