package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Hash is a deterministic, dependency-free fallback embedder. It hashes
// token 3-grams with FNV-1a into a D-dimensional signed accumulator and
// L2-normalizes the result. Used when no external model tier is available.
type Hash struct {
	dimension int
}

var _ Embedder = (*Hash)(nil)

// NewHash creates a deterministic hash embedder of the given dimension.
func NewHash(dimension int) *Hash {
	return &Hash{dimension: dimension}
}

func (h *Hash) ModelID() string { return "hash-fnv1a-3gram" }

func (h *Hash) Dimension() int { return h.dimension }

func (h *Hash) Embed(_ context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h *Hash) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *Hash) embed(text string) []float32 {
	vec := make([]float32, h.dimension)
	if h.dimension == 0 {
		return vec
	}

	tokens := strings.Fields(strings.ToLower(text))
	grams := tokenGrams(tokens, 3)

	for _, g := range grams {
		sum, sign := fnv1aFeature(g)
		idx := int(sum % uint64(h.dimension))
		vec[idx] += sign
	}

	norm := float64(0)
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}

// tokenGrams builds overlapping windows of n consecutive tokens. If there
// are fewer than n tokens, each individual token is used as its own gram so
// short queries still produce signal.
func tokenGrams(tokens []string, n int) []string {
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) < n {
		return tokens
	}
	grams := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		grams = append(grams, strings.Join(tokens[i:i+n], " "))
	}
	return grams
}

// fnv1aFeature hashes a gram and derives a dimension-selection sum plus a
// signed accumulator weight from independent bits of the digest.
func fnv1aFeature(gram string) (sum uint64, sign float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(gram))
	digest := h.Sum64()

	sign = float32(1)
	if digest>>63 == 1 {
		sign = -1
	}
	return digest, sign
}
