// Package hashing is a local, deterministic embedding provider: a
// feature-hashed bag of word stems, L2-normalized. It needs no model download
// or network and is meant for offline runs, demos and tests.
package hashing

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/newsrec/internal/domain"
)

// DefaultDimensions matches the output size of MiniLM-class sentence models.
const DefaultDimensions = 384

// stemLen truncates tokens so that inflections ("market", "markets") share a bucket.
const stemLen = 5

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

// Embedder implements domain.Embedder and domain.BatchEmbedder.
type Embedder struct {
	dims int
}

// NewEmbedder creates a hashing embedder producing vectors of dims length.
func NewEmbedder(dims int) *Embedder {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Embedder{dims: dims}
}

// Dimensions returns the output vector length.
func (e *Embedder) Dimensions() int { return e.dims }

// Embed hashes the stems of text into a signed bag-of-words vector.
// Text with no tokens yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, err //nolint:wrapcheck // context errors pass through
	}

	tokens := Tokenize(text)
	vec := make([]float32, e.dims)
	for _, tok := range tokens {
		h := xxhash.Sum64String(tok)
		idx := int(h % uint64(e.dims))
		// High bit picks the sign, which keeps collisions from only ever adding up.
		if h>>63 == 1 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	normalize(vec)

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: len(tokens),
		TotalTokens:  len(tokens),
	}, nil
}

// BatchEmbed embeds each text in order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return domain.BatchFallback(ctx, e, texts)
}

// HealthCheck always succeeds: there is no remote dependency.
func (e *Embedder) HealthCheck(_ context.Context) error { return nil }

// Tokenize lowercases text, splits it on anything that is not a letter or
// digit, drops stopwords and truncates each token to its stem.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopwords[f]; stop {
			continue
		}
		if r := []rune(f); len(r) > stemLen {
			f = string(r[:stemLen])
		}
		out = append(out, f)
	}
	return out
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}
