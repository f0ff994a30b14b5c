package domain

import (
	"context"
	"fmt"
)

// Embedder turns a composed article or a normalized query into a vector.
// Every vector an index holds must come from the same chain: fixed length,
// L2-normalized, deterministic for identical input.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder embeds a chunk of articles in one provider request.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker is implemented by chains that can probe their provider.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one vector with the tokens the provider billed for it.
// Cache hits report zero tokens.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult holds one vector per input text, in input order, and
// the summed token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// BatchFallback embeds texts one at a time through e. The recommender uses it
// for providers that cannot embed a whole chunk of articles in one request.
// Token counts are summed; the first failing article stops the batch.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for i := range texts {
		res, err := e.Embed(ctx, texts[i])
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		out.Embeddings = append(out.Embeddings, res.Embedding)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}

// InstructionEmbedder marks which side of a search a text is on. Asymmetric
// models such as e5 embed composed articles with a document prefix
// ("passage: ") and user queries with a query prefix ("query: "); newsrec
// wraps one shared provider chain twice, once per prefix.
type InstructionEmbedder struct {
	inner       Embedder
	instruction string
}

// NewInstructionEmbedder wraps inner so every text is sent as instruction+text.
func NewInstructionEmbedder(inner Embedder, instruction string) *InstructionEmbedder {
	return &InstructionEmbedder{inner: inner, instruction: instruction}
}

func (e *InstructionEmbedder) prefixed(texts ...string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = e.instruction + t
	}
	return out
}

// Embed sends the prefixed text to the inner chain.
func (e *InstructionEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	result, err := e.inner.Embed(ctx, e.prefixed(text)[0])
	if err != nil {
		return EmbeddingResult{}, fmt.Errorf("instruction embed: %w", err)
	}
	return result, nil
}

// BatchEmbed prefixes every article text and uses the inner batch endpoint
// when there is one, BatchFallback otherwise. The prefix reaches the cache
// layer, so document and query vectors of the same text never collide.
func (e *InstructionEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	texts = e.prefixed(texts...)

	var (
		res BatchEmbeddingResult
		err error
	)
	if be, ok := e.inner.(BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, texts)
	} else {
		res, err = BatchFallback(ctx, e.inner, texts)
	}
	if err != nil {
		return BatchEmbeddingResult{}, fmt.Errorf("instruction batch embed: %w", err)
	}
	return res, nil
}

// HealthCheck reports the inner provider's health; chains without a check are healthy.
func (e *InstructionEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := e.inner.(HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}
