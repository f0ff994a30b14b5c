package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/metrics"
)

// DefaultMaxAPIBatchSize is the largest batch sent to the inner embedder in one call.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps an Embedder with logging, text counters,
// batch chunking and output dimension checks.
// Provider request metrics (duration, tokens) are recorded in the transport layer.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	dims      int
	chunkSize int
	logger    *zap.Logger
}

// Option configures an InstrumentedEmbedder.
type Option func(*InstrumentedEmbedder)

// WithDimensions rejects vectors whose length differs from dims. Zero disables the check.
func WithDimensions(dims int) Option {
	return func(p *InstrumentedEmbedder) { p.dims = dims }
}

// WithChunkSize overrides DefaultMaxAPIBatchSize.
func WithChunkSize(n int) Option {
	return func(p *InstrumentedEmbedder) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// NewInstrumentedEmbedder wraps an embedder with observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	logger *zap.Logger, opts ...Option,
) *InstrumentedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		chunkSize: DefaultMaxAPIBatchSize,
		logger:    logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Embed delegates to the inner embedder and logs the outcome.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	if err := p.checkDims(result.Embedding); err != nil {
		return domain.EmbeddingResult{}, err
	}

	metrics.EmbeddingTextsTotal.WithLabelValues(p.provider, p.model, "single").Inc()

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into chunks and delegates each to the inner embedder.
// Output order matches input order.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	metrics.EmbeddingTextsTotal.WithLabelValues(p.provider, p.model, "batch").Add(float64(len(texts)))

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// HealthCheck delegates to the inner embedder.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	allEmbeddings := make([][]float32, 0, len(texts))
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += p.chunkSize {
		if err := ctx.Err(); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed (chunk %d): %w", offset, err)
		}

		end := min(offset+p.chunkSize, len(texts))
		chunk := texts[offset:end]

		chunkResult, err := p.embedInner(ctx, chunk)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}
		if len(chunkResult.Embeddings) != len(chunk) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf(
				"batch embed (chunk %d): got %d vectors for %d texts",
				offset, len(chunkResult.Embeddings), len(chunk))
		}
		for _, vec := range chunkResult.Embeddings {
			if err := p.checkDims(vec); err != nil {
				return domain.BatchEmbeddingResult{}, err
			}
		}

		allEmbeddings = append(allEmbeddings, chunkResult.Embeddings...)
		totalPrompt += chunkResult.PromptTokens
		totalTokens += chunkResult.TotalTokens
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   allEmbeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

func (p *InstrumentedEmbedder) embedInner(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch embed: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, p.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch fallback: %w", err)
	}
	return res, nil
}

func (p *InstrumentedEmbedder) checkDims(vec []float32) error {
	if p.dims > 0 && len(vec) != p.dims {
		return fmt.Errorf("%s returned %d dimensions, want %d: %w",
			p.provider, len(vec), p.dims, domain.ErrVectorDimMismatch)
	}
	return nil
}
