package recommend

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

// tableEmbedder maps keywords to fixed unit vectors.
// "market" -> x, "sport" -> y, blank -> zero vector, anything else -> z.
type tableEmbedder struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (e *tableEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls.Add(1)
	if e.fail.Load() {
		return domain.EmbeddingResult{}, errors.New("model unavailable")
	}
	return domain.EmbeddingResult{Embedding: keywordVector(text)}, nil
}

func keywordVector(text string) []float32 {
	t := strings.ToLower(text)
	switch {
	case strings.TrimSpace(t) == "":
		return []float32{0, 0, 0}
	case strings.Contains(t, "market"):
		return []float32{1, 0, 0}
	case strings.Contains(t, "sport"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

// batchTableEmbedder adds native batching to tableEmbedder.
type batchTableEmbedder struct {
	tableEmbedder
	mu         sync.Mutex
	batchSizes []int
}

func (e *batchTableEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.mu.Lock()
	e.batchSizes = append(e.batchSizes, len(texts))
	e.mu.Unlock()
	return domain.BatchFallback(ctx, &e.tableEmbedder, texts)
}

// gateEmbedder blocks on texts containing "slow" until released or canceled.
type gateEmbedder struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateEmbedder() *gateEmbedder {
	return &gateEmbedder{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.Contains(strings.ToLower(text), "slow") {
		g.once.Do(func() { close(g.entered) })
		select {
		case <-ctx.Done():
			return domain.EmbeddingResult{}, ctx.Err()
		case <-g.release:
		}
	}
	return domain.EmbeddingResult{Embedding: keywordVector(text)}, nil
}

// fixedEmbedder returns the same vector for every text.
type fixedEmbedder struct{ vec []float32 }

func (e fixedEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: e.vec}, nil
}

type stubSource struct {
	docs []article.Article
	err  error
}

func (s stubSource) All(_ context.Context) ([]article.Article, error) { return s.docs, s.err }

var (
	marketsDoc = article.Article{ID: 1, Heading: "Markets rally", Content: "Stocks rose.", Category: "Business"}
	sportsDoc  = article.Article{ID: 2, Heading: "Sports update", Content: "The home team won.", Category: "Sports"}
	weatherDoc = article.Article{ID: 3, Heading: "Weather", Content: "Rain tomorrow.", Category: "Local"}
	slowDoc    = article.Article{ID: 9, Heading: "Slow story", Content: "Takes a while.", Category: "Local"}
)
