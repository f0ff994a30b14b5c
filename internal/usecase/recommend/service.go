// Package recommend builds the article embedding index and answers
// semantic similarity queries against it.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
	"github.com/kailas-cloud/newsrec/internal/domain/search/result"
	"github.com/kailas-cloud/newsrec/internal/domain/text"
	"github.com/kailas-cloud/newsrec/internal/index"
	"github.com/kailas-cloud/newsrec/internal/metrics"
)

// Service owns the embedding index. Rebuilds coalesce: a new BuildIndex
// cancels the one in flight, which then returns domain.ErrRebuildSuperseded
// without publishing. Queries read the last published snapshot without locking.
type Service struct {
	embedder      domain.Embedder
	queryEmbedder domain.Embedder
	store         *index.Store
	source        Source
	compose       article.ComposeOptions
	workers       int
	batchSize     int
	logger        *zap.Logger

	state atomic.Int32

	// run serializes the build bodies; mu guards everything below.
	run          sync.Mutex
	mu           sync.Mutex
	gen          uint64
	cancel       context.CancelFunc
	closed       bool
	lastErr      error
	lastDuration time.Duration
}

// New creates a recommender over store. The embedder vectorizes documents and,
// unless WithQueryEmbedder is given, queries too.
func New(embedder domain.Embedder, store *index.Store, opts ...Option) *Service {
	s := &Service{
		embedder:      embedder,
		queryEmbedder: embedder,
		store:         store,
		workers:       DefaultWorkers,
		batchSize:     DefaultBatchSize,
		logger:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// BuildIndex composes and embeds docs, then replaces the index in one swap.
// Any embedding failure aborts the build with domain.ErrEmbeddingFailure and
// the previous index keeps serving.
func (s *Service) BuildIndex(ctx context.Context, docs []article.Article) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state.Store(int32(StateIndexing))
	s.mu.Unlock()
	defer cancel()

	// The superseded build exits promptly once its context is canceled.
	s.run.Lock()
	defer s.run.Unlock()

	if !s.current(gen) {
		metrics.IndexRebuildsTotal.WithLabelValues("superseded").Inc()
		return domain.ErrRebuildSuperseded
	}

	start := time.Now()
	log := s.logger.With(zap.Uint64("generation", gen), zap.Int("documents", len(docs)))
	log.Info("Index rebuild started")

	entries, err := s.embedDocuments(ctx, docs)
	if err != nil {
		if !s.current(gen) {
			metrics.IndexRebuildsTotal.WithLabelValues("superseded").Inc()
			log.Info("Index rebuild superseded")
			return domain.ErrRebuildSuperseded
		}
		return s.fail(gen, log, err)
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		metrics.IndexRebuildsTotal.WithLabelValues("superseded").Inc()
		log.Info("Index rebuild superseded")
		return domain.ErrRebuildSuperseded
	}
	if err := s.store.Rebuild(entries); err != nil {
		s.mu.Unlock()
		return s.fail(gen, log, err)
	}
	elapsed := time.Since(start)
	s.lastErr = nil
	s.lastDuration = elapsed
	s.state.Store(int32(StateReady))
	s.mu.Unlock()

	metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
	metrics.IndexRebuildDuration.Observe(elapsed.Seconds())
	metrics.IndexEntries.Set(float64(len(entries)))
	log.Info("Index rebuild completed", zap.Duration("duration", elapsed))
	return nil
}

// Refresh loads every article from the source and rebuilds the index.
func (s *Service) Refresh(ctx context.Context) error {
	if s.source == nil {
		return fmt.Errorf("refresh: no article source: %w", domain.ErrInvalidArgument)
	}
	if s.isClosed() {
		return domain.ErrClosed
	}
	docs, err := s.source.All(ctx)
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	return s.BuildIndex(ctx, docs)
}

// Query embeds text and returns the k most similar articles, best first.
// k <= 0 returns an empty result without embedding anything.
func (s *Service) Query(ctx context.Context, q string, k int) ([]result.Result, error) {
	start := time.Now()
	res, err := s.query(ctx, q, k)

	status := "success"
	switch {
	case errors.Is(err, domain.ErrNotReady):
		status = "not_ready"
	case err != nil:
		status = "error"
	}
	metrics.QueriesTotal.WithLabelValues(status).Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	return res, err
}

func (s *Service) query(ctx context.Context, q string, k int) ([]result.Result, error) {
	if s.isClosed() {
		return nil, domain.ErrClosed
	}
	snap, ok := s.store.Snapshot()
	if !ok {
		return nil, domain.ErrNotReady
	}
	if k <= 0 {
		return []result.Result{}, nil
	}

	emb, err := s.queryEmbedder.Embed(ctx, text.Normalize(q))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w: %w", domain.ErrEmbeddingFailure, err)
	}

	if want := s.indexDimensions(snap); want > 0 && len(emb.Embedding) != want {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(emb.Embedding), want)
	}

	return index.Rank(emb.Embedding, snap.Entries(), k), nil
}

// IsReady reports whether an index has been published and queries can be served.
func (s *Service) IsReady() bool {
	_, ok := s.store.Snapshot()
	return ok && !s.isClosed()
}

// State returns the lifecycle stage.
func (s *Service) State() State {
	return State(s.state.Load())
}

// Status returns the lifecycle stage together with index details.
func (s *Service) Status() Status {
	s.mu.Lock()
	st := Status{
		State:        s.State(),
		LastDuration: s.lastDuration,
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	s.mu.Unlock()

	if snap, ok := s.store.Snapshot(); ok {
		st.Ready = true
		st.Size = snap.Len()
		st.LastBuiltAt = snap.BuiltAt()
	}
	return st
}

// Close cancels any rebuild in flight and waits for it to exit. Later calls
// fail with domain.ErrClosed.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.gen++
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.run.Lock()
	s.run.Unlock() //nolint:staticcheck // waits for the running build to drain
}

func (s *Service) embedDocuments(ctx context.Context, docs []article.Article) ([]index.Entry, error) {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = article.Compose(d, s.compose)
	}

	vectors := make([][]float32, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		for start := 0; start < len(texts); start += s.batchSize {
			end := min(start+s.batchSize, len(texts))
			g.Go(func() error {
				res, err := be.BatchEmbed(gctx, texts[start:end])
				if err != nil {
					return fmt.Errorf("embed articles %d..%d: %w: %w",
						docs[start].ID, docs[end-1].ID, domain.ErrEmbeddingFailure, err)
				}
				if len(res.Embeddings) != end-start {
					return fmt.Errorf("embed articles %d..%d: got %d vectors: %w",
						docs[start].ID, docs[end-1].ID, len(res.Embeddings), domain.ErrEmbeddingFailure)
				}
				copy(vectors[start:end], res.Embeddings)
				return nil
			})
		}
	} else {
		for i := range texts {
			g.Go(func() error {
				res, err := s.embedder.Embed(gctx, texts[i])
				if err != nil {
					return fmt.Errorf("embed article %d: %w: %w", docs[i].ID, domain.ErrEmbeddingFailure, err)
				}
				vectors[i] = res.Embedding
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err //nolint:wrapcheck // already wrapped per document
	}

	entries := make([]index.Entry, len(docs))
	for i, d := range docs {
		entries[i] = index.Entry{ID: d.ID, Vector: vectors[i]}
	}
	return entries, nil
}

func (s *Service) fail(gen uint64, log *zap.Logger, err error) error {
	s.mu.Lock()
	if s.gen == gen {
		s.lastErr = err
	}
	s.mu.Unlock()

	metrics.IndexRebuildsTotal.WithLabelValues("error").Inc()
	log.Error("Index rebuild failed", zap.Error(err))
	return fmt.Errorf("build index: %w", err)
}

func (s *Service) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

func (s *Service) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Service) indexDimensions(snap *index.Snapshot) int {
	if d := s.store.Dimensions(); d > 0 {
		return d
	}
	if entries := snap.Entries(); len(entries) > 0 {
		return len(entries[0].Vector)
	}
	return 0
}
