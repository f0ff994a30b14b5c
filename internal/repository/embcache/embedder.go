// Package embcache caches embedding vectors in a key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/db"
	"github.com/kailas-cloud/newsrec/internal/domain"
)

const cacheKeyPrefix = "newsrec:emb_cache:"

// store is the slice of db.KVStore the cache needs.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetMultiWithTTL(ctx context.Context, items []db.KVItem, ttl time.Duration) error
}

// CachedEmbedder caches embeddings keyed by model and text.
// Cache errors never fail a request: they are logged and the inner embedder is used.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	namespace  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL sets the expiry of cached vectors. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) { c.ttl = ttl }
}

// WithNamespace scopes keys, usually by model name, so switching models
// never serves stale vectors.
func WithNamespace(ns string) Option {
	return func(c *CachedEmbedder) { c.namespace = ns }
}

// WithCacheCounter sets the hit/miss counter (label "result").
func WithCacheCounter(cv *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) { c.cacheTotal = cv }
}

// New creates a caching decorator.
func New(inner domain.Embedder, s store, logger *zap.Logger, opts ...Option) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &CachedEmbedder{
		inner:  inner,
		store:  s,
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// A hit reports zero tokens.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit", 1)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}
	c.incCache("miss", 1)

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, key, result.Embedding)
	return result, nil
}

// BatchEmbed looks up all texts in one round-trip and embeds only the misses.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int

	cached, err := c.store.GetMulti(ctx, keys)
	if err != nil || len(cached) != len(keys) {
		if err != nil {
			c.logger.Warn("Failed to get cached embeddings", zap.Int("keys", len(keys)), zap.Error(err))
		}
		cached = make([][]byte, len(keys))
	}
	for i, data := range cached {
		vec, ok := c.decode(keys[i], data)
		if !ok {
			missIdx = append(missIdx, i)
			continue
		}
		embeddings[i] = vec
	}

	c.incCache("hit", len(texts)-len(missIdx))
	c.incCache("miss", len(missIdx))

	if len(missIdx) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}

	var res domain.BatchEmbeddingResult
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		res, err = be.BatchEmbed(ctx, missTexts)
	} else {
		res, err = domain.BatchFallback(ctx, c.inner, missTexts)
	}
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed misses: %w", err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf(
			"batch embed misses: got %d vectors for %d texts", len(res.Embeddings), len(missTexts))
	}

	items := make([]db.KVItem, len(missIdx))
	for j, i := range missIdx {
		embeddings[i] = res.Embeddings[j]
		items[j] = db.KVItem{Key: keys[i], Value: vectorToCacheBytes(res.Embeddings[j])}
	}
	if err := c.store.SetMultiWithTTL(ctx, items, c.ttl); err != nil {
		c.logger.Warn("Failed to cache embeddings", zap.Int("items", len(items)), zap.Error(err))
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck delegates to the inner embedder.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) incCache(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	if c.namespace == "" {
		return cacheKeyPrefix + hex.EncodeToString(h[:])
	}
	return cacheKeyPrefix + c.namespace + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return c.decode(key, data)
}

func (c *CachedEmbedder) decode(key string, data []byte) ([]float32, bool) {
	if len(data) == 0 {
		return nil, false
	}
	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	if err := c.store.SetWithTTL(ctx, key, vectorToCacheBytes(vec), c.ttl); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
