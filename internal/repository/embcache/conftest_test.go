package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/newsrec/internal/db"
	"github.com/kailas-cloud/newsrec/internal/domain"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	calls      int
	batchCalls int
	batchTexts []string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = append([]string(nil), texts...)
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// singleOnly hides BatchEmbed so the decorator has to fall back.
type singleOnly struct{ inner *mockEmbedder }

func (s singleOnly) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return s.inner.Embed(ctx, text)
}

// mockKVStore is an in-memory store with optional failure injection.
type mockKVStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	getKeys []string
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	m.getKeys = append(m.getKeys, key)
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) GetMulti(_ context.Context, keys []string) ([][]byte, error) {
	m.getKeys = append(m.getKeys, keys...)
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mockKVStore) SetMultiWithTTL(_ context.Context, items []db.KVItem, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		m.data[it.Key] = it.Value
		m.ttls[it.Key] = ttl
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner domain.Embedder, opts ...Option) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, zap.NewNop(), opts...), ms
}
