package chi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
	healthuc "github.com/kailas-cloud/newsrec/internal/usecase/health"
	"github.com/kailas-cloud/newsrec/internal/usecase/recommend"
)

type mockArticles struct {
	list      []article.Article
	hits      []article.Scored
	err       error
	gotLimit  int
	gotOffset int
	gotQuery  string
}

func (m *mockArticles) List(_ context.Context, limit, offset int) ([]article.Article, error) {
	m.gotLimit, m.gotOffset = limit, offset
	return m.list, m.err
}

func (m *mockArticles) Search(_ context.Context, q string, limit int) ([]article.Scored, error) {
	m.gotQuery, m.gotLimit = q, limit
	return m.hits, m.err
}

type mockIndex struct {
	mu        sync.Mutex
	refreshes int
	err       error
	status    recommend.Status
}

func (m *mockIndex) Refresh(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return m.err
}

func (m *mockIndex) Status() recommend.Status { return m.status }

type mockHealth struct{ report healthuc.Report }

func (m mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testEnv struct {
	server   *Server
	handler  http.Handler
	articles *mockArticles
	index    *mockIndex
}

func newTestEnv(t *testing.T, apiKeys ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		articles: &mockArticles{},
		index:    &mockIndex{},
	}
	health := mockHealth{report: healthuc.Report{
		Status: healthuc.Healthy,
		Checks: map[string]healthuc.CheckResult{healthuc.CheckDatabase: healthuc.CheckOK},
	}}
	env.server = NewServer(context.Background(), env.articles, env.index, health, nil)
	env.handler = NewRouter(env.server, apiKeys)
	return env
}

func (e *testEnv) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}
