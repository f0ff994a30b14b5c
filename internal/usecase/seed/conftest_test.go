package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

type mockRepo struct {
	count    int
	countErr error
	created  []article.New
	bulk     []article.New
	bulkErr  error
}

func (m *mockRepo) Count(_ context.Context) (int, error) { return m.count, m.countErr }

func (m *mockRepo) Create(_ context.Context, n article.New) (article.Article, error) {
	m.created = append(m.created, n)
	return article.Article{ID: int64(len(m.created)), Heading: n.Heading, Content: n.Content, Category: n.Category}, nil
}

func (m *mockRepo) BulkCreate(_ context.Context, items []article.New) (int, error) {
	if m.bulkErr != nil {
		return 0, m.bulkErr
	}
	m.bulk = append(m.bulk, items...)
	return len(items), nil
}

// writeLatin1 encodes content as ISO-8859-1 into a temp file.
func writeLatin1(t *testing.T, content string) string {
	t.Helper()
	encoded, err := charmap.ISO8859_1.NewEncoder().String(content)
	if err != nil {
		t.Fatalf("encode latin1: %v", err)
	}
	path := filepath.Join(t.TempDir(), "articles.csv")
	if err := os.WriteFile(path, []byte(encoded), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}
