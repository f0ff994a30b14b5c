package article

import (
	"context"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
	"github.com/kailas-cloud/newsrec/internal/domain/search/result"
)

// articleRepo reads the catalog.
type articleRepo interface {
	List(ctx context.Context, limit, offset int) ([]article.Article, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]article.Article, error)
}

// recommender answers similarity queries.
type recommender interface {
	Query(ctx context.Context, text string, k int) ([]result.Result, error)
}
