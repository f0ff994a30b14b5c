package seed

import (
	"context"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

// articleRepo is the storage the seeder writes to.
type articleRepo interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, n article.New) (article.Article, error)
	BulkCreate(ctx context.Context, items []article.New) (int, error)
}
