package recommend

import (
	"context"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

// Source returns the full current article set. The service treats each call
// as a snapshot.
type Source interface {
	All(ctx context.Context) ([]article.Article, error)
}
