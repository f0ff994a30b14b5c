// Package article serves catalog listing and semantic search over articles.
package article

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/newsrec/internal/domain"
	"github.com/kailas-cloud/newsrec/internal/domain/article"
	"github.com/kailas-cloud/newsrec/internal/domain/search/result"
)

// Default page limits.
const (
	DefaultListLimit   = 20
	DefaultMaxList     = 500
	DefaultSearchLimit = 10
	DefaultMaxSearch   = 50
)

// Limits bounds page sizes. Zero fields use the defaults.
type Limits struct {
	DefaultList   int
	MaxList       int
	DefaultSearch int
	MaxSearch     int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultList <= 0 {
		l.DefaultList = DefaultListLimit
	}
	if l.MaxList <= 0 {
		l.MaxList = DefaultMaxList
	}
	if l.DefaultSearch <= 0 {
		l.DefaultSearch = DefaultSearchLimit
	}
	if l.MaxSearch <= 0 {
		l.MaxSearch = DefaultMaxSearch
	}
	return l
}

// Service lists articles and hydrates recommender hits into full articles.
type Service struct {
	repo   articleRepo
	rec    recommender
	limits Limits
}

// New creates an article service.
func New(repo articleRepo, rec recommender, limits Limits) *Service {
	return &Service{repo: repo, rec: rec, limits: limits.withDefaults()}
}

// List returns a page of the catalog. limit 0 uses the default page size.
func (s *Service) List(ctx context.Context, limit, offset int) ([]article.Article, error) {
	limit, err := clamp(limit, s.limits.DefaultList, s.limits.MaxList)
	if err != nil {
		return nil, err
	}
	if offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative: %w", domain.ErrInvalidArgument)
	}

	items, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return items, nil
}

// Search ranks the catalog against query and returns the matching articles
// best first. Hits whose article no longer exists are dropped.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]article.Scored, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", domain.ErrInvalidArgument)
	}
	limit, err := clamp(limit, s.limits.DefaultSearch, s.limits.MaxSearch)
	if err != nil {
		return nil, err
	}

	hits, err := s.rec.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return []article.Scored{}, nil
	}

	byID, err := s.repo.GetByIDs(ctx, result.IDs(hits))
	if err != nil {
		return nil, fmt.Errorf("hydrate results: %w", err)
	}

	out := make([]article.Scored, 0, len(hits))
	for _, h := range hits {
		a, ok := byID[h.ID()]
		if !ok {
			continue
		}
		out = append(out, article.Scored{Article: a, Score: h.Score()})
	}
	return out, nil
}

func clamp(limit, def, maxLimit int) (int, error) {
	switch {
	case limit < 0:
		return 0, fmt.Errorf("limit must be non-negative: %w", domain.ErrInvalidArgument)
	case limit == 0:
		return def, nil
	case limit > maxLimit:
		return maxLimit, nil
	default:
		return limit, nil
	}
}
