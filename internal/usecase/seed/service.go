// Package seed loads the initial article catalog from a CSV export.
package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/kailas-cloud/newsrec/internal/domain/article"
)

// DefaultLimit caps the number of rows imported from the CSV.
const DefaultLimit = 500

// CSV header columns.
const (
	colHeading  = "Heading"
	colContent  = "Article"
	colCategory = "NewsType"
)

// Fallback is inserted when the CSV file does not exist.
var Fallback = article.New{
	Heading:  "Asian market upswing",
	Content:  "Asian markets showed strong growth today led by tech sector...",
	Category: "Business",
}

// Outcome reports what a seeding run did.
type Outcome struct {
	AlreadySeeded bool
	UsedFallback  bool
	Inserted      int
	Skipped       int
}

// Service seeds an empty catalog.
type Service struct {
	repo    articleRepo
	csvPath string
	limit   int
	logger  *zap.Logger
}

// New creates a seeder. limit <= 0 uses DefaultLimit.
func New(repo articleRepo, csvPath string, limit int, logger *zap.Logger) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, csvPath: csvPath, limit: limit, logger: logger}
}

// Seed imports the CSV into an empty catalog. A non-empty catalog is left
// untouched. A missing file inserts the Fallback article.
func (s *Service) Seed(ctx context.Context) (Outcome, error) {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return Outcome{}, fmt.Errorf("count articles: %w", err)
	}
	if count > 0 {
		s.logger.Info("Catalog already seeded", zap.Int("articles", count))
		return Outcome{AlreadySeeded: true}, nil
	}

	f, err := os.Open(s.csvPath)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("CSV file not found, inserting fallback article", zap.String("path", s.csvPath))
		if _, err := s.repo.Create(ctx, Fallback); err != nil {
			return Outcome{}, fmt.Errorf("insert fallback article: %w", err)
		}
		return Outcome{UsedFallback: true, Inserted: 1}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	items, skipped, err := ParseCSV(f, s.limit)
	if err != nil {
		return Outcome{}, err
	}

	n, err := s.repo.BulkCreate(ctx, items)
	if err != nil {
		return Outcome{}, fmt.Errorf("bulk insert: %w", err)
	}

	s.logger.Info("Seeded articles from CSV",
		zap.String("path", s.csvPath),
		zap.Int("inserted", n),
		zap.Int("skipped", skipped),
	)
	return Outcome{Inserted: n, Skipped: skipped}, nil
}

// ParseCSV reads a Latin-1 encoded CSV with a Heading, Article and NewsType
// header. Fields are trimmed; rows missing any of the three are skipped.
// At most limit rows are returned (limit <= 0 means no cap).
func ParseCSV(r io.Reader, limit int) (items []article.New, skipped int, err error) {
	cr := csv.NewReader(charmap.ISO8859_1.NewDecoder().Reader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("read csv header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{colHeading, colContent, colCategory} {
		if _, ok := cols[name]; !ok {
			return nil, 0, fmt.Errorf("csv header is missing column %q", name)
		}
	}

	field := func(rec []string, name string) string {
		i := cols[name]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	for limit <= 0 || len(items) < limit {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv: %w", err)
		}

		n := article.New{
			Heading:  field(rec, colHeading),
			Content:  field(rec, colContent),
			Category: field(rec, colCategory),
		}
		if n.Heading == "" || n.Content == "" || n.Category == "" {
			skipped++
			continue
		}
		items = append(items, n)
	}

	return items, skipped, nil
}
