// Package article persists the news catalog in a relational database.
package article

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/newsrec/internal/db"
	"github.com/kailas-cloud/newsrec/internal/db/sqldb"
	domarticle "github.com/kailas-cloud/newsrec/internal/domain/article"
)

const selectColumns = "SELECT id, heading, content, news_type FROM articles"

// bulkChunk bounds placeholders per INSERT (3 per row) under SQLite's and
// Postgres' parameter limits.
const bulkChunk = 300

// Repo reads and writes articles.
type Repo struct {
	db *sqldb.DB
}

// New creates an article repository.
func New(d *sqldb.DB) *Repo {
	return &Repo{db: d}
}

// All returns every article ordered by id.
func (r *Repo) All(ctx context.Context) ([]domarticle.Article, error) {
	return r.query(ctx, selectColumns+" ORDER BY id")
}

// List returns a page of articles ordered by id.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]domarticle.Article, error) {
	return r.query(ctx, selectColumns+" ORDER BY id LIMIT ? OFFSET ?", limit, offset)
}

// GetByIDs returns the articles with the given ids, keyed by id. Unknown ids are absent.
func (r *Repo) GetByIDs(ctx context.Context, ids []int64) (map[int64]domarticle.Article, error) {
	out := make(map[int64]domarticle.Article, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	q := selectColumns + " WHERE id IN (" + placeholders(len(ids)) + ")"

	list, err := r.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}

// Count returns the number of stored articles.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpSelect, Err: err}
	}
	return n, nil
}

// Create inserts one article and returns it with its assigned id.
func (r *Repo) Create(ctx context.Context, n domarticle.New) (domarticle.Article, error) {
	var id int64
	q := r.db.Rebind("INSERT INTO articles (heading, content, news_type) VALUES (?, ?, ?) RETURNING id")
	err := r.db.QueryRowContext(ctx, q, n.Heading, n.Content, n.Category).Scan(&id)
	if err != nil {
		return domarticle.Article{}, &db.Error{Op: db.OpInsert, Err: err}
	}
	return domarticle.Article{ID: id, Heading: n.Heading, Content: n.Content, Category: n.Category}, nil
}

// BulkCreate inserts all articles in a single transaction.
func (r *Repo) BulkCreate(ctx context.Context, items []domarticle.New) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: fmt.Errorf("begin: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(items); start += bulkChunk {
		chunk := items[start:min(start+bulkChunk, len(items))]

		values := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*3)
		for i, n := range chunk {
			values[i] = "(?, ?, ?)"
			args = append(args, n.Heading, n.Content, n.Category)
		}
		q := r.db.Rebind("INSERT INTO articles (heading, content, news_type) VALUES " + strings.Join(values, ", "))
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return 0, &db.Error{Op: db.OpInsert, Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &db.Error{Op: db.OpInsert, Err: fmt.Errorf("commit: %w", err)}
	}
	return len(items), nil
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]domarticle.Article, error) {
	rows, err := r.db.QueryContext(ctx, r.db.Rebind(q), args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	defer rows.Close()

	out := make([]domarticle.Article, 0)
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, &db.Error{Op: db.OpSelect, Err: err}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelect, Err: err}
	}
	return out, nil
}

func scan(rows *sql.Rows) (domarticle.Article, error) {
	var a domarticle.Article
	err := rows.Scan(&a.ID, &a.Heading, &a.Content, &a.Category)
	return a, err //nolint:wrapcheck // wrapped by caller
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
