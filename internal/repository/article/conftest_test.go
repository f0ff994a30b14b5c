package article

import (
	"context"
	"testing"

	"github.com/kailas-cloud/newsrec/internal/db/sqldb"
	domarticle "github.com/kailas-cloud/newsrec/internal/domain/article"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	d, err := sqldb.Open(sqldb.Config{Driver: sqldb.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(d)
}

func seed(t *testing.T, r *Repo, items ...domarticle.New) {
	t.Helper()
	if _, err := r.BulkCreate(context.Background(), items); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

var (
	markets = domarticle.New{Heading: "Asian markets rally", Content: "Stocks in Tokyo rose.", Category: "business"}
	cricket = domarticle.New{Heading: "Cricket final", Content: "Pakistan won by six wickets.", Category: "sports"}
	oil     = domarticle.New{Heading: "Oil prices slip", Content: "Brent fell below $80.", Category: "business"}
)
