// Package sqldb opens the relational article catalog over database/sql.
// Postgres is reached through pgx, SQLite through the pure-Go modernc driver.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/kailas-cloud/newsrec/internal/db"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds connection settings.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB is a *sql.DB that knows its dialect.
type DB struct {
	*sql.DB
	driver string
}

// Open connects to the configured database. It does not wait for the server;
// call WaitForReady for that.
func Open(cfg Config) (*DB, error) {
	var sqlDriver string
	switch cfg.Driver {
	case DriverPostgres:
		sqlDriver = "pgx"
	case DriverSQLite:
		sqlDriver = "sqlite"
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dsn is required")
	}

	conn, err := sql.Open(sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == DriverSQLite {
		// One connection: SQLite has a single writer, and ":memory:" databases
		// are private to the connection that created them.
		conn.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &DB{DB: conn, driver: cfg.Driver}, nil
}

// Driver returns the configured driver name.
func (d *DB) Driver() string { return d.driver }

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpPing, Err: err}
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (d *DB) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := d.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Rebind rewrites "?" placeholders into the dialect's form ($1, $2, ... for Postgres).
func (d *DB) Rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Migrate creates the article table when it does not exist.
func (d *DB) Migrate(ctx context.Context) error {
	ddl := sqliteSchema
	if d.driver == DriverPostgres {
		ddl = postgresSchema
	}
	if _, err := d.ExecContext(ctx, ddl); err != nil {
		return &db.Error{Op: db.OpMigrate, Err: err}
	}
	return nil
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id        BIGSERIAL PRIMARY KEY,
	heading   TEXT NOT NULL,
	content   TEXT NOT NULL,
	news_type TEXT NOT NULL
)`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	heading   TEXT NOT NULL,
	content   TEXT NOT NULL,
	news_type TEXT NOT NULL
)`
