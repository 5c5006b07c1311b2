// internal/sqldb/sqldb.go
//
// database/sql helpers shared by the phrase bank and account stores.
// Responsibilities:
//   - Opening SQLite (mattn/go-sqlite3) or Postgres (lib/pq) handles with safe defaults.
//   - Applying embedded migrations, each recorded once in _migrations.
//   - Rebinding '?' placeholders for drivers that use $n.

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// DB pairs a handle with the driver it was opened with.
type DB struct {
	SQL    *sql.DB
	Driver string
}

// Open opens (and for SQLite files, creates) a database.
//
// SQLite handles get a busy timeout, WAL journaling and foreign keys; in-memory
// DSNs are pinned to a single connection so every query sees the same database.
func Open(driver, dsn string) (*DB, error) {
	switch driver {
	case "", "sqlite", DriverSQLite:
		return openSQLite(dsn)
	case DriverPostgres, "postgresql":
		db, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &DB{SQL: db, Driver: DriverPostgres}, nil
	default:
		return nil, fmt.Errorf("sqldb: unsupported driver %q", driver)
	}
}

func openSQLite(dsn string) (*DB, error) {
	memory := strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
	if !memory {
		// Ensure directory exists for ./data/app.db, etc.
		dir := filepath.Dir(dsn)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	db, err := sql.Open(DriverSQLite, dsn+sep+"_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	return &DB{SQL: db, Driver: DriverSQLite}, nil
}

// Close releases the handle.
func (d *DB) Close() error { return d.SQL.Close() }

// Rebind rewrites '?' placeholders to $1..$n for Postgres.
func (d *DB) Rebind(query string) string {
	if d.Driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Migrate applies every *.sql file in fsys, in lexical order, that has not been
// recorded yet. Names are recorded as prefix/file so several packages can
// migrate the same database.
func (d *DB) Migrate(ctx context.Context, fsys fs.FS, prefix string) error {
	if _, err := d.SQL.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	files, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		name := prefix + "/" + f

		var done int
		err := d.SQL.QueryRowContext(ctx, d.Rebind(`SELECT 1 FROM _migrations WHERE name=?`), name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := fs.ReadFile(fsys, f)
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}

		tx, err := d.SQL.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(body)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, d.Rebind(`INSERT INTO _migrations(name) VALUES (?)`), name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", name, err)
		}
		log.Info().Str("migration", name).Msg("applied")
	}
	return nil
}
