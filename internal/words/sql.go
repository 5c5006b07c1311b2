package words

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/langman/internal/sqldb"
)

//go:embed sql/*.sql
var migrations embed.FS

// SQLBank reads the usages table.
type SQLBank struct {
	db *sqldb.DB
}

// NewSQLBank migrates the usages table and returns a Bank over it.
func NewSQLBank(ctx context.Context, db *sqldb.DB) (*SQLBank, error) {
	sub, err := fs.Sub(migrations, "sql")
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, sub, "usages"); err != nil {
		return nil, fmt.Errorf("migrate usages: %w", err)
	}
	return &SQLBank{db: db}, nil
}

// Seed inserts usages when the table is empty. It reports how many rows were
// written; a populated table is left alone.
func (b *SQLBank) Seed(ctx context.Context, usages []Usage) (int, error) {
	var n int
	if err := b.db.SQL.QueryRowContext(ctx, `SELECT COUNT(1) FROM usages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count usages: %w", err)
	}
	if n > 0 {
		log.Debug().Int("usages", n).Msg("phrase bank already seeded")
		return 0, nil
	}

	tx, err := b.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, b.db.Rebind(
		`INSERT INTO usages (usage_id, language, secret_word, usage, source) VALUES (?,?,?,?,?)`))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, u := range usages {
		if err := u.Validate(); err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, u.ID, u.Language, u.SecretWord, u.Template, u.Source); err != nil {
			return 0, fmt.Errorf("insert usage %d: %w", u.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	log.Info().Int("usages", len(usages)).Msg("phrase bank seeded")
	return len(usages), nil
}

// Random selects uniformly among rows tagged lang.
func (b *SQLBank) Random(ctx context.Context, lang string) (Usage, error) {
	row := b.db.SQL.QueryRowContext(ctx, b.db.Rebind(
		`SELECT usage_id, language, secret_word, usage, COALESCE(source,'')
		 FROM usages WHERE language=? ORDER BY RANDOM() LIMIT 1`), lang)
	u, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Usage{}, fmt.Errorf("%w: %s", ErrEmpty, lang)
	}
	return u, err
}

// Get loads one row by id.
func (b *SQLBank) Get(ctx context.Context, id int64) (Usage, error) {
	row := b.db.SQL.QueryRowContext(ctx, b.db.Rebind(
		`SELECT usage_id, language, secret_word, usage, COALESCE(source,'')
		 FROM usages WHERE usage_id=?`), id)
	u, err := scanUsage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Usage{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return u, err
}

func scanUsage(row *sql.Row) (Usage, error) {
	var u Usage
	if err := row.Scan(&u.ID, &u.Language, &u.SecretWord, &u.Template, &u.Source); err != nil {
		return Usage{}, err
	}
	return u, nil
}
