package auth

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/robalobadob/langman/internal/sqldb"
)

//go:embed sql/*.sql
var migrations embed.FS

// Store persists accounts in the users table.
type Store struct {
	db *sqldb.DB
}

// NewStore migrates the users table and returns a Store over it.
func NewStore(ctx context.Context, db *sqldb.DB) (*Store, error) {
	sub, err := fs.Sub(migrations, "sql")
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, sub, "auth"); err != nil {
		return nil, fmt.Errorf("migrate users: %w", err)
	}
	return &Store{db: db}, nil
}

// Insert adds a, failing with ErrUsernameTaken if the username (compared
// case-insensitively) or identity already exists.
func (s *Store) Insert(ctx context.Context, a Account) error {
	tx, err := s.db.SQL.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, s.db.Rebind(
		`SELECT 1 FROM users WHERE lower(username)=lower(?) OR user_id=?`), a.Username, a.ID).Scan(&exists)
	switch {
	case err == nil:
		return ErrUsernameTaken
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("check username: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (user_id, username, password_hash, created_at) VALUES (?,?,?,?)`),
		a.ID, a.Username, a.PasswordHash, a.CreatedAt.Format(time.RFC3339)); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return tx.Commit()
}

// ByUsername loads an account, or ErrNoAccount.
func (s *Store) ByUsername(ctx context.Context, username string) (Account, error) {
	row := s.db.SQL.QueryRowContext(ctx, s.db.Rebind(
		`SELECT user_id, username, password_hash, created_at FROM users WHERE lower(username)=lower(?)`), username)
	return scanAccount(row)
}

// ByID loads an account, or ErrNoAccount.
func (s *Store) ByID(ctx context.Context, id string) (Account, error) {
	row := s.db.SQL.QueryRowContext(ctx, s.db.Rebind(
		`SELECT user_id, username, password_hash, created_at FROM users WHERE user_id=?`), id)
	return scanAccount(row)
}

// Delete removes the account with identity id and reports rows removed.
func (s *Store) Delete(ctx context.Context, id string) (int64, error) {
	res, err := s.db.SQL.ExecContext(ctx, s.db.Rebind(`DELETE FROM users WHERE user_id=?`), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanAccount(row *sql.Row) (Account, error) {
	var a Account
	var created string
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNoAccount
		}
		return Account{}, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Account{}, fmt.Errorf("account %s: created_at: %w", a.ID, err)
	}
	a.CreatedAt = t
	return a, nil
}
