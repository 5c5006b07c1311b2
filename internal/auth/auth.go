// internal/auth/auth.go
//
// Player accounts: registration, login and removal.
// Responsibilities:
//   - Validate usernames/passwords and hash passwords with bcrypt.
//   - Derive a stable identity from the username (name-based UUID).
//   - Issue account tokens on register/login.
//
// Account records live in the users table (see store.go); game statistics are
// owned by the game store and are not touched here.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/langman/internal/sqldb"
	"github.com/robalobadob/langman/internal/token"
)

var (
	// ErrInvalidAccount means the username or password breaks the signup rules.
	ErrInvalidAccount = errors.New("invalid account details")
	// ErrUsernameTaken means another account already uses the username.
	ErrUsernameTaken = errors.New("username is already registered")
	// ErrInvalidCredentials means login failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoAccount means the bearer's account does not exist (any more).
	ErrNoAccount = errors.New("account not available")
)

// Account is a stored user record.
type Account struct {
	ID           string    `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Service manages accounts and issues account tokens.
type Service struct {
	accounts *Store
	tokens   *token.Issuer
	log      zerolog.Logger
	now      func() time.Time
}

// New migrates the users table on db and returns a Service.
func New(ctx context.Context, db *sqldb.DB, tokens *token.Issuer, logger zerolog.Logger) (*Service, error) {
	st, err := NewStore(ctx, db)
	if err != nil {
		return nil, err
	}
	return &Service{accounts: st, tokens: tokens, log: logger, now: time.Now}, nil
}

// IdentityFor returns the identity assigned to username.
func IdentityFor(username string) string {
	return uuid.NewMD5(uuid.NameSpaceURL, []byte(username)).String()
}

// Register creates an account and returns an account token for it.
func (s *Service) Register(ctx context.Context, username, password string) (string, error) {
	username = normalizeUsername(username)
	if err := validateSignup(username, password); err != nil {
		return "", err
	}
	h, err := hashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	a := Account{
		ID:           IdentityFor(username),
		Username:     username,
		PasswordHash: h,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Insert(ctx, a); err != nil {
		return "", err
	}
	s.log.Info().Str("user", a.ID).Msg("account registered")
	return s.tokens.Account(a.ID, a.Username)
}

// Login checks credentials and returns a new account token.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	a, err := s.accounts.ByUsername(ctx, normalizeUsername(username))
	if errors.Is(err, ErrNoAccount) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if !checkPassword(a.PasswordHash, password) {
		return "", ErrInvalidCredentials
	}
	return s.tokens.Account(a.ID, a.Username)
}

// Whoami describes the bearer of c.
type Whoami struct {
	LoggedInAs string     `json:"logged_in_as"`
	UserClaims UserClaims `json:"user_claims"`
}

// UserClaims are the non-registered claims of a token.
type UserClaims struct {
	Access string `json:"access"`
	Name   string `json:"name"`
	GameID string `json:"game_id,omitempty"`
}

// Whoami reports the token's identity and claims, failing with ErrNoAccount
// once the account has been deleted.
func (s *Service) Whoami(ctx context.Context, c *token.Claims) (Whoami, error) {
	if _, err := s.accounts.ByID(ctx, c.Identity()); err != nil {
		return Whoami{}, err
	}
	return Whoami{
		LoggedInAs: c.Identity(),
		UserClaims: UserClaims{Access: c.Access, Name: c.Name, GameID: c.GameID},
	}, nil
}

// Delete removes the account with identity id.
func (s *Service) Delete(ctx context.Context, id string) error {
	n, err := s.accounts.Delete(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoAccount
	}
	s.log.Info().Str("user", id).Msg("account deleted")
	return nil
}

func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

func validateSignup(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return fmt.Errorf("%w: username must be 3-24 chars", ErrInvalidAccount)
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: username: letters, numbers, underscore only", ErrInvalidAccount)
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return fmt.Errorf("%w: password must be 8-72 chars", ErrInvalidAccount)
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
