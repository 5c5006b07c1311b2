// internal/token/token.go
//
// Signed capability tokens for the games API.
//
// Two token classes share one claim shape and are told apart by GameID:
//   - account tokens (no game_id) come from register/login and may start games
//     and read games their identity owns;
//   - game-scoped tokens (game_id set) come from starting or reading a game and
//     may guess on or delete exactly that game.
//
// Signature and expiry checks are delegated to golang-jwt (HS256).

package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessPlayer is the only access level issued today.
const AccessPlayer = "player"

// DefaultTTL is how long an issued token stays valid unless configured otherwise.
const DefaultTTL = 24 * time.Hour

var (
	// ErrInvalidToken means the token is missing, malformed, badly signed or expired.
	ErrInvalidToken = errors.New("invalid token")
	// ErrUnauthorized means a valid token does not grant the requested action.
	ErrUnauthorized = errors.New("unauthorized")
)

// Claims are the capability claims carried by every token.
type Claims struct {
	jwt.RegisteredClaims
	Name   string `json:"name"`
	Access string `json:"access"`
	GameID string `json:"game_id,omitempty"`
}

// Identity returns the bearer's identity (the JWT subject).
func (c *Claims) Identity() string { return c.Subject }

// Scoped reports whether the token is bound to a single game.
func (c *Claims) Scoped() bool { return c.GameID != "" }

// Issuer signs and verifies tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl falls back to DefaultTTL and a
// nil now to time.Now.
func NewIssuer(secret string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token: signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Account issues an account token for identity.
func (i *Issuer) Account(identity, name string) (string, error) {
	return i.sign(identity, name, "")
}

// Game issues a token that only authorizes play on gameID.
func (i *Issuer) Game(identity, name, gameID string) (string, error) {
	if gameID == "" {
		return "", errors.New("token: game id is required for a game-scoped token")
	}
	return i.sign(identity, name, gameID)
}

// Rescope exchanges verified claims for a fresh token bound to gameID.
func (i *Issuer) Rescope(c *Claims, gameID string) (string, error) {
	return i.Game(c.Identity(), c.Name, gameID)
}

func (i *Issuer) sign(identity, name, gameID string) (string, error) {
	if identity == "" {
		return "", errors.New("token: identity is required")
	}
	now := i.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Name:   name,
		Access: AccessPlayer,
		GameID: gameID,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return ss, nil
}

// Parse verifies raw and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidToken)
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrInvalidToken)
	}
	return &claims, nil
}
