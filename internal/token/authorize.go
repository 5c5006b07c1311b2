package token

import "fmt"

// AuthorizeRead allows reading a game owned by owner. Only account tokens may
// read: a scoped token is rejected even for its own game, so the read is the
// single place where account scope is exchanged for game scope.
func AuthorizeRead(c *Claims, owner string) error {
	if c.Scoped() {
		return fmt.Errorf("%w: read requires an account token", ErrUnauthorized)
	}
	return AuthorizeOwner(c, owner)
}

// AuthorizeScope allows play actions only on the game bound into the token.
// It needs no storage lookup, so a mismatch never reveals whether gameID exists.
func AuthorizeScope(c *Claims, gameID string) error {
	if !c.Scoped() || c.GameID != gameID {
		return fmt.Errorf("%w: token is not scoped to game %s", ErrUnauthorized, gameID)
	}
	return nil
}

// AuthorizeOwner requires the bearer to be the game's player.
func AuthorizeOwner(c *Claims, owner string) error {
	if c.Identity() == "" || c.Identity() != owner {
		return fmt.Errorf("%w: game belongs to another player", ErrUnauthorized)
	}
	return nil
}
