// internal/store/store.go
//
// Persistence contract for games and player statistics.
//
// Every mutation that changes a game's lifecycle also updates the owning
// player's statistics in the same atomic step:
//   - Create: lazily creates the player, records the start, inserts the game.
//   - Update: runs a read-modify-write on one game; when the game turns
//     terminal the player's end statistics are applied alongside it.
//
// Implementations: memory (this package, process-local) and gorm (SQLite/Postgres).

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/robalobadob/langman/internal/game"
	"github.com/robalobadob/langman/internal/stats"
)

var (
	// ErrNotFound means no game (or player) has the requested id.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a concurrent writer kept winning until retries ran out.
	ErrConflict = errors.New("concurrent update conflict")
)

// DefaultMaxRetries bounds compare-and-swap retries in Update.
const DefaultMaxRetries = 3

// Owner identifies the player a new game belongs to.
type Owner struct {
	ID   string
	Name string
}

// UpdateFunc computes the next state of a game from its current state.
type UpdateFunc func(cur game.Game) (game.Game, error)

// Store defines the persistence interface for games and players.
type Store interface {
	// Create persists a new game and records its start on the owner's stats.
	Create(ctx context.Context, g game.Game, owner Owner, lang string) error

	// Get retrieves a game by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (game.Game, error)

	// Update applies fn to the current state of game id and persists the
	// result. Errors from fn are returned unchanged and nothing is written.
	Update(ctx context.Context, id string, fn UpdateFunc) (game.Game, error)

	// Delete removes a game and reports how many records were removed (0 or 1).
	Delete(ctx context.Context, id string) (int64, error)

	// Player returns a player's statistics, or ErrNotFound.
	Player(ctx context.Context, id string) (stats.Player, error)
}

// step runs fn against cur and checks the transition. ended reports whether
// the game has just become terminal.
func step(cur game.Game, fn UpdateFunc) (next game.Game, ended bool, err error) {
	next, err = fn(cur)
	if err != nil {
		return cur, false, err
	}
	if err := game.ValidateTransition(cur, next); err != nil {
		return cur, false, err
	}
	ended = !cur.Outcome().Terminal() && next.Outcome().Terminal()
	return next, ended, nil
}

// finish applies the end of g to p and re-checks the player's counters.
// Counter failures are reported as game invariant violations.
func finish(p *stats.Player, g game.Game) error {
	if err := p.GameEnded(string(g.Outcome()), g.Elapsed()); err != nil {
		return fmt.Errorf("%w: game %s: %w", game.ErrInvariant, g.ID, err)
	}
	if err := p.Check(); err != nil {
		return fmt.Errorf("%w: game %s: %w", game.ErrInvariant, g.ID, err)
	}
	return nil
}
