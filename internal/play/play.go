// internal/play/play.go
//
// Game operations as seen by an authenticated caller.
// Responsibilities:
//   - Start: pick a phrase bank entry, create the game and its player stats,
//     hand back a token scoped to the new game.
//   - Read: render a game for its owner and exchange the account token for a
//     game-scoped one.
//   - Guess/Delete: act on exactly the game bound into a scoped token.
//   - Stats: report the caller's aggregated player statistics.
//
// Every operation takes the verified token claims explicitly; nothing is read
// from request-global state.

package play

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/langman/internal/game"
	"github.com/robalobadob/langman/internal/metrics"
	"github.com/robalobadob/langman/internal/stats"
	"github.com/robalobadob/langman/internal/store"
	"github.com/robalobadob/langman/internal/token"
	"github.com/robalobadob/langman/internal/words"
)

// Service runs game operations against a store and a phrase bank.
type Service struct {
	store   store.Store
	bank    words.Bank
	tokens  *token.Issuer
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithMetrics records game activity on m.
func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// New returns a Service.
func New(st store.Store, bank words.Bank, tokens *token.Issuer, opts ...Option) *Service {
	s := &Service{
		store:  st,
		bank:   bank,
		tokens: tokens,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Started is the result of Start.
type Started struct {
	GameID      string `json:"game_id"`
	AccessToken string `json:"access_token"`
}

// Game is a rendered game plus a fresh token scoped to it.
type Game struct {
	game.View
	AccessToken string `json:"access_token"`
}

// Start begins a new game in lang for the bearer of c.
func (s *Service) Start(ctx context.Context, c *token.Claims, lang string) (Started, error) {
	if !words.IsSupported(lang) {
		return Started{}, fmt.Errorf("%w: %q", game.ErrInvalidLanguage, lang)
	}
	u, err := s.bank.Random(ctx, lang)
	if err != nil {
		return Started{}, fmt.Errorf("pick usage: %w", err)
	}

	g := game.New(c.Identity(), u.ID, u.SecretWord, s.now().UTC())
	if err := game.Check(g, u.SecretWord); err != nil {
		s.metrics.InvariantViolation()
		s.log.Error().Err(err).Int64("usageId", u.ID).Msg("new game failed invariant check")
		return Started{}, err
	}
	if err := s.store.Create(ctx, g, store.Owner{ID: c.Identity(), Name: c.Name}, lang); err != nil {
		return Started{}, fmt.Errorf("create game: %w", err)
	}
	s.metrics.GameStarted(lang)

	tok, err := s.tokens.Rescope(c, g.ID)
	if err != nil {
		return Started{}, err
	}
	s.log.Info().Str("gameId", g.ID).Str("player", g.Player).Str("lang", lang).Msg("game started")
	return Started{GameID: g.ID, AccessToken: tok}, nil
}

// Read renders game id for its owner. Only account tokens may read; a scoped
// token is turned away before the lookup, so its answer never depends on whether id exists.
func (s *Service) Read(ctx context.Context, c *token.Claims, id string) (Game, error) {
	if c.Scoped() {
		return Game{}, fmt.Errorf("%w: read requires an account token", token.ErrUnauthorized)
	}
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return Game{}, err
	}
	if err := token.AuthorizeRead(c, g.Player); err != nil {
		return Game{}, err
	}
	u, err := s.usage(ctx, g)
	if err != nil {
		return Game{}, err
	}
	tok, err := s.tokens.Rescope(c, g.ID)
	if err != nil {
		return Game{}, err
	}
	return Game{
		View:        g.Render(u.SecretWord, u.Blanked(), u.Language, u.Source),
		AccessToken: tok,
	}, nil
}

// Guess applies letter to game id.
func (s *Service) Guess(ctx context.Context, c *token.Claims, id, letter string) (game.View, error) {
	if err := token.AuthorizeScope(c, id); err != nil {
		return game.View{}, err
	}
	g, err := s.store.Get(ctx, id)
	if err != nil {
		return game.View{}, err
	}
	if err := token.AuthorizeOwner(c, g.Player); err != nil {
		return game.View{}, err
	}
	u, err := s.usage(ctx, g)
	if err != nil {
		return game.View{}, err
	}

	var prev game.Game
	next, err := s.store.Update(ctx, id, func(cur game.Game) (game.Game, error) {
		if err := token.AuthorizeOwner(c, cur.Player); err != nil {
			return cur, err
		}
		prev = cur
		return cur.Guess(u.SecretWord, letter, s.now().UTC())
	})
	if err != nil {
		s.rejected(id, err)
		return game.View{}, err
	}

	if next.BadGuesses > prev.BadGuesses {
		s.metrics.Guess(metrics.GuessMiss)
	} else {
		s.metrics.Guess(metrics.GuessHit)
	}
	if outcome := next.Outcome(); outcome.Terminal() {
		s.metrics.GameFinished(string(outcome))
		s.log.Info().Str("gameId", id).Str("result", string(outcome)).Dur("elapsed", next.Elapsed()).Msg("game finished")
	}
	return next.Render(u.SecretWord, u.Blanked(), u.Language, u.Source), nil
}

// Delete removes game id and reports how many games were removed (0 or 1).
// Deleting a game that does not exist is not an error.
func (s *Service) Delete(ctx context.Context, c *token.Claims, id string) (int64, error) {
	if err := token.AuthorizeScope(c, id); err != nil {
		return 0, err
	}
	g, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := token.AuthorizeOwner(c, g.Player); err != nil {
		return 0, err
	}
	n, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	s.log.Info().Str("gameId", id).Int64("deleted", n).Msg("game deleted")
	return n, nil
}

// Stats returns the bearer's player statistics.
func (s *Service) Stats(ctx context.Context, c *token.Claims) (stats.Player, error) {
	return s.store.Player(ctx, c.Identity())
}

func (s *Service) usage(ctx context.Context, g game.Game) (words.Usage, error) {
	u, err := s.bank.Get(ctx, g.UsageID)
	if err != nil {
		return words.Usage{}, fmt.Errorf("usage %d of game %s: %w", g.UsageID, g.ID, err)
	}
	return u, nil
}

// rejected accounts for a guess that was not applied.
func (s *Service) rejected(id string, err error) {
	if errors.Is(err, game.ErrInvariant) {
		s.metrics.InvariantViolation()
		s.log.Error().Err(err).Str("gameId", id).Msg("game invariant violated")
		return
	}
	s.metrics.Guess(metrics.GuessRejected)
}
