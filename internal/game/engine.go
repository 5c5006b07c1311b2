// internal/game/engine.go
//
// Core game engine for a single hangman game.
// Responsibilities:
//   - Create new games with an all-blank reveal for the chosen secret word.
//   - Validate and apply single-letter guesses with diacritic folding.
//   - Track state transitions: active → won/lost (both terminal).
//   - Render caller views, exposing the secret word only after the game ends.
//
// Notes:
//   - The secret word is never stored on Game; callers pass it in from the phrase bank.
//   - Guess works on a copy and returns the next state, so a rejected guess never
//     leaves a partially mutated game behind.
package game

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// New constructs an active game for player against the given phrase bank entry.
func New(player string, usageID int64, secret string, now time.Time) Game {
	return Game{
		ID:        uuid.NewString(),
		Player:    player,
		UsageID:   usageID,
		Reveal:    strings.Repeat(string(Blank), utf8.RuneCountInString(secret)),
		StartTime: now,
	}
}

// Guess validates letter against g and returns the resulting state.
//
// Preconditions, in order:
//   - the game must still be active (ErrGameOver)
//   - letter must be exactly one alphabetic character (ErrInvalidInput)
//   - its folded form must not have been guessed already (ErrDuplicateGuess)
//
// Every secret-word position whose folded character equals the folded letter is
// revealed with the original character; if none match, BadGuesses grows by one.
// When the outcome turns terminal EndTime is stamped with now.
func (g Game) Guess(secret, letter string, now time.Time) (Game, error) {
	if g.Outcome() != OutcomeActive {
		return g, fmt.Errorf("%w: game %s", ErrGameOver, g.ID)
	}
	l, ok := normalizeLetter(letter)
	if !ok {
		return g, fmt.Errorf("%w: guess must be one alphabetic character", ErrInvalidInput)
	}
	if strings.ContainsRune(g.Guessed, l) {
		return g, fmt.Errorf("%w: %q", ErrDuplicateGuess, string(l))
	}

	next := g
	next.Guessed = g.Guessed + string(l)

	reveal := []rune(g.Reveal)
	hit := false
	for i, c := range []rune(secret) {
		if i < len(reveal) && FoldRune(c) == l {
			reveal[i] = c
			hit = true
		}
	}
	next.Reveal = string(reveal)
	if !hit {
		next.BadGuesses++
	}

	if next.Outcome().Terminal() {
		end := now
		next.EndTime = &end
	}

	if err := Check(next, secret); err != nil {
		return g, err
	}
	return next, nil
}

// Elapsed returns the play duration of a terminal game, or zero while active.
func (g Game) Elapsed() time.Duration {
	if g.EndTime == nil {
		return 0
	}
	return g.EndTime.Sub(g.StartTime)
}

// Render builds the caller view of g. usage is the blanked sentence template,
// lang and source come from the phrase bank entry. secret is only copied into
// the view once the game is over.
func (g Game) Render(secret, usage, lang, source string) View {
	v := View{
		GameID:     g.ID,
		Player:     g.Player,
		UsageID:    g.UsageID,
		Guessed:    g.Guessed,
		RevealWord: g.Reveal,
		BadGuesses: g.BadGuesses,
		StartTime:  g.StartTime,
		EndTime:    g.EndTime,
		Result:     g.Outcome(),
		Usage:      usage,
		Lang:       lang,
		Source:     source,
	}
	if v.Result.Terminal() {
		v.SecretWord = secret
	}
	return v
}
