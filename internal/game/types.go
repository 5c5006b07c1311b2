// internal/game/types.go
//
// Core type definitions for the hangman game engine.
// Defines:
//   - Outcome: derived classification of a game (active/won/lost).
//   - Game: persisted state for a single game.
//   - View: what a caller is allowed to see of a game.

package game

import "time"

// Outcome is the in-progress or terminal classification of a game.
// It is always derived from BadGuesses and Reveal, never stored.
type Outcome string

const (
	OutcomeActive Outcome = "active"
	OutcomeWon    Outcome = "won"
	OutcomeLost   Outcome = "lost"
)

// Terminal reports whether no further guesses are accepted.
func (o Outcome) Terminal() bool { return o == OutcomeWon || o == OutcomeLost }

const (
	// MaxBadGuesses is the number of wrong guesses that loses a game.
	MaxBadGuesses = 6

	// Blank marks an unrevealed position in Game.Reveal.
	Blank = '_'
)

// Game holds the state of a single hangman game.
type Game struct {
	ID         string     // UUID, immutable.
	Player     string     // Owning identity, immutable.
	UsageID    int64      // Phrase bank reference, immutable. Never the word itself.
	Guessed    string     // Distinct folded lowercase letters in guess order.
	Reveal     string     // Same rune length as the secret word; Blank where hidden.
	BadGuesses int        // Wrong guesses so far, 0..MaxBadGuesses.
	StartTime  time.Time  // Set at creation.
	EndTime    *time.Time // Set when the outcome becomes terminal.
}

// Outcome derives the game's outcome from its bad-guess count and reveal.
func (g Game) Outcome() Outcome {
	switch {
	case g.BadGuesses >= MaxBadGuesses:
		return OutcomeLost
	case !containsBlank(g.Reveal):
		return OutcomeWon
	default:
		return OutcomeActive
	}
}

// View is the caller-facing rendering of a game.
// SecretWord is only populated once the outcome is terminal.
type View struct {
	GameID     string     `json:"game_id"`
	Player     string     `json:"player"`
	UsageID    int64      `json:"usage_id"`
	Guessed    string     `json:"guessed"`
	RevealWord string     `json:"reveal_word"`
	BadGuesses int        `json:"bad_guesses"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time"`
	Result     Outcome    `json:"result"`
	Usage      string     `json:"usage"`
	Lang       string     `json:"lang"`
	Source     string     `json:"source"`
	SecretWord string     `json:"secret_word,omitempty"`
}

func containsBlank(s string) bool {
	for _, r := range s {
		if r == Blank {
			return true
		}
	}
	return false
}
