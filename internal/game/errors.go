package game

import "errors"

// Game error kinds. Callers match them with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidLanguage = errors.New("invalid language")
	ErrGameOver        = errors.New("game is over")
	ErrDuplicateGuess  = errors.New("letter already guessed")

	// ErrInvariant means the engine produced a state that breaks the game
	// invariants. It is always a bug, never a user error.
	ErrInvariant = errors.New("internal invariant violation")
)
