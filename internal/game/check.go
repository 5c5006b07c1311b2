package game

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Check asserts the game invariants against the secret word. It does not care
// how g was produced; any failure wraps ErrInvariant.
func Check(g Game, secret string) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: game %s: %s", ErrInvariant, g.ID, fmt.Sprintf(format, args...))
	}

	word := []rune(secret)
	reveal := []rune(g.Reveal)
	if len(reveal) != len(word) {
		return fail("reveal length %d, word length %d", len(reveal), len(word))
	}

	folded := make(map[rune]bool, len(word))
	for _, c := range word {
		folded[FoldRune(c)] = true
	}

	seen := make(map[rune]bool, utf8.RuneCountInString(g.Guessed))
	bad := 0
	for _, l := range g.Guessed {
		if seen[l] {
			return fail("letter %q guessed twice", string(l))
		}
		seen[l] = true
		if !folded[l] {
			bad++
		}
	}
	if bad != g.BadGuesses {
		return fail("bad_guesses is %d, guessed holds %d misses", g.BadGuesses, bad)
	}
	if g.BadGuesses < 0 || g.BadGuesses > MaxBadGuesses {
		return fail("bad_guesses %d out of range", g.BadGuesses)
	}

	for i, c := range word {
		shown := reveal[i] != Blank
		if shown != seen[FoldRune(c)] {
			return fail("reveal position %d out of sync with guessed", i)
		}
		if shown && reveal[i] != c {
			return fail("reveal position %d shows %q, word has %q", i, string(reveal[i]), string(c))
		}
	}

	// A wrong guess never reveals anything, so a lost game always has blanks left.
	if g.BadGuesses == MaxBadGuesses && !strings.ContainsRune(g.Reveal, Blank) && len(word) > 0 {
		return fail("lost game with a fully revealed word")
	}
	if g.Outcome().Terminal() != (g.EndTime != nil) {
		return fail("outcome %s with end_time set=%t", g.Outcome(), g.EndTime != nil)
	}
	return nil
}

// ValidateTransition checks a proposed next state against the prior known state:
// identity fields unchanged, prior outcome active, and Guessed extended by at
// most one letter. It guards against persisting a mutation computed from stale state.
func ValidateTransition(prev, next Game) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: game %s: %s", ErrInvariant, prev.ID, fmt.Sprintf(format, args...))
	}
	if next.ID != prev.ID || next.Player != prev.Player || next.UsageID != prev.UsageID {
		return fail("identity fields changed")
	}
	if prev.Outcome() != OutcomeActive {
		return fail("mutation of %s game", prev.Outcome())
	}
	if !strings.HasPrefix(next.Guessed, prev.Guessed) {
		return fail("guessed %q does not extend %q", next.Guessed, prev.Guessed)
	}
	if grown := utf8.RuneCountInString(next.Guessed) - utf8.RuneCountInString(prev.Guessed); grown > 1 {
		return fail("guessed grew by %d letters", grown)
	}
	return nil
}
