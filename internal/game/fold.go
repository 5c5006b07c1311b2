package game

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s and strips diacritics ("Été" -> "ete").
// It is used for comparison only; stored and displayed text keeps its marks.
func Fold(s string) string {
	// transform.Chain is stateful, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// FoldRune folds a single rune. Runes whose folded form is not exactly
// one rune are only lowercased.
func FoldRune(r rune) rune {
	f := Fold(string(r))
	if utf8.RuneCountInString(f) != 1 {
		return unicode.ToLower(r)
	}
	fr, _ := utf8.DecodeRuneInString(f)
	return fr
}

// normalizeLetter validates a raw guess and returns its folded form.
// A guess must be exactly one alphabetic character.
func normalizeLetter(letter string) (rune, bool) {
	if utf8.RuneCountInString(letter) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(letter)
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		return 0, false
	}
	return FoldRune(r), true
}
