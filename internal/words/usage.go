// internal/words/usage.go
//
// Phrase bank entries: a secret word, the sentence it was taken from with the
// word marked by {word}, the source text and the language.

package words

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Placeholder marks the secret word's position in a usage template.
const Placeholder = "{word}"

// MaxWordLength bounds secret words, in runes.
const MaxWordLength = 25

// Languages lists the supported language codes.
var Languages = []string{"en", "es", "fr"}

var (
	// ErrNotFound means no entry has the requested id.
	ErrNotFound = errors.New("usage not found")
	// ErrEmpty means a supported language has no entries to draw from.
	ErrEmpty = errors.New("no usages for language")
	// ErrInvalidUsage reports a malformed phrase bank entry.
	ErrInvalidUsage = errors.New("invalid usage")
)

// Usage is one phrase bank entry.
type Usage struct {
	ID         int64
	Language   string
	SecretWord string
	Template   string
	Source     string
}

// IsSupported reports whether lang is one of Languages.
func IsSupported(lang string) bool {
	for _, l := range Languages {
		if l == lang {
			return true
		}
	}
	return false
}

// Blanked renders the template with one '_' per secret-word rune.
func (u Usage) Blanked() string {
	return strings.Replace(u.Template, Placeholder, strings.Repeat("_", utf8.RuneCountInString(u.SecretWord)), 1)
}

// Validate checks the entry's shape.
func (u Usage) Validate() error {
	if !IsSupported(u.Language) {
		return fmt.Errorf("%w: language %q", ErrInvalidUsage, u.Language)
	}
	n := utf8.RuneCountInString(u.SecretWord)
	if n == 0 || n > MaxWordLength {
		return fmt.Errorf("%w: word %q must be 1-%d letters", ErrInvalidUsage, u.SecretWord, MaxWordLength)
	}
	for _, r := range u.SecretWord {
		if !unicode.IsLetter(r) {
			return fmt.Errorf("%w: word %q must be letters only", ErrInvalidUsage, u.SecretWord)
		}
	}
	if c := strings.Count(u.Template, Placeholder); c != 1 {
		return fmt.Errorf("%w: template must contain %s exactly once, found %d", ErrInvalidUsage, Placeholder, c)
	}
	return nil
}
