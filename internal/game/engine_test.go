package game

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func mustGuess(t *testing.T, g Game, secret, letter string) Game {
	t.Helper()
	next, err := g.Guess(secret, letter, testNow)
	if err != nil {
		t.Fatalf("guess %q: %v", letter, err)
	}
	return next
}

func TestNew(t *testing.T) {
	g := New("player-1", 7, "hello", testNow)
	if g.ID == "" {
		t.Fatal("expected a game id")
	}
	if g.Reveal != "_____" {
		t.Fatalf("expected all blanks, got %q", g.Reveal)
	}
	if g.BadGuesses != 0 || g.Guessed != "" || g.EndTime != nil {
		t.Fatalf("unexpected initial state: %+v", g)
	}
	if g.Outcome() != OutcomeActive {
		t.Fatalf("expected active, got %s", g.Outcome())
	}
	if err := Check(g, "hello"); err != nil {
		t.Fatalf("fresh game fails check: %v", err)
	}
	if other := New("player-1", 7, "hello", testNow); other.ID == g.ID {
		t.Fatal("expected distinct game ids")
	}
}

func TestNewCountsRunesNotBytes(t *testing.T) {
	g := New("p", 1, "été", testNow)
	if g.Reveal != "___" {
		t.Fatalf("expected three blanks, got %q", g.Reveal)
	}
}

func TestGuessHitRevealsAllPositions(t *testing.T) {
	g := New("p", 1, "letter", testNow)
	g = mustGuess(t, g, "letter", "t")
	if g.Reveal != "__tt__" {
		t.Fatalf("expected __tt__, got %q", g.Reveal)
	}
	if g.BadGuesses != 0 {
		t.Fatalf("expected no bad guesses, got %d", g.BadGuesses)
	}
	if g.Guessed != "t" {
		t.Fatalf("expected guessed t, got %q", g.Guessed)
	}
}

func TestGuessMissCountsBadGuess(t *testing.T) {
	g := New("p", 1, "letter", testNow)
	g = mustGuess(t, g, "letter", "z")
	if g.BadGuesses != 1 || g.Reveal != "______" {
		t.Fatalf("unexpected state after miss: %+v", g)
	}
}

func TestGuessUppercaseIsLowered(t *testing.T) {
	g := New("p", 1, "letter", testNow)
	g = mustGuess(t, g, "letter", "E")
	if g.Guessed != "e" || g.Reveal != "_e__e_" {
		t.Fatalf("unexpected state: %+v", g)
	}
}

func TestGuessFoldsDiacritics(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		letter string
		reveal string
	}{
		{name: "plain letter reveals accented", secret: "été", letter: "e", reveal: "été"},
		{name: "accented letter reveals plain", secret: "bebe", letter: "é", reveal: "_e_e"},
		{name: "keeps original casing", secret: "Éclair", letter: "e", reveal: "É_____"},
		{name: "spanish tilde", secret: "niño", letter: "n", reveal: "n_ñ_"},
		{name: "cedilla", secret: "garçon", letter: "c", reveal: "___ç__"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New("p", 1, tt.secret, testNow)
			g = mustGuess(t, g, tt.secret, tt.letter)
			if g.Reveal != tt.reveal {
				t.Fatalf("expected %q, got %q", tt.reveal, g.Reveal)
			}
			if g.BadGuesses != 0 {
				t.Fatalf("expected a hit, got %d bad guesses", g.BadGuesses)
			}
		})
	}
}

func TestGuessInvalidInput(t *testing.T) {
	g := New("p", 1, "hello", testNow)
	for _, letter := range []string{"", "ab", "1", "!", " ", "_"} {
		next, err := g.Guess("hello", letter, testNow)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("letter %q: expected ErrInvalidInput, got %v", letter, err)
		}
		if next.Guessed != "" || next.BadGuesses != 0 {
			t.Fatalf("letter %q: state changed: %+v", letter, next)
		}
	}
}

func TestGuessDuplicate(t *testing.T) {
	g := New("p", 1, "hello", testNow)
	g = mustGuess(t, g, "hello", "l")

	for _, letter := range []string{"l", "L"} {
		next, err := g.Guess("hello", letter, testNow)
		if !errors.Is(err, ErrDuplicateGuess) {
			t.Fatalf("letter %q: expected ErrDuplicateGuess, got %v", letter, err)
		}
		if next.Guessed != g.Guessed || next.BadGuesses != g.BadGuesses || next.Reveal != g.Reveal {
			t.Fatalf("letter %q: state changed", letter)
		}
	}
}

func TestGuessDuplicateAfterFolding(t *testing.T) {
	g := New("p", 1, "hello", testNow)
	g = mustGuess(t, g, "hello", "e")
	if _, err := g.Guess("hello", "é", testNow); !errors.Is(err, ErrDuplicateGuess) {
		t.Fatalf("expected ErrDuplicateGuess, got %v", err)
	}
}

func TestGuessPreconditionOrder(t *testing.T) {
	g := New("p", 1, "ab", testNow)
	g = mustGuess(t, g, "ab", "a")
	g = mustGuess(t, g, "ab", "b")
	if g.Outcome() != OutcomeWon {
		t.Fatalf("expected won, got %s", g.Outcome())
	}
	// Game over is reported before malformed input.
	if _, err := g.Guess("ab", "12", testNow); !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}

	g = New("p", 1, "ab", testNow)
	g = mustGuess(t, g, "ab", "a")
	// Malformed input is reported before the duplicate check.
	if _, err := g.Guess("ab", "aa", testNow); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestLoseAfterSixMisses(t *testing.T) {
	secret := "book"
	g := New("p", 1, secret, testNow)
	for i, letter := range []string{"z", "x", "q", "w", "v", "j"} {
		if g.Outcome() != OutcomeActive {
			t.Fatalf("game ended early after %d misses", i)
		}
		g = mustGuess(t, g, secret, letter)
		if g.BadGuesses != i+1 {
			t.Fatalf("expected %d bad guesses, got %d", i+1, g.BadGuesses)
		}
	}
	if g.Outcome() != OutcomeLost {
		t.Fatalf("expected lost, got %s", g.Outcome())
	}
	if g.BadGuesses != MaxBadGuesses {
		t.Fatalf("expected %d bad guesses, got %d", MaxBadGuesses, g.BadGuesses)
	}
	if g.EndTime == nil || !g.EndTime.Equal(testNow) {
		t.Fatalf("expected end time %v, got %v", testNow, g.EndTime)
	}

	before := g
	next, err := g.Guess(secret, "b", testNow)
	if !errors.Is(err, ErrGameOver) {
		t.Fatalf("expected ErrGameOver, got %v", err)
	}
	if next.Guessed != before.Guessed || next.BadGuesses != before.BadGuesses || next.Reveal != before.Reveal {
		t.Fatal("terminal game changed after rejected guess")
	}
}

func TestWinByGuessingEveryLetter(t *testing.T) {
	secret := "maison"
	g := New("p", 1, secret, testNow)
	g = mustGuess(t, g, secret, "z")

	letters := []rune(secret)
	for i, l := range letters {
		before := g.BadGuesses
		g = mustGuess(t, g, secret, string(l))
		if g.BadGuesses != before {
			t.Fatalf("bad guesses changed on correct letter %q", string(l))
		}
		if i < len(letters)-1 && g.Outcome() != OutcomeActive {
			t.Fatalf("game ended before last letter")
		}
	}
	if g.Outcome() != OutcomeWon {
		t.Fatalf("expected won, got %s", g.Outcome())
	}
	if strings.ContainsRune(g.Reveal, Blank) {
		t.Fatalf("expected no blanks, got %q", g.Reveal)
	}
	if g.Reveal != secret {
		t.Fatalf("expected reveal %q, got %q", secret, g.Reveal)
	}
	if g.BadGuesses != 1 {
		t.Fatalf("expected 1 bad guess, got %d", g.BadGuesses)
	}
	if g.EndTime == nil {
		t.Fatal("expected end time on won game")
	}
}

func TestBadGuessesMatchGuessedMisses(t *testing.T) {
	secret := "québec"
	g := New("p", 1, secret, testNow)
	for _, l := range "abcdefghijklmnopqrstuvwxyz" {
		if g.Outcome().Terminal() {
			break
		}
		g = mustGuess(t, g, secret, string(l))

		misses := 0
		for _, gl := range g.Guessed {
			if !strings.ContainsRune(Fold(secret), gl) {
				misses++
			}
		}
		if misses != g.BadGuesses {
			t.Fatalf("after %q: bad guesses %d, misses %d", string(l), g.BadGuesses, misses)
		}
	}
	if !g.Outcome().Terminal() {
		t.Fatal("expected terminal game after guessing the alphabet")
	}
}

func TestRenderHidesSecretWhileActive(t *testing.T) {
	secret := "ab"
	g := New("p", 3, secret, testNow)
	v := g.Render(secret, "a __ b", "en", "book")
	if v.SecretWord != "" {
		t.Fatal("secret word exposed on active game")
	}
	if v.Result != OutcomeActive || v.UsageID != 3 || v.Lang != "en" || v.Source != "book" {
		t.Fatalf("unexpected view: %+v", v)
	}

	g = mustGuess(t, g, secret, "a")
	g = mustGuess(t, g, secret, "b")
	v = g.Render(secret, "a __ b", "en", "book")
	if v.SecretWord != secret {
		t.Fatalf("expected secret word on terminal game, got %q", v.SecretWord)
	}
	if v.Result != OutcomeWon {
		t.Fatalf("expected won, got %s", v.Result)
	}
}

func TestElapsed(t *testing.T) {
	g := New("p", 1, "a", testNow)
	if g.Elapsed() != 0 {
		t.Fatal("expected zero elapsed on active game")
	}
	later := testNow.Add(90 * time.Second)
	g, err := g.Guess("a", "a", later)
	if err != nil {
		t.Fatalf("guess: %v", err)
	}
	if g.Elapsed() != 90*time.Second {
		t.Fatalf("expected 90s, got %v", g.Elapsed())
	}
}

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Été":    "ete",
		"niño":   "nino",
		"garçon": "garcon",
		"HELLO":  "hello",
		"ü":      "u",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
	if FoldRune('Ñ') != 'n' {
		t.Fatalf("FoldRune('Ñ') = %q", FoldRune('Ñ'))
	}
}
