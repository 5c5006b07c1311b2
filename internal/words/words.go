// internal/words/words.go
//
// Provides the phrase bank consumed by the game service.
//
// Responsibilities:
//   - Define the Bank lookup used by the game service (random pick per language, get by id).
//   - Parse phrase bank TSV from a configured file or fall back to the embedded default.
//   - Provide an in-memory Bank for tests and storage-less deployments.
//
// Seed format (one entry per line, '#' starts a comment line):
//   language<TAB>secret_word<TAB>template with {word}<TAB>source
//
// Constraints:
//   • Language must be one of Languages.
//   • Words are letters only, at most MaxWordLength runes.
//   • Templates contain {word} exactly once.

package words

import (
	"bufio"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/robalobadob/langman/assets"
)

// Bank is a read-only phrase bank.
type Bank interface {
	// Random returns a uniformly chosen entry tagged with lang.
	Random(ctx context.Context, lang string) (Usage, error)
	// Get returns the entry with the given id.
	Get(ctx context.Context, id int64) (Usage, error)
}

// LoadSeed returns the phrase bank entries from path, or the embedded default
// when path is empty. Entries are numbered from 1 in file order.
func LoadSeed(path string) ([]Usage, error) {
	if path == "" {
		lines, err := assets.UsageLines()
		if err != nil {
			return nil, fmt.Errorf("read embedded usages: %w", err)
		}
		return parseLines(lines)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTSV(f)
}

// ParseTSV reads phrase bank entries from r.
func ParseTSV(r io.Reader) ([]Usage, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(s) == "" || strings.HasPrefix(s, "#") {
			continue
		}
		lines = append(lines, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return parseLines(lines)
}

func parseLines(lines []string) ([]Usage, error) {
	out := make([]Usage, 0, len(lines))
	for i, line := range lines {
		cols := strings.Split(line, "\t")
		if len(cols) != 4 {
			return nil, fmt.Errorf("%w: entry %d has %d columns, want 4", ErrInvalidUsage, i+1, len(cols))
		}
		u := Usage{
			ID:         int64(len(out) + 1),
			Language:   strings.TrimSpace(cols[0]),
			SecretWord: strings.TrimSpace(cols[1]),
			Template:   strings.TrimSpace(cols[2]),
			Source:     strings.TrimSpace(cols[3]),
		}
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// ---------------------------- memory bank ----------------------------------

// memoryBank serves a fixed slice of entries.
type memoryBank struct {
	byID   map[int64]Usage
	byLang map[string][]Usage
}

// NewMemoryBank builds a Bank over usages. Ids must be unique.
func NewMemoryBank(usages []Usage) Bank {
	b := &memoryBank{byID: make(map[int64]Usage, len(usages)), byLang: make(map[string][]Usage)}
	for _, u := range usages {
		b.byID[u.ID] = u
		b.byLang[u.Language] = append(b.byLang[u.Language], u)
	}
	return b
}

// Random picks with crypto/rand so every entry of lang is equally likely.
func (b *memoryBank) Random(ctx context.Context, lang string) (Usage, error) {
	list := b.byLang[lang]
	if len(list) == 0 {
		return Usage{}, fmt.Errorf("%w: %s", ErrEmpty, lang)
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(list))))
	if err != nil {
		return Usage{}, err
	}
	return list[n.Int64()], nil
}

func (b *memoryBank) Get(ctx context.Context, id int64) (Usage, error) {
	u, ok := b.byID[id]
	if !ok {
		return Usage{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return u, nil
}
