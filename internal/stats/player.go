// internal/stats/player.go
//
// Per-player lifetime counters, driven only by game start/end events.
// Responsibilities:
//   - Lazily create a player record at the first game start.
//   - Keep Outcomes summing to NumGames across start/end transitions.
//   - Accumulate play time over finished games.
//
// Storage layers call GameStarted/GameEnded inside the same transaction as the
// game mutation that triggered them.

package stats

import (
	"errors"
	"fmt"
	"time"
)

// Outcome labels used as keys in Player.Outcomes.
const (
	Active = "active"
	Won    = "won"
	Lost   = "lost"
)

// ErrInconsistent reports a player record whose counters disagree.
var ErrInconsistent = errors.New("inconsistent player statistics")

// Counts maps a label (outcome or language code) to a count.
type Counts map[string]int

// Sum adds up every count.
func (c Counts) Sum() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Clone returns an independent copy of c.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Player aggregates a player's lifetime statistics.
type Player struct {
	ID         string        `json:"user_id"`
	Name       string        `json:"user_name"`
	NumGames   int           `json:"num_games"`
	Outcomes   Counts        `json:"outcomes"`
	ByLanguage Counts        `json:"by_language"`
	FirstTime  time.Time     `json:"first_time"`
	TotalTime  time.Duration `json:"total_time"`
	AvgTime    time.Duration `json:"avg_time"`
}

// NewPlayer creates the record for a player starting their first game at now.
func NewPlayer(id, name string, now time.Time) Player {
	return Player{
		ID:         id,
		Name:       name,
		Outcomes:   Counts{Active: 0, Won: 0, Lost: 0},
		ByLanguage: Counts{},
		FirstTime:  now,
	}
}

// GameStarted records a new game in lang.
func (p *Player) GameStarted(lang string) {
	if p.Outcomes == nil {
		p.Outcomes = Counts{Active: 0, Won: 0, Lost: 0}
	}
	if p.ByLanguage == nil {
		p.ByLanguage = Counts{}
	}
	p.NumGames++
	p.Outcomes[Active]++
	p.ByLanguage[lang]++
}

// GameEnded moves one game from active to outcome and adds its duration.
func (p *Player) GameEnded(outcome string, elapsed time.Duration) error {
	if outcome != Won && outcome != Lost {
		return fmt.Errorf("%w: %q is not a terminal outcome", ErrInconsistent, outcome)
	}
	if p.Outcomes[Active] <= 0 {
		return fmt.Errorf("%w: player %s has no active game to end", ErrInconsistent, p.ID)
	}
	p.Outcomes[Active]--
	p.Outcomes[outcome]++
	p.TotalTime += elapsed
	if p.NumGames > 0 {
		p.AvgTime = p.TotalTime / time.Duration(p.NumGames)
	}
	return nil
}

// Check verifies that Outcomes sums to NumGames and no counter is negative.
func (p Player) Check() error {
	for k, v := range p.Outcomes {
		if v < 0 {
			return fmt.Errorf("%w: outcome %s is %d", ErrInconsistent, k, v)
		}
	}
	if sum := p.Outcomes.Sum(); sum != p.NumGames {
		return fmt.Errorf("%w: outcomes sum to %d, num_games is %d", ErrInconsistent, sum, p.NumGames)
	}
	return nil
}
