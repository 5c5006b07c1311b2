// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// Used in tests and for storage-less development runs.
//
// Characteristics:
//   - Games and players live in maps keyed by id.
//   - A single mutex guards both maps, so a game mutation and its player
//     statistics change are applied together.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/robalobadob/langman/internal/game"
	"github.com/robalobadob/langman/internal/stats"
)

// memory is an in-memory map-based Store implementation.
type memory struct {
	mu      sync.Mutex
	games   map[string]game.Game
	players map[string]stats.Player
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore() Store {
	return &memory{
		games:   make(map[string]game.Game),
		players: make(map[string]stats.Player),
	}
}

func (m *memory) Create(ctx context.Context, g game.Game, owner Owner, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[g.ID]; ok {
		return fmt.Errorf("store: game %s already exists", g.ID)
	}
	p, ok := m.players[owner.ID]
	if !ok {
		p = stats.NewPlayer(owner.ID, owner.Name, g.StartTime)
	} else {
		p = clonePlayer(p)
	}
	p.GameStarted(lang)
	if err := p.Check(); err != nil {
		return err
	}
	m.players[owner.ID] = p
	m.games[g.ID] = g
	return nil
}

func (m *memory) Get(ctx context.Context, id string) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return game.Game{}, fmt.Errorf("%w: game %s", ErrNotFound, id)
	}
	return g, nil
}

// Update holds the store lock for the whole read-modify-write, so concurrent
// guesses on one game are applied one after another.
func (m *memory) Update(ctx context.Context, id string, fn UpdateFunc) (game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.games[id]
	if !ok {
		return game.Game{}, fmt.Errorf("%w: game %s", ErrNotFound, id)
	}
	next, ended, err := step(cur, fn)
	if err != nil {
		return cur, err
	}
	if ended {
		p, ok := m.players[cur.Player]
		if !ok {
			return cur, fmt.Errorf("%w: player %s", ErrNotFound, cur.Player)
		}
		p = clonePlayer(p)
		if err := finish(&p, next); err != nil {
			return cur, err
		}
		m.players[cur.Player] = p
	}
	m.games[id] = next
	return next, nil
}

func (m *memory) Delete(ctx context.Context, id string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[id]; !ok {
		return 0, nil
	}
	delete(m.games, id)
	return 1, nil
}

func (m *memory) Player(ctx context.Context, id string) (stats.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return stats.Player{}, fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	return clonePlayer(p), nil
}

// clonePlayer copies the counter maps so callers never share them with the store.
func clonePlayer(p stats.Player) stats.Player {
	p.Outcomes = p.Outcomes.Clone()
	p.ByLanguage = p.ByLanguage.Clone()
	return p
}
