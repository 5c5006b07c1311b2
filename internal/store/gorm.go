// internal/store/gorm.go
//
// Durable Store backed by GORM (SQLite or Postgres).
//
// Characteristics:
//   - Tables: games (keyed by game id) and players (keyed by identity).
//   - Player counters are structured JSON columns (gorm.io/datatypes).
//   - Update is a transaction that compares-and-swaps on the previous
//     guessed string; a lost race is retried a bounded number of times.
//   - On Postgres the game row is also locked FOR UPDATE inside the transaction.

package store

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/robalobadob/langman/internal/game"
	"github.com/robalobadob/langman/internal/stats"
)

// gameModel is the games table row.
type gameModel struct {
	ID         string     `gorm:"primaryKey;size:36"`
	Player     string     `gorm:"size:36;index;not null"`
	UsageID    int64      `gorm:"not null"`
	Guessed    string     `gorm:"size:128;not null"`
	RevealWord string     `gorm:"size:128;not null"`
	BadGuesses int        `gorm:"not null"`
	StartTime  time.Time  `gorm:"not null"`
	EndTime    *time.Time
}

func (gameModel) TableName() string { return "games" }

// playerModel is the players table row.
type playerModel struct {
	UserID     string `gorm:"primaryKey;size:36"`
	UserName   string `gorm:"size:100"`
	NumGames   int    `gorm:"not null"`
	Outcomes   datatypes.JSONType[stats.Counts]
	ByLanguage datatypes.JSONType[stats.Counts]
	FirstTime  time.Time
	TotalTime  int64 // nanoseconds
	AvgTime    int64 // nanoseconds
}

func (playerModel) TableName() string { return "players" }

func fromGame(g game.Game) gameModel {
	return gameModel{
		ID:         g.ID,
		Player:     g.Player,
		UsageID:    g.UsageID,
		Guessed:    g.Guessed,
		RevealWord: g.Reveal,
		BadGuesses: g.BadGuesses,
		StartTime:  g.StartTime,
		EndTime:    g.EndTime,
	}
}

func (m gameModel) toGame() game.Game {
	return game.Game{
		ID:         m.ID,
		Player:     m.Player,
		UsageID:    m.UsageID,
		Guessed:    m.Guessed,
		Reveal:     m.RevealWord,
		BadGuesses: m.BadGuesses,
		StartTime:  m.StartTime,
		EndTime:    m.EndTime,
	}
}

func fromPlayer(p stats.Player) playerModel {
	return playerModel{
		UserID:     p.ID,
		UserName:   p.Name,
		NumGames:   p.NumGames,
		Outcomes:   datatypes.NewJSONType(p.Outcomes),
		ByLanguage: datatypes.NewJSONType(p.ByLanguage),
		FirstTime:  p.FirstTime,
		TotalTime:  int64(p.TotalTime),
		AvgTime:    int64(p.AvgTime),
	}
}

func (m playerModel) toPlayer() stats.Player {
	return stats.Player{
		ID:         m.UserID,
		Name:       m.UserName,
		NumGames:   m.NumGames,
		Outcomes:   m.Outcomes.Data().Clone(),
		ByLanguage: m.ByLanguage.Data().Clone(),
		FirstTime:  m.FirstTime,
		TotalTime:  time.Duration(m.TotalTime),
		AvgTime:    time.Duration(m.AvgTime),
	}
}

// errStale is returned inside a transaction when the compare-and-swap misses.
var errStale = errors.New("stale game state")

// GormStore implements Store on a *gorm.DB.
type GormStore struct {
	db         *gorm.DB
	lockRows   bool
	maxRetries int

	// beforeSwap, when set, runs inside the Update transaction just before the
	// compare-and-swap write.
	beforeSwap func(tx *gorm.DB, id string) error
}

// OpenGorm connects to driver ("sqlite" or "postgres") and migrates the schema.
// GORM's own logging is routed into zl at warn level.
func OpenGorm(driver, dsn string, zl zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite", "sqlite3":
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(sqliteDSN(dsn))
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	gormLogger := logger.New(
		stdlog.New(zl, "", 0),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if db.Dialector.Name() == "sqlite" {
		// One writer at a time; in-memory databases must also stay on one connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&gameModel{}, &playerModel{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// sqliteDSN adds a busy timeout and immediate transactions so writers queue
// instead of failing on lock upgrades.
func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
}

// ensureDir creates the parent directory of a SQLite file DSN.
func ensureDir(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	path, _, _ := strings.Cut(strings.TrimPrefix(dsn, "file:"), "?")
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	return nil
}

// NewGormStore wraps db. maxRetries <= 0 uses DefaultMaxRetries.
func NewGormStore(db *gorm.DB, maxRetries int) *GormStore {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &GormStore{
		db:         db,
		lockRows:   db.Dialector.Name() == "postgres",
		maxRetries: maxRetries,
	}
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Create(ctx context.Context, g game.Game, owner Owner, lang string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var pm playerModel
		err := s.forUpdate(tx).Where("user_id = ?", owner.ID).First(&pm).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			p := stats.NewPlayer(owner.ID, owner.Name, g.StartTime)
			p.GameStarted(lang)
			pm = fromPlayer(p)
			if err := tx.Create(&pm).Error; err != nil {
				return fmt.Errorf("create player: %w", err)
			}
		case err != nil:
			return fmt.Errorf("load player: %w", err)
		default:
			p := pm.toPlayer()
			p.GameStarted(lang)
			if err := p.Check(); err != nil {
				return err
			}
			pm = fromPlayer(p)
			if err := tx.Save(&pm).Error; err != nil {
				return fmt.Errorf("save player: %w", err)
			}
		}

		gm := fromGame(g)
		if err := tx.Create(&gm).Error; err != nil {
			return fmt.Errorf("create game: %w", err)
		}
		return nil
	})
}

func (s *GormStore) Get(ctx context.Context, id string) (game.Game, error) {
	var gm gameModel
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&gm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return game.Game{}, fmt.Errorf("%w: game %s", ErrNotFound, id)
		}
		return game.Game{}, err
	}
	return gm.toGame(), nil
}

func (s *GormStore) Update(ctx context.Context, id string, fn UpdateFunc) (game.Game, error) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		var out game.Game
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var gm gameModel
			if err := s.forUpdate(tx).Where("id = ?", id).First(&gm).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: game %s", ErrNotFound, id)
				}
				return err
			}
			cur := gm.toGame()
			next, ended, err := step(cur, fn)
			if err != nil {
				return err
			}

			if s.beforeSwap != nil {
				if err := s.beforeSwap(tx, id); err != nil {
					return err
				}
			}
			res := tx.Model(&gameModel{}).
				Where("id = ? AND guessed = ?", id, cur.Guessed).
				Updates(map[string]any{
					"guessed":     next.Guessed,
					"reveal_word": next.Reveal,
					"bad_guesses": next.BadGuesses,
					"end_time":    next.EndTime,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errStale
			}

			if ended {
				if err := s.finishPlayer(tx, next); err != nil {
					return err
				}
			}
			out = next
			return nil
		})
		if errors.Is(err, errStale) {
			zerolog.Ctx(ctx).Debug().Str("gameId", id).Int("attempt", attempt).Msg("stale game state, retrying")
			continue
		}
		if err != nil {
			return game.Game{}, err
		}
		return out, nil
	}
	return game.Game{}, fmt.Errorf("%w: game %s", ErrConflict, id)
}

func (s *GormStore) finishPlayer(tx *gorm.DB, g game.Game) error {
	var pm playerModel
	if err := s.forUpdate(tx).Where("user_id = ?", g.Player).First(&pm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: player %s", ErrNotFound, g.Player)
		}
		return err
	}
	p := pm.toPlayer()
	if err := finish(&p, g); err != nil {
		return err
	}
	pm = fromPlayer(p)
	return tx.Save(&pm).Error
}

func (s *GormStore) Delete(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&gameModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *GormStore) Player(ctx context.Context, id string) (stats.Player, error) {
	var pm playerModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", id).First(&pm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return stats.Player{}, fmt.Errorf("%w: player %s", ErrNotFound, id)
		}
		return stats.Player{}, err
	}
	return pm.toPlayer(), nil
}

// forUpdate adds row locking where the dialect supports it.
func (s *GormStore) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.lockRows {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
