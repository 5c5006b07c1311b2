package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/langman/internal/auth"
	"github.com/robalobadob/langman/internal/config"
	"github.com/robalobadob/langman/internal/httpserver"
	"github.com/robalobadob/langman/internal/metrics"
	"github.com/robalobadob/langman/internal/play"
	"github.com/robalobadob/langman/internal/sqldb"
	"github.com/robalobadob/langman/internal/store"
	"github.com/robalobadob/langman/internal/token"
	"github.com/robalobadob/langman/internal/words"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.TokenTTL, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("token issuer")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	authDB, err := openSQL(cfg.Auth)
	if err != nil {
		log.Fatal().Err(err).Msg("open auth database")
	}
	defer authDB.Close()
	accounts, err := auth.New(ctx, authDB, issuer, log.With().Str("component", "auth").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("init accounts")
	}

	bank, closeBank, err := openBank(ctx, cfg.Usage)
	if err != nil {
		log.Fatal().Err(err).Msg("init phrase bank")
	}
	defer closeBank()

	games, closeGames, err := openStore(cfg.Games)
	if err != nil {
		log.Fatal().Err(err).Msg("init game store")
	}
	defer closeGames()

	svc := play.New(games, bank, issuer,
		play.WithMetrics(metrics.New(reg)),
		play.WithLogger(log.With().Str("component", "play").Logger()),
	)

	srv := httpserver.New(httpserver.Deps{
		Games:        svc,
		Accounts:     accounts,
		Tokens:       issuer,
		Gatherer:     reg,
		ClientOrigin: cfg.ClientOrigin,
		Logger:       log.Logger,
	}).HTTPServer(":" + cfg.Port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("starting langman server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

// openSQL opens a database/sql handle; the memory driver is an in-memory SQLite database.
func openSQL(c config.DatabaseConfig) (*sqldb.DB, error) {
	switch c.Driver {
	case config.DriverMemory:
		return sqldb.Open(sqldb.DriverSQLite, ":memory:")
	case config.DriverPostgres:
		return sqldb.Open(sqldb.DriverPostgres, c.DSN)
	default:
		return sqldb.Open(sqldb.DriverSQLite, c.DSN)
	}
}

// openBank loads the seed and returns the configured phrase bank.
func openBank(ctx context.Context, c config.UsageConfig) (words.Bank, func(), error) {
	seed, err := words.LoadSeed(c.SeedFile)
	if err != nil {
		return nil, nil, err
	}
	if c.Driver == config.DriverMemory {
		log.Info().Int("usages", len(seed)).Msg("using in-memory phrase bank")
		return words.NewMemoryBank(seed), func() {}, nil
	}

	db, err := openSQL(c.DatabaseConfig)
	if err != nil {
		return nil, nil, err
	}
	bank, err := words.NewSQLBank(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if _, err := bank.Seed(ctx, seed); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return bank, func() { _ = db.Close() }, nil
}

// openStore returns the configured game/player store.
func openStore(c config.GamesConfig) (store.Store, func(), error) {
	if c.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory game store; state is lost on restart")
		return store.NewMemoryStore(), func() {}, nil
	}
	db, err := store.OpenGorm(c.Driver, c.DSN, log.With().Str("component", "gorm").Logger())
	if err != nil {
		return nil, nil, err
	}
	st := store.NewGormStore(db, c.MaxRetries)
	return st, func() { _ = st.Close() }, nil
}
