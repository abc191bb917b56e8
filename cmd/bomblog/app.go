package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	trmsql "github.com/avito-tech/go-transaction-manager/drivers/sql/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/rs/zerolog"

	"bomblog/internal/config"
	"bomblog/internal/db"
	"bomblog/internal/game"
	"bomblog/internal/ledger"
	"bomblog/internal/pattern"
	"bomblog/internal/performance"
	"bomblog/internal/session"
	"bomblog/internal/store"
	"bomblog/internal/strategy"
)

// app holds the wired components shared by every command.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	now func() time.Time

	db         *sql.DB
	txManager  trm.Manager
	rounds     *store.Store
	patterns   *pattern.Aggregator
	registry   *session.Registry
	controller *session.Controller
	tracker    *performance.Tracker
	analyzer   *strategy.Analyzer
}

func newApp(cfg *config.Config, log zerolog.Logger) (*app, error) {
	database, err := db.Open(cfg.General.DBPath)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}
	log.Debug().Str("path", cfg.General.DBPath).Msg("database initialized")

	getter := trmsql.DefaultCtxGetter
	txManager := manager.Must(trmsql.NewDefaultFactory(database))

	rounds := store.New(database, getter, log)
	patterns := pattern.NewAggregator(database, getter, log)
	recorder := ledger.NewRecorder(txManager, rounds, patterns, log)
	registry := session.NewRegistry(database, getter)

	return &app{
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		db:         database,
		txManager:  txManager,
		rounds:     rounds,
		patterns:   patterns,
		registry:   registry,
		controller: session.NewController(txManager, registry, rounds, recorder),
		tracker:    performance.NewTracker(rounds),
		analyzer:   strategy.NewAnalyzer(rounds),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Warn().Err(err).Msg("closing database")
	}
}

// resolveSession returns id if set, else the most recently started session.
func (a *app) resolveSession(ctx context.Context, id string) (session.Session, error) {
	if id != "" {
		return a.registry.Get(ctx, id)
	}
	s, err := a.registry.Latest(ctx)
	if errors.Is(err, game.ErrNotFound) {
		return session.Session{}, fmt.Errorf("no session started yet, run `bomblog start` first")
	}
	return s, err
}
