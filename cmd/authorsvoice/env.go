package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/natasadenman-dotcom/authorsvoice/internal/config"
	"github.com/natasadenman-dotcom/authorsvoice/internal/db"
	"github.com/natasadenman-dotcom/authorsvoice/internal/files"
	"github.com/natasadenman-dotcom/authorsvoice/internal/kv"
	"github.com/natasadenman-dotcom/authorsvoice/internal/polish"
	"github.com/natasadenman-dotcom/authorsvoice/internal/search"
	"github.com/natasadenman-dotcom/authorsvoice/internal/store"
)

// env is everything a command needs.
type env struct {
	baseDir  string
	cfg      *config.Config
	logger   *slog.Logger
	database *sql.DB
	index    *search.Index
	store    *store.Store

	// polisher is nil when the configured provider is unusable.
	polisher store.Polisher

	backups *files.Guard
	exports *files.Guard
}

// openEnv loads config from baseDir, opens the SQLite store and builds the
// search index. Logs go to logOut so stdout stays clean for JSON and MCP.
func openEnv(baseDir string, logOut io.Writer) (*env, error) {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	database, err := db.Init(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	db.ConfigurePool(database, cfg)

	e, err := newEnv(db.NewBackend(database), cfg, logger, baseDir)
	if err != nil {
		database.Close()
		return nil, err
	}
	e.database = database
	return e, nil
}

// newEnv wires the store over backend.
func newEnv(backend kv.Backend, cfg *config.Config, logger *slog.Logger, baseDir string) (*env, error) {
	idx, err := search.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create search index: %w", err)
	}

	backups, err := files.NewGuard(cfg, filepath.Join(baseDir, "backups"))
	if err != nil {
		idx.Close()
		return nil, err
	}
	exports, err := files.NewGuard(cfg, filepath.Join(baseDir, "exports"))
	if err != nil {
		idx.Close()
		return nil, err
	}

	e := &env{
		baseDir: baseDir,
		cfg:     cfg,
		logger:  logger,
		index:   idx,
		store:   store.New(backend, store.Options{Logger: logger, Index: idx}),
		backups: backups,
		exports: exports,
	}

	p, err := polish.New(cfg.PolishProvider, polish.Options{
		BaseURL:     cfg.PolishURL,
		Model:       cfg.PolishModel,
		APIKey:      cfg.PolishAPIKey,
		Temperature: cfg.PolishTemperature,
	})
	if err != nil {
		logger.Warn("polish disabled", "error", err)
	} else {
		e.polisher = p
	}

	if err := e.store.RebuildIndex(context.Background()); err != nil {
		logger.Warn("search index not built", "error", err)
	} else if n, err := idx.Count(); err == nil {
		logger.Debug("search index built", "documents", n)
	}
	return e, nil
}

// Close releases the index and database. Safe to call more than once.
func (e *env) Close() {
	if e.index != nil {
		e.index.Close()
		e.index = nil
	}
	if e.database != nil {
		e.database.Close()
		e.database = nil
	}
}
